package main

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
)

// Bridge resolves a browsing context and runs one protocol operation over a
// dedicated connection. Nothing is pooled: every operation opens, uses, and
// closes its own session.
type Bridge struct {
	cfg      Config
	resolver *Resolver
	dial     func(ctx context.Context, wsURL string) (*Session, error)
}

func NewBridge(cfg Config) *Bridge {
	return &Bridge{
		cfg:      cfg,
		resolver: NewResolver(cfg.CDPBase),
		dial:     Dial,
	}
}

// withSession resolves tabFilter, opens a session, and guarantees Close on
// every exit path — success, protocol error, or transport failure.
func (b *Bridge) withSession(ctx context.Context, tabFilter string, fn func(*Session) error) (pageURL string, err error) {
	wsURL, pageURL, err := b.resolver.Resolve(ctx, tabFilter)
	if err != nil {
		return "", err
	}
	sess, err := b.dial(ctx, wsURL)
	if err != nil {
		return pageURL, err
	}
	defer sess.Close()
	return pageURL, fn(sess)
}

// Tabs lists page targets projected to {title, url}.
func (b *Bridge) Tabs(ctx context.Context) ([]TabInfo, error) {
	pages, err := b.resolver.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	tabs := make([]TabInfo, 0, len(pages))
	for _, t := range pages {
		tabs = append(tabs, TabInfo{Title: t.Title, URL: t.URL})
	}
	return tabs, nil
}

// Type synthesizes keystrokes on the resolved tab. Clear runs the
// select-all/backspace sequence first.
func (b *Bridge) Type(ctx context.Context, req TypeRequest) (TypeResult, error) {
	var res TypeResult
	pageURL, err := b.withSession(ctx, req.TabFilter, func(sess *Session) error {
		syn := NewSynthesizer(sess)
		var err error
		if req.Clear {
			res.Chars, err = syn.ClearAndType(ctx, req.Text, req.Selector)
		} else {
			res.Chars, err = syn.TypeText(ctx, req.Text, req.Selector)
		}
		return err
	})
	res.Tab = pageURL
	return res, err
}

// Click presses and releases the left button at page coordinates.
func (b *Bridge) Click(ctx context.Context, x, y float64, tabFilter string) error {
	_, err := b.withSession(ctx, tabFilter, func(sess *Session) error {
		return NewSynthesizer(sess).Click(ctx, x, y)
	})
	return err
}

// Eval evaluates an expression in page context, returning the raw protocol
// result.
func (b *Bridge) Eval(ctx context.Context, expression, tabFilter string) (json.RawMessage, error) {
	var result json.RawMessage
	_, err := b.withSession(ctx, tabFilter, func(sess *Session) error {
		var err error
		result, err = sess.Send(ctx, runtime.CommandEvaluate,
			runtime.Evaluate(expression).WithReturnByValue(true))
		return err
	})
	return result, err
}

// DOM fetches the full document tree, piercing shadow roots.
func (b *Bridge) DOM(ctx context.Context, tabFilter string) (json.RawMessage, error) {
	var result json.RawMessage
	_, err := b.withSession(ctx, tabFilter, func(sess *Session) error {
		if _, err := sess.Send(ctx, dom.CommandEnable, nil); err != nil {
			return err
		}
		var err error
		result, err = sess.Send(ctx, dom.CommandGetDocument,
			dom.GetDocument().WithDepth(-1).WithPierce(true))
		return err
	})
	return result, err
}

// AXTree fetches the full accessibility tree and flattens it.
func (b *Bridge) AXTree(ctx context.Context, tabFilter string, interactiveOnly bool) ([]A11yNode, error) {
	var nodes []A11yNode
	_, err := b.withSession(ctx, tabFilter, func(sess *Session) error {
		if _, err := sess.Send(ctx, accessibility.CommandEnable, nil); err != nil {
			return err
		}
		raw, err := sess.Send(ctx, accessibility.CommandGetFullAXTree, nil)
		if err != nil {
			return err
		}
		nodes, err = flattenAXTree(raw, interactiveOnly)
		return err
	})
	return nodes, err
}
