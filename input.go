package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
)

// Timing model. Editors that build structural blocks (new paragraph on
// Enter) need the longer settle; ordinary characters only need enough gap
// not to overwhelm frameworks that coalesce input events.
const (
	specialKeyDelay = 50 * time.Millisecond
	interCharDelay  = 8 * time.Millisecond
	focusDelay      = 100 * time.Millisecond
	clearDelay      = 50 * time.Millisecond
	clickDelay      = 20 * time.Millisecond
)

// shiftedSymbols are the characters typed with Shift held on a US layout.
const shiftedSymbols = `!@#$%^&*()_+{}|:"<>?~`

// specialKey carries the fixed (key, code, vk) triple for characters that
// map to named keys rather than text.
type specialKey struct {
	key  string
	code string
	vk   int64
}

var specialKeys = map[rune]specialKey{
	'\n': {"Enter", "Enter", 13},
	'\t': {"Tab", "Tab", 9},
	'\r': {"Enter", "Enter", 13},
}

// commandSender is the slice of Session the synthesizer needs. Tests
// substitute a recording fake.
type commandSender interface {
	Send(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Synthesizer turns text and coordinates into ordered, timed sequences of
// raw input events on one session. Events appear hardware-originated to the
// receiving page (isTrusted).
type Synthesizer struct {
	sess commandSender
	wait func(context.Context, time.Duration) error
}

func NewSynthesizer(sess commandSender) *Synthesizer {
	return &Synthesizer{sess: sess, wait: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TypeText dispatches text one character at a time, optionally focusing a
// selector first. Returns the count of characters processed; on failure the
// already-dispatched prefix is not rolled back.
func (s *Synthesizer) TypeText(ctx context.Context, text, focusSelector string) (int, error) {
	if err := s.focus(ctx, focusSelector); err != nil {
		return 0, err
	}
	return s.typeChars(ctx, text)
}

// ClearAndType selects all and deletes before typing. The clear sequence,
// including its settle delays, completes fully before the first character
// of new text is dispatched.
func (s *Synthesizer) ClearAndType(ctx context.Context, text, focusSelector string) (int, error) {
	if err := s.focus(ctx, focusSelector); err != nil {
		return 0, err
	}
	if err := s.clear(ctx); err != nil {
		return 0, err
	}
	return s.typeChars(ctx, text)
}

func (s *Synthesizer) typeChars(ctx context.Context, text string) (int, error) {
	n := 0
	for _, c := range text {
		if err := s.dispatchKey(ctx, c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Synthesizer) focus(ctx context.Context, selector string) error {
	if selector == "" {
		return nil
	}
	expr := fmt.Sprintf("document.querySelector(%q).focus()", selector)
	if _, err := s.sess.Send(ctx, runtime.CommandEvaluate, runtime.Evaluate(expr)); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	return s.wait(ctx, focusDelay)
}

// dispatchKey emits the three-event sequence for one character, then the
// character class's settle delay.
func (s *Synthesizer) dispatchKey(ctx context.Context, c rune) error {
	if sk, ok := specialKeys[c]; ok {
		text := string(c)
		if c == '\n' {
			text = "\r"
		}
		for _, kind := range []input.KeyType{input.KeyRawDown, input.KeyChar, input.KeyUp} {
			ev := input.DispatchKeyEvent(kind).
				WithKey(sk.key).
				WithCode(sk.code).
				WithWindowsVirtualKeyCode(sk.vk).
				WithNativeVirtualKeyCode(sk.vk)
			if kind == input.KeyChar {
				ev = ev.WithText(text)
			}
			if _, err := s.sess.Send(ctx, input.CommandDispatchKeyEvent, ev); err != nil {
				return err
			}
		}
		return s.wait(ctx, specialKeyDelay)
	}

	vk := int64(c)
	var mods input.Modifier
	if unicode.IsUpper(c) || strings.ContainsRune(shiftedSymbols, c) {
		mods = input.ModifierShift
	}
	code := ""
	switch {
	case unicode.IsLetter(c):
		code = "Key" + strings.ToUpper(string(c))
	case unicode.IsDigit(c):
		code = "Digit" + string(c)
	}

	for _, kind := range []input.KeyType{input.KeyDown, input.KeyChar, input.KeyUp} {
		ev := input.DispatchKeyEvent(kind).
			WithKey(string(c)).
			WithCode(code).
			WithWindowsVirtualKeyCode(vk).
			WithNativeVirtualKeyCode(vk).
			WithModifiers(mods)
		if kind != input.KeyUp {
			ev = ev.WithText(string(c))
		}
		if _, err := s.sess.Send(ctx, input.CommandDispatchKeyEvent, ev); err != nil {
			return err
		}
	}
	return s.wait(ctx, interCharDelay)
}

// clear emits the select-all chord then backspace: Meta+A down/up, settle,
// Backspace rawKeyDown/keyUp, settle.
func (s *Synthesizer) clear(ctx context.Context) error {
	for _, kind := range []input.KeyType{input.KeyDown, input.KeyUp} {
		ev := input.DispatchKeyEvent(kind).
			WithKey("a").
			WithCode("KeyA").
			WithWindowsVirtualKeyCode(65).
			WithNativeVirtualKeyCode(65).
			WithModifiers(input.ModifierCommand)
		if _, err := s.sess.Send(ctx, input.CommandDispatchKeyEvent, ev); err != nil {
			return err
		}
	}
	if err := s.wait(ctx, clearDelay); err != nil {
		return err
	}
	for _, kind := range []input.KeyType{input.KeyRawDown, input.KeyUp} {
		ev := input.DispatchKeyEvent(kind).
			WithKey("Backspace").
			WithCode("Backspace").
			WithWindowsVirtualKeyCode(8).
			WithNativeVirtualKeyCode(8)
		if _, err := s.sess.Send(ctx, input.CommandDispatchKeyEvent, ev); err != nil {
			return err
		}
	}
	return s.wait(ctx, clearDelay)
}

// Click emits a mousePressed/mouseReleased pair at the given coordinates
// with a single-click count and a short pause between press and release.
func (s *Synthesizer) Click(ctx context.Context, x, y float64) error {
	press := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(input.Left).
		WithClickCount(1)
	if _, err := s.sess.Send(ctx, input.CommandDispatchMouseEvent, press); err != nil {
		return err
	}
	if err := s.wait(ctx, clickDelay); err != nil {
		return err
	}
	release := input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(input.Left).
		WithClickCount(1)
	if _, err := s.sess.Send(ctx, input.CommandDispatchMouseEvent, release); err != nil {
		return err
	}
	return s.wait(ctx, clickDelay)
}
