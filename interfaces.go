package main

import (
	"context"
	"encoding/json"
)

// BridgeAPI is the interface handlers and the AI capability use to drive the
// browser. Bridge implements this. Tests can mock it.
type BridgeAPI interface {
	Tabs(ctx context.Context) ([]TabInfo, error)
	Type(ctx context.Context, req TypeRequest) (TypeResult, error)
	Click(ctx context.Context, x, y float64, tabFilter string) error
	Eval(ctx context.Context, expression, tabFilter string) (json.RawMessage, error)
	DOM(ctx context.Context, tabFilter string) (json.RawMessage, error)
	AXTree(ctx context.Context, tabFilter string, interactiveOnly bool) ([]A11yNode, error)
}

// TabInfo is the tab projection exposed over HTTP and the CLI.
type TabInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TypeRequest is one keystroke-synthesis operation.
type TypeRequest struct {
	Text      string
	TabFilter string
	Selector  string
	Clear     bool
}

// TypeResult reports the characters processed so callers can detect
// truncation, and the tab the events went to.
type TypeResult struct {
	Chars int
	Tab   string
}
