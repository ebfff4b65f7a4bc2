package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeChat returns scripted replies in order.
type fakeChat struct {
	replies []string
	calls   int
	prompts []string
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	reply := f.replies[f.calls]
	f.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func axBridge(nodes []A11yNode) *mockBridge {
	return &mockBridge{
		axtree: func(context.Context, string, bool) ([]A11yNode, error) {
			return nodes, nil
		},
	}
}

func TestNewCapability_NilWithoutKey(t *testing.T) {
	if c := newCapability(Config{}, &mockBridge{}); c != nil {
		t.Error("capability should be nil without an API key")
	}
	if c := newCapability(Config{OpenAIKey: "sk-test"}, &mockBridge{}); c == nil {
		t.Error("capability should construct with a key")
	}
}

func TestFindElement(t *testing.T) {
	chat := &fakeChat{replies: []string{
		"```json\n{\"found\": true, \"ref\": \"e1\", \"role\": \"button\", \"name\": \"Send\"}\n```",
	}}
	c := &openAICapability{
		client: chat,
		model:  "test-model",
		bridge: axBridge([]A11yNode{
			{Ref: "e0", Role: "textbox", Name: "Message", NodeID: 43},
			{Ref: "e1", Role: "button", Name: "Send", NodeID: 42},
		}),
	}

	result, err := c.FindElement(context.Background(), "the send button", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["found"] != true || result["ref"] != "e1" {
		t.Errorf("result = %v", result)
	}
	if result["nodeId"] != int64(42) {
		t.Errorf("nodeId not resolved from the snapshot: %v", result)
	}

	if len(chat.prompts) != 1 {
		t.Fatalf("prompts = %v", chat.prompts)
	}
	if got := chat.prompts[0]; !strings.Contains(got, "[e1] button") || !strings.Contains(got, "the send button") {
		t.Errorf("prompt missing tree or description:\n%s", got)
	}
}

func TestFindElement_NotFound(t *testing.T) {
	c := &openAICapability{
		client: &fakeChat{replies: []string{`{"found": false}`}},
		bridge: axBridge(nil),
	}
	result, err := c.FindElement(context.Background(), "a unicorn", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["found"] != false {
		t.Errorf("result = %v", result)
	}
}

func TestRunTask_DoneImmediately(t *testing.T) {
	c := &openAICapability{
		client:   &fakeChat{replies: []string{`{"action":"done","result":"nothing to do"}`}},
		bridge:   axBridge(nil),
		maxSteps: 5,
	}
	result, err := c.RunTask(context.Background(), "check the page", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["done"] != true || result["result"] != "nothing to do" {
		t.Errorf("result = %v", result)
	}
}

func TestRunTask_ExecutesActions(t *testing.T) {
	var typed []TypeRequest
	var clicks [][2]float64
	bridge := axBridge([]A11yNode{{Ref: "e0", Role: "textbox", Name: "Message"}})
	bridge.typeFn = func(_ context.Context, req TypeRequest) (TypeResult, error) {
		typed = append(typed, req)
		return TypeResult{Chars: len(req.Text)}, nil
	}
	bridge.click = func(_ context.Context, x, y float64, _ string) error {
		clicks = append(clicks, [2]float64{x, y})
		return nil
	}

	c := &openAICapability{
		client: &fakeChat{replies: []string{
			`{"action":"type","text":"hello","selector":"#msg"}`,
			`{"action":"click","x":300,"y":40}`,
			`{"action":"done","result":"sent"}`,
		}},
		bridge:   bridge,
		maxSteps: 5,
	}

	result, err := c.RunTask(context.Background(), "send hello", "x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["done"] != true || result["steps"] != 2 {
		t.Errorf("result = %v", result)
	}
	if len(typed) != 1 || typed[0].Text != "hello" || typed[0].TabFilter != "x.com" {
		t.Errorf("typed = %+v", typed)
	}
	if len(clicks) != 1 || clicks[0] != [2]float64{300, 40} {
		t.Errorf("clicks = %v", clicks)
	}
}

func TestRunTask_StepBudget(t *testing.T) {
	bridge := axBridge(nil)
	bridge.eval = func(context.Context, string, string) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}
	c := &openAICapability{
		client: &fakeChat{replies: []string{
			`{"action":"eval","expression":"1"}`,
			`{"action":"eval","expression":"2"}`,
		}},
		bridge:   bridge,
		maxSteps: 2,
	}
	result, err := c.RunTask(context.Background(), "loop forever", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["done"] != false {
		t.Errorf("result = %v", result)
	}
}

func TestRunTask_UnknownAction(t *testing.T) {
	c := &openAICapability{
		client:   &fakeChat{replies: []string{`{"action":"teleport"}`}},
		bridge:   axBridge(nil),
		maxSteps: 1,
	}
	if _, err := c.RunTask(context.Background(), "task", ""); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestRunTask_UnparsableReply(t *testing.T) {
	c := &openAICapability{
		client:   &fakeChat{replies: []string{"I would love to help!"}},
		bridge:   axBridge(nil),
		maxSteps: 1,
	}
	if _, err := c.RunTask(context.Background(), "task", ""); err == nil {
		t.Error("expected error for unparsable reply")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Sure thing: {\"a\":1} done", `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
