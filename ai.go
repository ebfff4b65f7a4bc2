package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var errAINotConfigured = errors.New("agent not configured. Set OPENAI_API_KEY")

// Capability is the pluggable language-model collaborator behind /agent and
// /find. One method per feature so the core builds and tests without a live
// backend.
type Capability interface {
	RunTask(ctx context.Context, task, tabFilter string) (map[string]any, error)
	FindElement(ctx context.Context, prompt, tabFilter string) (map[string]any, error)
}

// chatClient is the slice of the OpenAI client we use; tests fake it.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type openAICapability struct {
	client   chatClient
	model    string
	bridge   BridgeAPI
	maxSteps int
}

// newCapability returns nil when no API key is configured; the dispatcher
// then reports errAINotConfigured instead of failing the HTTP transaction.
func newCapability(cfg Config, bridge BridgeAPI) Capability {
	if cfg.OpenAIKey == "" {
		return nil
	}
	return &openAICapability{
		client:   openai.NewClient(cfg.OpenAIKey),
		model:    cfg.OpenAIModel,
		bridge:   bridge,
		maxSteps: cfg.AgentSteps,
	}
}

const axPromptLimit = 400 // nodes shown to the model per snapshot

// FindElement takes one accessibility snapshot and asks the model to pick
// the matching ref.
func (c *openAICapability) FindElement(ctx context.Context, prompt, tabFilter string) (map[string]any, error) {
	nodes, err := c.bridge.AXTree(ctx, tabFilter, false)
	if err != nil {
		return nil, err
	}

	reply, err := c.complete(ctx,
		"You locate elements in an accessibility tree. Answer with JSON only: "+
			`{"found": true, "ref": "eN", "role": "...", "name": "..."} or {"found": false}.`,
		fmt.Sprintf("Element description: %s\n\nAccessibility tree:\n%s",
			prompt, formatAXNodes(nodes, axPromptLimit)))
	if err != nil {
		return nil, err
	}

	var pick struct {
		Found bool   `json:"found"`
		Ref   string `json:"ref"`
		Role  string `json:"role"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &pick); err != nil {
		return nil, fmt.Errorf("model reply unparsable: %w", err)
	}
	if !pick.Found {
		return map[string]any{"found": false}, nil
	}

	result := map[string]any{"found": true, "ref": pick.Ref, "role": pick.Role, "name": pick.Name}
	for _, n := range nodes {
		if n.Ref == pick.Ref {
			result["nodeId"] = n.NodeID
			break
		}
	}
	return result, nil
}

// agentAction is one step the model may request.
type agentAction struct {
	Action     string  `json:"action"` // type | click | eval | done
	Text       string  `json:"text,omitempty"`
	Selector   string  `json:"selector,omitempty"`
	Clear      bool    `json:"clear,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Expression string  `json:"expression,omitempty"`
	Result     string  `json:"result,omitempty"`
}

// RunTask drives a bounded observe/act loop: accessibility snapshot in,
// one JSON action out, executed via the bridge primitives.
func (c *openAICapability) RunTask(ctx context.Context, task, tabFilter string) (map[string]any, error) {
	system := "You control a web page through low-level actions. " +
		"Each turn you get the page's accessibility tree. Reply with JSON only, one action:\n" +
		`{"action":"type","text":"...","selector":"css","clear":false}` + "\n" +
		`{"action":"click","x":100,"y":200}` + "\n" +
		`{"action":"eval","expression":"js"}` + "\n" +
		`{"action":"done","result":"summary"}`

	var history []string
	for step := 0; step < c.maxSteps; step++ {
		nodes, err := c.bridge.AXTree(ctx, tabFilter, false)
		if err != nil {
			return nil, err
		}

		user := fmt.Sprintf("Task: %s\n\nPage:\n%s", task, formatAXNodes(nodes, axPromptLimit))
		if len(history) > 0 {
			user += "\nPrevious actions:\n" + strings.Join(history, "\n")
		}
		reply, err := c.complete(ctx, system, user)
		if err != nil {
			return nil, err
		}

		var act agentAction
		if err := json.Unmarshal([]byte(extractJSON(reply)), &act); err != nil {
			return nil, fmt.Errorf("model reply unparsable: %w", err)
		}

		switch act.Action {
		case "done":
			return map[string]any{"done": true, "result": act.Result, "steps": step}, nil
		case "type":
			res, err := c.bridge.Type(ctx, TypeRequest{
				Text: act.Text, TabFilter: tabFilter, Selector: act.Selector, Clear: act.Clear,
			})
			if err != nil {
				return nil, err
			}
			history = append(history, fmt.Sprintf("typed %d chars", res.Chars))
		case "click":
			if err := c.bridge.Click(ctx, act.X, act.Y, tabFilter); err != nil {
				return nil, err
			}
			history = append(history, fmt.Sprintf("clicked (%.0f, %.0f)", act.X, act.Y))
		case "eval":
			out, err := c.bridge.Eval(ctx, act.Expression, tabFilter)
			if err != nil {
				return nil, err
			}
			history = append(history, "eval → "+truncate(string(out), 200))
		default:
			return nil, fmt.Errorf("model requested unknown action %q", act.Action)
		}
		slog.Info("agent step", "n", step, "action", act.Action)
	}

	return map[string]any{"done": false, "steps": c.maxSteps, "result": "step budget exhausted"}, nil
}

func (c *openAICapability) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown fencing the model may wrap around its reply.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
