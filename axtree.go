package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// A11yNode is one flattened accessibility-tree entry.
type A11yNode struct {
	Ref      string `json:"ref"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Value    string `json:"value,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Focused  bool   `json:"focused,omitempty"`
	NodeID   int64  `json:"nodeId,omitempty"` // backend DOM node ID
}

// ── Raw a11y tree types (to avoid cdproto deserialization issues) ──

type rawAXNode struct {
	NodeID           string      `json:"nodeId"`
	Ignored          bool        `json:"ignored"`
	Role             *rawAXValue `json:"role"`
	Name             *rawAXValue `json:"name"`
	Value            *rawAXValue `json:"value"`
	Properties       []rawAXProp `json:"properties"`
	ChildIDs         []string    `json:"childIds"`
	BackendDOMNodeID int64       `json:"backendDOMNodeId"`
}

type rawAXValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawAXProp struct {
	Name  string      `json:"name"`
	Value *rawAXValue `json:"value"`
}

func (v *rawAXValue) String() string {
	if v == nil || v.Value == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	// Number/bool
	return strings.Trim(string(v.Value), `"`)
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "textbox": true, "searchbox": true,
	"combobox": true, "listbox": true, "option": true, "checkbox": true,
	"radio": true, "switch": true, "slider": true, "spinbutton": true,
	"menuitem": true, "menuitemcheckbox": true, "menuitemradio": true,
	"tab": true, "treeitem": true,
}

// flattenAXTree parses a raw Accessibility.getFullAXTree result into a flat
// ref-addressed list, skipping ignored and purely structural nodes.
// interactiveOnly keeps only actionable roles.
func flattenAXTree(raw json.RawMessage, interactiveOnly bool) ([]A11yNode, error) {
	var treeResp struct {
		Nodes []rawAXNode `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &treeResp); err != nil {
		return nil, fmt.Errorf("parse a11y tree: %w", err)
	}

	parentOf := make(map[string]string)
	for _, n := range treeResp.Nodes {
		for _, childID := range n.ChildIDs {
			parentOf[childID] = n.NodeID
		}
	}
	depthOf := func(nodeID string) int {
		d := 0
		for cur := nodeID; ; {
			p, ok := parentOf[cur]
			if !ok {
				break
			}
			d++
			cur = p
		}
		return d
	}

	flat := make([]A11yNode, 0)
	refID := 0

	for _, n := range treeResp.Nodes {
		if n.Ignored {
			continue
		}
		role := n.Role.String()
		name := n.Name.String()
		if role == "none" || role == "generic" || role == "InlineTextBox" {
			continue
		}
		if name == "" && role == "StaticText" {
			continue
		}
		if interactiveOnly && !interactiveRoles[role] {
			continue
		}

		entry := A11yNode{
			Ref:   fmt.Sprintf("e%d", refID),
			Role:  role,
			Name:  name,
			Depth: depthOf(n.NodeID),
		}
		if v := n.Value.String(); v != "" {
			entry.Value = v
		}
		if n.BackendDOMNodeID != 0 {
			entry.NodeID = n.BackendDOMNodeID
		}
		for _, prop := range n.Properties {
			if prop.Name == "disabled" && prop.Value.String() == "true" {
				entry.Disabled = true
			}
			if prop.Name == "focused" && prop.Value.String() == "true" {
				entry.Focused = true
			}
		}

		flat = append(flat, entry)
		refID++
	}
	return flat, nil
}

// formatAXNodes renders the flat list one node per line, indented by depth.
// Used for CLI output and for AI prompts.
func formatAXNodes(nodes []A11yNode, limit int) string {
	var sb strings.Builder
	for i, n := range nodes {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&sb, "... (%d more)\n", len(nodes)-limit)
			break
		}
		fmt.Fprintf(&sb, "%s[%s] %s", strings.Repeat("  ", n.Depth), n.Ref, n.Role)
		if n.Name != "" {
			fmt.Fprintf(&sb, " %q", n.Name)
		}
		if n.Value != "" {
			fmt.Fprintf(&sb, " value=%q", n.Value)
		}
		if n.Disabled {
			sb.WriteString(" disabled")
		}
		if n.Focused {
			sb.WriteString(" focused")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
