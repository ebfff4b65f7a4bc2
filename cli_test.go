package main

import (
	"errors"
	"strings"
	"testing"
)

func TestIsCLICommand(t *testing.T) {
	for _, cmd := range cliCommands {
		if !isCLICommand(cmd) {
			t.Errorf("isCLICommand(%q) = false", cmd)
		}
	}
	for _, cmd := range []string{"serve", "help", "", "TYPE", "bogus"} {
		if isCLICommand(cmd) {
			t.Errorf("isCLICommand(%q) = true", cmd)
		}
	}
}

func TestRunCLI_RequiredFlags(t *testing.T) {
	cfg := Config{CDPBase: "http://localhost:1"}
	tests := []struct {
		cmd     string
		args    []string
		wantErr string
	}{
		{"type", nil, "-text is required"},
		{"click", nil, "-x and -y are required"},
		{"click", []string{"-x", "100"}, "-x and -y are required"},
		{"eval", nil, "-expr is required"},
		{"agent", nil, "-task is required"},
		{"find", nil, "-prompt is required"},
	}
	for _, tt := range tests {
		err := runCLI(cfg, tt.cmd, tt.args)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("runCLI(%s %v) = %v, want %q", tt.cmd, tt.args, err, tt.wantErr)
		}
	}
}

func TestRunCLI_AIWithoutKey(t *testing.T) {
	cfg := Config{CDPBase: "http://localhost:1"}
	if err := runCLI(cfg, "agent", []string{"-task", "do it"}); !errors.Is(err, errAINotConfigured) {
		t.Errorf("agent err = %v", err)
	}
	if err := runCLI(cfg, "find", []string{"-prompt", "the button"}); !errors.Is(err, errAINotConfigured) {
		t.Errorf("find err = %v", err)
	}
}

func TestRunCLI_UnknownCommand(t *testing.T) {
	err := runCLI(Config{}, "bogus", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
}

func TestRunCLI_Health(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	cfg := Config{CDPBase: srv.URL}
	if err := runCLI(cfg, "health", nil); err != nil {
		t.Errorf("health against live listing = %v", err)
	}

	down := Config{CDPBase: "http://127.0.0.1:1"}
	if err := runCLI(down, "health", nil); err == nil {
		t.Error("health against dead endpoint should fail")
	}
}
