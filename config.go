package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const maxBodySize = 1 << 20 // 1MB

// Config is built once in main and handed to every constructor.
// Nothing below loadConfig reads the environment.
type Config struct {
	Port        string `yaml:"port"`        // HTTP facade listen port
	CDPBase     string `yaml:"cdpUrl"`      // Chrome debug endpoint base, e.g. http://localhost:18800
	Token       string `yaml:"token"`       // optional bearer token for the facade
	OpenAIKey   string `yaml:"openaiKey"`   // empty = AI features report "not configured"
	OpenAIModel string `yaml:"openaiModel"`
	AgentSteps  int    `yaml:"agentSteps"` // max actions per agent task
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:        "18850",
		CDPBase:     "http://localhost:18800",
		OpenAIModel: "gpt-4o-mini",
		AgentSteps:  10,
	}

	path := os.Getenv("BRIDGE_CONFIG")
	if path == "" {
		path = filepath.Join(homeDir(), ".openclaw-bridge", "config.yaml")
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Environment wins over the file.
	if v := os.Getenv("BRIDGE_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CDP_URL"); v != "" {
		cfg.CDPBase = v
	} else if v := os.Getenv("CDP_PORT"); v != "" {
		cfg.CDPBase = "http://localhost:" + v
	}
	if v := os.Getenv("BRIDGE_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	return cfg, nil
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}
