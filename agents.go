package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentConfig is a YAML agent definition: which model to use, sampling
// parameters, and the prompt templates for each call shape.
type AgentConfig struct {
	Model      string          `yaml:"model"`
	Parameters AgentParameters `yaml:"parameters"`
	Messages   AgentMessages   `yaml:"messages"`
}

type AgentParameters struct {
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int64   `yaml:"max_tokens"`
	SingleTemperature float64 `yaml:"single_temperature"`
	SingleMaxTokens   int64   `yaml:"single_max_tokens"`
}

type AgentMessages struct {
	System             string `yaml:"system"`
	UserTemplate       string `yaml:"user_template"`
	SingleUserTemplate string `yaml:"single_user_template"`
	BatchUserTemplate  string `yaml:"batch_user_template"`
}

// LoadAgentConfig reads <dir>/<name>.yaml.
func LoadAgentConfig(dir, name string) (AgentConfig, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("read agent definition %s: %w", path, err)
	}
	var agent AgentConfig
	if err := yaml.Unmarshal(data, &agent); err != nil {
		return AgentConfig{}, fmt.Errorf("parse agent yaml %s: %w", path, err)
	}
	return agent, nil
}

// formatMessage substitutes {placeholder} occurrences in a template.
func formatMessage(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
