package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadConfig()

	if cfg.LLMProvider != "openai" {
		t.Fatalf("unexpected provider: %q", cfg.LLMProvider)
	}
	if cfg.MaxPages != 20 {
		t.Fatalf("unexpected max pages default: %d", cfg.MaxPages)
	}
	if cfg.DiscoverySampleSize != 200 {
		t.Fatalf("unexpected sample size default: %d", cfg.DiscoverySampleSize)
	}
	if cfg.MinCategories != 6 || cfg.MaxCategories != 10 {
		t.Fatalf("unexpected category bounds: %d-%d", cfg.MinCategories, cfg.MaxCategories)
	}
	if cfg.ClassifyBatchSize != 10 || cfg.ClassifyBatchThreshold != 20 {
		t.Fatalf("unexpected batch defaults: size=%d threshold=%d", cfg.ClassifyBatchSize, cfg.ClassifyBatchThreshold)
	}
	if cfg.DBPath != "./raclassify.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.ComplaintsFile() != filepath.Join("data", "complaints_raw.json") {
		t.Fatalf("unexpected complaints file: %q", cfg.ComplaintsFile())
	}
	if cfg.UsageLogFile != filepath.Join("output", "api_usage.json") {
		t.Fatalf("unexpected usage log default: %q", cfg.UsageLogFile)
	}
	if cfg.DisableUsageTracking {
		t.Fatal("usage tracking should be enabled by default")
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm_provider: "anthropic"
anthropic_api_key: "yaml-anthropic"
portal_url: "https://portal.example/empresa"
max_pages: 5
output_dir: "/tmp/yaml-output"
classify_batch_threshold: 50
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("MAX_PAGES", "7")

	cfg := LoadConfig()

	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected provider from env override, got %q", cfg.LLMProvider)
	}
	if cfg.OpenAIAPIKey != "sk-env" {
		t.Fatal("expected openai key from env override")
	}
	if cfg.MaxPages != 7 {
		t.Fatalf("expected max pages from env override, got %d", cfg.MaxPages)
	}
	if cfg.PortalURL != "https://portal.example/empresa" {
		t.Fatalf("expected portal url from yaml, got %q", cfg.PortalURL)
	}
	if cfg.OutputDir != "/tmp/yaml-output" {
		t.Fatalf("expected output dir from yaml, got %q", cfg.OutputDir)
	}
	if cfg.ClassifyBatchThreshold != 50 {
		t.Fatalf("expected batch threshold from yaml, got %d", cfg.ClassifyBatchThreshold)
	}
	if cfg.ResultsFile() != filepath.Join("/tmp/yaml-output", "classification_results.json") {
		t.Fatalf("unexpected results file: %q", cfg.ResultsFile())
	}
}

func TestResolveModelPriority(t *testing.T) {
	agent := AgentConfig{Model: "gpt-4o"}

	cfg := Config{LLMProvider: "openai", LLMModel: "gpt-4-turbo"}
	if got := resolveModel(cfg, agent); got != "gpt-4-turbo" {
		t.Fatalf("config model should win, got %q", got)
	}

	cfg.LLMModel = ""
	if got := resolveModel(cfg, agent); got != "gpt-4o" {
		t.Fatalf("agent model should win, got %q", got)
	}

	if got := resolveModel(cfg, AgentConfig{}); got != defaultOpenAIModel {
		t.Fatalf("expected openai default, got %q", got)
	}

	cfg.LLMProvider = "anthropic"
	if got := resolveModel(cfg, AgentConfig{}); got != defaultAnthropicModel {
		t.Fatalf("expected anthropic default, got %q", got)
	}
}
