package main

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\nOTHER\n```", "OTHER"},
		{"  ```json\n{\"a\":1}\n```  ", "{\"a\":1}"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAPIKeyForProvider(t *testing.T) {
	cfg := Config{LLMProvider: "openai", OpenAIAPIKey: "sk-openai", AnthropicAPIKey: "sk-ant"}
	if got := apiKeyFor(cfg); got != "sk-openai" {
		t.Fatalf("expected openai key, got %q", got)
	}
	cfg.LLMProvider = "anthropic"
	if got := apiKeyFor(cfg); got != "sk-ant" {
		t.Fatalf("expected anthropic key, got %q", got)
	}
}

func TestLLMUsageAdd(t *testing.T) {
	var total LLMUsage
	total.Add(LLMUsage{InputTokens: 100, OutputTokens: 20})
	total.Add(LLMUsage{InputTokens: 50, OutputTokens: 5})
	if total.InputTokens != 150 || total.OutputTokens != 25 {
		t.Fatalf("unexpected totals: %+v", total)
	}
	if total.TotalTokens() != 175 {
		t.Fatalf("unexpected total: %d", total.TotalTokens())
	}
}
