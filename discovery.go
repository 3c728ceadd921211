package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

const discoveryAgentName = "theme_discovery"

// sampleComplaints returns up to size complaints drawn without
// replacement. The input slice is not modified.
func sampleComplaints(complaints []Complaint, size int) []Complaint {
	if len(complaints) <= size {
		return complaints
	}
	sampled := make([]Complaint, len(complaints))
	copy(sampled, complaints)
	rand.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	return sampled[:size]
}

func formatComplaintsSample(complaints []Complaint) string {
	var blocks []string
	for _, c := range complaints {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Complaint %s:\nTitle: %s\nText: %s", c.ID, c.Title, c.Text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// discoverThemes asks the model for a proposed category set covering the
// sampled complaints.
func discoverThemes(cfg Config, agent AgentConfig, model string, call llmCallFunc, tracker *UsageTracker, sample []Complaint) ([]Category, error) {
	userPrompt := formatMessage(agent.Messages.UserTemplate, map[string]string{
		"min_categories":    fmt.Sprintf("%d", cfg.MinCategories),
		"max_categories":    fmt.Sprintf("%d", cfg.MaxCategories),
		"complaints_sample": formatComplaintsSample(sample),
	})

	temperature := agent.Parameters.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := agent.Parameters.MaxTokens
	if maxTokens == 0 {
		maxTokens = 3000
	}

	start := time.Now()
	text, usage, err := call(llmRequest{
		Provider:     cfg.LLMProvider,
		Model:        model,
		APIKey:       apiKeyFor(cfg),
		SystemPrompt: agent.Messages.System,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("theme discovery call: %w", err)
	}
	if tracker != nil {
		tracker.LogCall(usage.InputTokens, usage.OutputTokens, time.Since(start))
	}

	var categories []Category
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &categories); err != nil {
		return nil, fmt.Errorf("parsing discovery response: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("discovery response contained no categories")
	}
	return categories, nil
}

// runPhase2 samples the collected complaints and proposes a taxonomy for
// human review. The proposal is never used for classification directly.
func runPhase2(cfg Config) error {
	printBanner("PHASE 2: THEME DISCOVERY")
	requireLLMConfig(cfg)

	if _, err := os.Stat(cfg.ComplaintsFile()); err != nil {
		fmt.Printf("Complaints file not found: %s\n", cfg.ComplaintsFile())
		fmt.Println("Run phase 1 (collection) first.")
		return fmt.Errorf("complaints file not found: %s", cfg.ComplaintsFile())
	}

	complaints, err := LoadComplaints(cfg.ComplaintsFile())
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d complaints\n", len(complaints))

	agent, err := LoadAgentConfig(cfg.AgentsDir, discoveryAgentName)
	if err != nil {
		return err
	}
	model := resolveModel(cfg, agent)

	var tracker *UsageTracker
	if !cfg.DisableUsageTracking {
		tracker = NewUsageTracker(cfg.UsageLogFile)
		tracker.StartSession("Phase 2 - Theme Discovery", model)
	}

	sample := sampleComplaints(complaints, cfg.DiscoverySampleSize)
	fmt.Printf("Analyzing a sample of %d complaints with %s (%s)...\n", len(sample), cfg.LLMProvider, model)

	categories, err := discoverThemes(cfg, agent, model, callLLM, tracker, sample)
	if err != nil {
		return err
	}

	proposal := ProposedTaxonomy{
		SampleSize:         len(sample),
		TotalComplaints:    len(complaints),
		ProposedCategories: categories,
		Status:             statusAwaitingCuration,
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := SaveProposedTaxonomy(cfg.ProposedTaxonomyFile(), proposal); err != nil {
		return err
	}

	fmt.Printf("\nProposed %d categories:\n", len(categories))
	for _, cat := range categories {
		fmt.Printf("  - %s: %s\n", cat.Name, cat.Description)
	}

	if tracker != nil {
		if session := tracker.EndSession(); session != nil {
			fmt.Print(FormatSessionUsage(session, cfg.ShowUsageDetails))
		}
	}

	fmt.Printf("\nProposal saved to: %s\n", cfg.ProposedTaxonomyFile())
	fmt.Println("\nNEXT STEP (human curation):")
	fmt.Println("1. Review the proposed categories above")
	fmt.Println("2. Merge, rename or remove categories as needed")
	fmt.Printf("3. Save the final list as: %s\n", cfg.CuratedTaxonomyFile())
	fmt.Println("4. Run phase 4 to classify everything")
	return nil
}
