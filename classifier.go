package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// maxBatchComplaintChars bounds each complaint's text inside a batch prompt.
const maxBatchComplaintChars = 500

const classifierAgentName = "complaint_classifier"

const defaultClassifierSystemPrompt = "You are a complaint classification system. Return only the category name."

// Classifier assigns each complaint exactly one category from a curated
// taxonomy, in one-at-a-time or grouped requests against the LLM provider.
type Classifier struct {
	cfg     Config
	agent   AgentConfig
	model   string
	call    llmCallFunc
	tracker *UsageTracker
}

func NewClassifier(cfg Config, tracker *UsageTracker) (*Classifier, error) {
	agent, err := LoadAgentConfig(cfg.AgentsDir, classifierAgentName)
	if err != nil {
		return nil, err
	}
	if agent.Messages.SingleUserTemplate == "" {
		return nil, fmt.Errorf("agent %s must define a single_user_template message", classifierAgentName)
	}
	if agent.Messages.BatchUserTemplate == "" {
		return nil, fmt.Errorf("agent %s must define a batch_user_template message", classifierAgentName)
	}
	return &Classifier{
		cfg:     cfg,
		agent:   agent,
		model:   resolveModel(cfg, agent),
		call:    callLLM,
		tracker: tracker,
	}, nil
}

// outcomeKind tags the result of classifying one unit, kept explicit
// instead of driving the loop with errors.
type outcomeKind int

const (
	outcomeAssigned outcomeKind = iota
	outcomeInvalid              // model answered outside the taxonomy
	outcomeFailed               // call or parse failed
)

type classifyOutcome struct {
	kind     outcomeKind
	category string // valid name for assigned, raw model output for invalid
	err      error  // cause for failed
}

func (o classifyOutcome) assignment(complaintID string) Assignment {
	switch o.kind {
	case outcomeAssigned:
		return Assignment{ComplaintID: complaintID, Category: o.category}
	case outcomeInvalid:
		return Assignment{ComplaintID: complaintID, Category: CategoryOther}
	default:
		return Assignment{ComplaintID: complaintID, Category: CategoryError}
	}
}

// ClassifyAll returns exactly one assignment per complaint, in input order.
// Batch mode is only engaged above the configured threshold; below it the
// finer failure isolation of single mode wins regardless of preference.
func (c *Classifier) ClassifyAll(complaints []Complaint, taxonomy []Category, useBatch bool) []Assignment {
	names := categoryNameSet(taxonomy)
	taxonomyText := formatTaxonomyBlock(taxonomy)

	if useBatch && len(complaints) > c.cfg.ClassifyBatchThreshold {
		return c.classifyBatches(complaints, names, taxonomyText)
	}

	assignments := make([]Assignment, 0, len(complaints))
	for _, complaint := range complaints {
		outcome := c.classifySingle(complaint, names, taxonomyText)
		switch outcome.kind {
		case outcomeInvalid:
			log.Printf("classify invalid category %q complaint=%s, using %s", outcome.category, complaint.ID, CategoryOther)
		case outcomeFailed:
			log.Printf("classify error complaint=%s: %v", complaint.ID, outcome.err)
		}
		assignments = append(assignments, outcome.assignment(complaint.ID))
	}
	return assignments
}

func (c *Classifier) classifySingle(complaint Complaint, names map[string]bool, taxonomyText string) classifyOutcome {
	userPrompt := formatMessage(c.agent.Messages.SingleUserTemplate, map[string]string{
		"taxonomy_text":  taxonomyText,
		"complaint_text": fmt.Sprintf("Title: %s\nText: %s", complaint.Title, complaint.Text),
	})

	start := time.Now()
	text, usage, err := c.call(c.request(userPrompt, c.singleTemperature(), c.singleMaxTokens()))
	if err != nil {
		return classifyOutcome{kind: outcomeFailed, err: err}
	}
	c.reportUsage(usage, time.Since(start))

	category := stripCodeFences(text)
	if !names[category] {
		return classifyOutcome{kind: outcomeInvalid, category: category}
	}
	return classifyOutcome{kind: outcomeAssigned, category: category}
}

func (c *Classifier) classifyBatches(complaints []Complaint, names map[string]bool, taxonomyText string) []Assignment {
	batchSize := c.cfg.ClassifyBatchSize
	assignments := make([]Assignment, 0, len(complaints))
	for start := 0; start < len(complaints); start += batchSize {
		end := start + batchSize
		if end > len(complaints) {
			end = len(complaints)
		}
		assignments = append(assignments, c.classifyChunk(complaints[start:end], names, taxonomyText)...)
	}
	return assignments
}

// classifyChunk classifies one fixed-size group in a single request. A
// failed call or unparseable response marks the whole chunk ERROR; an
// invalid category inside a parsed response downgrades only that complaint.
func (c *Classifier) classifyChunk(chunk []Complaint, names map[string]bool, taxonomyText string) []Assignment {
	var lines strings.Builder
	for i, complaint := range chunk {
		if i > 0 {
			lines.WriteString("\n\n")
		}
		text := complaint.Text
		if len(text) > maxBatchComplaintChars {
			text = text[:maxBatchComplaintChars]
		}
		fmt.Fprintf(&lines, "ID: %s\nTitle: %s\nText: %s", complaint.ID, complaint.Title, text)
	}
	userPrompt := formatMessage(c.agent.Messages.BatchUserTemplate, map[string]string{
		"taxonomy_text":   taxonomyText,
		"complaints_text": lines.String(),
	})

	start := time.Now()
	text, usage, err := c.call(c.request(userPrompt, c.batchTemperature(), c.batchMaxTokens()))
	if err != nil {
		log.Printf("classify chunk error size=%d: %v", len(chunk), err)
		return chunkFailure(chunk)
	}
	c.reportUsage(usage, time.Since(start))

	parsed, err := parseBatchResponse(text)
	if err != nil {
		log.Printf("classify chunk parse error size=%d: %v", len(chunk), err)
		return chunkFailure(chunk)
	}

	chunkIDs := make(map[string]bool, len(chunk))
	for _, complaint := range chunk {
		chunkIDs[complaint.ID] = true
	}

	byID := make(map[string]string, len(parsed))
	for _, result := range parsed {
		if !chunkIDs[result.ComplaintID] {
			log.Printf("classify chunk returned unknown complaint id %q, dropping", result.ComplaintID)
			continue
		}
		category := result.Category
		if category != CategoryOther && !names[category] {
			log.Printf("classify invalid category %q complaint=%s, using %s", category, result.ComplaintID, CategoryOther)
			category = CategoryOther
		}
		byID[result.ComplaintID] = category
	}

	assignments := make([]Assignment, 0, len(chunk))
	for _, complaint := range chunk {
		category, ok := byID[complaint.ID]
		if !ok {
			log.Printf("classify chunk response missing complaint=%s, using %s", complaint.ID, CategoryError)
			category = CategoryError
		}
		assignments = append(assignments, Assignment{ComplaintID: complaint.ID, Category: category})
	}
	return assignments
}

func chunkFailure(chunk []Complaint) []Assignment {
	assignments := make([]Assignment, 0, len(chunk))
	for _, complaint := range chunk {
		assignments = append(assignments, Assignment{ComplaintID: complaint.ID, Category: CategoryError})
	}
	return assignments
}

func parseBatchResponse(text string) ([]Assignment, error) {
	text = stripCodeFences(text)
	var parsed []Assignment
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		truncated := text
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(text))
		}
		return nil, fmt.Errorf("parsing batch response: %w (truncated response: %s)", err, truncated)
	}
	return parsed, nil
}

func (c *Classifier) request(userPrompt string, temperature float64, maxTokens int64) llmRequest {
	system := c.agent.Messages.System
	if system == "" {
		system = defaultClassifierSystemPrompt
	}
	return llmRequest{
		Provider:     c.cfg.LLMProvider,
		Model:        c.model,
		APIKey:       apiKeyFor(c.cfg),
		SystemPrompt: system,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	}
}

// reportUsage is the side channel to the ledger; it must never block or
// fail a classification result.
func (c *Classifier) reportUsage(usage LLMUsage, duration time.Duration) {
	if c.tracker == nil {
		return
	}
	c.tracker.LogCall(usage.InputTokens, usage.OutputTokens, duration)
}

func (c *Classifier) singleTemperature() float64 {
	if c.agent.Parameters.SingleTemperature != 0 {
		return c.agent.Parameters.SingleTemperature
	}
	if c.agent.Parameters.Temperature != 0 {
		return c.agent.Parameters.Temperature
	}
	return 0.2
}

func (c *Classifier) singleMaxTokens() int64 {
	if c.agent.Parameters.SingleMaxTokens != 0 {
		return c.agent.Parameters.SingleMaxTokens
	}
	if c.agent.Parameters.MaxTokens != 0 {
		return c.agent.Parameters.MaxTokens
	}
	return 500
}

func (c *Classifier) batchTemperature() float64 {
	if c.agent.Parameters.Temperature != 0 {
		return c.agent.Parameters.Temperature
	}
	return 0.1
}

func (c *Classifier) batchMaxTokens() int64 {
	if c.agent.Parameters.MaxTokens != 0 {
		return c.agent.Parameters.MaxTokens
	}
	return 1000
}

// runPhase4 executes the full classification pass over the collected
// complaints using the curated taxonomy.
func runPhase4(cfg Config) error {
	printBanner("PHASE 4: LARGE-SCALE CLASSIFICATION")

	if _, err := os.Stat(cfg.CuratedTaxonomyFile()); err != nil {
		fmt.Printf("Curated taxonomy not found: %s\n", cfg.CuratedTaxonomyFile())
		fmt.Println("\nYou must complete the human curation step first:")
		fmt.Printf("1. Review: %s\n", cfg.ProposedTaxonomyFile())
		fmt.Printf("2. Edit and save the final taxonomy as: %s\n", cfg.CuratedTaxonomyFile())
		fmt.Println("3. Then run this phase again")
		return fmt.Errorf("curated taxonomy not found: %s", cfg.CuratedTaxonomyFile())
	}
	if _, err := os.Stat(cfg.ComplaintsFile()); err != nil {
		fmt.Printf("Complaints file not found: %s\n", cfg.ComplaintsFile())
		fmt.Println("Run phase 1 (collection) first.")
		return fmt.Errorf("complaints file not found: %s", cfg.ComplaintsFile())
	}
	requireLLMConfig(cfg)

	var tracker *UsageTracker
	if !cfg.DisableUsageTracking {
		tracker = NewUsageTracker(cfg.UsageLogFile)
	}

	classifier, err := NewClassifier(cfg, tracker)
	if err != nil {
		return err
	}
	if tracker != nil {
		tracker.StartSession("Phase 4 - Classification", classifier.model)
	}

	fmt.Println("Loading curated taxonomy...")
	taxonomy, err := LoadTaxonomy(cfg.CuratedTaxonomyFile())
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d categories\n", len(taxonomy))
	for _, cat := range taxonomy {
		fmt.Printf("  - %s\n", cat.Name)
	}

	fmt.Println("\nLoading complaints...")
	complaints, err := LoadComplaints(cfg.ComplaintsFile())
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d complaints\n", len(complaints))

	fmt.Printf("\nClassifying all complaints with %s (%s)...\n", cfg.LLMProvider, classifier.model)
	results := classifier.ClassifyAll(complaints, taxonomy, true)
	summary := Summarize(results)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	output := ClassificationOutput{
		TaxonomyUsed:          taxonomy,
		ClassificationResults: results,
		Summary:               summary,
	}
	if err := writeJSONFile(cfg.ResultsFile(), output); err != nil {
		return err
	}

	recordClassificationRun(cfg, classifier.model, results)

	fmt.Printf("\nTotal complaints classified: %d\n\n", summary.TotalComplaints)
	fmt.Println("Category Distribution:")
	for _, entry := range summary.CategoryDistribution {
		fmt.Printf("  %s: %d (%.2f%%)\n", entry.Category, entry.Count, entry.Percentage)
	}

	if tracker != nil {
		if session := tracker.EndSession(); session != nil {
			fmt.Print(FormatSessionUsage(session, cfg.ShowUsageDetails))
		}
	}

	notifySlack(cfg, fmt.Sprintf("Classification complete: %d complaints across %d categories. Results: %s",
		summary.TotalComplaints, len(summary.CategoryDistribution), cfg.ResultsFile()))

	fmt.Printf("\nFull results saved to: %s\n", cfg.ResultsFile())
	return nil
}

// recordClassificationRun appends per-complaint history rows. Best-effort:
// the JSON artifact is the deliverable, the database is bookkeeping.
func recordClassificationRun(cfg Config, model string, results []Assignment) {
	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Printf("classification history db error: %v", err)
		return
	}
	defer db.Close()

	if err := InsertClassificationHistory(db, results, cfg.LLMProvider, model); err != nil {
		log.Printf("classification history insert error: %v", err)
	}
}
