package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ModelPricing holds per-million-token prices for a model, in USD.
type ModelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// modelPricing maps model base names to their pricing. Unknown models fall
// back to the fallbackPricingModel entry so cost estimation never fails.
var modelPricing = map[string]ModelPricing{
	"gpt-4o-mini":       {InputPerMTok: 0.150, OutputPerMTok: 0.600},
	"gpt-4o":            {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"gpt-4-turbo":       {InputPerMTok: 10.00, OutputPerMTok: 30.00},
	"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-haiku-3-5":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
}

const fallbackPricingModel = "gpt-4o-mini"

func lookupPricing(model string) ModelPricing {
	if p, ok := modelPricing[normalizeModelName(model)]; ok {
		return p
	}
	return modelPricing[fallbackPricingModel]
}

// normalizeModelName strips date suffixes from model identifiers,
// e.g. "claude-sonnet-4-5-20250929" -> "claude-sonnet-4-5".
func normalizeModelName(raw string) string {
	if _, ok := modelPricing[raw]; ok {
		return raw
	}
	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if len(last) >= 8 && isAllDigits(last) {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if _, ok := modelPricing[candidate]; ok {
				return candidate
			}
		}
	}
	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// UsageCall is one logged API call. Appended to a session, never mutated.
type UsageCall struct {
	Timestamp       string  `json:"timestamp"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// UsageSession is one phase's worth of API usage.
type UsageSession struct {
	Phase             string      `json:"phase"`
	Model             string      `json:"model"`
	StartDatetime     string      `json:"start_datetime"`
	Calls             []UsageCall `json:"calls"`
	TotalInputTokens  int64       `json:"total_input_tokens"`
	TotalOutputTokens int64       `json:"total_output_tokens"`
	TotalTokens       int64       `json:"total_tokens"`
	DurationSeconds   float64     `json:"duration_seconds"`
	EstimatedCostUSD  float64     `json:"estimated_cost_usd"`

	start time.Time // held while the session is open, dropped on finalize
}

// UsageTracker accumulates token counts and estimated cost per session and
// persists the session history to a JSON log file. All operations degrade
// instead of failing: a corrupt history loads as empty, logging without an
// open session is a no-op, and persistence errors only warn.
type UsageTracker struct {
	logFile  string
	sessions []UsageSession
	current  *UsageSession
	now      func() time.Time
}

func NewUsageTracker(logFile string) *UsageTracker {
	t := &UsageTracker{logFile: logFile, now: time.Now}
	t.loadHistory()
	return t
}

func (t *UsageTracker) loadHistory() {
	data, err := os.ReadFile(t.logFile)
	if err != nil {
		return
	}
	var history struct {
		Sessions []UsageSession `json:"sessions"`
	}
	if err := json.Unmarshal(data, &history); err != nil {
		log.Printf("usage history unreadable, starting empty path=%s err=%v", t.logFile, err)
		return
	}
	t.sessions = history.Sessions
}

func (t *UsageTracker) saveHistory() {
	if dir := filepath.Dir(t.logFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("usage history dir error path=%s err=%v", dir, err)
			return
		}
	}
	payload := struct {
		Sessions    []UsageSession `json:"sessions"`
		LastUpdated string         `json:"last_updated"`
	}{
		Sessions:    t.sessions,
		LastUpdated: t.now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Printf("usage history marshal error: %v", err)
		return
	}
	if err := os.WriteFile(t.logFile, data, 0644); err != nil {
		log.Printf("usage history write error path=%s err=%v", t.logFile, err)
	}
}

// StartSession opens a new current session. A still-open session is
// finalized first so its logged calls are kept in history.
func (t *UsageTracker) StartSession(phase, model string) {
	if t.current != nil {
		log.Printf("usage session %q still open, finalizing before starting %q", t.current.Phase, phase)
		t.EndSession()
	}
	now := t.now()
	t.current = &UsageSession{
		Phase:         phase,
		Model:         model,
		StartDatetime: now.Format(time.RFC3339),
		Calls:         []UsageCall{},
		start:         now,
	}
}

// LogCall appends one API call to the current session and updates the
// running totals. No-op when no session is open.
func (t *UsageTracker) LogCall(inputTokens, outputTokens int64, duration time.Duration) {
	if t.current == nil {
		return
	}
	t.current.Calls = append(t.current.Calls, UsageCall{
		Timestamp:       t.now().Format(time.RFC3339),
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		TotalTokens:     inputTokens + outputTokens,
		DurationSeconds: roundTo(duration.Seconds(), 2),
	})
	t.current.TotalInputTokens += inputTokens
	t.current.TotalOutputTokens += outputTokens
	t.current.TotalTokens += inputTokens + outputTokens
}

// EndSession finalizes the current session: computes duration and estimated
// cost, appends it to history, and rewrites the usage log file. Returns the
// finalized session, or nil when no session was open.
func (t *UsageTracker) EndSession() *UsageSession {
	if t.current == nil {
		return nil
	}
	session := t.current
	t.current = nil

	session.DurationSeconds = roundTo(t.now().Sub(session.start).Seconds(), 2)
	session.start = time.Time{}

	pricing := lookupPricing(session.Model)
	inputCost := float64(session.TotalInputTokens) / 1_000_000 * pricing.InputPerMTok
	outputCost := float64(session.TotalOutputTokens) / 1_000_000 * pricing.OutputPerMTok
	session.EstimatedCostUSD = roundTo(inputCost+outputCost, 4)

	t.sessions = append(t.sessions, *session)
	t.saveHistory()
	return session
}

// PhaseUsage is the per-phase slice of the all-time totals.
type PhaseUsage struct {
	Sessions int
	Tokens   int64
	CostUSD  float64
}

// UsageTotals reduces all historical sessions into overall totals.
type UsageTotals struct {
	TotalSessions     int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalTokens       int64
	TotalCostUSD      float64
	ByPhase           map[string]PhaseUsage
}

// TotalUsage aggregates across all persisted sessions. Read-only.
func (t *UsageTracker) TotalUsage() UsageTotals {
	totals := UsageTotals{
		TotalSessions: len(t.sessions),
		ByPhase:       make(map[string]PhaseUsage),
	}
	for _, session := range t.sessions {
		totals.TotalInputTokens += session.TotalInputTokens
		totals.TotalOutputTokens += session.TotalOutputTokens
		totals.TotalTokens += session.TotalTokens
		totals.TotalCostUSD += session.EstimatedCostUSD

		phase := totals.ByPhase[session.Phase]
		phase.Sessions++
		phase.Tokens += session.TotalTokens
		phase.CostUSD += session.EstimatedCostUSD
		totals.ByPhase[session.Phase] = phase
	}
	totals.TotalCostUSD = roundTo(totals.TotalCostUSD, 4)
	return totals
}

func (t *UsageTracker) Sessions() []UsageSession {
	return t.sessions
}

// FormatSessionUsage renders the post-phase usage block.
func FormatSessionUsage(s *UsageSession, details bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "API USAGE - %s\n", strings.ToUpper(s.Phase))
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Model: %s\n", s.Model)
	fmt.Fprintf(&b, "API Calls: %d\n", len(s.Calls))
	fmt.Fprintf(&b, "Input Tokens: %d\n", s.TotalInputTokens)
	fmt.Fprintf(&b, "Output Tokens: %d\n", s.TotalOutputTokens)
	fmt.Fprintf(&b, "Total Tokens: %d\n", s.TotalTokens)
	fmt.Fprintf(&b, "Estimated Cost: $%.4f USD\n", s.EstimatedCostUSD)
	if details && len(s.Calls) > 0 {
		b.WriteString("\nDetailed Calls:\n")
		for i, call := range s.Calls {
			fmt.Fprintf(&b, "  Call %d: %d in + %d out = %d tokens (%.2fs)\n",
				i+1, call.InputTokens, call.OutputTokens, call.TotalTokens, call.DurationSeconds)
		}
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 60))
	return b.String()
}

// FormatTotalUsage renders the all-time usage block for the viewer.
func FormatTotalUsage(totals UsageTotals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 60))
	b.WriteString("TOTAL API USAGE (ALL TIME)\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Total Sessions: %d\n", totals.TotalSessions)
	fmt.Fprintf(&b, "Total Tokens: %d\n", totals.TotalTokens)
	fmt.Fprintf(&b, "  Input: %d\n", totals.TotalInputTokens)
	fmt.Fprintf(&b, "  Output: %d\n", totals.TotalOutputTokens)
	fmt.Fprintf(&b, "Total Estimated Cost: $%.4f USD\n", totals.TotalCostUSD)
	if len(totals.ByPhase) > 0 {
		b.WriteString("\nBy Phase:\n")
		for _, phase := range sortedPhases(totals.ByPhase) {
			data := totals.ByPhase[phase]
			fmt.Fprintf(&b, "  %s: %d sessions, %d tokens, $%.4f\n",
				phase, data.Sessions, data.Tokens, data.CostUSD)
		}
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 60))
	return b.String()
}

func sortedPhases(byPhase map[string]PhaseUsage) []string {
	phases := make([]string, 0, len(byPhase))
	for phase := range byPhase {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	return phases
}

func roundTo(x float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(x*factor) / factor
}
