package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StepSummary is one step as it appears in a run summary artifact.
type StepSummary struct {
	StepNumber  int             `json:"step"`
	LocationID  string          `json:"location_id"`
	Observation string          `json:"observation"`
	Choices     json.RawMessage `json:"choices"`
	Action      *int            `json:"action"`
	Reward      float64         `json:"reward"`
	Decision    json.RawMessage `json:"llm_decision,omitempty"`
}

// UsageSummary aggregates token and cost accounting across a run.
type UsageSummary struct {
	PromptTokens     uint32  `json:"prompt_tokens"`
	CompletionTokens uint32  `json:"completion_tokens"`
	TotalTokens      uint32  `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// RunSummary is the per-run JSON artifact: the full trace plus totals,
// readable without the database.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	QuestName   string          `json:"quest_name"`
	AgentID     string          `json:"agent_id"`
	AgentConfig json.RawMessage `json:"agent_config"`
	BenchmarkID string          `json:"benchmark_id,omitempty"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time,omitempty"`
	Outcome     string          `json:"outcome"`
	Reward      float64         `json:"reward"`
	EndReason   string          `json:"end_reason,omitempty"`
	StepCount   int             `json:"step_count"`
	Steps       []StepSummary   `json:"steps"`
	Usage       UsageSummary    `json:"usage"`
}

// BuildRunSummary assembles the summary for a finished run from the
// database.
func (s *Store) BuildRunSummary(ctx context.Context, runID string) (*RunSummary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	steps, err := s.ListSteps(ctx, runID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:       run.RunID,
		QuestName:   run.QuestName,
		AgentID:     run.AgentID,
		AgentConfig: rawJSON(run.AgentConfig),
		BenchmarkID: run.BenchmarkID,
		StartTime:   formatTime(run.StartTime),
		Outcome:     run.Outcome,
		EndReason:   run.EndReason,
		Steps:       []StepSummary{},
	}
	if run.EndTime != nil {
		summary.EndTime = formatTime(*run.EndTime)
	}
	if run.Reward != nil {
		summary.Reward = *run.Reward
	}

	for _, st := range steps {
		summary.Steps = append(summary.Steps, StepSummary{
			StepNumber:  st.StepNumber,
			LocationID:  st.LocationID,
			Observation: st.Observation,
			Choices:     rawJSON(st.Choices),
			Action:      st.Action,
			Reward:      st.Reward,
			Decision:    rawJSON(st.LLMDecision),
		})
		summary.Usage.PromptTokens += st.PromptTokens
		summary.Usage.CompletionTokens += st.CompletionTokens
		summary.Usage.TotalTokens += st.TotalTokens
		summary.Usage.CostUSD += st.CostUSD
	}
	summary.StepCount = len(summary.Steps)
	return summary, nil
}

// rawJSON passes stored JSON through untouched; anything that is not
// valid JSON is re-encoded as a JSON string so the artifact stays
// well-formed.
func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return json.RawMessage(b)
}

// RunSummaryPath returns the artifact location for a run:
// <resultsDir>/<agent_id>/<quest_slug>/run_<run_id>/run_summary.json.
func RunSummaryPath(resultsDir, agentID, questName, runID string) string {
	return filepath.Join(resultsDir, Slug(agentID), Slug(questName),
		"run_"+runID, "run_summary.json")
}

// BenchmarkSummaryPath returns the artifact location for a benchmark:
// <resultsDir>/benchmarks/<benchmark_id>/benchmark_summary.json.
func BenchmarkSummaryPath(resultsDir, benchmarkID string) string {
	return filepath.Join(resultsDir, "benchmarks", Slug(benchmarkID),
		"benchmark_summary.json")
}

// WriteRunSummary writes the run summary artifact, creating parent
// directories as needed, and returns the path written.
func WriteRunSummary(resultsDir string, summary *RunSummary) (string, error) {
	path := RunSummaryPath(resultsDir, summary.AgentID, summary.QuestName, summary.RunID)
	if err := WriteJSON(path, summary); err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSON writes v as indented JSON at path, creating parent
// directories as needed.
func WriteJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Slug converts a name into a filesystem-safe path component:
// lowercase, alphanumerics kept, runs of anything else collapsed to a
// single underscore.
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unnamed"
	}
	return out
}
