package storage

import "time"

// Run outcomes. A run has no outcome until it is committed, and the
// first committed outcome is final.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
	OutcomeTimeout = "TIMEOUT"
	OutcomeError   = "ERROR"
)

// Benchmark statuses.
const (
	BenchmarkPending  = "pending"
	BenchmarkRunning  = "running"
	BenchmarkComplete = "complete"
	BenchmarkError    = "error"
)

// RunRecord is one quest playthrough by one agent.
type RunRecord struct {
	RunID       string
	QuestName   string
	AgentID     string
	AgentConfig string
	BenchmarkID string
	StartTime   time.Time
	EndTime     *time.Time
	Outcome     string
	Reward      *float64
	EndReason   string
}

// Finished reports whether the run has a committed outcome.
func (r RunRecord) Finished() bool {
	return r.Outcome != ""
}

// StepRecord is one observation/decision/transition within a run.
// Action is nil for the initial-state record and for terminal states
// where no choice was made.
type StepRecord struct {
	RunID            string
	StepNumber       int
	LocationID       string
	Observation      string
	Choices          string
	Action           *int
	Reward           float64
	LLMDecision      string
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
	CostUSD          float64
	Metadata         string
}

// EventRecord is one timeline entry within a run. Seq is assigned by
// the store and is monotonic per run.
type EventRecord struct {
	RunID     string
	Seq       int
	Type      string
	Payload   string
	CreatedAt time.Time
}

// BenchmarkRecord is one scheduled quest-by-agent matrix execution.
type BenchmarkRecord struct {
	BenchmarkID string
	Config      string
	Status      string
	Total       int
	Completed   int
	StartTime   time.Time
	EndTime     *time.Time
	Summary     string
}
