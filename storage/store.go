// Package storage persists runs, steps, events and benchmarks in
// SQLite, plus the JSON artifacts written next to the database.
//
// Outcome writes are first-write-wins: once a run carries an outcome,
// later commits are rejected, so a timed-out run that also crashes
// keeps whichever outcome arrived first.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database holding all run history.
// Thread-safe: sql.DB handles connection pooling and concurrent
// access, and busy_timeout covers writer contention between workers.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path. Parent
// directories are created if they don't exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewInMemory creates an in-memory store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// A single connection keeps every query on the same in-memory
	// database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			quest_name TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			agent_config TEXT NOT NULL,
			benchmark_id TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT,
			outcome TEXT,
			reward REAL,
			end_reason TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_runs_benchmark
		ON runs(benchmark_id);

		CREATE INDEX IF NOT EXISTS idx_runs_quest_agent
		ON runs(quest_name, agent_id);

		CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step_number INTEGER NOT NULL,
			location_id TEXT NOT NULL,
			observation TEXT NOT NULL,
			choices TEXT NOT NULL,
			action INTEGER,
			reward REAL NOT NULL DEFAULT 0,
			llm_decision TEXT,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			metadata TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			UNIQUE(run_id, step_number)
		);

		CREATE INDEX IF NOT EXISTS idx_steps_run
		ON steps(run_id, step_number);

		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			UNIQUE(run_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_events_run
		ON run_events(run_id, seq);

		CREATE TABLE IF NOT EXISTS benchmarks (
			benchmark_id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			status TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL,
			end_time TEXT,
			summary TEXT
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateRun inserts a new run with no outcome.
func (s *Store) CreateRun(ctx context.Context, r RunRecord) error {
	var benchmarkID interface{}
	if r.BenchmarkID != "" {
		benchmarkID = r.BenchmarkID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, quest_name, agent_id, agent_config, benchmark_id, start_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.QuestName,
		r.AgentID,
		r.AgentConfig,
		benchmarkID,
		formatTime(r.StartTime),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// AppendStep inserts one step record. Step numbers within a run are
// unique; a duplicate step number is an error.
func (s *Store) AppendStep(ctx context.Context, st StepRecord) error {
	var action, decision, metadata interface{}
	if st.Action != nil {
		action = *st.Action
	}
	if st.LLMDecision != "" {
		decision = st.LLMDecision
	}
	if st.Metadata != "" {
		metadata = st.Metadata
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, step_number, location_id, observation, choices, action, reward,
		 llm_decision, prompt_tokens, completion_tokens, total_tokens, cost_usd, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RunID,
		st.StepNumber,
		st.LocationID,
		st.Observation,
		st.Choices,
		action,
		st.Reward,
		decision,
		st.PromptTokens,
		st.CompletionTokens,
		st.TotalTokens,
		st.CostUSD,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to append step: %w", err)
	}
	return nil
}

// AppendEvent appends a timeline event to a run, assigning the next
// per-run sequence number atomically.
func (s *Store) AppendEvent(ctx context.Context, runID, eventType, payload string) error {
	var payloadVal interface{}
	if payload != "" {
		payloadVal = payload
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, seq, event_type, payload, created_at)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM run_events WHERE run_id = ?`,
		runID, eventType, payloadVal, formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// CommitOutcome finalizes a run. Returns true if this call won the
// commit, false if the run already had an outcome. The losing commit
// changes nothing.
func (s *Store) CommitOutcome(ctx context.Context, runID, outcome string, reward float64, endReason string) (bool, error) {
	switch outcome {
	case OutcomeSuccess, OutcomeFailure, OutcomeTimeout, OutcomeError:
	default:
		return false, fmt.Errorf("invalid outcome %q", outcome)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET outcome = ?, reward = ?, end_time = ?, end_reason = ?
		WHERE run_id = ? AND outcome IS NULL`,
		outcome, reward, formatTime(time.Now()), endReason, runID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to commit outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to commit outcome: %w", err)
	}
	return n > 0, nil
}

// GetRun loads one run. Returns sql.ErrNoRows (wrapped) if absent.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var r RunRecord
	var benchmarkID, endTime, outcome, endReason sql.NullString
	var reward sql.NullFloat64
	var startTime string

	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, quest_name, agent_id, agent_config, benchmark_id,
		       start_time, end_time, outcome, reward, end_reason
		FROM runs WHERE run_id = ?`,
		runID).Scan(
		&r.RunID,
		&r.QuestName,
		&r.AgentID,
		&r.AgentConfig,
		&benchmarkID,
		&startTime,
		&endTime,
		&outcome,
		&reward,
		&endReason,
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	r.StartTime = parseTime(startTime)
	if benchmarkID.Valid {
		r.BenchmarkID = benchmarkID.String
	}
	if endTime.Valid {
		t := parseTime(endTime.String)
		r.EndTime = &t
	}
	if outcome.Valid {
		r.Outcome = outcome.String
	}
	if reward.Valid {
		v := reward.Float64
		r.Reward = &v
	}
	if endReason.Valid {
		r.EndReason = endReason.String
	}
	return r, nil
}

// ListSteps returns a run's steps in step order.
func (s *Store) ListSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step_number, location_id, observation, choices, action, reward,
		       llm_decision, prompt_tokens, completion_tokens, total_tokens, cost_usd, metadata
		FROM steps WHERE run_id = ? ORDER BY step_number ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var st StepRecord
		var action sql.NullInt64
		var decision, metadata sql.NullString
		err := rows.Scan(
			&st.RunID,
			&st.StepNumber,
			&st.LocationID,
			&st.Observation,
			&st.Choices,
			&action,
			&st.Reward,
			&decision,
			&st.PromptTokens,
			&st.CompletionTokens,
			&st.TotalTokens,
			&st.CostUSD,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if action.Valid {
			v := int(action.Int64)
			st.Action = &v
		}
		if decision.Valid {
			st.LLMDecision = decision.String
		}
		if metadata.Valid {
			st.Metadata = metadata.String
		}
		steps = append(steps, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}
	return steps, nil
}

// ListEvents returns a run's events in sequence order.
func (s *Store) ListEvents(ctx context.Context, runID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, event_type, payload, created_at
		FROM run_events WHERE run_id = ? ORDER BY seq ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var e EventRecord
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Type, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		e.CreatedAt = parseTime(createdAt)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// ListRunsByBenchmark returns all runs belonging to a benchmark.
func (s *Store) ListRunsByBenchmark(ctx context.Context, benchmarkID string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM runs WHERE benchmark_id = ? ORDER BY start_time ASC`,
		benchmarkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmark runs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benchmark runs: %w", err)
	}

	runs := []RunRecord{}
	for _, id := range ids {
		r, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// CreateBenchmark inserts a benchmark in pending status.
func (s *Store) CreateBenchmark(ctx context.Context, b BenchmarkRecord) error {
	status := b.Status
	if status == "" {
		status = BenchmarkPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benchmarks (benchmark_id, config, status, total, completed, start_time)
		VALUES (?, ?, ?, ?, 0, ?)`,
		b.BenchmarkID, b.Config, status, b.Total, formatTime(b.StartTime),
	)
	if err != nil {
		return fmt.Errorf("failed to create benchmark: %w", err)
	}
	return nil
}

// SetBenchmarkStatus updates a benchmark's status.
func (s *Store) SetBenchmarkStatus(ctx context.Context, benchmarkID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE benchmarks SET status = ? WHERE benchmark_id = ?",
		status, benchmarkID)
	if err != nil {
		return fmt.Errorf("failed to update benchmark status: %w", err)
	}
	return nil
}

// BumpBenchmarkProgress increments the completed-run counter.
func (s *Store) BumpBenchmarkProgress(ctx context.Context, benchmarkID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE benchmarks SET completed = completed + 1 WHERE benchmark_id = ?",
		benchmarkID)
	if err != nil {
		return fmt.Errorf("failed to bump benchmark progress: %w", err)
	}
	return nil
}

// FinishBenchmark records the final status and summary.
func (s *Store) FinishBenchmark(ctx context.Context, benchmarkID, status, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE benchmarks SET status = ?, summary = ?, end_time = ?
		WHERE benchmark_id = ?`,
		status, summary, formatTime(time.Now()), benchmarkID)
	if err != nil {
		return fmt.Errorf("failed to finish benchmark: %w", err)
	}
	return nil
}

// GetBenchmark loads one benchmark record.
func (s *Store) GetBenchmark(ctx context.Context, benchmarkID string) (BenchmarkRecord, error) {
	var b BenchmarkRecord
	var endTime, summary sql.NullString
	var startTime string

	err := s.db.QueryRowContext(ctx, `
		SELECT benchmark_id, config, status, total, completed, start_time, end_time, summary
		FROM benchmarks WHERE benchmark_id = ?`,
		benchmarkID).Scan(
		&b.BenchmarkID, &b.Config, &b.Status, &b.Total, &b.Completed,
		&startTime, &endTime, &summary,
	)
	if err != nil {
		return BenchmarkRecord{}, fmt.Errorf("failed to get benchmark %s: %w", benchmarkID, err)
	}
	b.StartTime = parseTime(startTime)
	if endTime.Valid {
		t := parseTime(endTime.String)
		b.EndTime = &t
	}
	if summary.Valid {
		b.Summary = summary.String
	}
	return b, nil
}
