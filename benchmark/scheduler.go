package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/richinex/questbench/agent"
	"github.com/richinex/questbench/bridge"
	"github.com/richinex/questbench/llm"
	"github.com/richinex/questbench/runner"
	"github.com/richinex/questbench/storage"
)

// Progress is a point-in-time snapshot of a running benchmark.
type Progress struct {
	Total     int      `json:"total"`
	Running   int      `json:"running"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Timeout   int      `json:"timeout"`
	Errors    int      `json:"errors"`
	Active    []string `json:"active,omitempty"`
}

// RunRef is one run's entry in the benchmark summary.
type RunRef struct {
	RunID     string  `json:"run_id"`
	QuestName string  `json:"quest_name"`
	AgentID   string  `json:"agent_id"`
	Outcome   string  `json:"outcome"`
	Reward    float64 `json:"reward"`
	Steps     int     `json:"steps"`
	EndReason string  `json:"end_reason,omitempty"`
}

// Aggregate is the per-agent or per-quest rollup in the summary.
type Aggregate struct {
	Runs        int     `json:"runs"`
	Success     int     `json:"success"`
	Failure     int     `json:"failure"`
	Timeout     int     `json:"timeout"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"success_rate"`
	MeanReward  float64 `json:"mean_reward"`
	TotalTokens uint64  `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// Summary is the benchmark-summary artifact.
type Summary struct {
	BenchmarkID string                `json:"benchmark_id"`
	StartTime   string                `json:"start_time"`
	EndTime     string                `json:"end_time"`
	Totals      Progress              `json:"totals"`
	ByAgent     map[string]*Aggregate `json:"by_agent"`
	ByQuest     map[string]*Aggregate `json:"by_quest"`
	Runs        []RunRef              `json:"runs"`
}

// Scheduler executes a benchmark's quest-by-agent matrix.
type Scheduler struct {
	cfg   *Config
	store *storage.Store

	// ProviderFor overrides provider construction per agent. Used by
	// tests to substitute local providers; nil means build from the
	// agent's model reference.
	ProviderFor func(agent.Config) llm.Provider

	mu       sync.Mutex
	progress Progress
	active   map[string]bool
	runs     []RunRef
}

// New creates a scheduler for the given config and store.
func New(cfg *Config, store *storage.Store) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		active: map[string]bool{},
	}
}

// Progress returns a snapshot readable while the benchmark runs.
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.progress
	snap.Active = make([]string, 0, len(s.active))
	for pair := range s.active {
		snap.Active = append(snap.Active, pair)
	}
	sort.Strings(snap.Active)
	return snap
}

// Run executes every quest-agent pair over a bounded worker pool,
// persists the benchmark record, and writes the summary artifact.
// Cancellation stops scheduling new pairs; in-flight runs finish and
// commit their own outcomes.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	quests, err := s.cfg.ResolveQuests()
	if err != nil {
		return nil, err
	}

	type pair struct {
		quest string
		agent agent.Config
	}
	pairs := make([]pair, 0, len(quests)*len(s.cfg.Agents))
	for _, q := range quests {
		for _, a := range s.cfg.Agents {
			pairs = append(pairs, pair{quest: q, agent: a})
		}
	}

	s.mu.Lock()
	s.progress = Progress{Total: len(pairs)}
	s.runs = s.runs[:0]
	s.mu.Unlock()

	startTime := time.Now()
	cfgJSON, err := json.Marshal(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode benchmark config: %w", err)
	}
	if err := s.store.CreateBenchmark(ctx, storage.BenchmarkRecord{
		BenchmarkID: s.cfg.BenchmarkID,
		Config:      string(cfgJSON),
		Status:      storage.BenchmarkRunning,
		Total:       len(pairs),
		StartTime:   startTime,
	}); err != nil {
		return nil, err
	}

	workerSem := make(chan struct{}, s.cfg.MaxWorkers)
	var wg sync.WaitGroup

	for _, p := range pairs {
		if ctx.Err() != nil {
			break
		}
		workerSem <- struct{}{}
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			defer func() { <-workerSem }()
			s.runPair(ctx, p.quest, p.agent)
		}(p)
	}
	wg.Wait()

	summary := s.buildSummary(startTime)
	status := storage.BenchmarkComplete
	if ctx.Err() != nil {
		status = storage.BenchmarkError
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode benchmark summary: %w", err)
	}
	if err := s.store.FinishBenchmark(context.WithoutCancel(ctx), s.cfg.BenchmarkID, status, string(summaryJSON)); err != nil {
		return nil, err
	}

	if s.cfg.ResultsDir != "" {
		path := storage.BenchmarkSummaryPath(s.cfg.ResultsDir, s.cfg.BenchmarkID)
		if err := storage.WriteJSON(path, summary); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// runPair executes one quest-agent run and folds its result into the
// shared counters. A run that fails to even start is counted as an
// error; it never takes the benchmark down.
func (s *Scheduler) runPair(ctx context.Context, questPath string, agentCfg agent.Config) {
	questName := runner.QuestNameFromPath(questPath)
	key := agentCfg.AgentID + " / " + questName

	s.mu.Lock()
	s.progress.Running++
	s.active[key] = true
	s.mu.Unlock()

	opts := runner.Options{
		QuestName: questName,
		Bridge: bridge.Config{
			Command:   s.cfg.Interpreter,
			QuestPath: questPath,
		},
		Agent:       agentCfg,
		MaxSteps:    s.cfg.MaxSteps,
		Timeout:     s.cfg.Timeout(),
		BenchmarkID: s.cfg.BenchmarkID,
		ResultsDir:  s.cfg.ResultsDir,
		Debug:       s.cfg.Debug,
	}
	if s.ProviderFor != nil {
		opts.Provider = s.ProviderFor(agentCfg)
	}

	res, err := runner.Run(ctx, s.store, opts)
	if err != nil {
		log.Printf("benchmark %s: run %s failed to start: %v", s.cfg.BenchmarkID, key, err)
		res = runner.Result{Outcome: storage.OutcomeError, EndReason: "setup_error"}
	}

	if err := s.store.BumpBenchmarkProgress(context.WithoutCancel(ctx), s.cfg.BenchmarkID); err != nil {
		log.Printf("benchmark %s: progress update failed: %v", s.cfg.BenchmarkID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running--
	delete(s.active, key)
	switch res.Outcome {
	case storage.OutcomeSuccess:
		s.progress.Completed++
	case storage.OutcomeFailure:
		s.progress.Failed++
	case storage.OutcomeTimeout:
		s.progress.Timeout++
	default:
		s.progress.Errors++
	}
	s.runs = append(s.runs, RunRef{
		RunID:     res.RunID,
		QuestName: questName,
		AgentID:   agentCfg.AgentID,
		Outcome:   res.Outcome,
		Reward:    res.Reward,
		Steps:     res.Steps,
		EndReason: res.EndReason,
	})
}

func (s *Scheduler) buildSummary(startTime time.Time) *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]RunRef, len(s.runs))
	copy(runs, s.runs)
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].AgentID != runs[j].AgentID {
			return runs[i].AgentID < runs[j].AgentID
		}
		return runs[i].QuestName < runs[j].QuestName
	})

	summary := &Summary{
		BenchmarkID: s.cfg.BenchmarkID,
		StartTime:   startTime.UTC().Format(time.RFC3339Nano),
		EndTime:     time.Now().UTC().Format(time.RFC3339Nano),
		Totals:      s.progress,
		ByAgent:     map[string]*Aggregate{},
		ByQuest:     map[string]*Aggregate{},
		Runs:        runs,
	}
	summary.Totals.Active = nil

	usage := s.usageByRun()
	for _, r := range runs {
		for _, agg := range []*Aggregate{
			ensureAggregate(summary.ByAgent, r.AgentID),
			ensureAggregate(summary.ByQuest, r.QuestName),
		} {
			agg.Runs++
			agg.MeanReward += r.Reward
			switch r.Outcome {
			case storage.OutcomeSuccess:
				agg.Success++
			case storage.OutcomeFailure:
				agg.Failure++
			case storage.OutcomeTimeout:
				agg.Timeout++
			default:
				agg.Errors++
			}
			if u, ok := usage[r.RunID]; ok {
				agg.TotalTokens += uint64(u.TotalTokens)
				agg.CostUSD += u.CostUSD
			}
		}
	}
	for _, m := range []map[string]*Aggregate{summary.ByAgent, summary.ByQuest} {
		for _, agg := range m {
			if agg.Runs > 0 {
				agg.SuccessRate = float64(agg.Success) / float64(agg.Runs)
				agg.MeanReward /= float64(agg.Runs)
			}
		}
	}
	return summary
}

// usageByRun loads per-run usage totals from the store so aggregates
// carry token and cost rollups.
func (s *Scheduler) usageByRun() map[string]storage.UsageSummary {
	out := map[string]storage.UsageSummary{}
	ctx := context.Background()
	for _, r := range s.runs {
		if r.RunID == "" {
			continue
		}
		rs, err := s.store.BuildRunSummary(ctx, r.RunID)
		if err != nil {
			continue
		}
		out[r.RunID] = rs.Usage
	}
	return out
}

func ensureAggregate(m map[string]*Aggregate, key string) *Aggregate {
	if agg, ok := m[key]; ok {
		return agg
	}
	agg := &Aggregate{}
	m[key] = agg
	return agg
}
