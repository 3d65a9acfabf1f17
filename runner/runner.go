// Package runner drives one quest playthrough end to end: environment
// lifecycle, the step loop with its wall-clock deadline, step and
// event persistence, and the committed outcome.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/questbench/agent"
	"github.com/richinex/questbench/bridge"
	"github.com/richinex/questbench/env"
	"github.com/richinex/questbench/llm"
	"github.com/richinex/questbench/storage"
)

// Defaults for the step cap and the per-run wall-clock budget.
const (
	DefaultMaxSteps = 100
	DefaultTimeout  = 120 * time.Second
)

// End reasons recorded on the run row.
const (
	ReasonQuestSuccess = "quest_success"
	ReasonQuestFailure = "quest_failure"
	ReasonStepLimit    = "step_limit"
	ReasonTimeout      = "timeout"
	ReasonCancelled    = "cancelled"
	ReasonBridgeError  = "bridge_error"
	ReasonLLMError     = "llm_error"
)

// Options configures one run.
type Options struct {
	// QuestName labels the run; derived from the quest file name when
	// empty.
	QuestName string
	// Bridge holds the interpreter command and quest path.
	Bridge bridge.Config
	// Agent is the decision policy configuration.
	Agent agent.Config
	// Provider overrides the provider built from Agent.Model. Used by
	// tests; nil means build from the model reference and environment.
	Provider llm.Provider
	// Prices overrides the cost table; nil means defaults.
	Prices *llm.PriceTable

	MaxSteps    int
	Timeout     time.Duration
	BenchmarkID string
	// ResultsDir is where the run-summary artifact goes; empty disables
	// the artifact.
	ResultsDir string
	Debug      bool
}

// Result is what a completed (or failed) run reports back.
type Result struct {
	RunID       string
	Outcome     string
	Reward      float64
	Steps       int
	EndReason   string
	Usage       storage.UsageSummary
	SummaryPath string
}

// QuestNameFromPath derives a run label from a quest file path.
func QuestNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildClient constructs the LLM client for an agent configuration.
func BuildClient(cfg agent.Config, provider llm.Provider, prices *llm.PriceTable) (*llm.Client, error) {
	if provider == nil {
		pt, model, err := llm.ParseModelRef(cfg.Model)
		if err != nil {
			return nil, err
		}
		b := llm.NewProviderBuilder(pt).Model(model)
		if cfg.MaxTokens > 0 {
			b = b.MaxTokens(cfg.MaxTokens)
		}
		if cfg.Temperature != nil {
			b = b.Temperature(float32(*cfg.Temperature))
		}
		if cfg.Seed != 0 {
			b = b.Seed(cfg.Seed)
		}
		provider, err = b.FromEnv()
		if err != nil {
			return nil, err
		}
	}
	client := llm.NewClient(provider)
	if prices != nil {
		client = client.WithPrices(prices)
	}
	return client, nil
}

func (o *Options) normalize() {
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.QuestName == "" {
		o.QuestName = QuestNameFromPath(o.Bridge.QuestPath)
	}
}

// Run executes one quest playthrough and commits its outcome. The
// returned error covers setup failures only; quest failures, timeouts
// and agent degradation are reported through Result.Outcome.
func Run(ctx context.Context, store *storage.Store, opts Options) (Result, error) {
	opts.normalize()

	client, err := BuildClient(opts.Agent, opts.Provider, opts.Prices)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build LLM client: %w", err)
	}
	ag, err := agent.New(opts.Agent, client)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build agent: %w", err)
	}

	runID := uuid.NewString()
	if err := store.CreateRun(ctx, storage.RunRecord{
		RunID:       runID,
		QuestName:   opts.QuestName,
		AgentID:     ag.Config().AgentID,
		AgentConfig: ag.Config().JSON(),
		BenchmarkID: opts.BenchmarkID,
		StartTime:   time.Now(),
	}); err != nil {
		return Result{}, err
	}

	r := &run{
		store:  store,
		opts:   opts,
		agent:  ag,
		runID:  runID,
		result: Result{RunID: runID},
	}
	return r.execute(ctx)
}

type run struct {
	store  *storage.Store
	opts   Options
	agent  *agent.Agent
	runID  string
	steps  int
	result Result
}

func (r *run) debugf(format string, args ...interface{}) {
	if r.opts.Debug {
		log.Printf("[run %s] "+format, append([]interface{}{r.runID[:8]}, args...)...)
	}
}

func (r *run) execute(ctx context.Context) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	e := env.New(r.opts.Bridge)
	defer e.Close()

	r.event(ctx, "run_started", fmt.Sprintf(`{"quest":%q,"agent":%q}`,
		r.opts.QuestName, r.agent.Config().AgentID))

	obs, err := e.Reset(runCtx)
	if err != nil {
		r.finish(ctx, outcomeForError(runCtx, err))
		return r.result, nil
	}
	r.debugf("reset: location %s, %d choices", obs.LocationID, obs.ChoiceCount())
	r.writeStep(ctx, obs, nil, 0, agent.Decision{}, agent.Usage{})

	for {
		if r.steps >= r.opts.MaxSteps {
			r.finish(ctx, verdict{storage.OutcomeFailure, 0, ReasonStepLimit})
			return r.result, nil
		}
		if runCtx.Err() != nil {
			r.finish(ctx, outcomeForError(runCtx, runCtx.Err()))
			return r.result, nil
		}

		var decision agent.Decision
		var usage agent.Usage
		if r.agent.SkipSingle() && obs.ChoiceCount() == 1 {
			decision = agent.Decision{Result: 1, Reasoning: "single choice"}
		} else {
			decision, usage = r.agent.Decide(runCtx, obs)
			// Call failures and parse failures both degrade to the
			// fallback index and the run plays on; the error marker lands
			// on the step record. A decision without an action at all is
			// the last-resort abort.
			if decision.Result == 0 {
				if runCtx.Err() != nil {
					r.finish(ctx, outcomeForError(runCtx, runCtx.Err()))
				} else {
					r.finish(ctx, verdict{storage.OutcomeError, 0, ReasonLLMError})
				}
				return r.result, nil
			}
			if decision.Error != "" {
				r.debugf("degraded decision: %s", decision.Error)
			}
		}

		next, reward, done, err := e.Step(runCtx, decision.Result)
		if err != nil {
			r.finish(ctx, outcomeForError(runCtx, err))
			return r.result, nil
		}

		usage.Merge(r.agent.Record(runCtx, obs, decision))
		action := decision.Result
		r.writeStep(ctx, next, &action, reward, decision, usage)
		r.event(ctx, "step", fmt.Sprintf(`{"step":%d,"action":%d,"reward":%g}`,
			r.steps, action, reward))
		r.debugf("step %d: action %d, reward %g, done %v", r.steps, action, reward, done)

		obs = next
		if done {
			state := e.Current()
			if state != nil && state.GameState == bridge.GameWin {
				r.finish(ctx, verdict{storage.OutcomeSuccess, reward, ReasonQuestSuccess})
			} else {
				r.finish(ctx, verdict{storage.OutcomeFailure, reward, ReasonQuestFailure})
			}
			return r.result, nil
		}
	}
}

type verdict struct {
	outcome string
	reward  float64
	reason  string
}

// outcomeForError maps a failed reset or step to a run verdict.
// TIMEOUT is reserved for the run's own wall-clock deadline; a bridge
// whose per-read budget expires is an interpreter fault, committed as
// ERROR like any other bridge failure.
func outcomeForError(runCtx context.Context, err error) verdict {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return verdict{storage.OutcomeTimeout, 0, ReasonTimeout}
	}
	if errors.Is(err, context.Canceled) {
		return verdict{storage.OutcomeError, 0, ReasonCancelled}
	}
	return verdict{storage.OutcomeError, 0, ReasonBridgeError}
}

// writeStep persists one step record. Step numbers start at 1 with the
// initial observation, which carries no action.
func (r *run) writeStep(ctx context.Context, obs env.Observation, action *int, reward float64, d agent.Decision, usage agent.Usage) {
	r.steps++

	choices, err := json.Marshal(obs.ChoicesRendered)
	if err != nil {
		choices = []byte("[]")
	}

	rec := storage.StepRecord{
		RunID:       r.runID,
		StepNumber:  r.steps,
		LocationID:  obs.LocationID,
		Observation: obs.Text,
		Choices:     string(choices),
		Action:      action,
		Reward:      reward,
	}
	if action != nil {
		rec.LLMDecision = d.JSON()
		rec.PromptTokens = usage.Tokens.PromptTokens
		rec.CompletionTokens = usage.Tokens.CompletionTokens
		rec.TotalTokens = usage.Tokens.TotalTokens
		rec.CostUSD = usage.CostUSD
	}

	if err := r.store.AppendStep(ctx, rec); err != nil {
		r.debugf("step write failed: %v", err)
	}

	r.result.Steps = r.steps
	r.result.Usage.PromptTokens += rec.PromptTokens
	r.result.Usage.CompletionTokens += rec.CompletionTokens
	r.result.Usage.TotalTokens += rec.TotalTokens
	r.result.Usage.CostUSD += rec.CostUSD
}

func (r *run) event(ctx context.Context, eventType, payload string) {
	if err := r.store.AppendEvent(ctx, r.runID, eventType, payload); err != nil {
		r.debugf("event write failed: %v", err)
	}
}

// finish commits the outcome and writes the run-summary artifact. The
// commit is first-write-wins; a lost commit keeps the stored outcome
// in the result so callers report what the database says.
func (r *run) finish(ctx context.Context, v verdict) {
	// Final writes must land even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	won, err := r.store.CommitOutcome(ctx, r.runID, v.outcome, v.reward, v.reason)
	if err != nil {
		r.debugf("outcome commit failed: %v", err)
	}

	r.result.Outcome = v.outcome
	r.result.Reward = v.reward
	r.result.EndReason = v.reason
	if !won {
		if stored, err := r.store.GetRun(ctx, r.runID); err == nil && stored.Finished() {
			r.result.Outcome = stored.Outcome
			r.result.EndReason = stored.EndReason
			if stored.Reward != nil {
				r.result.Reward = *stored.Reward
			}
		}
	}

	switch r.result.Outcome {
	case storage.OutcomeTimeout:
		r.event(ctx, "timeout", fmt.Sprintf(`{"reason":%q}`, r.result.EndReason))
	case storage.OutcomeError:
		r.event(ctx, "error", fmt.Sprintf(`{"reason":%q}`, r.result.EndReason))
	}
	r.event(ctx, "outcome", fmt.Sprintf(`{"outcome":%q,"reason":%q}`,
		r.result.Outcome, r.result.EndReason))

	if r.opts.ResultsDir != "" {
		summary, err := r.store.BuildRunSummary(ctx, r.runID)
		if err != nil {
			r.debugf("summary build failed: %v", err)
			return
		}
		path, err := storage.WriteRunSummary(r.opts.ResultsDir, summary)
		if err != nil {
			r.debugf("summary write failed: %v", err)
			return
		}
		r.result.SummaryPath = path
	}
}

// ExitCode maps an outcome to the CLI exit code.
func ExitCode(outcome string) int {
	switch outcome {
	case storage.OutcomeSuccess:
		return 0
	case storage.OutcomeFailure:
		return 1
	case storage.OutcomeTimeout:
		return 2
	default:
		return 3
	}
}
