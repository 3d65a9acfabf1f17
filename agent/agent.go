// Package agent converts quest observations into 1-based choice
// indices via an LLM, with memory, loop awareness and graceful
// degradation: a decision is always produced, never a crashed run.
package agent

import (
	"context"
	"fmt"
	"text/template"

	"github.com/richinex/questbench/env"
	"github.com/richinex/questbench/llm"
)

// Usage accumulates token and cost accounting across the LLM calls an
// agent makes for one step (decision attempts plus summarization).
type Usage struct {
	Tokens  llm.TokenUsage
	CostUSD float64
	Calls   int
}

func (u *Usage) add(c llm.Completion) {
	u.Tokens.Add(c.Usage)
	u.CostUSD += c.CostUSD
	u.Calls++
}

// Merge folds another usage tally into this one.
func (u *Usage) Merge(other Usage) {
	u.Tokens.Add(other.Tokens)
	u.CostUSD += other.CostUSD
	u.Calls += other.Calls
}

// Agent is one decision policy bound to one run. It owns its memory
// and loop state; nothing is shared across runs.
type Agent struct {
	cfg        Config
	client     *llm.Client
	memory     *Memory
	loops      *LoopTracker
	actTmpl    *template.Template
	system     string
	calculator bool
}

// New creates an agent from a normalized config and an LLM client.
func New(cfg Config, client *llm.Client) (*Agent, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	actTmpl, err := parseActionTemplate(cfg.ActionTemplate)
	if err != nil {
		return nil, err
	}
	system := cfg.SystemTemplate
	if system == "" {
		system = DefaultSystemTemplate
	}
	return &Agent{
		cfg:        cfg,
		client:     client,
		memory:     NewMemory(cfg.Memory),
		loops:      NewLoopTracker(),
		actTmpl:    actTmpl,
		system:     system,
		calculator: cfg.HasTool(ToolCalculator),
	}, nil
}

// Config returns the agent's normalized configuration.
func (a *Agent) Config() Config {
	return a.cfg
}

// SkipSingle reports whether the run loop may auto-select when only a
// single choice exists.
func (a *Agent) SkipSingle() bool {
	return a.cfg.SkipSingle
}

// Decide picks a 1-based choice index for the observation. It never
// returns an error: call failures and unparsable replies degrade to
// the fallback index with an error marker on the decision.
func (a *Agent) Decide(ctx context.Context, obs env.Observation) (Decision, Usage) {
	var usage Usage

	n := obs.ChoiceCount()
	if n == 0 {
		return Decision{Error: "no_choices"}, usage
	}

	fp := Fingerprint(obs)
	a.loops.Visit(fp)
	lastChoice, hintActive := a.loops.Hint(fp)

	loopHint := ""
	if hintActive && n > 1 {
		loopHint = loopEscapeHint
	}

	prompt, err := renderPrompt(a.actTmpl, obs, a.memory.Block(), loopHint, a.calculator)
	if err != nil {
		d := Decision{Result: 1, Error: fmt.Sprintf("prompt_error: %v", err), Attempts: 0}
		a.loops.Observe(fp, d.Result)
		return d, usage
	}

	messages := []llm.ChatMessage{
		llm.SystemMessage(a.system),
		llm.UserMessage(prompt),
	}

	var best Decision
	var callErr error
	var parseErrors []string

	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		comp, err := a.client.Complete(ctx, messages)
		if err != nil {
			// The client already retried transient failures; a surfaced
			// error is permanent for this step.
			callErr = err
			break
		}
		usage.add(comp)

		d, perr := parseDecision(comp.Content)
		mergePartial(&best, d)
		if perr == nil && d.Result >= 1 && d.Result <= n {
			d.Reasoning = best.Reasoning
			d.Analysis = best.Analysis
			d.Attempts = attempt
			d.ParseErrors = parseErrors
			a.finishDecision(fp, &d, n, lastChoice, hintActive)
			return d, usage
		}

		// Parse failure or out-of-range result: retry with the schema
		// restated, keeping whatever partial rationale was recovered.
		if perr != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("attempt %d: %v", attempt, perr))
		} else {
			parseErrors = append(parseErrors, fmt.Sprintf("attempt %d: result %d out of range 1..%d", attempt, d.Result, n))
		}
		messages = append(messages,
			llm.AssistantMessage(comp.Content),
			llm.UserMessage(schemaReminder),
		)
	}

	d := Decision{
		Result:      1,
		Analysis:    best.Analysis,
		Reasoning:   best.Reasoning,
		Attempts:    a.cfg.MaxRetries,
		ParseErrors: parseErrors,
	}
	if callErr != nil {
		d.Error = fmt.Sprintf("llm_call_error: %s", llm.Classify(callErr))
	} else {
		d.Error = "parse_error"
	}
	a.finishDecision(fp, &d, n, lastChoice, hintActive)
	return d, usage
}

// finishDecision records the raw choice for loop tracking, applies the
// loop-escape override, and runs the calculator tool.
func (a *Agent) finishDecision(fp string, d *Decision, n, lastChoice int, hintActive bool) {
	raw := d.Result
	a.loops.Observe(fp, raw)

	if hintActive && raw == lastChoice && n > 1 {
		alt := 1
		if raw == 1 {
			alt = 2
		}
		d.Result = alt
		d.Override = "loop_escape"
	}

	if a.calculator && d.Reasoning != "" {
		if expr, ok := extractCalculation(d.Reasoning); ok {
			a.memory.SetNote(calculatorNote(expr))
		}
	}
}

// Record stores the executed step in memory and refreshes the rolling
// summary when due. Summarization is best-effort: a failed secondary
// call leaves the previous summary in place.
func (a *Agent) Record(ctx context.Context, obs env.Observation, d Decision) Usage {
	var usage Usage

	a.memory.Record(MemoryEntry{
		Observation: obs.Text,
		Choices:     obs.ChoicesRendered,
		Action:      d.Result,
		Reasoning:   d.Reasoning,
	})

	if a.memory.NeedsSummary() {
		messages := []llm.ChatMessage{
			llm.SystemMessage("Summarize this quest playthrough so far in a few sentences. Keep facts that could matter for later choices."),
			llm.UserMessage(a.memory.SummaryInput()),
		}
		comp, err := a.client.Complete(ctx, messages)
		if err == nil && comp.Content != "" {
			usage.add(comp)
			a.memory.ApplySummary(comp.Content)
		}
	}

	return usage
}
