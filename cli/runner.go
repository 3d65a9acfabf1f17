// Command execution for CLI commands.
//
// Information Hiding:
// - Run and benchmark setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/richinex/questbench/benchmark"
	"github.com/richinex/questbench/bridge"
	"github.com/richinex/questbench/config"
	"github.com/richinex/questbench/runner"
	"github.com/richinex/questbench/storage"
)

// RunOptions holds the run command's arguments.
type RunOptions struct {
	QuestPath      string
	AgentRef       string
	Interpreter    []string
	TimeoutSeconds int
	MaxSteps       int
	DBPath         string
	ResultsDir     string
	Debug          bool
}

// Run executes one quest with one agent and returns the process exit
// code: 0 SUCCESS, 1 FAILURE, 2 TIMEOUT, 3 ERROR.
func Run(ctx context.Context, opts RunOptions) (int, error) {
	settings, err := config.New()
	if err != nil {
		return 3, err
	}
	if len(opts.Interpreter) == 0 {
		return 3, fmt.Errorf("no interpreter command: pass --interpreter")
	}
	if _, err := os.Stat(opts.QuestPath); err != nil {
		return 3, fmt.Errorf("quest file: %w", err)
	}

	agentCfg, err := LoadAgentConfig(opts.AgentRef)
	if err != nil {
		return 3, err
	}
	if agentCfg.MaxTokens == 0 {
		agentCfg.MaxTokens = settings.MaxTokens
	}
	if agentCfg.Temperature == nil {
		t := settings.Temperature
		agentCfg.Temperature = &t
	}

	timeout := settings.QuestTimeout
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	maxSteps := settings.MaxSteps
	if opts.MaxSteps > 0 {
		maxSteps = opts.MaxSteps
	}

	store, err := storage.Open(opts.DBPath)
	if err != nil {
		return 3, err
	}
	defer store.Close()

	res, err := runner.Run(ctx, store, runner.Options{
		Bridge: bridge.Config{
			Command:   opts.Interpreter,
			QuestPath: opts.QuestPath,
		},
		Agent:      agentCfg,
		Prices:     settings.Prices,
		MaxSteps:   maxSteps,
		Timeout:    timeout,
		ResultsDir: opts.ResultsDir,
		Debug:      opts.Debug,
	})
	if err != nil {
		return 3, err
	}

	fmt.Printf("Run %s: %s (%s)\n", res.RunID, res.Outcome, res.EndReason)
	fmt.Printf("  steps %d, reward %g, tokens %d, cost $%.4f\n",
		res.Steps, res.Reward, res.Usage.TotalTokens, res.Usage.CostUSD)
	if res.SummaryPath != "" {
		fmt.Printf("  summary %s\n", res.SummaryPath)
	}
	return runner.ExitCode(res.Outcome), nil
}

// Benchmark executes a quest-by-agent matrix from a YAML config,
// printing progress while it runs.
func Benchmark(ctx context.Context, configPath string, debug bool) error {
	cfg, err := benchmark.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := benchmark.New(cfg, store)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := sched.Progress()
				fmt.Printf("progress: %d/%d done (%d running, %d failed, %d timeout, %d errors)\n",
					p.Completed+p.Failed+p.Timeout+p.Errors, p.Total,
					p.Running, p.Failed, p.Timeout, p.Errors)
			}
		}
	}()

	summary, err := sched.Run(ctx)
	close(done)
	if err != nil {
		return err
	}

	printBenchmarkSummary(summary)
	return nil
}

func printBenchmarkSummary(s *benchmark.Summary) {
	fmt.Printf("\nBenchmark %s: %d runs\n", s.BenchmarkID, s.Totals.Total)
	fmt.Printf("  success %d, failure %d, timeout %d, errors %d\n",
		s.Totals.Completed, s.Totals.Failed, s.Totals.Timeout, s.Totals.Errors)

	agents := make([]string, 0, len(s.ByAgent))
	for id := range s.ByAgent {
		agents = append(agents, id)
	}
	sort.Strings(agents)

	fmt.Println("\nPer agent:")
	for _, id := range agents {
		a := s.ByAgent[id]
		fmt.Printf("  %-30s %d runs, %.0f%% success, mean reward %.2f, %d tokens, $%.4f\n",
			id, a.Runs, a.SuccessRate*100, a.MeanReward, a.TotalTokens, a.CostUSD)
	}
}
