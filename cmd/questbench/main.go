// Package main provides the questbench CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/questbench/cli"
	"github.com/spf13/cobra"
)

var debug bool

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "questbench",
		Short: "Benchmark LLM agents on branching text quests",
		Long: `questbench drives .qm text quests through an interpreter subprocess
and lets LLM agents (or a seeded random baseline) play them to completion.

Every run is persisted to SQLite with its full step trace, token usage
and cost, and summarized as a JSON artifact under the results directory.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show per-step diagnostics")

	rootCmd.AddCommand(runCmd(ctx))
	rootCmd.AddCommand(benchmarkCmd(ctx))
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}

func runCmd(ctx context.Context) *cobra.Command {
	var opts cli.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one quest with one agent",
		Long: `Play a single quest with a single agent and report the outcome.

The exit code encodes the result: 0 SUCCESS, 1 FAILURE, 2 TIMEOUT,
3 ERROR. The agent is a provider:model reference (e.g. "random",
"deepseek:deepseek-chat") or a YAML agent config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Debug = debug
			code, err := cli.Run(ctx, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.QuestPath, "quest", "q", "", "Quest .qm file (required)")
	cmd.Flags().StringVarP(&opts.AgentRef, "agent", "a", "random", "Agent: provider:model reference or YAML config file")
	cmd.Flags().StringArrayVar(&opts.Interpreter, "interpreter", nil, "Interpreter command; the quest path is appended (repeatable for arguments)")
	cmd.Flags().IntVar(&opts.TimeoutSeconds, "timeout", 0, "Per-run wall-clock budget in seconds (default from environment)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "Step cap (default from environment)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "questbench.db", "SQLite database path")
	cmd.Flags().StringVar(&opts.ResultsDir, "results", "results", "Results directory for run-summary artifacts")
	_ = cmd.MarkFlagRequired("quest")
	_ = cmd.MarkFlagRequired("interpreter")

	return cmd
}

func benchmarkCmd(ctx context.Context) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a quest-by-agent benchmark matrix",
		Long: `Run every quest against every agent from a YAML benchmark config
over a bounded worker pool, then write per-agent and per-quest
aggregates to the benchmark summary artifact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Benchmark(ctx, configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Benchmark YAML config file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListProviders()
			return nil
		},
	}
}
