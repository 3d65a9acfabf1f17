// Package benchmark schedules a quest-by-agent run matrix over a
// bounded worker pool and aggregates the results.
package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/richinex/questbench/agent"
)

// Default knobs applied by Normalize.
const (
	defaultMaxWorkers = 2
	defaultTimeout    = 120 * time.Second
	defaultMaxSteps   = 100
	defaultResultsDir = "results"
	defaultDBPath     = "questbench.db"
)

// Config is the YAML benchmark definition: which quests, which agents,
// and how to run them.
type Config struct {
	BenchmarkID string `yaml:"benchmark_id"`
	// Quests are .qm files or directories; directories expand to every
	// .qm file beneath them.
	Quests []string       `yaml:"quests"`
	Agents []agent.Config `yaml:"agents"`
	// TimeoutPerRun is the per-run wall-clock budget in seconds.
	TimeoutPerRun int    `yaml:"timeout_per_run"`
	MaxSteps      int    `yaml:"max_steps"`
	MaxWorkers    int    `yaml:"max_workers"`
	ResultsDir    string `yaml:"results_dir"`
	DBPath        string `yaml:"db_path"`
	// Interpreter is the command prefix the quest path is appended to.
	Interpreter []string `yaml:"interpreter"`
	Debug       bool     `yaml:"debug"`
}

// LoadConfig reads and normalizes a benchmark config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse benchmark config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults and validates the matrix is non-empty.
func (c *Config) Normalize() error {
	if len(c.Quests) == 0 {
		return fmt.Errorf("benchmark config: no quests")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("benchmark config: no agents")
	}
	if len(c.Interpreter) == 0 {
		return fmt.Errorf("benchmark config: no interpreter command")
	}
	for i := range c.Agents {
		if err := c.Agents[i].Normalize(); err != nil {
			return err
		}
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if seen[a.AgentID] {
			return fmt.Errorf("benchmark config: duplicate agent_id %q", a.AgentID)
		}
		seen[a.AgentID] = true
	}

	if c.BenchmarkID == "" {
		c.BenchmarkID = uuid.NewString()
	}
	if c.TimeoutPerRun <= 0 {
		c.TimeoutPerRun = int(defaultTimeout / time.Second)
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.ResultsDir == "" {
		c.ResultsDir = defaultResultsDir
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	return nil
}

// Timeout returns the per-run budget as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutPerRun) * time.Second
}

// ResolveQuests expands the quest entries into a sorted, deduplicated
// list of .qm file paths. Directory entries match every .qm file
// beneath them.
func (c *Config) ResolveQuests() ([]string, error) {
	found := map[string]bool{}
	for _, entry := range c.Quests {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, fmt.Errorf("quest entry %q: %w", entry, err)
		}
		if !info.IsDir() {
			found[filepath.Clean(entry)] = true
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(entry), "**/*.qm")
		if err != nil {
			return nil, fmt.Errorf("quest entry %q: %w", entry, err)
		}
		for _, m := range matches {
			found[filepath.Join(entry, m)] = true
		}
	}

	quests := make([]string, 0, len(found))
	for q := range found {
		quests = append(quests, q)
	}
	sort.Strings(quests)
	if len(quests) == 0 {
		return nil, fmt.Errorf("benchmark config: quest entries matched no .qm files")
	}
	return quests, nil
}
