// Package config loads the YAML configuration of the splitbench tool.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/splitflow/pkg/common/validation"
	"github.com/vnykmshr/splitflow/pkg/scheduling/reporter"
	"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
)

// Config is the file format of splitbench.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Workload  WorkloadConfig  `yaml:"workload"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Report    ReportConfig    `yaml:"report"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// SchedulerConfig maps onto splitter.Config. Zero values keep the splitter defaults.
type SchedulerConfig struct {
	Name        string `yaml:"name"`
	Contexts    int    `yaml:"contexts"`
	Single      bool   `yaml:"single"`
	ArenaTasks  int    `yaml:"arena_tasks"`
	SplitFactor int    `yaml:"split_factor"`
	SpinCount   int    `yaml:"spin_count"`
	PinThreads  bool   `yaml:"pin_threads"`
}

// WorkloadConfig describes the synthetic benchmark workload.
type WorkloadConfig struct {
	Tasks       int  `yaml:"tasks"`       // independent root tasks per workload
	Indices     int  `yaml:"indices"`     // indices per task
	Granularity int  `yaml:"granularity"` // 0 selects the splitter default
	EndGame     int  `yaml:"end_game"`    // negative selects the splitter default
	Work        int  `yaml:"work"`        // busy-loop iterations per index
	Rounds      int  `yaml:"rounds"`      // workloads run back to back
	Merge       bool `yaml:"merge"`       // add a continuation joined by a sync
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ReportConfig controls periodic statistics reports.
type ReportConfig struct {
	Schedule string        `yaml:"schedule"`
	Redis    string        `yaml:"redis"` // address, empty disables the Redis sink
	RedisKey string        `yaml:"redis_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Workload: WorkloadConfig{
			Tasks:   4,
			Indices: 100000,
			EndGame: -1,
			Work:    200,
			Rounds:  10,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the workload and metrics sections. Scheduler fields are
// validated by splitter.New.
func (c Config) Validate() error {
	const module = "splitbench"
	if err := validation.ValidatePositive(module, "workload.tasks", c.Workload.Tasks); err != nil {
		return err
	}
	if err := validation.ValidatePositive(module, "workload.indices", c.Workload.Indices); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "workload.granularity", c.Workload.Granularity); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "workload.work", c.Workload.Work); err != nil {
		return err
	}
	if err := validation.ValidatePositive(module, "workload.rounds", c.Workload.Rounds); err != nil {
		return err
	}
	if c.Metrics.Enabled {
		return validation.ValidateNotEmpty(module, "metrics.addr", c.Metrics.Addr)
	}
	return nil
}

// Splitter converts the scheduler section to a splitter.Config.
func (c Config) Splitter() splitter.Config {
	s := c.Scheduler
	return splitter.Config{
		Name:        s.Name,
		Contexts:    s.Contexts,
		ArenaTasks:  s.ArenaTasks,
		SplitFactor: s.SplitFactor,
		SpinCount:   s.SpinCount,
		PinThreads:  s.PinThreads,
	}
}

// Reporter converts the report section to a reporter.Config.
func (c Config) Reporter() reporter.Config {
	return reporter.Config{
		Schedule: c.Report.Schedule,
		Timeout:  c.Report.Timeout,
	}
}
