package splitter

import (
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/vnykmshr/splitflow/pkg/common/validation"
	"github.com/vnykmshr/splitflow/pkg/metrics"
)

const module = "splitter"

// Config holds configuration options for creating a Manager.
type Config struct {
	// Name identifies the manager in logs and metric labels.
	// Defaults to "splitter-" followed by eight hex digits.
	Name string

	// Contexts is the number of execution contexts including the master.
	// Zero means runtime.NumCPU() clamped to MaxContexts.
	Contexts int

	// MaxContexts caps the automatically chosen context count.
	MaxContexts int

	// ArenaTasks is the number of task records each workload can hold.
	ArenaTasks int

	// ArenaSyncs is the number of syncs each workload can hold.
	ArenaSyncs int

	// ArenaSyncRefs is the number of task-to-sync references each workload can hold.
	ArenaSyncRefs int

	// MaxQueuedPerContext is the preallocated capacity of each per-context
	// queue of a workload. Queues grow past it if needed.
	MaxQueuedPerContext int

	// SplitFactor sets the default granularity of a task to
	// count / (contexts * SplitFactor).
	SplitFactor int

	// SpinCount is the number of idle rounds a context busy-waits before it
	// escalates to a blocking wait.
	SpinCount int

	// PinThreads locks every background context to an OS thread bound to one CPU.
	PinThreads bool

	// Logger receives lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics configures Prometheus instrumentation.
	Metrics metrics.Config

	// PanicHandler is called when a kernel panics. The chunk is then counted
	// as completed. If nil, kernel panics are not recovered.
	PanicHandler func(c *ExecContext, start, count int, recovered interface{})

	// OnContextStart is called on a background context's goroutine before it
	// starts polling for work.
	OnContextStart func(index int)

	// OnContextStop is called on a background context's goroutine after it
	// stops polling.
	OnContextStop func(index int)
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		MaxContexts:         64,
		ArenaTasks:          256,
		ArenaSyncs:          64,
		ArenaSyncRefs:       1024,
		MaxQueuedPerContext: 64,
		SplitFactor:         4,
		SpinCount:           64,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = "splitter-" + uuid.NewString()[:8]
	}
	if c.MaxContexts == 0 {
		c.MaxContexts = d.MaxContexts
	}
	if c.ArenaTasks == 0 {
		c.ArenaTasks = d.ArenaTasks
	}
	if c.ArenaSyncs == 0 {
		c.ArenaSyncs = d.ArenaSyncs
	}
	if c.ArenaSyncRefs == 0 {
		c.ArenaSyncRefs = d.ArenaSyncRefs
	}
	if c.MaxQueuedPerContext == 0 {
		c.MaxQueuedPerContext = d.MaxQueuedPerContext
	}
	if c.SplitFactor == 0 {
		c.SplitFactor = d.SplitFactor
	}
	if c.SpinCount == 0 {
		c.SpinCount = d.SpinCount
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate reports the first invalid field of an already defaulted config.
func (c Config) Validate() error {
	if err := validation.ValidatePositive(module, "MaxContexts", c.MaxContexts); err != nil {
		return err
	}
	if c.Contexts != 0 {
		if err := validation.ValidateRange(module, "Contexts", c.Contexts, 1, c.MaxContexts); err != nil {
			return err
		}
	}
	checks := []struct {
		field string
		value int
	}{
		{"ArenaTasks", c.ArenaTasks},
		{"ArenaSyncs", c.ArenaSyncs},
		{"ArenaSyncRefs", c.ArenaSyncRefs},
		{"MaxQueuedPerContext", c.MaxQueuedPerContext},
		{"SplitFactor", c.SplitFactor},
		{"SpinCount", c.SpinCount},
	}
	for _, chk := range checks {
		if err := validation.ValidatePositive(module, chk.field, chk.value); err != nil {
			return err
		}
	}
	return nil
}

// contextCount resolves the number of execution contexts.
func (c Config) contextCount() int {
	if c.Contexts > 0 {
		return c.Contexts
	}
	return min(max(runtime.NumCPU(), 1), c.MaxContexts)
}
