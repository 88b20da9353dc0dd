package reporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
	"github.com/vnykmshr/splitflow/pkg/common/validation"
	"github.com/vnykmshr/splitflow/pkg/metrics"
	"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
)

const module = "reporter"

// StatsSource provides statistics snapshots. *splitter.Manager implements it.
type StatsSource interface {
	Stats() splitter.Stats
}

// Sink receives reports.
type Sink interface {
	// Name identifies the sink in logs and metric labels.
	Name() string

	// Publish delivers one report. It must honor ctx cancellation.
	Publish(ctx context.Context, report Report) error
}

// Report is one statistics snapshot of a manager.
type Report struct {
	Instance string
	Time     time.Time
	Stats    splitter.Stats
}

// Config holds configuration for a Reporter.
type Config struct {
	// Schedule is a cron expression with a leading seconds field, or a
	// descriptor such as "@every 30s". Defaults to every ten seconds.
	Schedule string

	// Instance identifies this process in published reports.
	// Defaults to a random UUID.
	Instance string

	// History is the number of reports kept in memory.
	History int

	// Timeout bounds one Publish call per sink.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics configures Prometheus instrumentation.
	Metrics metrics.Config
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		Schedule: "*/10 * * * * *",
		History:  32,
		Timeout:  2 * time.Second,
	}
}

// Reporter periodically snapshots a StatsSource and publishes the snapshot
// to its sinks.
type Reporter struct {
	config  Config
	source  StatsSource
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Registry

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	history *queue.Queue
	running bool
}

// parser accepts an optional seconds field, matching the scheduler package.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Reporter. Reports are only taken on Collect until Start.
func New(source StatsSource, config Config, sinks ...Sink) (*Reporter, error) {
	d := DefaultConfig()
	if config.Schedule == "" {
		config.Schedule = d.Schedule
	}
	if config.Instance == "" {
		config.Instance = uuid.NewString()
	}
	if config.History == 0 {
		config.History = d.History
	}
	if config.Timeout == 0 {
		config.Timeout = d.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if err := validation.ValidateNotNil(module, "source", source); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "History", config.History); err != nil {
		return nil, err
	}
	if config.Timeout < 0 {
		return nil, gferrors.NewValidationError(module, "Timeout", config.Timeout, "must be positive")
	}
	if _, err := parser.Parse(config.Schedule); err != nil {
		return nil, gferrors.NewValidationError(module, "Schedule", config.Schedule, err.Error()).
			WithHint(`use a cron expression such as "*/10 * * * * *" or "@every 10s"`)
	}

	r := &Reporter{
		config:  config,
		source:  source,
		sinks:   sinks,
		logger:  config.Logger.With("component", module, "instance", config.Instance),
		metrics: config.Metrics.Resolve(),
		history: queue.New(),
	}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	id, err := r.cron.AddFunc(config.Schedule, r.tick)
	if err != nil {
		return nil, fmt.Errorf("reporter: schedule: %w", err)
	}
	r.entryID = id
	return r, nil
}

// Start begins publishing on the configured schedule.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
	r.logger.Info("reporter started", "schedule", r.config.Schedule, "sinks", len(r.sinks))
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("reporter stopped")
}

// Next returns the time of the next scheduled report.
func (r *Reporter) Next() time.Time {
	return r.cron.Entry(r.entryID).Next
}

func (r *Reporter) tick() {
	if _, err := r.Collect(context.Background()); err != nil {
		r.logger.Warn("report not fully delivered", "error", err)
	}
}

// Collect takes a snapshot now, records it in the history and publishes it
// to every sink. Sink failures are joined into the returned error; the
// report is returned either way.
func (r *Reporter) Collect(ctx context.Context) (Report, error) {
	report := Report{
		Instance: r.config.Instance,
		Time:     time.Now(),
		Stats:    r.source.Stats(),
	}

	r.mu.Lock()
	r.history.Add(report)
	for r.history.Length() > r.config.History {
		r.history.Remove()
	}
	r.mu.Unlock()

	var errs []error
	for _, sink := range r.sinks {
		if err := r.publish(ctx, sink, report); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

func (r *Reporter) publish(ctx context.Context, sink Sink, report Report) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	if err := sink.Publish(ctx, report); err != nil {
		if r.metrics != nil {
			r.metrics.ReportErrors.WithLabelValues(sink.Name()).Inc()
		}
		return gferrors.NewOperationError(module, "publish", err).WithContext(sink.Name())
	}
	if r.metrics != nil {
		r.metrics.ReportsPublished.WithLabelValues(sink.Name()).Inc()
	}
	return nil
}

// History returns the kept reports, oldest first.
func (r *Reporter) History() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, r.history.Length())
	for i := range out {
		out[i] = r.history.Get(i).(Report)
	}
	return out
}

// Latest returns the most recent report.
func (r *Reporter) Latest() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.history.Length() == 0 {
		return Report{}, false
	}
	return r.history.Get(-1).(Report), true
}
