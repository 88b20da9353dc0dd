package splitter

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/splitflow/internal/logging"
	"github.com/vnykmshr/splitflow/internal/testutil"
	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
	"github.com/vnykmshr/splitflow/pkg/metrics"
)

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()
	d := DefaultConfig()

	testutil.AssertEqual(t, strings.HasPrefix(c.Name, "splitter-"), true)
	testutil.AssertEqual(t, len(c.Name), len("splitter-")+8)
	testutil.AssertEqual(t, c.ArenaTasks, d.ArenaTasks)
	testutil.AssertEqual(t, c.SplitFactor, d.SplitFactor)
	testutil.AssertEqual(t, c.Logger != nil, true)
	testutil.AssertNoError(t, c.Validate())

	want := min(runtime.NumCPU(), d.MaxContexts)
	testutil.AssertEqual(t, c.contextCount(), want)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"too many contexts", Config{Contexts: 65}, "Contexts"},
		{"negative contexts", Config{Contexts: -1}, "Contexts"},
		{"negative arena", Config{ArenaTasks: -4}, "ArenaTasks"},
		{"negative split factor", Config{SplitFactor: -1}, "SplitFactor"},
		{"negative spin count", Config{SpinCount: -1}, "SpinCount"},
		{"negative max contexts", Config{MaxContexts: -1}, "MaxContexts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			testutil.AssertError(t, err)
			testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)

			var ve *gferrors.ValidationError
			testutil.AssertEqual(t, errors.As(err, &ve), true)
			testutil.AssertEqual(t, ve.Module, "splitter")
			testutil.AssertEqual(t, ve.Field, tt.field)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	testutil.AssertPanics(t, func() { MustNew(Config{Contexts: 1000}) })
}

func TestManager_MetricsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(Config{
		Name:     "stats",
		Contexts: 1,
		Logger:   logging.Discard(),
		Metrics:  metrics.Config{Enabled: true, Registry: reg},
	})
	testutil.AssertNoError(t, err)

	m.ParallelFor(100, 10, func(int, int) {})

	expected := `
# HELP splitflow_context_chunks_total Chunks executed by the context.
# TYPE splitflow_context_chunks_total counter
splitflow_context_chunks_total{context="0",manager="stats"} 10
# HELP splitflow_context_indices_total Subtask indices executed by the context.
# TYPE splitflow_context_indices_total counter
splitflow_context_indices_total{context="0",manager="stats"} 100
`
	err = promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"splitflow_context_chunks_total", "splitflow_context_indices_total")
	testutil.AssertNoError(t, err)

	shared := metrics.NewRegistry(reg)
	testutil.AssertEqual(t, promtest.ToFloat64(shared.WorkloadsStarted.WithLabelValues("stats")), float64(1))
	testutil.AssertEqual(t, promtest.ToFloat64(shared.WorkloadsCompleted.WithLabelValues("stats")), float64(1))
	testutil.AssertEqual(t, promtest.ToFloat64(shared.IndicesSubmitted.WithLabelValues("stats")), float64(100))
	testutil.AssertEqual(t, promtest.ToFloat64(shared.WorkloadsActive.WithLabelValues("stats")), float64(0))
	testutil.AssertEqual(t, promtest.ToFloat64(shared.Contexts.WithLabelValues("stats")), float64(1))

	testutil.AssertNoError(t, m.Close())
	count, err := promtest.GatherAndCount(reg, "splitflow_context_chunks_total")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, count, 0)
}

func TestNew_DuplicateNameOnSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{
		Name:     "dup",
		Contexts: 1,
		Logger:   logging.Discard(),
		Metrics:  metrics.Config{Enabled: true, Registry: reg},
	}
	first, err := New(cfg)
	testutil.AssertNoError(t, err)
	defer first.Close()

	_, err = New(cfg)
	var are prometheus.AlreadyRegisteredError
	testutil.AssertEqual(t, errors.As(err, &are), true)

	first.ParallelFor(50, 10, func(int, int) {})
	count, err := promtest.GatherAndCount(reg, "splitflow_context_chunks_total")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, count, 1)
}
