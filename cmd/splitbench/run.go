package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/splitflow/internal/config"
	"github.com/vnykmshr/splitflow/internal/logging"
	"github.com/vnykmshr/splitflow/pkg/metrics"
	"github.com/vnykmshr/splitflow/pkg/scheduling/reporter"
	"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
)

func newRunCmd() *cobra.Command {
	var (
		contexts    int
		single      bool
		pin         bool
		tasks       int
		indices     int
		granularity int
		endGame     int
		work        int
		rounds      int
		merge       bool
		withMetrics bool
		metricsAddr string
		schedule    string
		redisAddr   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run synthetic workloads and print scheduler statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if flagConfig != "" {
				loaded, err := config.Load(flagConfig)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			f := cmd.Flags()
			if f.Changed("contexts") {
				cfg.Scheduler.Contexts = contexts
			}
			if f.Changed("single") {
				cfg.Scheduler.Single = single
			}
			if f.Changed("pin") {
				cfg.Scheduler.PinThreads = pin
			}
			if f.Changed("tasks") {
				cfg.Workload.Tasks = tasks
			}
			if f.Changed("indices") {
				cfg.Workload.Indices = indices
			}
			if f.Changed("granularity") {
				cfg.Workload.Granularity = granularity
			}
			if f.Changed("end-game") {
				cfg.Workload.EndGame = endGame
			}
			if f.Changed("work") {
				cfg.Workload.Work = work
			}
			if f.Changed("rounds") {
				cfg.Workload.Rounds = rounds
			}
			if f.Changed("merge") {
				cfg.Workload.Merge = merge
			}
			if f.Changed("metrics") {
				cfg.Metrics.Enabled = withMetrics
			}
			if f.Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if f.Changed("report-schedule") {
				cfg.Report.Schedule = schedule
			}
			if f.Changed("redis") {
				cfg.Report.Redis = redisAddr
			}
			if flagLogLevel != "" {
				cfg.Log.Level = flagLogLevel
			}
			if flagLogFormat != "" {
				cfg.Log.Format = flagLogFormat
			}
			if flagDebug {
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBench(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&contexts, "contexts", 0, "Execution contexts including the caller (default: number of CPUs)")
	f.BoolVar(&single, "single", false, "Run every chunk on the calling goroutine")
	f.BoolVar(&pin, "pin", false, "Pin background contexts to CPUs")
	f.IntVar(&tasks, "tasks", 0, "Root tasks per workload")
	f.IntVar(&indices, "indices", 0, "Indices per task")
	f.IntVar(&granularity, "granularity", 0, "Indices per chunk (default: derived from the range)")
	f.IntVar(&endGame, "end-game", -1, "Range size claimed whole (default: half the granularity)")
	f.IntVar(&work, "work", 0, "Busy-loop iterations per index")
	f.IntVar(&rounds, "rounds", 0, "Workloads to run back to back")
	f.BoolVar(&merge, "merge", false, "Join the tasks with a sync releasing a merge continuation")
	f.BoolVar(&withMetrics, "metrics", false, "Serve Prometheus metrics while running")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Listen address of the metrics endpoint")
	f.StringVar(&schedule, "report-schedule", "", `Cron schedule of periodic reports, e.g. "@every 5s"`)
	f.StringVar(&redisAddr, "redis", "", "Redis address receiving the reports")

	return cmd
}

func runBench(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	sc := cfg.Splitter()
	sc.Logger = logger
	if cfg.Metrics.Enabled {
		sc.Metrics = metrics.Config{Enabled: true}
	}
	m, err := splitter.New(sc)
	if err != nil {
		return err
	}
	defer m.Close()

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sinks := []reporter.Sink{reporter.LogSink{Logger: logger}}
	if cfg.Report.Redis != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Report.Redis})
		defer client.Close()
		sinks = append(sinks, &reporter.RedisSink{Client: client, Key: cfg.Report.RedisKey})
	}
	rc := cfg.Reporter()
	rc.Logger = logger
	if cfg.Metrics.Enabled {
		rc.Metrics = metrics.Config{Enabled: true}
	}
	rep, err := reporter.New(m, rc, sinks...)
	if err != nil {
		return err
	}
	if cfg.Report.Schedule != "" {
		rep.Start()
		defer rep.Stop()
	}

	if cfg.Scheduler.Single {
		m.StartSingle()
	} else {
		m.Start()
	}

	b := newBench(cfg.Workload)
	var elapsed time.Duration
	done := 0
	for done < cfg.Workload.Rounds {
		if ctx.Err() != nil {
			logger.Warn("interrupted", "rounds", done)
			break
		}
		elapsed += b.round(m)
		done++
	}
	m.Finish()

	if _, err := rep.Collect(context.Background()); err != nil {
		logger.Warn("final report not fully delivered", "error", err)
	}
	printSummary(out, m.Stats(), cfg.Workload, done, elapsed, b.checksum())
	return nil
}

func printSummary(out io.Writer, st splitter.Stats, wc config.WorkloadConfig, rounds int, elapsed time.Duration, sum uint64) {
	total := st.Totals()
	indices := uint64(rounds) * uint64(wc.Tasks) * uint64(wc.Indices)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(indices) / elapsed.Seconds()
	}

	fmt.Fprintf(out, "manager %s: %d contexts, %d rounds in %s (%.0f indices/s)\n",
		st.Name, len(st.Contexts), rounds, elapsed.Round(time.Microsecond), rate)
	fmt.Fprintf(out, "%-8s %10s %12s %8s %12s %8s %8s\n",
		"context", "chunks", "indices", "steals", "stolen", "locks", "sleeps")
	for _, c := range st.Contexts {
		fmt.Fprintf(out, "%-8d %10d %12d %8d %12d %8d %8d\n",
			c.Index, c.Chunks, c.Indices, c.Steals, c.StolenIndices, c.FailedLocks, c.Sleeps)
	}
	fmt.Fprintf(out, "%-8s %10d %12d %8d %12d %8d %8d\n",
		"total", total.Chunks, total.Indices, total.Steals, total.StolenIndices, total.FailedLocks, total.Sleeps)
	fmt.Fprintf(out, "checksum %d\n", sum)
}
