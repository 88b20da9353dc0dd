package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LogSink writes each report as one structured log record.
type LogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Name implements Sink.
func (s LogSink) Name() string { return "log" }

// Publish implements Sink.
func (s LogSink) Publish(ctx context.Context, report Report) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := report.Stats
	tot := st.Totals()
	logger.Log(ctx, s.Level, "scheduler stats",
		"manager", st.Name,
		"instance", report.Instance,
		"running", st.Running,
		"active_workloads", st.ActiveWorkloads,
		"workloads_completed", st.WorkloadsCompleted,
		slog.Group("totals",
			"chunks", tot.Chunks,
			"indices", tot.Indices,
			"steals", tot.Steals,
			"failed_locks", tot.FailedLocks,
			"sleeps", tot.Sleeps,
		),
	)
	return nil
}

// RedisSink stores the latest report of every manager as a Redis hash under
// "<Key>:<instance>:<manager>" and records the instance in the "<Key>:instances" set.
type RedisSink struct {
	Client redis.UniversalClient

	// Key is the key prefix. Defaults to "splitflow:stats".
	Key string

	// TTL expires the keys of instances that stop reporting. Defaults to one hour.
	TTL time.Duration
}

// NewRedisSink creates a RedisSink with default key prefix and TTL.
func NewRedisSink(client redis.UniversalClient) *RedisSink {
	return &RedisSink{Client: client}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) prefix() string {
	if s.Key == "" {
		return "splitflow:stats"
	}
	return s.Key
}

func (s *RedisSink) ttl() time.Duration {
	if s.TTL <= 0 {
		return time.Hour
	}
	return s.TTL
}

// HashKey returns the hash holding the reports of instance for manager.
func (s *RedisSink) HashKey(instance, manager string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix(), instance, manager)
}

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, report Report) error {
	st := report.Stats
	key := s.HashKey(report.Instance, st.Name)
	instances := s.prefix() + ":instances"

	fields := map[string]interface{}{
		"time":                report.Time.UnixMilli(),
		"running":             st.Running,
		"single":              st.Single,
		"active_workloads":    st.ActiveWorkloads,
		"free_workloads":      st.FreeWorkloads,
		"workloads_started":   st.WorkloadsStarted,
		"workloads_completed": st.WorkloadsCompleted,
		"contexts":            len(st.Contexts),
	}
	for _, c := range st.Contexts {
		p := "ctx." + strconv.Itoa(c.Index) + "."
		fields[p+"chunks"] = c.Chunks
		fields[p+"indices"] = c.Indices
		fields[p+"steals"] = c.Steals
		fields[p+"stolen_indices"] = c.StolenIndices
		fields[p+"failed_locks"] = c.FailedLocks
		fields[p+"spins"] = c.Spins
		fields[p+"sleeps"] = c.Sleeps
	}

	pipe := s.Client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl())
	pipe.SAdd(ctx, instances, report.Instance)
	pipe.Expire(ctx, instances, s.ttl())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sink %s: %w", key, err)
	}
	return nil
}
