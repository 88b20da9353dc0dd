/*
Package reporter publishes scheduler statistics on a cron schedule.

A Reporter takes a splitter.Stats snapshot from its source, keeps the most
recent snapshots in memory and hands each one to its sinks:

	r, err := reporter.New(manager, reporter.Config{Schedule: "@every 30s"},
		reporter.LogSink{Logger: logger},
		reporter.NewRedisSink(redis.NewClient(&redis.Options{Addr: "localhost:6379"})),
	)
	if err != nil {
		log.Fatal(err)
	}
	r.Start()
	defer r.Stop()

Schedules use cron syntax with an optional leading seconds field, or the
descriptors understood by github.com/robfig/cron/v3 ("@every 1m", "@hourly").
A report that is still being published when the next one is due is skipped.

The Redis sink writes one hash per instance and manager so that several
processes can report into the same database.
*/
package reporter
