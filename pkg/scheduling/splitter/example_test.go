package splitter_test

import (
	"fmt"
	"sync/atomic"

	"github.com/vnykmshr/splitflow/internal/logging"
	"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
)

// Example demonstrates summing a range on every context.
func Example() {
	m := splitter.MustNew(splitter.Config{Contexts: 4, Logger: logging.Discard()})
	m.Start()
	defer m.Close()

	var sum atomic.Int64
	w := m.BeginWorkload()
	w.NewTask(splitter.KernelFunc(func(_ *splitter.Manager, _ *splitter.ExecContext, start, count int) {
		var local int64
		for i := start; i < start+count; i++ {
			local += int64(i)
		}
		sum.Add(local)
	}), 1000, 0).SetGranularity(64).SetEndGame(32)
	w.Start()
	w.Sync()
	w.End()

	fmt.Println(sum.Load())
	// Output: 499500
}

// Example_continuation demonstrates a sync releasing a merge step after two
// independent passes.
func Example_continuation() {
	m := splitter.MustNew(splitter.Config{Contexts: 2, Logger: logging.Discard()})
	m.Start()
	defer m.Close()

	var rows, cols atomic.Int64
	count := func(v *atomic.Int64) splitter.KernelFunc {
		return func(_ *splitter.Manager, _ *splitter.ExecContext, _, n int) {
			v.Add(int64(n))
		}
	}

	w := m.BeginWorkload()
	r := w.NewTask(count(&rows), 480, 1)
	c := w.NewTask(count(&cols), 640, 1)
	merge := w.NewTask(splitter.KernelFunc(func(*splitter.Manager, *splitter.ExecContext, int, int) {
		fmt.Println("merge after", rows.Load(), "rows and", cols.Load(), "columns")
	}), 1, 0)
	s := w.NewSync(merge)
	w.AddSync(r, s)
	w.AddSync(c, s)

	w.Start()
	w.Sync()
	w.End()

	// Output: merge after 480 rows and 640 columns
}

// Example_help demonstrates interleaving scheduler work with the caller's
// own loop.
func Example_help() {
	m := splitter.MustNew(splitter.Config{Contexts: 1, Logger: logging.Discard()})
	defer m.Close()

	w := m.BeginWorkload()
	w.NewTask(splitter.KernelFunc(func(*splitter.Manager, *splitter.ExecContext, int, int) {}), 100, 0).
		SetGranularity(25).SetEndGame(0)
	w.Start()

	steps := 0
	for w.Help() {
		steps++
	}
	w.End()

	fmt.Println("steps:", steps)
	// Output: steps: 3
}

// ExampleManager_ParallelFor demonstrates the single-task shortcut.
func ExampleManager_ParallelFor() {
	m := splitter.MustNew(splitter.Config{Contexts: 2, Logger: logging.Discard()})
	m.Start()
	defer m.Close()

	squares := make([]int, 8)
	m.ParallelFor(len(squares), 2, func(start, count int) {
		for i := start; i < start+count; i++ {
			squares[i] = i * i
		}
	})

	fmt.Println(squares)
	// Output: [0 1 4 9 16 25 36 49]
}
