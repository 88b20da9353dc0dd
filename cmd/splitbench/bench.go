package main

import (
	"sync/atomic"
	"time"

	"github.com/vnykmshr/splitflow/internal/config"
	"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
)

// bench builds one synthetic workload per round. Every index costs Work
// iterations of an integer hash; the results are folded into a checksum so
// the work cannot be optimized away and so runs can be compared.
type bench struct {
	wc     config.WorkloadConfig
	sum    atomic.Uint64
	merges atomic.Int64
}

func newBench(wc config.WorkloadConfig) *bench {
	return &bench{wc: wc}
}

func (b *bench) kernel(_ *splitter.Manager, _ *splitter.ExecContext, start, count int) {
	var local uint64
	for i := start; i < start+count; i++ {
		h := uint64(i) + 1
		for j := 0; j < b.wc.Work; j++ {
			h ^= h << 13
			h ^= h >> 7
			h ^= h << 17
		}
		local += h
	}
	b.sum.Add(local)
}

func (b *bench) merge(*splitter.Manager, *splitter.ExecContext, int, int) {
	b.merges.Add(1)
}

// round runs one workload to completion and returns its wall time.
func (b *bench) round(m *splitter.Manager) time.Duration {
	began := time.Now()
	w := m.BeginWorkload()

	syncSlots := 0
	var s splitter.Sync
	if b.wc.Merge {
		syncSlots = 1
		s = w.NewSync(w.NewTask(splitter.KernelFunc(b.merge), 1, 0))
	}
	for i := 0; i < b.wc.Tasks; i++ {
		t := w.NewTask(splitter.KernelFunc(b.kernel), b.wc.Indices, syncSlots)
		if b.wc.Granularity > 0 {
			t.SetGranularity(b.wc.Granularity)
		}
		if b.wc.EndGame >= 0 {
			t.SetEndGame(b.wc.EndGame)
		}
		if b.wc.Merge {
			w.AddSync(t, s)
		}
	}

	w.Start()
	w.Sync()
	w.End()
	return time.Since(began)
}

func (b *bench) checksum() uint64 { return b.sum.Load() }
