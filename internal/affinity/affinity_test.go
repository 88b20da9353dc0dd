package affinity

import (
	"runtime"
	"testing"

	"github.com/vnykmshr/splitflow/internal/testutil"
)

func TestCPUFor(t *testing.T) {
	n := runtime.NumCPU()
	testutil.AssertEqual(t, CPUFor(0), 0)
	testutil.AssertEqual(t, CPUFor(n), 0)
	testutil.AssertEqual(t, CPUFor(n+1), 1%n)
}

func TestPinInvalidCPU(t *testing.T) {
	testutil.AssertError(t, Pin(-1))
}

func TestPinAndUnpin(t *testing.T) {
	done := make(chan []int)
	go func() {
		if err := Pin(0); err != nil {
			// Restricted sandboxes may refuse the call.
			done <- nil
			return
		}
		cpus, _ := Current()
		_ = Unpin()
		done <- cpus
	}()

	cpus := <-done
	if cpus == nil {
		t.Skip("affinity not permitted in this environment")
	}
	if runtime.GOOS == "linux" {
		testutil.AssertEqual(t, len(cpus), 1)
		testutil.AssertEqual(t, cpus[0], 0)
	}
}
