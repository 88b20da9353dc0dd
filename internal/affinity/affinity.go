// Package affinity binds the calling goroutine's OS thread to a CPU.
//
// Background execution contexts call Pin after runtime.LockOSThread so a
// context keeps its cache between chunks. On platforms without support Pin
// only locks the thread.
package affinity

import (
	"fmt"
	"runtime"
)

// CPUFor maps a context index to a CPU, wrapping around the online CPUs.
func CPUFor(index int) int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 0
	}
	return index % n
}

// Pin locks the current goroutine to its OS thread and restricts that thread
// to cpu. The caller must call Unpin before the goroutine exits.
func Pin(cpu int) error {
	if cpu < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpu)
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpu); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin clears the CPU restriction and releases the OS thread.
func Unpin() error {
	err := clearAffinityPlatform()
	runtime.UnlockOSThread()
	return err
}
