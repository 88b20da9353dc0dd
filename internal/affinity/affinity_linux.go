//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// processSet is the affinity the process started with; Unpin restores it.
var processSet unix.CPUSet

func init() {
	if err := unix.SchedGetaffinity(0, &processSet); err != nil {
		processSet.Zero()
	}
}

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
func setAffinityPlatform(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpu, err)
	}
	return nil
}

func clearAffinityPlatform() error {
	if processSet.Count() == 0 {
		return nil
	}
	set := processSet
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity reset: %w", err)
	}
	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
