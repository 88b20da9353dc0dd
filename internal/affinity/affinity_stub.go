//go:build !linux

package affinity

import "runtime"

func setAffinityPlatform(int) error { return nil }

func clearAffinityPlatform() error { return nil }

// Current returns every CPU; affinity is not queried on this platform.
func Current() ([]int, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}
