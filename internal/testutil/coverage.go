package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Coverage records how many times each index of a range was visited.
// Visit is safe for concurrent use.
type Coverage struct {
	start int
	hits  []atomic.Int32

	mu     sync.Mutex
	chunks []Chunk
}

// Chunk is one recorded [Start, Start+Count) visit.
type Chunk struct {
	Start, Count int
}

// NewCoverage creates a recorder for the range [start, end).
func NewCoverage(start, end int) *Coverage {
	return &Coverage{
		start: start,
		hits:  make([]atomic.Int32, end-start),
	}
}

// Visit marks every index of [start, start+count) once and records the chunk.
func (c *Coverage) Visit(start, count int) {
	for i := start; i < start+count; i++ {
		c.hits[i-c.start].Add(1)
	}
	c.mu.Lock()
	c.chunks = append(c.chunks, Chunk{Start: start, Count: count})
	c.mu.Unlock()
}

// Check returns an error describing the first index not visited exactly once.
func (c *Coverage) Check() error {
	for i := range c.hits {
		if n := c.hits[i].Load(); n != 1 {
			return fmt.Errorf("index %d visited %d times", c.start+i, n)
		}
	}
	return nil
}

// Chunks returns a copy of the recorded chunks in completion order.
func (c *Coverage) Chunks() []Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}
