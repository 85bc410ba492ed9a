// Package shuffle produces randomized draft pools with a seedable source so
// tests can reproduce orderings.
package shuffle

import (
	"math/rand"
	"sync"
	"time"
)

// Shuffler draws randomized subsets of a pool. Safe for concurrent use.
type Shuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Shuffler seeded from the current time.
func New() *Shuffler {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a Shuffler with a fixed seed (for testing)
func NewSeeded(seed int64) *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewSource(seed))}
}

// Draw returns a shuffled copy of pool truncated to n entries. The input is
// never mutated. If n exceeds the pool size the whole shuffled pool is
// returned.
func (s *Shuffler) Draw(pool []string, n int) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
