package testutil

import (
	"fmt"
	"sync"
)

// DeterministicIDs generates numbered keys for tests: "<prefix>-001",
// "<prefix>-002", and so on.
//
// Unlike ir.SequenceGenerator, DeterministicIDs can be reset for test reuse.
// This lets the same scenario run multiple times with identical keys.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewDeterministicIDs creates a generator starting at 0. An empty prefix
// means "id".
//
// The first call to Generate() returns "<prefix>-001".
func NewDeterministicIDs(prefix string) *DeterministicIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &DeterministicIDs{prefix: prefix}
}

// Generate increments the counter and returns the next key.
func (g *DeterministicIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%03d", g.prefix, g.seq)
}

// Issued returns how many keys have been generated.
func (g *DeterministicIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset resets the counter to 0.
//
// After Reset(), the next call to Generate() returns "<prefix>-001" again.
func (g *DeterministicIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
