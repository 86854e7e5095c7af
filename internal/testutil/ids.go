package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates document ids doc-1, doc-2, ... for tests.
//
// Unlike docstore.FixedGenerator, SequentialIDs never runs out and can be
// reset for test reuse, so the same scenario run twice stores the same ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDs creates a generator starting at 0. An empty prefix
// means "doc".
//
// The first call to Generate() returns prefix-1.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "doc"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate increments the sequence and returns the next id.
//
// Implements docstore.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Current returns the number of ids generated since the last Reset.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next Generate() returns prefix-1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
