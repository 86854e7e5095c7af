package memory

import (
	"sync"

	"github.com/roach88/byname/internal/engine"
)

// Backend hands out in-memory engines. Targets with the same collection
// name share one collection, so several repositories over one Backend see
// each other's records.
type Backend struct {
	mu          sync.Mutex
	collections map[string]*collection
}

var _ engine.Backend[Predicate] = (*Backend)(nil)

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{collections: make(map[string]*collection)}
}

// Engine returns an engine for target over the target's collection.
func (b *Backend) Engine(target engine.Target) (engine.QueryEngine[Predicate], error) {
	return b.engine(target), nil
}

func (b *Backend) engine(target engine.Target) *Engine {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := target.CollectionName()
	coll, ok := b.collections[name]
	if !ok {
		coll = &collection{}
		b.collections[name] = coll
	}
	return &Engine{target: target, coll: coll}
}

// Collections returns the record count per collection.
func (b *Backend) Collections() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.collections))
	for name, coll := range b.collections {
		coll.mu.RLock()
		out[name] = len(coll.items)
		coll.mu.RUnlock()
	}
	return out
}
