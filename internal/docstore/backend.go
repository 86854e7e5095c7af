package docstore

import (
	"context"
	"fmt"

	"github.com/roach88/byname/internal/engine"
)

// Backend hands out document-store engines over one Store. Targets with
// the same collection name read and write the same documents.
type Backend struct {
	store *Store
	ids   IDGenerator
}

var _ engine.Backend[Filter] = (*Backend)(nil)

// BackendOption allows configuration of backend parameters.
type BackendOption func(*Backend)

// WithIDGenerator sets the generator used for documents without an
// identity value.
//
// Default: UUIDv7Generator
// Use WithIDGenerator(NewFixedGenerator(...)) for deterministic tests.
func WithIDGenerator(g IDGenerator) BackendOption {
	return func(b *Backend) {
		b.ids = g
	}
}

// NewBackend creates a backend over store.
func NewBackend(store *Store, opts ...BackendOption) *Backend {
	b := &Backend{store: store, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Engine registers the target's collection and returns an engine for it.
func (b *Backend) Engine(target engine.Target) (engine.QueryEngine[Filter], error) {
	return b.engine(context.Background(), target)
}

func (b *Backend) engine(ctx context.Context, target engine.Target) (*Engine, error) {
	if target.Entity == "" {
		return nil, fmt.Errorf("docstore: target has no entity")
	}
	if err := b.store.RegisterCollection(ctx, target.CollectionName(), target.Entity); err != nil {
		return nil, err
	}
	return &Engine{store: b.store, target: target, ids: b.ids}, nil
}

// Store returns the underlying store.
func (b *Backend) Store() *Store {
	return b.store
}
