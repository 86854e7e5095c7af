package memory

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/query"
)

// Predicate is the native custom query of the in-memory engine.
type Predicate func(item any) bool

// collection is the shared, mutex-guarded record list behind one or more
// engines.
type collection struct {
	mu    sync.RWMutex
	items []any
}

// Engine is the in-memory QueryEngine for one target.
//
// Thread-safety model:
//   - reads take the collection read lock
//   - InsertOrUpdate and Remove filter and rebuild the slice under the
//     write lock, so concurrent writers never lose records
type Engine struct {
	target engine.Target
	coll   *collection
}

var _ engine.QueryEngine[Predicate] = (*Engine)(nil)

// New creates an engine over its own empty collection.
func New(target engine.Target) *Engine {
	return &Engine{target: target, coll: &collection{}}
}

// Target returns the target the engine was created for.
func (e *Engine) Target() engine.Target {
	return e.target
}

// Len returns the number of stored records.
func (e *Engine) Len() int {
	e.coll.mu.RLock()
	defer e.coll.mu.RUnlock()
	return len(e.coll.items)
}

// InsertOrUpdate removes every record matching match and appends item.
func (e *Engine) InsertOrUpdate(ctx context.Context, item any, match query.Query, params []any) error {
	if err := e.checkItem(item); err != nil {
		return err
	}
	cond, err := e.compile(match, params)
	if err != nil {
		return e.fail(err)
	}

	e.coll.mu.Lock()
	defer e.coll.mu.Unlock()

	kept, err := e.filter(e.coll.items, cond, false)
	if err != nil {
		return e.fail(err)
	}
	replaced := len(e.coll.items) - len(kept)
	e.coll.items = append(kept, item)

	slog.Debug("memory insertOrUpdate",
		"entity", e.target.Entity,
		"replaced", replaced,
		"size", len(e.coll.items))
	return nil
}

// FindAll returns every matching record in insertion order.
func (e *Engine) FindAll(ctx context.Context, q query.Query, params []any) ([]any, error) {
	cond, err := e.compile(q, params)
	if err != nil {
		return nil, e.fail(err)
	}

	e.coll.mu.RLock()
	defer e.coll.mu.RUnlock()

	out, err := e.filter(e.coll.items, cond, true)
	if err != nil {
		return nil, e.fail(err)
	}
	return out, nil
}

// FindOne returns the first matching record in insertion order.
func (e *Engine) FindOne(ctx context.Context, q query.Query, params []any) (any, bool, error) {
	cond, err := e.compile(q, params)
	if err != nil {
		return nil, false, e.fail(err)
	}

	e.coll.mu.RLock()
	defer e.coll.mu.RUnlock()

	for _, item := range e.coll.items {
		hit, err := cond(item)
		if err != nil {
			return nil, false, e.fail(err)
		}
		if hit {
			return item, true, nil
		}
	}
	return nil, false, nil
}

// Remove deletes every matching record.
func (e *Engine) Remove(ctx context.Context, q query.Query, params []any) error {
	cond, err := e.compile(q, params)
	if err != nil {
		return e.fail(err)
	}

	e.coll.mu.Lock()
	defer e.coll.mu.Unlock()

	kept, err := e.filter(e.coll.items, cond, false)
	if err != nil {
		return e.fail(err)
	}
	removed := len(e.coll.items) - len(kept)
	e.coll.items = kept

	slog.Debug("memory remove", "entity", e.target.Entity, "removed", removed)
	return nil
}

// InsertOrUpdateCustom removes every record the predicate accepts and
// appends item.
func (e *Engine) InsertOrUpdateCustom(ctx context.Context, item any, custom Predicate) error {
	if err := e.checkItem(item); err != nil {
		return err
	}
	e.coll.mu.Lock()
	defer e.coll.mu.Unlock()

	kept, _ := e.filter(e.coll.items, predicateCondition(custom), false)
	e.coll.items = append(kept, item)
	return nil
}

// FindAllCustom returns every record the predicate accepts.
func (e *Engine) FindAllCustom(ctx context.Context, custom Predicate) ([]any, error) {
	e.coll.mu.RLock()
	defer e.coll.mu.RUnlock()

	out, _ := e.filter(e.coll.items, predicateCondition(custom), true)
	return out, nil
}

// FindOneCustom returns the first record the predicate accepts.
func (e *Engine) FindOneCustom(ctx context.Context, custom Predicate) (any, bool, error) {
	e.coll.mu.RLock()
	defer e.coll.mu.RUnlock()

	for _, item := range e.coll.items {
		if custom(item) {
			return item, true, nil
		}
	}
	return nil, false, nil
}

// RemoveCustom deletes every record the predicate accepts.
func (e *Engine) RemoveCustom(ctx context.Context, custom Predicate) error {
	e.coll.mu.Lock()
	defer e.coll.mu.Unlock()

	e.coll.items, _ = e.filter(e.coll.items, predicateCondition(custom), false)
	return nil
}

// filter returns a new slice with the items for which cond equals keep.
// The input slice is never modified, so readers holding the old slice
// are unaffected.
func (e *Engine) filter(items []any, cond condition, keep bool) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		hit, err := cond(item)
		if err != nil {
			return nil, err
		}
		if hit == keep {
			out = append(out, item)
		}
	}
	return slices.Clip(out), nil
}

func (e *Engine) checkItem(item any) error {
	if item == nil {
		return &engine.RuntimeError{
			Code:    engine.ErrCodeInvalidParameter,
			Message: "cannot store nil",
			Entity:  e.target.Entity,
		}
	}
	if e.target.Type != nil && reflect.TypeOf(item) != e.target.Type {
		return &engine.RuntimeError{
			Code:    engine.ErrCodeInvalidParameter,
			Message: fmt.Sprintf("expected %s, got %T", e.target.Type, item),
			Entity:  e.target.Entity,
		}
	}
	return nil
}

// compile checks q against the target type before compiling it.
func (e *Engine) compile(q query.Query, params []any) (condition, error) {
	if err := checkFields(q, e.target.Type); err != nil {
		return nil, err
	}
	return compile(q, params)
}

func (e *Engine) fail(err error) error {
	return engine.WithEntity(err, e.target.Entity)
}

func predicateCondition(p Predicate) condition {
	return func(item any) (bool, error) {
		return p(item), nil
	}
}
