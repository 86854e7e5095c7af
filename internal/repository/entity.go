package repository

import (
	"fmt"
	"reflect"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/future"
	"github.com/roach88/byname/internal/memento"
	"github.com/roach88/byname/internal/platform"
)

// Entity declares a type repositories of a Factory can manage.
type Entity struct {
	// Name is matched against method names. Empty means the Go type name.
	Name string

	// Type is the domain type, e.g. reflect.TypeFor[Car]().
	Type reflect.Type

	// Collection groups records across entities. Empty means Name.
	Collection string

	// Identity lists the paths identifying a stored record. Empty means
	// the guid field.
	Identity []string

	// Reconstruct turns a snapshot back into the domain type for entities
	// declaring Memento(). nil looks up a FromMemento method.
	Reconstruct any
}

// EntityOf declares T with its defaults.
func EntityOf[T any]() Entity {
	return Entity{Type: reflect.TypeFor[T]()}
}

// entityInfo is an Entity checked and resolved at factory creation.
type entityInfo struct {
	Entity
	stored  reflect.Type
	memento *memento.Adapter
}

func resolveEntity(e Entity) (*entityInfo, error) {
	if e.Type == nil {
		return nil, fmt.Errorf("entity %q has no type", e.Name)
	}
	if e.Name == "" {
		e.Name = e.Type.Name()
	}
	if e.Name == "" {
		return nil, fmt.Errorf("entity of unnamed type %s needs a name", e.Type)
	}

	info := &entityInfo{Entity: e, stored: e.Type}
	if _, ok := memento.SnapshotType(e.Type); ok {
		adapter, err := memento.Discover(e.Type, e.Reconstruct)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		info.memento = adapter
		info.stored = adapter.Snapshot
	} else if e.Reconstruct != nil {
		return nil, fmt.Errorf("entity %s: reconstruction function given, but %s has no %s() method",
			e.Name, e.Type, memento.MethodName)
	}
	return info, nil
}

func (e *entityInfo) target() engine.Target {
	return engine.Target{
		Entity:     e.Name,
		Collection: e.Collection,
		Type:       e.stored,
		Identity:   e.Identity,
	}
}

// toStored returns what the engine keeps for item.
func (e *entityInfo) toStored(item any) (any, error) {
	if e.memento == nil {
		return item, nil
	}
	return memento.Snapshot(item)
}

// fromStored maps stored records back to domain values, in order.
func (e *entityInfo) fromStored(ctx platform.Context, items []any) *future.Future[[]any] {
	if e.memento == nil {
		return future.Completed(items)
	}
	fs := make([]*future.Future[any], len(items))
	for i, item := range items {
		fs[i] = e.memento.Reconstruct(ctx, item)
	}
	return future.All(fs)
}

func (e *entityInfo) oneFromStored(ctx platform.Context, item any) *future.Future[any] {
	if e.memento == nil {
		return future.Completed(item)
	}
	return e.memento.Reconstruct(ctx, item)
}
