// Package platform provides the context accessor that reconstruction
// functions use to reach other services, typically other repositories.
package platform

import (
	"fmt"
	"reflect"
	"sync"
)

// Context resolves service instances by type.
type Context interface {
	Instance(t reflect.Type) (any, error)
}

// MissingInstanceError reports a lookup for a type nothing provides.
type MissingInstanceError struct {
	Type reflect.Type
}

func (e *MissingInstanceError) Error() string {
	return fmt.Sprintf("no instance registered for %s", e.Type)
}

// Registry is a Context backed by instances registered up front.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	instances map[reflect.Type]any
}

var _ Context = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[reflect.Type]any)}
}

// Provide registers instance under its dynamic type. A later Provide for
// the same type replaces the earlier one.
func (r *Registry) Provide(instance any) *Registry {
	return r.ProvideAs(reflect.TypeOf(instance), instance)
}

// ProvideAs registers instance under t, which is usually an interface the
// instance implements.
func (r *Registry) ProvideAs(t reflect.Type, instance any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[t] = instance
	return r
}

// Instance returns the instance registered for t.
func (r *Registry) Instance(t reflect.Type) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if inst, ok := r.instances[t]; ok {
		return inst, nil
	}
	return nil, &MissingInstanceError{Type: t}
}

// Lookup returns the instance of type T from ctx.
func Lookup[T any](ctx Context) (T, error) {
	var zero T
	if ctx == nil {
		return zero, &MissingInstanceError{Type: reflect.TypeFor[T]()}
	}
	inst, err := ctx.Instance(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("instance for %s has type %T", reflect.TypeFor[T](), inst)
	}
	return typed, nil
}
