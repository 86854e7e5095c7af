// Package memento adapts entities that persist through a snapshot.
//
// An entity opts in by declaring a Memento() M method. Engines then store
// and query M, and reads turn each stored M back into the entity through a
// reconstruction function that may reach other services via a
// platform.Context.
package memento

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/byname/internal/future"
	"github.com/roach88/byname/internal/platform"
)

// MethodName is the snapshot accessor an entity declares.
const MethodName = "Memento"

// FactoryName is the method looked up on the zero entity value when no
// reconstruction function is given.
const FactoryName = "FromMemento"

var (
	contextType = reflect.TypeFor[platform.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Reconstruct turns a stored snapshot back into an entity.
type Reconstruct func(ctx platform.Context, snapshot any) *future.Future[any]

// Adapter holds what a repository needs for one memento entity.
type Adapter struct {
	Domain      reflect.Type
	Snapshot    reflect.Type
	Reconstruct Reconstruct
}

// SnapshotType returns M when t declares Memento() M, through a value or
// a pointer receiver.
func SnapshotType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	for _, ct := range []reflect.Type{t, reflect.PointerTo(t)} {
		m, ok := ct.MethodByName(MethodName)
		if !ok {
			continue
		}
		// Receiver plus no arguments, one result.
		if m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
			return m.Type.Out(0), true
		}
	}
	return nil, false
}

// Snapshot calls Memento() on item.
func Snapshot(item any) (any, error) {
	rv := reflect.ValueOf(item)
	if !rv.IsValid() {
		return nil, errors.New("memento: cannot snapshot nil")
	}
	m := rv.MethodByName(MethodName)
	if !m.IsValid() && rv.Kind() != reflect.Pointer {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		m = p.MethodByName(MethodName)
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("memento: %s has no %s method", rv.Type(), MethodName)
	}
	return m.Call(nil)[0].Interface(), nil
}

// Discover validates fn as the reconstruction function for domain and
// normalizes it. Accepted shapes, with M the snapshot type of domain:
//
//	func(platform.Context, M) (T, error)
//	func(platform.Context, M) T
//	func(platform.Context, M) *future.Future[T]
//
// When fn is nil, a FromMemento method with one of these shapes (after the
// receiver) is looked up on the zero value of domain.
func Discover(domain reflect.Type, fn any) (*Adapter, error) {
	snapshot, ok := SnapshotType(domain)
	if !ok {
		return nil, fmt.Errorf("memento: %s has no %s() method", domain, MethodName)
	}

	var fv reflect.Value
	if fn != nil {
		fv = reflect.ValueOf(fn)
		if fv.Kind() != reflect.Func {
			return nil, fmt.Errorf("memento: reconstruction for %s must be a function, got %T", domain, fn)
		}
	} else {
		fv = factoryMethod(domain)
		if !fv.IsValid() {
			return nil, fmt.Errorf("memento: %s declares %s() but no %s method and no reconstruction function was given",
				domain, MethodName, FactoryName)
		}
	}

	call, err := normalize(fv, domain, snapshot)
	if err != nil {
		return nil, err
	}
	return &Adapter{Domain: domain, Snapshot: snapshot, Reconstruct: call}, nil
}

func factoryMethod(domain reflect.Type) reflect.Value {
	if m := reflect.Zero(domain).MethodByName(FactoryName); m.IsValid() {
		return m
	}
	return reflect.New(domain).MethodByName(FactoryName)
}

func normalize(fv reflect.Value, domain, snapshot reflect.Type) (Reconstruct, error) {
	ft := fv.Type()
	shapeErr := func() error {
		return fmt.Errorf("memento: reconstruction for %s must be func(platform.Context, %s) returning %s, (%s, error) or *future.Future[%s], got %s",
			domain, snapshot, domain, domain, domain, ft)
	}
	if ft.NumIn() != 2 || ft.In(0) != contextType || ft.In(1) != snapshot {
		return nil, shapeErr()
	}

	convert := func(snap any) (reflect.Value, error) {
		sv := reflect.ValueOf(snap)
		if !sv.IsValid() || !sv.Type().AssignableTo(snapshot) {
			return reflect.Value{}, fmt.Errorf("memento: stored value %T is not %s", snap, snapshot)
		}
		return sv, nil
	}
	ctxValue := func(ctx platform.Context) reflect.Value {
		if ctx == nil {
			return reflect.Zero(contextType)
		}
		return reflect.ValueOf(&ctx).Elem()
	}

	switch {
	case ft.NumOut() == 2 && ft.Out(0) == domain && ft.Out(1) == errorType:
		return func(ctx platform.Context, snap any) *future.Future[any] {
			sv, err := convert(snap)
			if err != nil {
				return future.Failed[any](err)
			}
			out := fv.Call([]reflect.Value{ctxValue(ctx), sv})
			if !out[1].IsNil() {
				return future.Failed[any](out[1].Interface().(error))
			}
			return future.Completed(out[0].Interface())
		}, nil

	case ft.NumOut() == 1 && ft.Out(0) == domain:
		return func(ctx platform.Context, snap any) *future.Future[any] {
			sv, err := convert(snap)
			if err != nil {
				return future.Failed[any](err)
			}
			return future.Completed(fv.Call([]reflect.Value{ctxValue(ctx), sv})[0].Interface())
		}, nil

	case ft.NumOut() == 1:
		elem, ok := future.IsFuture(ft.Out(0))
		if !ok || elem != domain {
			return nil, shapeErr()
		}
		return func(ctx platform.Context, snap any) *future.Future[any] {
			sv, err := convert(snap)
			if err != nil {
				return future.Failed[any](err)
			}
			f, ok := future.FromAny(fv.Call([]reflect.Value{ctxValue(ctx), sv})[0].Interface())
			if !ok {
				return future.Failed[any](fmt.Errorf("memento: reconstruction for %s returned a nil future", domain))
			}
			return f
		}, nil
	}
	return nil, shapeErr()
}
