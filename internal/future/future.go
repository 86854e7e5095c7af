// Package future provides a minimal completion-based Future used for
// asynchronous repository methods and reconstruction functions.
//
// Futures are callback based: completing a future runs its callbacks on
// the completing goroutine. The package never starts goroutines itself.
package future

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Future is a value of type T that becomes available later, or fails.
// The zero value is an incomplete future, ready to use.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	complete  bool
	value     T
	err       error
	callbacks []func(T, error)
}

// New returns an incomplete future and the function that completes it.
// Only the first call to the resolver has an effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{}
	return f, f.resolve
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f := &Future[T]{}
	f.resolve(v, nil)
	return f
}

// Failed returns a future that already failed with err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{}
	var zero T
	f.resolve(zero, err)
	return f
}

func (f *Future[T]) doneChan() chan struct{} {
	if f.done == nil {
		f.done = make(chan struct{})
	}
	return f.done
}

func (f *Future[T]) resolve(v T, err error) {
	f.mu.Lock()
	if f.complete {
		f.mu.Unlock()
		return
	}
	f.complete = true
	f.value, f.err = v, err
	close(f.doneChan())
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doneChan()
}

// Await blocks until the future completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.Done():
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn. It runs immediately, on the caller's goroutine,
// when the future is already complete.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.complete {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Then maps the value of f. Failures propagate without calling fn.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out, resolve := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			var zero U
			resolve(zero, err)
			return
		}
		resolve(fn(v))
	})
	return out
}

// Compose chains a function that itself returns a future.
func Compose[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	out, resolve := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			var zero U
			resolve(zero, err)
			return
		}
		fn(v).OnComplete(resolve)
	})
	return out
}

// All completes with every value, in order, once all futures complete.
// It fails with the first error in argument order.
func All[T any](fs []*Future[T]) *Future[[]T] {
	if len(fs) == 0 {
		return Completed([]T{})
	}

	out, resolve := New[[]T]()
	var (
		mu      sync.Mutex
		pending = len(fs)
		values  = make([]T, len(fs))
		errs    = make([]error, len(fs))
	)
	for i, f := range fs {
		f.OnComplete(func(v T, err error) {
			mu.Lock()
			values[i], errs[i] = v, err
			pending--
			last := pending == 0
			mu.Unlock()
			if !last {
				return
			}
			for _, e := range errs {
				if e != nil {
					resolve(nil, e)
					return
				}
			}
			resolve(values, nil)
		})
	}
	return out
}

// typed is implemented by every *Future[T]; it lets callers that only know
// the reflect.Type of a future create and complete it.
type typed interface {
	valueType() reflect.Type
	completeAny(v any, err error)
	asAny() *Future[any]
}

var typedType = reflect.TypeFor[typed]()

func (f *Future[T]) valueType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (f *Future[T]) completeAny(v any, err error) {
	var zero T
	if err != nil {
		f.resolve(zero, err)
		return
	}
	if v == nil {
		f.resolve(zero, nil)
		return
	}
	t, ok := v.(T)
	if !ok {
		f.resolve(zero, fmt.Errorf("future: cannot complete %s with %T", reflect.TypeFor[T](), v))
		return
	}
	f.resolve(t, nil)
}

func (f *Future[T]) asAny() *Future[any] {
	out, resolve := New[any]()
	f.OnComplete(func(v T, err error) { resolve(v, err) })
	return out
}

// IsFuture reports whether t is *Future[X] for some X, and returns X.
func IsFuture(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Pointer || !t.Implements(typedType) {
		return nil, false
	}
	return reflect.New(t.Elem()).Interface().(typed).valueType(), true
}

// Adapt returns a *Future[X] of type target that completes with src's
// value. The value must be assignable to X. target must satisfy IsFuture.
func Adapt(src *Future[any], target reflect.Type) (reflect.Value, error) {
	if _, ok := IsFuture(target); !ok {
		return reflect.Value{}, fmt.Errorf("future: %s is not a future type", target)
	}
	dst := reflect.New(target.Elem())
	c := dst.Interface().(typed)
	src.OnComplete(c.completeAny)
	return dst, nil
}

// FromAny converts a *Future[X] held in an interface into a *Future[any].
func FromAny(x any) (*Future[any], bool) {
	if f, ok := x.(*Future[any]); ok {
		return f, true
	}
	t, ok := x.(typed)
	if !ok || reflect.ValueOf(x).IsNil() {
		return nil, false
	}
	return t.asAny(), true
}
