package repository

import (
	"context"
	"reflect"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/future"
	"github.com/roach88/byname/internal/platform"
)

// binding is one repository method bound to an engine. Exactly one of
// compiled and native is set.
type binding[C any] struct {
	name     string
	op       compiler.Operation
	compiled *compiler.Compiled
	native   func(args []any) C
	entity   *entityInfo
	engine   engine.QueryEngine[C]
	platform platform.Context
}

// call runs the operation. The future holds []any of domain values for
// findAll, a domain value or nil for findOne, and struct{}{} otherwise.
func (b *binding[C]) call(ctx context.Context, args []any) *future.Future[any] {
	if b.op == compiler.InsertOrUpdate {
		stored, err := b.entity.toStored(args[0])
		if err != nil {
			return future.Failed[any](err)
		}
		// Identity selectors read the stored form of the argument.
		args = []any{stored}
	}

	if b.native != nil {
		return b.callNative(ctx, args)
	}

	q, err := b.compiled.QueryFor(args)
	if err != nil {
		return future.Failed[any](err)
	}

	switch b.op {
	case compiler.FindAll:
		items, err := b.engine.FindAll(ctx, q, args)
		if err != nil {
			return future.Failed[any](err)
		}
		return b.all(items)
	case compiler.FindOne:
		item, ok, err := b.engine.FindOne(ctx, q, args)
		if err != nil {
			return future.Failed[any](err)
		}
		return b.one(item, ok)
	case compiler.InsertOrUpdate:
		return unit(b.engine.InsertOrUpdate(ctx, args[0], q, args))
	default:
		return unit(b.engine.Remove(ctx, q, args))
	}
}

func (b *binding[C]) callNative(ctx context.Context, args []any) *future.Future[any] {
	custom := b.native(args)
	switch b.op {
	case compiler.FindAll:
		items, err := b.engine.FindAllCustom(ctx, custom)
		if err != nil {
			return future.Failed[any](err)
		}
		return b.all(items)
	case compiler.FindOne:
		item, ok, err := b.engine.FindOneCustom(ctx, custom)
		if err != nil {
			return future.Failed[any](err)
		}
		return b.one(item, ok)
	case compiler.InsertOrUpdate:
		return unit(b.engine.InsertOrUpdateCustom(ctx, args[0], custom))
	default:
		return unit(b.engine.RemoveCustom(ctx, custom))
	}
}

func (b *binding[C]) all(items []any) *future.Future[any] {
	return future.Then(b.entity.fromStored(b.platform, items), func(v []any) (any, error) {
		return v, nil
	})
}

func (b *binding[C]) one(item any, ok bool) *future.Future[any] {
	if !ok {
		return future.Completed[any](nil)
	}
	return b.entity.oneFromStored(b.platform, item)
}

func unit(err error) *future.Future[any] {
	if err != nil {
		return future.Failed[any](err)
	}
	return future.Completed[any](struct{}{})
}

// implement builds the function stored into the repository field.
func (b *binding[C]) implement(sig *signature) reflect.Value {
	return reflect.MakeFunc(sig.fn, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if sig.hasCtx {
			if c, ok := in[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
		}
		args := make([]any, 0, len(in))
		for _, v := range in[sig.paramOffset():] {
			args = append(args, v.Interface())
		}

		result := b.call(ctx, args)
		if sig.async {
			return []reflect.Value{b.async(sig, result)}
		}
		v, err := result.Await(ctx)
		return b.sync(sig, v, err)
	})
}

// sync converts a completed result to the declared return values.
func (b *binding[C]) sync(sig *signature, v any, err error) []reflect.Value {
	ft := sig.fn
	switch b.op {
	case compiler.FindAll:
		if err != nil {
			return []reflect.Value{reflect.Zero(ft.Out(0)), errorValue(err)}
		}
		return []reflect.Value{toSlice(ft.Out(0), v), errorValue(nil)}
	case compiler.FindOne:
		if err != nil || v == nil {
			return []reflect.Value{reflect.Zero(ft.Out(0)), reflect.ValueOf(false), errorValue(err)}
		}
		return []reflect.Value{toValue(sig.result, v), reflect.ValueOf(true), errorValue(nil)}
	default:
		return []reflect.Value{errorValue(err)}
	}
}

// async maps result into a future of the declared type.
func (b *binding[C]) async(sig *signature, result *future.Future[any]) reflect.Value {
	out := sig.fn.Out(0)
	var mapped *future.Future[any]
	switch b.op {
	case compiler.FindAll:
		sliceType := reflect.SliceOf(sig.result)
		mapped = future.Then(result, func(v any) (any, error) {
			return toSlice(sliceType, v).Interface(), nil
		})
	case compiler.FindOne:
		mapped = future.Then(result, func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			p := reflect.New(sig.result)
			p.Elem().Set(toValue(sig.result, v))
			return p.Interface(), nil
		})
	default:
		mapped = result
	}
	// Adapt only fails for non-future types, which analyze rejected.
	fv, _ := future.Adapt(mapped, out)
	return fv
}

func toSlice(sliceType reflect.Type, v any) reflect.Value {
	items, _ := v.([]any)
	out := reflect.MakeSlice(sliceType, len(items), len(items))
	for i, item := range items {
		out.Index(i).Set(toValue(sliceType.Elem(), item))
	}
	return out
}

func toValue(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out
	}
	return rv
}

func errorValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	return reflect.ValueOf(&err).Elem()
}
