package future

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCompletedAndFailed(t *testing.T) {
	ctx := context.Background()

	v, err := Completed(42).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Failed[int](errBoom).Await(ctx)
	assert.ErrorIs(t, err, errBoom)
}

func TestResolveOnce(t *testing.T) {
	f, resolve := New[string]()
	resolve("first", nil)
	resolve("second", errBoom)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestAwaitFromAnotherGoroutine(t *testing.T) {
	f, resolve := New[int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		resolve(7, nil)
	}()

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestAwaitContextCancelled(t *testing.T) {
	f, _ := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroValueFuture(t *testing.T) {
	var f Future[int]
	f.completeAny(3, nil)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestOnCompleteOrder(t *testing.T) {
	f, resolve := New[int]()
	var calls []string
	f.OnComplete(func(v int, _ error) { calls = append(calls, "a"+strconv.Itoa(v)) })
	f.OnComplete(func(v int, _ error) { calls = append(calls, "b"+strconv.Itoa(v)) })
	resolve(1, nil)
	f.OnComplete(func(v int, _ error) { calls = append(calls, "c"+strconv.Itoa(v)) })

	assert.Equal(t, []string{"a1", "b1", "c1"}, calls)
}

func TestThen(t *testing.T) {
	ctx := context.Background()

	s, err := Then(Completed(21), func(v int) (string, error) {
		return strconv.Itoa(v * 2), nil
	}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	called := false
	_, err = Then(Failed[int](errBoom), func(v int) (string, error) {
		called = true
		return "", nil
	}).Await(ctx)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, called)

	_, err = Then(Completed(1), func(int) (int, error) { return 0, errBoom }).Await(ctx)
	assert.ErrorIs(t, err, errBoom)
}

func TestCompose(t *testing.T) {
	inner, resolve := New[string]()
	out := Compose(Completed(1), func(int) *Future[string] { return inner })

	select {
	case <-out.Done():
		t.Fatal("composed future completed before inner")
	default:
	}

	resolve("done", nil)
	v, err := out.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestAll(t *testing.T) {
	ctx := context.Background()

	a, resolveA := New[int]()
	b := Completed(2)
	all := All([]*Future[int]{a, b})
	resolveA(1, nil)

	vs, err := all.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, vs)

	vs, err = All[int](nil).Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, vs)

	_, err = All([]*Future[int]{Completed(1), Failed[int](errBoom)}).Await(ctx)
	assert.ErrorIs(t, err, errBoom)
}

type car struct{ Brand string }

func TestIsFuture(t *testing.T) {
	elem, ok := IsFuture(reflect.TypeFor[*Future[[]car]]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[[]car](), elem)

	_, ok = IsFuture(reflect.TypeFor[Future[int]]())
	assert.False(t, ok)
	_, ok = IsFuture(reflect.TypeFor[*car]())
	assert.False(t, ok)
	_, ok = IsFuture(nil)
	assert.False(t, ok)
}

func TestAdapt(t *testing.T) {
	ctx := context.Background()
	src, resolve := New[any]()

	rv, err := Adapt(src, reflect.TypeFor[*Future[[]car]]())
	require.NoError(t, err)
	dst := rv.Interface().(*Future[[]car])

	resolve([]car{{Brand: "BMW"}}, nil)
	cars, err := dst.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []car{{Brand: "BMW"}}, cars)

	rv, err = Adapt(Completed[any](nil), reflect.TypeFor[*Future[*car]]())
	require.NoError(t, err)
	c, err := rv.Interface().(*Future[*car]).Await(ctx)
	require.NoError(t, err)
	assert.Nil(t, c)

	rv, err = Adapt(Completed[any]("oops"), reflect.TypeFor[*Future[int]]())
	require.NoError(t, err)
	_, err = rv.Interface().(*Future[int]).Await(ctx)
	assert.ErrorContains(t, err, "cannot complete int with string")

	_, err = Adapt(src, reflect.TypeFor[[]car]())
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	f, ok := FromAny(Completed(car{Brand: "Audi"}))
	require.True(t, ok)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, car{Brand: "Audi"}, v)

	_, ok = FromAny(car{})
	assert.False(t, ok)
	_, ok = FromAny((*Future[int])(nil))
	assert.False(t, ok)
}
