package fields

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Equal is the equality used by query evaluation. It is looser than ==:
//   - nil, nil pointers and Absent are all equal to each other
//   - numbers compare by value across integer and float kinds
//   - strings compare by content across named string types, so a
//     `type GUID string` equals the plain string it was built from
//   - values of the same type with an Equal(T) bool method use it
//   - everything else falls back to reflect.DeepEqual
func Equal(a, b any) bool {
	na, nb := isNil(a), isNil(b)
	if na || nb {
		return na && nb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	for ra.Kind() == reflect.Pointer && rb.Kind() != reflect.Pointer {
		ra = ra.Elem()
	}
	for rb.Kind() == reflect.Pointer && ra.Kind() != reflect.Pointer {
		rb = rb.Elem()
	}

	switch {
	case isNumber(ra.Kind()) && isNumber(rb.Kind()):
		return numbersEqual(ra, rb)
	case ra.Kind() == reflect.String && rb.Kind() == reflect.String:
		return ra.String() == rb.String()
	case ra.Kind() == reflect.Bool && rb.Kind() == reflect.Bool:
		return ra.Bool() == rb.Bool()
	}

	if ra.Type() == rb.Type() {
		if m := ra.MethodByName("Equal"); m.IsValid() {
			mt := m.Type()
			if mt.NumIn() == 1 && mt.In(0) == rb.Type() && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
				return m.Call([]reflect.Value{rb})[0].Bool()
			}
		}
	}
	return reflect.DeepEqual(ra.Interface(), rb.Interface())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func numbersEqual(a, b reflect.Value) bool {
	if isFloat(a.Kind()) || isFloat(b.Kind()) {
		return asFloat(a) == asFloat(b)
	}
	ua, ub := isUnsigned(a.Kind()), isUnsigned(b.Kind())
	switch {
	case ua && ub:
		return a.Uint() == b.Uint()
	case ua:
		return a.Uint() <= math.MaxInt64 && int64(a.Uint()) == b.Int()
	case ub:
		return b.Uint() <= math.MaxInt64 && int64(b.Uint()) == a.Int()
	}
	return a.Int() == b.Int()
}

func asFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isUnsigned(v.Kind()):
		return float64(v.Uint())
	}
	return float64(v.Int())
}

// Elements returns the elements of a slice or array. Nil and Absent are
// empty collections. ok is false when v is not a collection at all.
func Elements(v any) (elems []any, ok bool) {
	if isNil(v) {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems = make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return elems, true
	}
	return nil, false
}

// Upper returns the upper-cased string form of v. Absent stays Absent.
func Upper(v any) any {
	if IsAbsent(v) || v == nil {
		return v
	}
	if s, ok := v.(fmt.Stringer); ok {
		return strings.ToUpper(s.String())
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return strings.ToUpper(rv.String())
	}
	return strings.ToUpper(fmt.Sprint(v))
}
