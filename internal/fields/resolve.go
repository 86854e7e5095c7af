// Package fields resolves named values on arbitrary Go objects the way
// query paths address them: case-insensitively, through getters, struct
// fields or map keys.
package fields

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("field not found")

// NotFoundError reports a name that is neither a getter, a field nor a key
// of the value it was looked up on.
type NotFoundError struct {
	Name string
	Type reflect.Type
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no getter or field %q on %s", e.Name, e.Type)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is produced when a path runs through a nil value or a missing map
// key. It is equal to nil and to itself, and iterates as an empty collection.
var Absent any = absent{}

// IsAbsent reports whether v is Absent.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// Resolve walks path from obj, one Get per segment. A nil intermediate
// short-circuits to Absent.
func Resolve(obj any, path []string) (any, error) {
	cur := obj
	for _, seg := range path {
		if isNil(cur) {
			return Absent, nil
		}
		next, err := Get(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Get looks name up on obj. Lookup order, all case-insensitive:
//  1. method Get<Name>() returning (T) or (T, error)
//  2. method <Name>() with the same shape
//  3. exported struct field, by Go name or json tag
//  4. map key (a missing key is Absent)
//
// Errors returned by a getter are passed through unchanged.
func Get(obj any, name string) (any, error) {
	if isNil(obj) {
		return Absent, nil
	}
	rv := reflect.ValueOf(obj)

	if m, ok := findGetter(rv, name); ok {
		return callGetter(m)
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Absent, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if sf, ok := StructField(rv.Type(), name); ok {
			fv, err := rv.FieldByIndexErr(sf.Index)
			if err != nil {
				return Absent, nil
			}
			return fv.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return mapKey(rv, name), nil
		}
	}
	return nil, &NotFoundError{Name: name, Type: rv.Type()}
}

// findGetter searches the method sets of rv and, for non-pointers, of an
// addressable copy so that pointer-receiver getters are found too.
func findGetter(rv reflect.Value, name string) (reflect.Value, bool) {
	candidates := []reflect.Value{rv}
	if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		candidates = append(candidates, p)
	}
	for _, want := range []string{"Get" + name, name} {
		for _, c := range candidates {
			t := c.Type()
			for i := 0; i < t.NumMethod(); i++ {
				m := t.Method(i)
				if !strings.EqualFold(m.Name, want) {
					continue
				}
				bound := c.Method(i)
				if isGetterShape(bound.Type()) {
					return bound, true
				}
			}
		}
	}
	return reflect.Value{}, false
}

var errorType = reflect.TypeFor[error]()

func isGetterShape(ft reflect.Type) bool {
	if ft.NumIn() != 0 {
		return false
	}
	switch ft.NumOut() {
	case 1:
		return true
	case 2:
		return ft.Out(1) == errorType
	}
	return false
}

func callGetter(m reflect.Value) (any, error) {
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func mapKey(rv reflect.Value, name string) any {
	if v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())); v.IsValid() {
		return v.Interface()
	}
	iter := rv.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), name) {
			return iter.Value().Interface()
		}
	}
	return Absent
}

// StructField finds the exported field of struct type t addressed by name,
// matching the Go field name or its json tag case-insensitively. Promoted
// fields of embedded structs are included.
func StructField(t reflect.Type, name string) (reflect.StructField, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if strings.EqualFold(sf.Name, name) {
			return sf, true
		}
		if tag := JSONName(sf); tag != sf.Name && strings.EqualFold(tag, name) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

// JSONName is the key encoding/json uses for sf: the json tag name when
// present, else the Go field name. A "-" tag yields "".
func JSONName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return sf.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return sf.Name
	}
	return name
}

// HasAccessor reports whether values of type t expose name as a getter or
// a struct field.
func HasAccessor(t reflect.Type, name string) bool {
	if t == nil {
		return false
	}
	if _, ok := StructField(t, name); ok {
		return true
	}
	types := []reflect.Type{t}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		types = append(types, reflect.PointerTo(t))
	}
	for _, want := range []string{"Get" + name, name} {
		for _, ct := range types {
			for i := 0; i < ct.NumMethod(); i++ {
				m := ct.Method(i)
				if !strings.EqualFold(m.Name, want) {
					continue
				}
				ft := m.Type
				// Method types from a non-interface Type include the receiver.
				if ct.Kind() != reflect.Interface {
					if ft.NumIn() != 1 {
						continue
					}
					if ft.NumOut() == 1 || (ft.NumOut() == 2 && ft.Out(1) == errorType) {
						return true
					}
					continue
				}
				if isGetterShape(ft) {
					return true
				}
			}
		}
	}
	return false
}

func isNil(v any) bool {
	if v == nil || IsAbsent(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
