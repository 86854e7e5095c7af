package memory

import (
	"reflect"
	"strings"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

// checkFields reports FIELD_NOT_FOUND for field paths that values of type
// t can never resolve, so the error does not depend on the collection
// holding a record. A nil type is schemaless and accepts every path.
func checkFields(q query.Query, t reflect.Type) error {
	switch n := q.(type) {
	case query.Equals:
		_, err := valueType(n.Value, t)
		return err
	case query.Match:
		st, err := valueType(n.Selector, t)
		if err != nil {
			return err
		}
		return checkFields(n.Condition, st)
	case query.ElemMatch:
		st, err := valueType(n.Selector, t)
		if err != nil {
			return err
		}
		return checkFields(n.Condition, elemType(st))
	case query.And:
		return checkAll(n.Filters, t)
	case query.Or:
		return checkAll(n.Filters, t)
	}
	return nil
}

func checkAll(filters []query.Query, t reflect.Type) error {
	for _, f := range filters {
		if err := checkFields(f, t); err != nil {
			return err
		}
	}
	return nil
}

// valueType is the static type v evaluates to over a current value of
// type t, or nil when it is not known.
func valueType(v query.Value, t reflect.Type) (reflect.Type, error) {
	switch n := v.(type) {
	case query.Field:
		return pathType(t, n)
	case query.Select:
		from, err := valueType(n.From, t)
		if err != nil {
			return nil, err
		}
		return pathType(from, n.Field)
	case query.Uppercase:
		if _, err := valueType(n.Value, t); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func pathType(t reflect.Type, f query.Field) (reflect.Type, error) {
	for _, seg := range f.Path {
		if t == nil {
			return nil, nil
		}
		base := t
		for base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		switch {
		case fields.HasAccessor(t, seg):
			// Getters win over fields at runtime; their type is not tracked.
			if sf, ok := fields.StructField(base, seg); ok && !hasGetter(t, seg) {
				t = sf.Type
			} else {
				t = nil
			}
		case base.Kind() == reflect.Map && base.Key().Kind() == reflect.String:
			t = base.Elem()
		case t.Kind() == reflect.Pointer || nilable(base.Kind()):
			// A nil value resolves to Absent at runtime.
			return nil, nil
		default:
			return nil, engine.NewFieldNotFoundError(f.Dotted(), &fields.NotFoundError{Name: seg, Type: base})
		}
	}
	return t, nil
}

func nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// hasGetter reports whether t or *t has a method named name or Get<name>.
func hasGetter(t reflect.Type, name string) bool {
	for _, ct := range []reflect.Type{t, reflect.PointerTo(t)} {
		for _, want := range []string{"Get" + name, name} {
			for i := 0; i < ct.NumMethod(); i++ {
				if strings.EqualFold(ct.Method(i).Name, want) {
					return true
				}
			}
		}
	}
	return false
}

func elemType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem()
	}
	return nil
}
