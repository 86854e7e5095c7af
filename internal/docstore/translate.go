package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

// translator compiles a query to a parameterized SQL condition over the
// doc column of the documents table.
//
// CRITICAL: Values and JSON paths are NEVER interpolated - always bound
// through ? placeholders.
//
// Translation keeps a scope: the SQL expression holding the JSON being
// queried (doc, or the value column of a json_each alias inside ElemMatch),
// the path of the current value below it and the Go type at that path.
// Match narrows the scope, ElemMatch opens a new one per element, Equals
// compares the current value.
type translator struct {
	params  []any
	args    []any
	aliases int
}

type scope struct {
	root  string
	path  []string
	typ   reflect.Type
	upper bool
}

// translate returns the WHERE fragment and its arguments for q over
// documents of type docType (nil for schemaless documents).
func translate(q query.Query, docType reflect.Type, params []any) (string, []any, error) {
	t := &translator{params: params}
	sql, err := t.query(q, scope{root: "doc", typ: docType})
	if err != nil {
		return "", nil, err
	}
	return sql, t.args, nil
}

func (t *translator) bind(v any) string {
	t.args = append(t.args, v)
	return "?"
}

func (t *translator) query(q query.Query, s scope) (string, error) {
	switch n := q.(type) {
	case query.True:
		return "1 = 1", nil
	case query.False:
		return "1 = 0", nil
	case query.And:
		return t.join(n.Filters, " AND ", "1 = 1", s)
	case query.Or:
		return t.join(n.Filters, " OR ", "1 = 0", s)
	case query.Equals:
		return t.equals(n, s)
	case query.Match:
		inner, err := t.narrow(n.Selector, s)
		if err != nil {
			return "", err
		}
		return t.query(n.Condition, inner)
	case query.ElemMatch:
		return t.elemMatch(n, s)
	default:
		return "", engine.NewUnsupportedError(q, "unknown query node")
	}
}

func (t *translator) join(filters []query.Query, sep, empty string, s scope) (string, error) {
	if len(filters) == 0 {
		return empty, nil
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		sql, err := t.query(f, s)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + sql + ")"
	}
	return strings.Join(parts, sep), nil
}

// narrow returns the scope of a selector: a path below s, possibly
// upper-cased. Selectors that do not read the current value cannot be
// translated.
func (t *translator) narrow(sel query.Value, s scope) (scope, error) {
	switch n := sel.(type) {
	case query.Field:
		if s.upper {
			return scope{}, engine.NewUnsupportedError(n, "cannot select a field of an upper-cased value")
		}
		return s.extend(n.Path)
	case query.Select:
		from, err := t.narrow(n.From, s)
		if err != nil {
			return scope{}, err
		}
		return t.narrow(n.Field, from)
	case query.Uppercase:
		inner, err := t.narrow(n.Value, s)
		if err != nil {
			return scope{}, err
		}
		inner.upper = true
		return inner, nil
	default:
		return scope{}, engine.NewUnsupportedError(sel, "selector must read the stored document")
	}
}

// extend maps each Go-facing segment to its JSON key through s.typ.
func (s scope) extend(segments []string) (scope, error) {
	out := scope{root: s.root, path: append([]string(nil), s.path...), typ: s.typ}
	for _, seg := range segments {
		key, next, err := jsonKey(out.typ, seg)
		if err != nil {
			return scope{}, err
		}
		out.path = append(out.path, key)
		out.typ = next
	}
	return out, nil
}

func (t *translator) equals(eq query.Equals, s scope) (string, error) {
	lhs := t.expr(s)
	if readsCandidate(eq.Value) {
		other, err := t.narrow(eq.Value, s)
		if err != nil {
			return "", err
		}
		return lhs + " IS " + t.expr(other), nil
	}

	v, err := engine.ResolveConstant(eq.Value, t.params)
	if err != nil {
		return "", err
	}
	rhs, err := t.literal(v)
	if err != nil {
		return "", err
	}
	return lhs + " IS " + rhs, nil
}

func (t *translator) elemMatch(n query.ElemMatch, s scope) (string, error) {
	coll, err := t.narrow(n.Selector, s)
	if err != nil {
		return "", err
	}
	if coll.upper {
		return "", engine.NewUnsupportedError(n, "cannot iterate an upper-cased value")
	}
	elemType, err := elementType(n.Selector, coll.typ)
	if err != nil {
		return "", err
	}

	t.aliases++
	alias := fmt.Sprintf("e%d", t.aliases)
	from := fmt.Sprintf("json_each(%s, %s)", coll.root, t.bind(jsonPath(coll.path)))
	cond, err := t.query(n.Condition, scope{root: alias + ".value", typ: elemType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s)", from, alias, cond), nil
}

// expr renders the SQL expression of the current value of s.
func (t *translator) expr(s scope) string {
	if !s.upper {
		return t.value(s)
	}
	// NULL stays NULL: user functions cannot return it through the driver.
	return fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE byname_upper(%s) END", t.value(s), t.value(s))
}

func (t *translator) value(s scope) string {
	if s.root != "doc" && len(s.path) == 0 {
		return s.root
	}
	return fmt.Sprintf("json_extract(%s, %s)", s.root, t.bind(jsonPath(s.path)))
}

// literal binds a resolved Go value the way json_extract reports stored
// values: text, integers, 1/0 for booleans, NULL, and minified JSON text
// for arrays and objects.
func (t *translator) literal(v any) (string, error) {
	if fields.IsAbsent(v) {
		v = nil
	}
	jv, err := jsonValue(v)
	if err != nil {
		return "", &engine.RuntimeError{
			Code:    engine.ErrCodeInvalidParameter,
			Message: fmt.Sprintf("value %v cannot be stored as a document value", v),
			Err:     err,
		}
	}
	switch x := jv.(type) {
	case nil:
		return t.bind(nil), nil
	case string:
		return t.bind(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return t.bind(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", err
		}
		return t.bind(f), nil
	case bool:
		if x {
			return t.bind(int64(1)), nil
		}
		return t.bind(int64(0)), nil
	default:
		b, err := marshalJSON(x)
		if err != nil {
			return "", err
		}
		return "json(" + t.bind(string(b)) + ")", nil
	}
}

// readsCandidate reports whether v reads from the value under evaluation
// rather than from the call arguments.
func readsCandidate(v query.Value) bool {
	switch n := v.(type) {
	case query.Field:
		return true
	case query.Select:
		return readsCandidate(n.From)
	case query.Uppercase:
		return readsCandidate(n.Value)
	}
	return false
}

// jsonKey maps a path segment to the JSON key stored for it. Struct
// fields match case-insensitively by Go name or json tag, as the memory
// engine does. Without type information the segment is used as is.
func jsonKey(t reflect.Type, seg string) (string, reflect.Type, error) {
	if t == nil {
		return seg, nil, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface:
		return seg, nil, nil
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return seg, t.Elem(), nil
		}
	case reflect.Struct:
		if sf, ok := fields.StructField(t, seg); ok {
			if name := fields.JSONName(sf); name != "" {
				return name, sf.Type, nil
			}
		}
		if fields.HasAccessor(t, seg) {
			return "", nil, engine.NewUnsupportedError(query.FieldPath(seg),
				fmt.Sprintf("%s exposes %q through a getter only, which is not stored", t, seg))
		}
	}
	return "", nil, engine.NewFieldNotFoundError(seg, &fields.NotFoundError{Name: seg, Type: t})
}

func elementType(sel query.Value, t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem(), nil
	case reflect.Interface:
		return nil, nil
	}
	return nil, &engine.RuntimeError{
		Code:    engine.ErrCodeNotIterable,
		Message: fmt.Sprintf("%s has type %s, which is not a collection", sel, t),
		Query:   sel.String(),
	}
}

// jsonPath renders path segments as an SQLite JSON path. Keys that are not
// plain identifiers are quoted.
func jsonPath(path []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range path {
		b.WriteByte('.')
		if isPlainKey(seg) {
			b.WriteString(seg)
		} else {
			b.WriteString(`"` + strings.ReplaceAll(seg, `"`, `\"`) + `"`)
		}
	}
	return b.String()
}

func isPlainKey(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	return strings.Split(p, ".")
}
