package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/byname/internal/fields"
)

// encodeDocument renders item the way encoding/json does (json tags,
// MarshalJSON, promoted fields of embedded structs), with object keys
// sorted so equal records always produce identical text.
func encodeDocument(item any) (string, error) {
	v, err := jsonValue(item)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if _, ok := v.(map[string]any); !ok {
		return "", fmt.Errorf("encode document: %T is not an object", item)
	}
	b, err := marshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

// jsonValue returns v as encoding/json sees it: nil, bool, string,
// json.Number, []any or map[string]any.
func jsonValue(v any) (any, error) {
	b, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// marshalJSON encodes v without HTML escaping or a trailing newline.
// Maps are written with sorted keys.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeDocument reads a stored document back into t. A nil t yields
// map[string]any with integers as int64.
func decodeDocument(doc string, t reflect.Type) (any, error) {
	if t == nil {
		dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		return normalizeNumbers(raw), nil
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal([]byte(doc), ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode document into %s: %w", t, err)
	}
	return ptr.Elem().Interface(), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	}
	return v
}

// documentID derives the stored id from the identity paths of item. A
// single string identity is used as is; anything else is the sorted-key
// JSON of the value (or of the list of values for composite identities).
// ok is false when any identity value is missing or empty.
func documentID(item any, paths []string) (id string, ok bool, err error) {
	values := make([]any, len(paths))
	for i, p := range paths {
		v, err := fields.Resolve(item, splitPath(p))
		if err != nil {
			return "", false, err
		}
		if isEmptyIdentity(v) {
			return "", false, nil
		}
		values[i] = v
	}
	if len(values) == 1 {
		return identityString(values[0])
	}
	return identityString(values)
}

// identityString renders an identity value as a document id.
func identityString(v any) (string, bool, error) {
	jv, err := jsonValue(v)
	if err != nil {
		return "", false, fmt.Errorf("identity: %w", err)
	}
	if s, ok := jv.(string); ok {
		return s, true, nil
	}
	b, err := marshalJSON(jv)
	if err != nil {
		return "", false, fmt.Errorf("identity: %w", err)
	}
	return string(b), true, nil
}

func isEmptyIdentity(v any) bool {
	if v == nil || fields.IsAbsent(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}
