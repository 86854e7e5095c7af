package query

import (
	"fmt"
	"strings"

	"github.com/roach88/byname/internal/ir"
)

// Encoding keys. Each node is a single-key object:
//
//	{"field":"engine.type"}
//	{"select":{"from":{"param":0},"field":"guid"}}
//	{"upper":{"field":"color"}}
//	{"static":"red"}
//	{"param":0}
//	{"eq":<value>}
//	{"match":{"selector":<value>,"condition":<query>}}
//	{"elemMatch":{"selector":<value>,"condition":<query>}}
//	{"and":[<query>...]}  {"or":[<query>...]}
//	{"always":true}       {"always":false}
const (
	keyField     = "field"
	keySelect    = "select"
	keyFrom      = "from"
	keyUpper     = "upper"
	keyStatic    = "static"
	keyParam     = "param"
	keyEq        = "eq"
	keyMatch     = "match"
	keyElemMatch = "elemMatch"
	keySelector  = "selector"
	keyCondition = "condition"
	keyAnd       = "and"
	keyOr        = "or"
	keyAlways    = "always"
)

// Encode converts q into its ir form.
func Encode(q Query) (ir.Value, error) {
	switch n := q.(type) {
	case Equals:
		v, err := EncodeValue(n.Value)
		if err != nil {
			return nil, err
		}
		return ir.Object{keyEq: v}, nil
	case Match:
		body, err := encodeSelection(n.Selector, n.Condition)
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		return ir.Object{keyMatch: body}, nil
	case ElemMatch:
		body, err := encodeSelection(n.Selector, n.Condition)
		if err != nil {
			return nil, fmt.Errorf("elemMatch: %w", err)
		}
		return ir.Object{keyElemMatch: body}, nil
	case And:
		arr, err := encodeFilters(n.Filters)
		if err != nil {
			return nil, fmt.Errorf("and: %w", err)
		}
		return ir.Object{keyAnd: arr}, nil
	case Or:
		arr, err := encodeFilters(n.Filters)
		if err != nil {
			return nil, fmt.Errorf("or: %w", err)
		}
		return ir.Object{keyOr: arr}, nil
	case True:
		return ir.Object{keyAlways: ir.Bool(true)}, nil
	case False:
		return ir.Object{keyAlways: ir.Bool(false)}, nil
	default:
		return nil, fmt.Errorf("cannot encode query node %T", q)
	}
}

// EncodeValue converts a value expression into its ir form.
func EncodeValue(v Value) (ir.Value, error) {
	switch n := v.(type) {
	case Field:
		return ir.Object{keyField: ir.String(n.Dotted())}, nil
	case Select:
		from, err := EncodeValue(n.From)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		return ir.Object{keySelect: ir.Object{keyFrom: from, keyField: ir.String(n.Field.Dotted())}}, nil
	case Uppercase:
		inner, err := EncodeValue(n.Value)
		if err != nil {
			return nil, fmt.Errorf("upper: %w", err)
		}
		return ir.Object{keyUpper: inner}, nil
	case StaticValue:
		lit, err := ir.FromGo(n.Literal)
		if err != nil {
			return nil, fmt.Errorf("static: %w", err)
		}
		return ir.Object{keyStatic: lit}, nil
	case ParameterReference:
		return ir.Object{keyParam: ir.Int(n.Index)}, nil
	default:
		return nil, fmt.Errorf("cannot encode value node %T", v)
	}
}

func encodeSelection(sel Value, cond Query) (ir.Value, error) {
	s, err := EncodeValue(sel)
	if err != nil {
		return nil, err
	}
	c, err := Encode(cond)
	if err != nil {
		return nil, err
	}
	return ir.Object{keySelector: s, keyCondition: c}, nil
}

func encodeFilters(filters []Query) (ir.Value, error) {
	arr := make(ir.Array, len(filters))
	for i, f := range filters {
		enc, err := Encode(f)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		arr[i] = enc
	}
	return arr, nil
}

// Marshal returns the canonical JSON encoding of q.
func Marshal(q Query) ([]byte, error) {
	v, err := Encode(q)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// Fingerprint returns a stable hash of q. Structurally equal queries have
// equal fingerprints.
func Fingerprint(q Query) (string, error) {
	v, err := Encode(q)
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainQuery, v)
}

// Decode reads a query from its ir form.
func Decode(v ir.Value) (Query, error) {
	key, body, err := singleKey(v)
	if err != nil {
		return nil, err
	}
	switch key {
	case keyEq:
		val, err := DecodeValue(body)
		if err != nil {
			return nil, fmt.Errorf("eq: %w", err)
		}
		return Equals{Value: val}, nil
	case keyMatch, keyElemMatch:
		obj, ok := body.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %T", key, body)
		}
		sel, err := DecodeValue(obj[keySelector])
		if err != nil {
			return nil, fmt.Errorf("%s.selector: %w", key, err)
		}
		cond, err := Decode(obj[keyCondition])
		if err != nil {
			return nil, fmt.Errorf("%s.condition: %w", key, err)
		}
		if key == keyMatch {
			return Match{Selector: sel, Condition: cond}, nil
		}
		return ElemMatch{Selector: sel, Condition: cond}, nil
	case keyAnd, keyOr:
		arr, ok := body.(ir.Array)
		if !ok {
			return nil, fmt.Errorf("%s: expected array, got %T", key, body)
		}
		filters := make([]Query, len(arr))
		for i, elem := range arr {
			f, err := Decode(elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			filters[i] = f
		}
		if key == keyAnd {
			return And{Filters: filters}, nil
		}
		return Or{Filters: filters}, nil
	case keyAlways:
		b, ok := body.(ir.Bool)
		if !ok {
			return nil, fmt.Errorf("always: expected bool, got %T", body)
		}
		if b {
			return True{}, nil
		}
		return False{}, nil
	default:
		return nil, fmt.Errorf("unknown query node %q", key)
	}
}

// DecodeValue reads a value expression from its ir form.
func DecodeValue(v ir.Value) (Value, error) {
	key, body, err := singleKey(v)
	if err != nil {
		return nil, err
	}
	switch key {
	case keyField:
		return decodeField(body)
	case keySelect:
		obj, ok := body.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("select: expected object, got %T", body)
		}
		from, err := DecodeValue(obj[keyFrom])
		if err != nil {
			return nil, fmt.Errorf("select.from: %w", err)
		}
		field, err := decodeField(obj[keyField])
		if err != nil {
			return nil, fmt.Errorf("select.field: %w", err)
		}
		return Select{From: from, Field: field}, nil
	case keyUpper:
		inner, err := DecodeValue(body)
		if err != nil {
			return nil, fmt.Errorf("upper: %w", err)
		}
		return Uppercase{Value: inner}, nil
	case keyStatic:
		return StaticValue{Literal: ir.ToGo(body)}, nil
	case keyParam:
		i, ok := body.(ir.Int)
		if !ok {
			return nil, fmt.Errorf("param: expected integer, got %T", body)
		}
		return ParameterReference{Index: int(i)}, nil
	default:
		return nil, fmt.Errorf("unknown value node %q", key)
	}
}

// decodeField accepts a dotted string or a list of segments.
func decodeField(v ir.Value) (Field, error) {
	switch p := v.(type) {
	case ir.String:
		return Field{Path: strings.Split(string(p), ".")}, nil
	case ir.Array:
		path := make([]string, len(p))
		for i, seg := range p {
			s, ok := seg.(ir.String)
			if !ok {
				return Field{}, fmt.Errorf("field segment %d: expected string, got %T", i, seg)
			}
			path[i] = string(s)
		}
		return Field{Path: path}, nil
	default:
		return Field{}, fmt.Errorf("field: expected string or list, got %T", v)
	}
}

func singleKey(v ir.Value) (string, ir.Value, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return "", nil, fmt.Errorf("expected node object, got %T", v)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("node object must have exactly one key, got %v", obj.SortedKeys())
	}
	for k, body := range obj {
		return k, body, nil
	}
	panic("unreachable")
}
