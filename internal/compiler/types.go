package compiler

import (
	"reflect"
	"strings"

	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

// TypeInfo is what the compiler needs to know about a parameter type:
// whether it exposes a given field or getter.
type TypeInfo interface {
	HasField(name string) bool
	String() string
}

// GoType describes a Go type through reflection.
func GoType(t reflect.Type) TypeInfo {
	return goType{t: t}
}

type goType struct {
	t reflect.Type
}

func (g goType) HasField(name string) bool {
	return fields.HasAccessor(g.t, name)
}

func (g goType) String() string {
	if g.t == nil {
		return "<nil>"
	}
	return g.t.String()
}

// Shape describes a declared document type by its top-level field names.
// Declarations loaded from CUE produce shapes instead of Go types.
type Shape struct {
	Name   string
	Fields []string
}

func (s Shape) HasField(name string) bool {
	for _, f := range s.Fields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func (s Shape) String() string {
	return s.Name
}

// Param is one declared method parameter, excluding a leading context.
type Param struct {
	Name string
	Type TypeInfo
	// Path replaces the field name inferred from the method name for the
	// token this parameter binds to. Dotted, e.g. "properties.name".
	Path string
}

// Method is everything the compiler reads from a repository method.
type Method struct {
	Name   string
	Params []Param
	// GUIDPaths overrides identity detection for insertOrUpdate. nil means
	// detect a guid field; a non-nil empty slice is an error.
	GUIDPaths []string
	// Custom bypasses name parsing. Accepted: a query.Query, a func
	// returning a query.Query, or func([]any) query.Query evaluated per call.
	Custom any
}

// Compiled is the result of compiling one method. It is built once, at
// bind time, and shared by every call.
type Compiled struct {
	Method     string
	Operation  Operation
	Query      query.Query
	ParamCount int
	Custom     bool

	dynamic func(args []any) query.Query
}

// IsDynamic reports whether the query is rebuilt from the arguments on
// each call.
func (c *Compiled) IsDynamic() bool {
	return c.dynamic != nil
}

// QueryFor returns the query to execute for args. Static queries ignore
// args; dynamic custom queries are built and validated per call.
func (c *Compiled) QueryFor(args []any) (query.Query, error) {
	if c.dynamic == nil {
		return c.Query, nil
	}
	q := c.dynamic(args)
	if q == nil {
		return nil, newError(ErrCodeCustomQuery, c.Method, "custom query factory returned nil")
	}
	if err := query.Validate(q, len(args)); err != nil {
		return nil, &CompileError{Code: ErrCodeInvalidQuery, Method: c.Method, Message: err.Error()}
	}
	return q, nil
}
