// Package query defines the abstract query AST that repository methods are
// compiled into and query engines execute.
//
// The AST has two sealed families:
//
//	Value  - produces a value from a candidate record or from call arguments:
//	         Field, Select, Uppercase, StaticValue, ParameterReference
//	Query  - a condition over a candidate record:
//	         Equals, Match, ElemMatch, And, Or, True, False
//
// Both interfaces are sealed with marker methods, so backends can switch
// exhaustively over the node types. Nodes are plain values: build them with
// the helpers in build.go, compare them with Equal, never by identity.
// Pointer forms (*Match, *Equals, ...) satisfy the interfaces through the
// method set but are not valid nodes; Validate rejects them.
//
// Example, the query compiled for `findAllCarsByEngineTypeAndColor`:
//
//	query.AllOf(
//	    query.FieldEq("engineType", query.Param(0)),
//	    query.FieldEq("color", query.Param(1)),
//	)
//
// renders as
//
//	and(match(field(engineType), eq(param(0))), match(field(color), eq(param(1))))
//
// Every query has a canonical JSON form (Marshal) and a fingerprint
// (Fingerprint). Decode reads the same form back; repository declarations
// written in CUE use it for hand-written queries.
package query
