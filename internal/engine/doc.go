// Package engine defines the contract between generated repositories and
// the stores that execute their queries.
//
// A QueryEngine executes the query AST (package query) against one target:
// an entity type stored in a named collection. Backends hand out engines
// per target; two targets naming the same collection share records.
//
// Implementations:
//   - memory: evaluates queries over an in-process slice
//   - docstore: translates queries to SQL over JSON documents in SQLite
//
// Both engines resolve query values through ResolveValue/ResolveConstant so
// that parameter and field errors carry the same RuntimeError codes.
//
// ORDERING:
// Records are returned in insertion order. An update removes the old
// record and appends the new one, so an updated record moves to the end.
package engine
