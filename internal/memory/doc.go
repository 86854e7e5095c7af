// Package memory implements engine.QueryEngine over in-process slices.
//
// Queries are compiled to Go closures once per call and evaluated record
// by record. Field names resolve case-insensitively through getters,
// struct fields and map keys (package fields), so the engine works for
// typed entities and for map[string]any documents alike.
//
// The engine is meant for tests and small, process-local data sets.
package memory
