package engine

import (
	"context"
	"reflect"

	"github.com/roach88/byname/internal/query"
)

// DefaultIdentity is the identity field looked up when a target declares
// no identity paths.
const DefaultIdentity = "guid"

// Target describes the records one engine instance manages.
type Target struct {
	// Entity is the entity name, e.g. "Car".
	Entity string

	// Collection groups records across engines. Empty means Entity.
	Collection string

	// Type is the stored Go type: the snapshot type for memento entities,
	// the entity type otherwise. nil for schemaless documents.
	Type reflect.Type

	// Identity lists the paths that identify a record. Empty means
	// DefaultIdentity.
	Identity []string
}

// CollectionName returns Collection, or Entity when Collection is empty.
func (t Target) CollectionName() string {
	if t.Collection != "" {
		return t.Collection
	}
	return t.Entity
}

// IdentityPaths returns Identity, or DefaultIdentity when none is declared.
func (t Target) IdentityPaths() []string {
	if len(t.Identity) > 0 {
		return t.Identity
	}
	return []string{DefaultIdentity}
}

// QueryEngine executes queries for one target. C is the engine's native
// custom query type; the *Custom methods bypass the query AST.
//
// Semantics shared by every implementation:
//   - InsertOrUpdate replaces the record matched by match, or inserts item.
//     After the call no two records share an identity.
//   - FindAll returns matches in insertion order.
//   - FindOne returns the first match in insertion order.
//   - Remove deletes every match.
//
// params are the call arguments that ParameterReference nodes index into.
type QueryEngine[C any] interface {
	InsertOrUpdate(ctx context.Context, item any, match query.Query, params []any) error
	FindAll(ctx context.Context, q query.Query, params []any) ([]any, error)
	FindOne(ctx context.Context, q query.Query, params []any) (any, bool, error)
	Remove(ctx context.Context, q query.Query, params []any) error

	InsertOrUpdateCustom(ctx context.Context, item any, custom C) error
	FindAllCustom(ctx context.Context, custom C) ([]any, error)
	FindOneCustom(ctx context.Context, custom C) (any, bool, error)
	RemoveCustom(ctx context.Context, custom C) error
}

// Backend hands out engines per target. Engines for targets with the same
// collection name share their records.
type Backend[C any] interface {
	Engine(target Target) (QueryEngine[C], error)
}

// Get is FindOne for callers that treat absence as an error. The error
// matches ErrNotFound.
func Get[C any](ctx context.Context, e QueryEngine[C], q query.Query, params []any) (any, error) {
	item, ok, err := e.FindOne(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("", q)
	}
	return item, nil
}
