package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/query"
)

// Filter is the native custom query of the document store: a raw SQL
// condition over the doc column, with ? placeholders bound to Args. An
// empty Where matches every document of the collection.
type Filter struct {
	Where string
	Args  []any
}

func (f Filter) where() string {
	if strings.TrimSpace(f.Where) == "" {
		return "1 = 1"
	}
	return f.Where
}

// Engine is the SQLite-backed QueryEngine for one target.
type Engine struct {
	store  *Store
	target engine.Target
	ids    IDGenerator
}

var _ engine.QueryEngine[Filter] = (*Engine)(nil)

// Target returns the target the engine was created for.
func (e *Engine) Target() engine.Target {
	return e.target
}

// InsertOrUpdate deletes every document matching match and inserts item,
// in one transaction.
func (e *Engine) InsertOrUpdate(ctx context.Context, item any, match query.Query, params []any) error {
	where, args, err := translate(match, e.target.Type, params)
	if err != nil {
		return e.fail(err)
	}
	return e.upsert(ctx, item, where, args)
}

// FindAll returns every matching document in insertion order.
func (e *Engine) FindAll(ctx context.Context, q query.Query, params []any) ([]any, error) {
	where, args, err := translate(q, e.target.Type, params)
	if err != nil {
		return nil, e.fail(err)
	}
	return e.find(ctx, where, args, false)
}

// FindOne returns the first matching document in insertion order.
func (e *Engine) FindOne(ctx context.Context, q query.Query, params []any) (any, bool, error) {
	where, args, err := translate(q, e.target.Type, params)
	if err != nil {
		return nil, false, e.fail(err)
	}
	return e.findOne(ctx, where, args)
}

// Remove deletes every matching document. A query that only compares the
// identity with a value deletes by id.
func (e *Engine) Remove(ctx context.Context, q query.Query, params []any) error {
	if id, ok := e.identityLookup(q, params); ok {
		return e.remove(ctx, "id = ?", []any{id})
	}
	where, args, err := translate(q, e.target.Type, params)
	if err != nil {
		return e.fail(err)
	}
	return e.remove(ctx, where, args)
}

// InsertOrUpdateCustom deletes every document the filter matches and
// inserts item.
func (e *Engine) InsertOrUpdateCustom(ctx context.Context, item any, custom Filter) error {
	return e.upsert(ctx, item, custom.where(), custom.Args)
}

// FindAllCustom returns every document the filter matches.
func (e *Engine) FindAllCustom(ctx context.Context, custom Filter) ([]any, error) {
	return e.find(ctx, custom.where(), custom.Args, false)
}

// FindOneCustom returns the first document the filter matches.
func (e *Engine) FindOneCustom(ctx context.Context, custom Filter) (any, bool, error) {
	return e.findOne(ctx, custom.where(), custom.Args)
}

// RemoveCustom deletes every document the filter matches.
func (e *Engine) RemoveCustom(ctx context.Context, custom Filter) error {
	return e.remove(ctx, custom.where(), custom.Args)
}

func (e *Engine) upsert(ctx context.Context, item any, where string, args []any) error {
	if err := e.checkItem(item); err != nil {
		return err
	}
	doc, err := encodeDocument(item)
	if err != nil {
		return e.invalid(err)
	}
	id, ok, err := documentID(item, e.target.IdentityPaths())
	if err != nil {
		return e.fail(engine.NewFieldNotFoundError(strings.Join(e.target.IdentityPaths(), ","), err))
	}
	if !ok {
		id = e.ids.Generate()
	}

	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	collection := e.target.CollectionName()
	res, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND (`+where+`)`,
		append([]any{collection}, args...)...)
	if err != nil {
		return fmt.Errorf("delete matches in %s: %w", collection, err)
	}
	replaced, _ := res.RowsAffected()

	// A record with the same id that the match did not cover is replaced
	// too, so ids stay unique per collection.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES (?, ?, ?)`, collection, id, doc); err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Debug("docstore insertOrUpdate",
		"entity", e.target.Entity,
		"collection", collection,
		"id", id,
		"replaced", replaced)
	return nil
}

func (e *Engine) find(ctx context.Context, where string, args []any, first bool) ([]any, error) {
	stmt := `SELECT doc FROM documents WHERE collection = ? AND (` + where + `)
		ORDER BY seq ASC, id COLLATE BINARY ASC`
	if first {
		stmt += ` LIMIT 1`
	}
	rows, err := e.store.db.QueryContext(ctx, stmt, append([]any{e.target.CollectionName()}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.target.CollectionName(), err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		item, err := decodeDocument(doc, e.target.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func (e *Engine) findOne(ctx context.Context, where string, args []any) (any, bool, error) {
	items, err := e.find(ctx, where, args, true)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return items[0], true, nil
}

func (e *Engine) remove(ctx context.Context, where string, args []any) error {
	res, err := e.store.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND (`+where+`)`,
		append([]any{e.target.CollectionName()}, args...)...)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", e.target.CollectionName(), err)
	}
	removed, _ := res.RowsAffected()
	slog.Debug("docstore remove", "entity", e.target.Entity, "removed", removed)
	return nil
}

// identityLookup recognizes Match(Field(identity), Equals(v)) where v does
// not read the candidate, and returns the id stored for v.
func (e *Engine) identityLookup(q query.Query, params []any) (string, bool) {
	paths := e.target.IdentityPaths()
	m, ok := q.(query.Match)
	if !ok || len(paths) != 1 {
		return "", false
	}
	f, ok := m.Selector.(query.Field)
	if !ok || !strings.EqualFold(f.Dotted(), paths[0]) {
		return "", false
	}
	eq, ok := m.Condition.(query.Equals)
	if !ok || readsCandidate(eq.Value) {
		return "", false
	}
	v, err := engine.ResolveConstant(eq.Value, params)
	if err != nil || isEmptyIdentity(v) {
		return "", false
	}
	id, ok, err := identityString(v)
	if err != nil || !ok {
		return "", false
	}
	return id, true
}

func (e *Engine) checkItem(item any) error {
	if item == nil {
		return e.invalid(fmt.Errorf("cannot store nil"))
	}
	if e.target.Type != nil && reflect.TypeOf(item) != e.target.Type {
		return e.invalid(fmt.Errorf("expected %s, got %T", e.target.Type, item))
	}
	return nil
}

func (e *Engine) invalid(err error) error {
	return &engine.RuntimeError{
		Code:    engine.ErrCodeInvalidParameter,
		Message: err.Error(),
		Entity:  e.target.Entity,
	}
}

func (e *Engine) fail(err error) error {
	return engine.WithEntity(err, e.target.Entity)
}

// Count returns the number of documents in the engine's collection.
func (e *Engine) Count(ctx context.Context) (int, error) {
	var n int
	err := e.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, e.target.CollectionName()).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("count %s: %w", e.target.CollectionName(), err)
	}
	return n, nil
}
