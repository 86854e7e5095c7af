package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/query"
)

// Dynamic executes a repository declared in CUE. Records are schemaless
// documents (map[string]any); methods are called by name.
type Dynamic[C any] struct {
	spec    *compiler.RepositorySpec
	engines map[string]engine.QueryEngine[C]
	// methods holds engines for methods declaring their own identity.
	methods map[string]engine.QueryEngine[C]
}

// NewDynamic creates the engines for every entity of spec.
func NewDynamic[C any](backend engine.Backend[C], spec *compiler.RepositorySpec) (*Dynamic[C], error) {
	d := &Dynamic[C]{
		spec:    spec,
		engines: make(map[string]engine.QueryEngine[C]),
		methods: make(map[string]engine.QueryEngine[C]),
	}
	for _, e := range spec.Entities {
		eng, err := backend.Engine(engine.Target{
			Entity:     e.Name,
			Collection: e.Collection,
			Identity:   e.Identity,
		})
		if err != nil {
			return nil, fmt.Errorf("repository %s: engine for %s: %w", spec.Name, e.Name, err)
		}
		d.engines[e.Name] = eng
	}
	for _, m := range spec.Methods {
		if len(m.Identity) == 0 || m.Compiled.Operation != compiler.InsertOrUpdate {
			continue
		}
		e, _ := spec.Entity(m.Entity)
		eng, err := backend.Engine(engine.Target{
			Entity:     e.Name,
			Collection: e.Collection,
			Identity:   m.Identity,
		})
		if err != nil {
			return nil, fmt.Errorf("repository %s: engine for %s: %w", spec.Name, m.Name, err)
		}
		d.methods[m.Name] = eng
	}
	slog.Debug("dynamic repository ready", "repository", spec.Name, "methods", len(spec.Methods))
	return d, nil
}

// Spec returns the compiled declaration.
func (d *Dynamic[C]) Spec() *compiler.RepositorySpec {
	return d.spec
}

// Call invokes method with args. The result is []any for findAll, the
// record or nil for findOne, and nil for insertOrUpdate and remove.
func (d *Dynamic[C]) Call(ctx context.Context, method string, args ...any) (any, error) {
	m, ok := d.spec.Method(method)
	if !ok {
		return nil, fmt.Errorf("repository %s has no method %q", d.spec.Name, method)
	}
	if len(args) != m.Compiled.ParamCount {
		return nil, &engine.RuntimeError{
			Code:    engine.ErrCodeInvalidParameter,
			Message: fmt.Sprintf("%s takes %d argument(s), got %d", method, m.Compiled.ParamCount, len(args)),
			Entity:  m.Entity,
		}
	}
	eng, ok := d.methods[method]
	if !ok {
		eng = d.engines[m.Entity]
	}

	q, err := m.Compiled.QueryFor(args)
	if err != nil {
		return nil, err
	}

	switch m.Compiled.Operation {
	case compiler.FindAll:
		return eng.FindAll(ctx, q, args)
	case compiler.FindOne:
		item, found, err := eng.FindOne(ctx, q, args)
		if err != nil || !found {
			return nil, err
		}
		return item, nil
	case compiler.InsertOrUpdate:
		return nil, eng.InsertOrUpdate(ctx, args[0], q, args)
	default:
		return nil, eng.Remove(ctx, q, args)
	}
}

// Query runs q against the records of entity, outside any declared
// method. Tools use it to inspect state.
func (d *Dynamic[C]) Query(ctx context.Context, entity string, q query.Query) ([]any, error) {
	eng, ok := d.engines[entity]
	if !ok {
		return nil, fmt.Errorf("repository %s does not manage entity %q", d.spec.Name, entity)
	}
	return eng.FindAll(ctx, q, nil)
}
