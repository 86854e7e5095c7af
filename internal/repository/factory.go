package repository

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/platform"
)

// BindError reports a repository method that cannot be bound. Err is
// usually a *compiler.CompileError.
type BindError struct {
	Repository string
	Method     string
	Err        error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s.%s: %v", e.Repository, e.Method, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Factory binds repository structs to engines of one backend.
//
// A repository is a struct whose exported func fields are persistence
// operations named by convention:
//
//	type Cars struct {
//	    FindOneCarByGUID   func(ctx context.Context, guid string) (Car, bool, error)
//	    FindAllCarsByBrand func(brand string) *future.Future[[]Car]
//	    InsertOrUpdateCar  func(ctx context.Context, car Car) error
//	    RemoveCarByGUID    func(guid string) error
//	}
//
// Bind compiles every nil func field once and sets it to a closure that
// runs the compiled query. Fields that are already set are left alone,
// so they can serve as default implementations built on the others.
type Factory[C any] struct {
	platform platform.Context
	backend  engine.Backend[C]
	entities map[string]*entityInfo
	names    []string
}

// New creates a factory. ctx is handed to memento reconstruction
// functions; it may be nil when no entity needs one.
func New[C any](ctx platform.Context, backend engine.Backend[C], entities ...Entity) (*Factory[C], error) {
	if backend == nil {
		return nil, errors.New("repository: nil backend")
	}
	f := &Factory[C]{platform: ctx, backend: backend, entities: make(map[string]*entityInfo)}
	for _, e := range entities {
		info, err := resolveEntity(e)
		if err != nil {
			return nil, fmt.Errorf("repository: %w", err)
		}
		if _, dup := f.entities[info.Name]; dup {
			return nil, fmt.Errorf("repository: entity %s declared twice", info.Name)
		}
		f.entities[info.Name] = info
		f.names = append(f.names, info.Name)
	}
	return f, nil
}

// Create builds an R and binds it. It is New followed by Bind.
func Create[R any, C any](ctx platform.Context, backend engine.Backend[C], entities []Entity, opts ...Option) (*R, error) {
	f, err := New(ctx, backend, entities...)
	if err != nil {
		return nil, err
	}
	repo := new(R)
	if err := f.Bind(repo, opts...); err != nil {
		return nil, err
	}
	return repo, nil
}

// Bind implements the nil func fields of the struct repo points to.
// Binding stops at the first method that fails; fields bound before it
// keep their implementation.
func (f *Factory[C]) Bind(repo any, opts ...Option) error {
	rv := reflect.ValueOf(repo)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("repository: Bind needs a pointer to a struct, got %T", repo)
	}
	s := newSettings(opts)
	st := rv.Elem().Type()

	seen := make(map[string]bool)
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() || sf.Type.Kind() != reflect.Func {
			continue
		}
		seen[sf.Name] = true

		tagCfg, skip, err := parseTag(sf.Tag.Get(tagName))
		if err != nil {
			return &BindError{Repository: st.Name(), Method: sf.Name, Err: err}
		}
		if skip {
			continue
		}
		fv := rv.Elem().Field(i)
		if !fv.IsNil() {
			s.logger.Debug("keeping default implementation", "repository", st.Name(), "method", sf.Name)
			continue
		}

		impl, err := f.bindMethod(sf.Name, sf.Type, tagCfg.merge(s.methods[sf.Name]), s)
		if err != nil {
			return &BindError{Repository: st.Name(), Method: sf.Name, Err: err}
		}
		fv.Set(impl)
	}

	for name := range s.methods {
		if !seen[name] {
			return &BindError{Repository: st.Name(), Method: name,
				Err: errors.New("configured method has no func field")}
		}
	}
	return nil
}

func (f *Factory[C]) bindMethod(name string, ft reflect.Type, cfg MethodConfig, s *settings) (reflect.Value, error) {
	op, ok := compiler.OperationOf(name)
	if !ok {
		return reflect.Value{}, &compiler.CompileError{Code: compiler.ErrCodeMethodName, Method: name,
			Message: fmt.Sprintf("method name must start with one of %v", compiler.Operations)}
	}

	entityName := cfg.Entity
	if entityName == "" {
		var err error
		if entityName, err = compiler.MatchEntity(name, f.names); err != nil {
			return reflect.Value{}, err
		}
	}
	entity, ok := f.entities[entityName]
	if !ok {
		return reflect.Value{}, &compiler.CompileError{Code: compiler.ErrCodeEntity, Method: name,
			Message: fmt.Sprintf("unknown entity %q, the factory manages %v", entityName, f.names)}
	}

	sig, err := analyze(ft, op, entity.Type)
	if err != nil {
		return reflect.Value{}, &compiler.CompileError{Code: compiler.ErrCodeSignature, Method: name, Message: err.Error()}
	}

	target := entity.target()
	if op == compiler.InsertOrUpdate && len(cfg.GUID) > 0 {
		// Document ids follow the identity the method matches on.
		target.Identity = cfg.GUID
	}
	eng, err := f.backend.Engine(target)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("engine for %s: %w", entity.Name, err)
	}
	b := &binding[C]{name: name, op: op, entity: entity, engine: eng, platform: f.platform}

	custom, err := lookupQuery(name, cfg.Query, s.sources)
	if err != nil {
		return reflect.Value{}, err
	}
	if native, ok := nativeQuery[C](custom); ok {
		if op == compiler.InsertOrUpdate && len(sig.params) != 1 {
			return reflect.Value{}, &compiler.CompileError{Code: compiler.ErrCodeParamCount, Method: name,
				Message: fmt.Sprintf("insertOrUpdate methods take exactly one parameter, the entity, but the method has %d", len(sig.params))}
		}
		b.native = native
		s.logger.Debug("bound native query", "method", name, "entity", entity.Name, "operation", op)
		return b.implement(sig), nil
	}

	m, err := f.method(name, op, sig, entity, cfg, custom)
	if err != nil {
		return reflect.Value{}, err
	}
	compiled, err := compiler.Compile(m)
	if err != nil {
		return reflect.Value{}, err
	}
	b.compiled = compiled

	s.logger.Debug("bound method",
		"method", name,
		"entity", entity.Name,
		"operation", op,
		"query", describeQuery(compiled))
	return b.implement(sig), nil
}

// method assembles the compiler input for a func field.
func (f *Factory[C]) method(name string, op compiler.Operation, sig *signature, entity *entityInfo, cfg MethodConfig, custom any) (compiler.Method, error) {
	if cfg.Paths != nil && len(cfg.Paths) != len(sig.params) {
		return compiler.Method{}, &compiler.CompileError{Code: compiler.ErrCodeParamCount, Method: name, Field: "paths",
			Message: fmt.Sprintf("%d path override(s) for %d parameter(s)", len(cfg.Paths), len(sig.params))}
	}

	m := compiler.Method{Name: name, Custom: custom, GUIDPaths: cfg.GUID}
	for i, pt := range sig.params {
		p := compiler.Param{Name: fmt.Sprintf("p%d", i), Type: compiler.GoType(pt)}
		// insertOrUpdate matches on the stored form of its argument.
		if op == compiler.InsertOrUpdate && pt == entity.Type {
			p.Type = compiler.GoType(entity.stored)
		}
		if cfg.Paths != nil {
			p.Path = cfg.Paths[i]
		}
		m.Params = append(m.Params, p)
	}
	if m.GUIDPaths == nil && entity.Identity != nil {
		m.GUIDPaths = entity.Identity
	}
	return m, nil
}

// lookupQuery resolves a query= reference. Strings name a method on one of
// the registered sources; other values pass through.
func lookupQuery(method string, ref any, sources []any) (any, error) {
	name, ok := ref.(string)
	if !ok {
		return ref, nil
	}
	if name == "" {
		return nil, nil
	}
	for _, src := range sources {
		if m := reflect.ValueOf(src).MethodByName(name); m.IsValid() {
			return m.Interface(), nil
		}
	}
	return nil, &compiler.CompileError{Code: compiler.ErrCodeCustomQuery, Method: method, Field: "query",
		Message: fmt.Sprintf("no query source has a method %q", name)}
}

// nativeQuery reports whether custom builds the backend's own query type.
func nativeQuery[C any](custom any) (func([]any) C, bool) {
	switch fn := custom.(type) {
	case func([]any) C:
		return fn, true
	case func() C:
		return func([]any) C { return fn() }, true
	}
	return nil, false
}

func describeQuery(c *compiler.Compiled) string {
	if c.IsDynamic() {
		return "<dynamic>"
	}
	return c.Query.String()
}

// Entities returns the names of the managed entities, sorted.
func (f *Factory[C]) Entities() []string {
	names := slices.Clone(f.names)
	slices.SortFunc(names, strings.Compare)
	return names
}
