package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/byname/internal/ir"
	"github.com/roach88/byname/internal/query"
)

// EntitySpec is an entity declared in CUE:
//
//	entity: Car: {
//	    identity:   ["guid"]   // optional, paths used for insertOrUpdate and document ids
//	    collection: "cars"     // optional, defaults to the entity name
//	    fields: {guid: "string", brand: "string", engine: {type: "string"}}
//	}
type EntitySpec struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	Identity   []string `json:"identity,omitempty"`
	Fields     []string `json:"fields"`
}

// Shape returns the compiler view of the entity.
func (e EntitySpec) Shape() Shape {
	return Shape{Name: e.Name, Fields: e.Fields}
}

// MethodSpec is one compiled repository method.
type MethodSpec struct {
	Name     string    `json:"name"`
	Entity   string    `json:"entity"`
	Params   []string  `json:"params"`
	Identity []string  `json:"identity,omitempty"`
	Compiled *Compiled `json:"-"`
	Pos      token.Pos `json:"-"`
}

// RepositorySpec is a repository declared in CUE:
//
//	repository: Cars: {
//	    entities: ["Car"]
//	    method: findAllCarsByBrand: params: [{name: "brand"}]
//	    method: findAllCarsByDriver: params: [{name: "driver", path: "drivers.name"}]
//	    method: insertOrUpdateCar: params: [{name: "car", type: "Car"}]
//	    method: findAllRedCars: {entity: "Car", query: {match: {...}}}
//	}
type RepositorySpec struct {
	Name     string       `json:"name"`
	Entities []EntitySpec `json:"entities"`
	Methods  []MethodSpec `json:"methods"`
}

// Method returns the method called name.
func (r *RepositorySpec) Method(name string) (*MethodSpec, bool) {
	for i := range r.Methods {
		if r.Methods[i].Name == name {
			return &r.Methods[i], true
		}
	}
	return nil, false
}

// Entity returns the entity called name.
func (r *RepositorySpec) Entity(name string) (EntitySpec, bool) {
	for _, e := range r.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return EntitySpec{}, false
}

var methodKeys = []string{"params", "entity", "identity", "query"}

// CompileEntity parses an entity declaration. The value is the entity
// struct itself, e.g. v.LookupPath(cue.ParsePath("entity.Car")).
func CompileEntity(v cue.Value) (*EntitySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	spec := &EntitySpec{Name: lastLabel(v)}
	spec.Collection = spec.Name

	if c := v.LookupPath(cue.ParsePath("collection")); c.Exists() {
		s, err := c.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Collection = s
	}

	identity, err := stringList(v, "identity")
	if err != nil {
		return nil, err
	}
	spec.Identity = identity

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Code: ErrCodeDeclaration, Method: spec.Name, Field: "fields",
			Message: "entity must declare its fields", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec.Fields = append(spec.Fields, iter.Label())
	}
	return spec, nil
}

// CompileRepository parses and compiles a repository declaration against
// the declared entities. It stops at the first method that fails.
func CompileRepository(v cue.Value, entities map[string]EntitySpec) (*RepositorySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	spec := &RepositorySpec{Name: lastLabel(v)}

	names, err := stringList(v, "entities")
	if err != nil {
		return nil, err
	}
	if names == nil {
		for name := range entities {
			names = append(names, name)
		}
		slices.Sort(names)
	}
	for _, name := range names {
		e, ok := entities[name]
		if !ok {
			return nil, &CompileError{Code: ErrCodeDeclaration, Method: spec.Name, Field: "entities",
				Message: fmt.Sprintf("unknown entity %q", name), Pos: v.Pos()}
		}
		spec.Entities = append(spec.Entities, e)
	}

	methodsVal := v.LookupPath(cue.ParsePath("method"))
	if !methodsVal.Exists() {
		return spec, nil
	}
	iter, err := methodsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		m, err := compileMethodDecl(iter.Label(), iter.Value(), spec)
		if err != nil {
			return nil, err
		}
		spec.Methods = append(spec.Methods, *m)
	}
	return spec, nil
}

func compileMethodDecl(name string, v cue.Value, repo *RepositorySpec) (*MethodSpec, error) {
	withPos := func(err error) error {
		if ce, ok := err.(*CompileError); ok && !ce.Pos.IsValid() {
			ce.Pos = v.Pos()
		}
		return err
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !slices.Contains(methodKeys, iter.Label()) {
			return nil, &CompileError{Code: ErrCodeUnknownFeature, Method: name, Field: iter.Label(),
				Message: fmt.Sprintf("unknown method key, expected one of %v", methodKeys), Pos: iter.Value().Pos()}
		}
	}

	entityNames := make([]string, len(repo.Entities))
	for i, e := range repo.Entities {
		entityNames[i] = e.Name
	}
	entityName, err := explicitEntity(v)
	if err != nil {
		return nil, err
	}
	if entityName == "" {
		entityName, err = MatchEntity(name, entityNames)
		if err != nil {
			return nil, withPos(err)
		}
	}
	entity, ok := repo.Entity(entityName)
	if !ok {
		return nil, withPos(newError(ErrCodeEntity, name, "entity %q is not managed by repository %s", entityName, repo.Name))
	}

	m := Method{Name: name}
	params, err := paramDecls(v, repo)
	if err != nil {
		return nil, err
	}
	m.Params = params

	identity, err := stringList(v, "identity")
	if err != nil {
		return nil, err
	}
	switch {
	case identity != nil:
		m.GUIDPaths = identity
	case entity.Identity != nil:
		m.GUIDPaths = entity.Identity
	}
	if op, ok := OperationOf(name); ok && op == InsertOrUpdate && len(m.Params) == 1 && m.Params[0].Type == nil {
		m.Params[0].Type = entity.Shape()
	}

	if qv := v.LookupPath(cue.ParsePath("query")); qv.Exists() {
		q, err := decodeQuery(qv)
		if err != nil {
			return nil, err
		}
		m.Custom = q
	}

	compiled, err := Compile(m)
	if err != nil {
		return nil, withPos(err)
	}

	out := &MethodSpec{Name: name, Entity: entity.Name, Identity: identity, Compiled: compiled, Pos: v.Pos()}
	for _, p := range m.Params {
		out.Params = append(out.Params, p.Name)
	}
	return out, nil
}

func explicitEntity(v cue.Value) (string, error) {
	ev := v.LookupPath(cue.ParsePath("entity"))
	if !ev.Exists() {
		return "", nil
	}
	s, err := ev.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func paramDecls(v cue.Value, repo *RepositorySpec) ([]Param, error) {
	pv := v.LookupPath(cue.ParsePath("params"))
	if !pv.Exists() {
		return nil, nil
	}
	list, err := pv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var params []Param
	for list.Next() {
		item := list.Value()
		var p Param
		name, err := item.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, &CompileError{Code: ErrCodeDeclaration, Field: "params",
				Message: "every parameter needs a name", Pos: item.Pos()}
		}
		p.Name = name
		if path := item.LookupPath(cue.ParsePath("path")); path.Exists() {
			if p.Path, err = path.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if tv := item.LookupPath(cue.ParsePath("type")); tv.Exists() {
			typeName, err := tv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if e, ok := repo.Entity(typeName); ok {
				p.Type = e.Shape()
			} else {
				p.Type = Shape{Name: typeName}
			}
		}
		params = append(params, p)
	}
	return params, nil
}

func decodeQuery(v cue.Value) (query.Query, error) {
	var raw any
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}
	node, err := ir.FromGo(raw)
	if err != nil {
		return nil, &CompileError{Code: ErrCodeCustomQuery, Field: "query", Message: err.Error(), Pos: v.Pos()}
	}
	q, err := query.Decode(node)
	if err != nil {
		return nil, &CompileError{Code: ErrCodeCustomQuery, Field: "query", Message: err.Error(), Pos: v.Pos()}
	}
	return q, nil
}

// stringList reads an optional list of strings. A missing key is nil; an
// empty list is a non-nil empty slice.
func stringList(v cue.Value, key string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(key))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

// CompileRepositories compiles every entity under "entity" and every
// repository under "repository" of a CUE value, in declaration order.
func CompileRepositories(v cue.Value) ([]*RepositorySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entities := make(map[string]EntitySpec)
	if ev := v.LookupPath(cue.ParsePath("entity")); ev.Exists() {
		iter, err := ev.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			e, err := CompileEntity(iter.Value())
			if err != nil {
				return nil, err
			}
			entities[e.Name] = *e
		}
	}

	var repos []*RepositorySpec
	if rv := v.LookupPath(cue.ParsePath("repository")); rv.Exists() {
		iter, err := rv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			r, err := CompileRepository(iter.Value(), entities)
			if err != nil {
				return nil, err
			}
			repos = append(repos, r)
		}
	}
	return repos, nil
}
