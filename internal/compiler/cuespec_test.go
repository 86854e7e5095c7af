package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carsDecl = `
entity: Car: {
	collection: "cars"
	fields: {
		guid:  "string"
		brand: "string"
		color: "string"
		engine: {type: "string"}
		drivers: [...{name: "string"}]
	}
}

entity: LogbookEntry: {
	identity: ["car", "day"]
	fields: {car: "string", day: "string", km: "int"}
}

repository: Cars: {
	entities: ["Car", "LogbookEntry"]

	method: findAllCars: {}
	method: findAllCarsByBrand: params: [{name: "brand"}]
	method: findAllCarsByDriver: params: [{name: "driver", path: "drivers.name"}]
	method: insertOrUpdateCar: params: [{name: "car", type: "Car"}]
	method: insertOrUpdateLogbookEntry: params: [{name: "entry"}]
	method: findAllRedCars: {
		entity: "Car"
		query: {match: {selector: {field: "color"}, condition: {eq: {static: "red"}}}}
	}
}
`

func compileCUE(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("cars.cue"))
	require.NoError(t, v.Err())
	return v
}

func compileEntities(t *testing.T, v cue.Value) map[string]EntitySpec {
	t.Helper()
	out := map[string]EntitySpec{}
	iter, err := v.LookupPath(cue.ParsePath("entity")).Fields()
	require.NoError(t, err)
	for iter.Next() {
		e, err := CompileEntity(iter.Value())
		require.NoError(t, err)
		out[e.Name] = *e
	}
	return out
}

func TestCompileEntity(t *testing.T) {
	v := compileCUE(t, carsDecl)

	car, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Car")))
	require.NoError(t, err)
	assert.Equal(t, "Car", car.Name)
	assert.Equal(t, "cars", car.Collection)
	assert.Nil(t, car.Identity)
	assert.Equal(t, []string{"guid", "brand", "color", "engine", "drivers"}, car.Fields)

	entry, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.LogbookEntry")))
	require.NoError(t, err)
	assert.Equal(t, "LogbookEntry", entry.Collection)
	assert.Equal(t, []string{"car", "day"}, entry.Identity)
}

func TestCompileEntityMissingFields(t *testing.T) {
	v := compileCUE(t, `entity: Ghost: {collection: "ghosts"}`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Ghost")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeDeclaration, ce.Code)
	assert.Equal(t, "fields", ce.Field)
}

func TestCompileRepository(t *testing.T) {
	v := compileCUE(t, carsDecl)
	entities := compileEntities(t, v)

	repo, err := CompileRepository(v.LookupPath(cue.ParsePath("repository.Cars")), entities)
	require.NoError(t, err)
	assert.Equal(t, "Cars", repo.Name)
	require.Len(t, repo.Entities, 2)
	require.Len(t, repo.Methods, 6)

	want := []struct {
		name, entity, query string
	}{
		{"findAllCars", "Car", "true"},
		{"findAllCarsByBrand", "Car", "match(field(brand), eq(param(0)))"},
		{"findAllCarsByDriver", "Car", "match(field(drivers.name), eq(param(0)))"},
		{"insertOrUpdateCar", "Car", "match(field(guid), eq(select(param(0), field(guid))))"},
		{"insertOrUpdateLogbookEntry", "LogbookEntry",
			"and(match(field(car), eq(select(param(0), field(car)))), match(field(day), eq(select(param(0), field(day)))))"},
		{"findAllRedCars", "Car", `match(field(color), eq(static("red")))`},
	}
	for i, w := range want {
		m := repo.Methods[i]
		assert.Equal(t, w.name, m.Name)
		assert.Equal(t, w.entity, m.Entity, w.name)
		assert.Equal(t, w.query, m.Compiled.Query.String(), w.name)
		assert.True(t, m.Pos.IsValid(), w.name)
	}

	red, ok := repo.Method("findAllRedCars")
	require.True(t, ok)
	assert.True(t, red.Compiled.Custom)

	_, ok = repo.Method("findAllTrucks")
	assert.False(t, ok)
}

func TestCompileRepositoryDefaultsToAllEntities(t *testing.T) {
	v := compileCUE(t, `
entity: Car: fields: {guid: "string"}
entity: Bike: fields: {guid: "string"}
repository: Vehicles: method: findAllBikes: {}
`)
	repo, err := CompileRepository(v.LookupPath(cue.ParsePath("repository.Vehicles")), compileEntities(t, v))
	require.NoError(t, err)

	names := []string{}
	for _, e := range repo.Entities {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Bike", "Car"}, names)
	assert.Equal(t, "Bike", repo.Methods[0].Entity)
}

func TestCompileRepositoryErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		msg  string
	}{
		{
			name: "unknown entity",
			src:  `repository: R: entities: ["Truck"]`,
			code: ErrCodeDeclaration,
			msg:  `unknown entity "Truck"`,
		},
		{
			name: "undetectable entity",
			src:  `repository: R: method: findAllRedCars: {}`,
			code: ErrCodeEntity,
		},
		{
			name: "entity outside repository",
			src: `entity: Bike: fields: {guid: "string"}
repository: R: {entities: ["Car"], method: findAllBikes: {entity: "Bike"}}`,
			code: ErrCodeEntity,
			msg:  "not managed",
		},
		{
			name: "unknown key",
			src:  `repository: R: method: findAllCarsByBrand: parms: [{name: "brand"}]`,
			code: ErrCodeUnknownFeature,
		},
		{
			name: "param count",
			src:  `repository: R: method: findAllCarsByBrand: {}`,
			code: ErrCodeParamCount,
		},
		{
			name: "nameless param",
			src:  `repository: R: method: findAllCarsByBrand: params: [{path: "brand"}]`,
			code: ErrCodeDeclaration,
		},
		{
			name: "bad custom query",
			src:  `repository: R: method: findAllRedCars: {entity: "Car", query: {near: "red"}}`,
			code: ErrCodeCustomQuery,
		},
		{
			name: "no identity",
			src:  `repository: R: method: insertOrUpdateCar: {params: [{name: "car"}], identity: []}`,
			code: ErrCodeIdentity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileCUE(t, "entity: Car: fields: {guid: \"string\", brand: \"string\"}\n"+tt.src)
			entities := compileEntities(t, v)

			_, err := CompileRepository(v.LookupPath(cue.ParsePath("repository.R")), entities)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			if tt.msg != "" {
				assert.Contains(t, ce.Message, tt.msg)
			}
			assert.True(t, ce.Pos.IsValid())
			assert.Contains(t, err.Error(), "cars.cue:")
		})
	}
}

func TestCompileRepositories(t *testing.T) {
	repos, err := CompileRepositories(compileCUE(t, carsDecl))
	require.NoError(t, err)
	require.Len(t, repos, 1)

	cars := repos[0]
	assert.Equal(t, "Cars", cars.Name)
	require.Len(t, cars.Entities, 2)
	assert.Equal(t, "cars", cars.Entities[0].Collection)

	m, ok := cars.Method("insertOrUpdateLogbookEntry")
	require.True(t, ok)
	assert.Equal(t, "LogbookEntry", m.Entity)
	assert.Equal(t,
		"and(match(field(car), eq(select(param(0), field(car)))), match(field(day), eq(select(param(0), field(day)))))",
		m.Compiled.Query.String())
}

func TestCompileRepositoriesStopsAtFirstError(t *testing.T) {
	_, err := CompileRepositories(compileCUE(t, `
entity: Car: fields: {guid: "string"}
repository: Cars: method: countCars: entity: "Car"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeMethodName)
}
