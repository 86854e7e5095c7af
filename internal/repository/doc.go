// Package repository implements repositories declared by method names.
//
// A typed repository is a struct of func fields. Bind compiles each field
// name into a query once and replaces the nil field with a closure that
// runs the query on an engine of the chosen backend:
//
//	type Cars struct {
//	    FindAllCarsByBrand func(brand string) ([]Car, error)
//	    InsertOrUpdateCar  func(ctx context.Context, car Car) error
//	}
//
//	cars, err := repository.Create[Cars](nil, memory.NewBackend(),
//	    []repository.Entity{repository.EntityOf[Car]()})
//
// Entities with a Memento() method are stored as their snapshot and
// rebuilt through FromMemento (or Entity.Reconstruct) when read back.
//
// A dynamic repository executes a CUE declaration compiled by
// compiler.CompileRepositories over schemaless documents. Methods are
// invoked by name with Dynamic.Call.
package repository
