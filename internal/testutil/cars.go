package testutil

import (
	"context"
	"fmt"

	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/platform"
	"github.com/roach88/byname/internal/query"
)

// Engine is the engine of a sample car.
type Engine struct {
	Power int    `json:"power"`
	Type  string `json:"type"`
}

// Driver is a person allowed to drive a sample car.
type Driver struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// Car is the sample entity shared by engine and repository tests.
type Car struct {
	GUID    string   `json:"guid"`
	Brand   string   `json:"brand"`
	Color   string   `json:"color"`
	Engine  Engine   `json:"engine"`
	Drivers []Driver `json:"drivers"`
}

// BMW returns the red gas-powered sample car.
func BMW() Car {
	return Car{
		GUID:    "cars/bmw",
		Brand:   "BMW",
		Color:   "red",
		Engine:  Engine{Power: 10, Type: "gas"},
		Drivers: []Driver{{Name: "Anna", Age: 34}, {Name: "Ben", Age: 19}},
	}
}

// Audi returns the yellow gas-powered sample car.
func Audi() Car {
	return Car{
		GUID:    "cars/audi",
		Brand:   "Audi",
		Color:   "yellow",
		Engine:  Engine{Power: 10, Type: "gas"},
		Drivers: []Driver{},
	}
}

// Tesla returns the silver electric sample car.
func Tesla() Car {
	return Car{
		GUID:    "cars/tesla",
		Brand:   "Tesla",
		Color:   "silver",
		Engine:  Engine{Power: 110, Type: "electric"},
		Drivers: []Driver{{Name: "Ben", Age: 19}},
	}
}

// SampleCars returns BMW, Audi and Tesla, in that order.
func SampleCars() []Car {
	return []Car{BMW(), Audi(), Tesla()}
}

// LogbookEntry records a trip. It persists through LogbookEntryMemento,
// which keeps only the car's GUID.
type LogbookEntry struct {
	GUID string
	Car  Car
	From string
	To   string
}

// LogbookEntryMemento is the stored form of a LogbookEntry.
type LogbookEntryMemento struct {
	GUID string `json:"guid"`
	Car  string `json:"car"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Memento returns the stored form of e.
func (e LogbookEntry) Memento() LogbookEntryMemento {
	return LogbookEntryMemento{GUID: e.GUID, Car: e.Car.GUID, From: e.From, To: e.To}
}

// FromMemento rebuilds an entry, loading its car from the CarsRepository
// registered in ctx.
func (LogbookEntry) FromMemento(ctx platform.Context, m LogbookEntryMemento) (LogbookEntry, error) {
	cars, err := platform.Lookup[*CarsRepository](ctx)
	if err != nil {
		return LogbookEntry{}, err
	}
	car, err := cars.GetCarByGUID(context.Background(), m.Car)
	if err != nil {
		return LogbookEntry{}, fmt.Errorf("logbook entry %s: %w", m.GUID, err)
	}
	return LogbookEntry{GUID: m.GUID, Car: car, From: m.From, To: m.To}, nil
}

// CarsRepository is the sample typed repository.
type CarsRepository struct {
	FindOneCarByGUID   func(ctx context.Context, guid string) (Car, bool, error)
	FindAllCars        func(ctx context.Context) ([]Car, error)
	FindAllCarsByBrand func(brand string) ([]Car, error)
	InsertOrUpdateCar  func(ctx context.Context, car Car) error
	RemoveCarByGUID    func(ctx context.Context, guid string) error
}

// GetCarByGUID is FindOneCarByGUID for callers that need the car. The
// error matches engine.ErrNotFound when there is none.
func (r *CarsRepository) GetCarByGUID(ctx context.Context, guid string) (Car, error) {
	car, ok, err := r.FindOneCarByGUID(ctx, guid)
	if err != nil {
		return Car{}, err
	}
	if !ok {
		return Car{}, engine.NewNotFoundError("Car", query.FieldEq("guid", query.Static(guid)))
	}
	return car, nil
}

// LogbookEntryRepository is the sample repository of a memento entity.
type LogbookEntryRepository struct {
	InsertOrUpdateLogbookEntry  func(ctx context.Context, entry LogbookEntry) error
	FindAllLogbookEntriesByFrom func(ctx context.Context, from string) ([]LogbookEntry, error)
}
