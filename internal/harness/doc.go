// Package harness runs conformance scenarios against repositories
// declared in CUE.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: garage_upsert
//	description: "Upsert replaces the record with the same brand"
//	specs:
//	  - garage.cue
//	repository: Garage
//	setup:
//	  - call: insertOrUpdateCar
//	    args: [{guid: "c1", brand: "BMW", color: "red"}]
//	flow:
//	  - call: findAllCarsByBrand
//	    args: ["BMW"]
//	    expect:
//	      case: Success
//	      count: 1
//	  - call: findAllCarsByFuel
//	    args: ["diesel"]
//	    expect:
//	      case: Error
//	      error: FIELD_NOT_FOUND
//	assertions:
//	  - type: trace_count
//	    call: insertOrUpdateCar
//	    count: 1
//	  - type: final_state
//	    entity: Car
//	    where: {brand: "BMW"}
//	    expect:
//	      - {color: "red"}
//
// # Assertion Types
//
//   - trace_contains: a call appears in the trace with matching args
//   - trace_order: calls appear in the given order
//   - trace_count: a call appears exactly N times
//   - final_state: the stored records of an entity match, in storage order
//
// # Determinism
//
// Every run starts from an empty backend. The docstore backend uses a
// temporary database with sequential document ids, and traces carry
// normalized values and error codes only, so one golden file serves every
// backend.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/garage_upsert.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := harness.RunAll(scenario)
package harness
