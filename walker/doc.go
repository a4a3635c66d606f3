// Package walker applies normalization mappers to a whole resource.
//
// A mapping pass first hands the resource to the ResourceMapper registered
// for its type. The result is then walked property by property:
//
//	Observation
//	├── code                      (CodeableConcept)
//	├── component[0]              (ObservationComponent)
//	│   ├── code
//	│   └── valueQuantity         (choice, held Quantity)
//	└── component[1]
//	    ├── code
//	    └── valueCodeableConcept  (choice, held CodeableConcept)
//
// Every structured value is offered to the ElementMapper registered for its
// type. A mapper's replacement is walked further; a nil result leaves the
// value and its children untouched. Values without a mapper are walked as is,
// so mappable content nested in unmapped types is still reached. Primitive
// leaves are skipped, and contained resources are never entered.
//
// Parents are rebuilt only along changed paths. Every unchanged subtree in the
// output is the same pointer as in the input.
//
// # Usage
//
//	m := walker.New(rules.ResourceMappers(reg), rules.ElementMappers(reg))
//	out, result, err := m.MapResource(ctx, resource, "tenantA", nil)
//
// # Thread Safety
//
// A Mapper holds no per-call state and may be shared by concurrent passes.
package walker
