// Package mapper defines the contracts concrete normalization rules implement
// and the Base helper they compose to look up the registry.
package mapper

import (
	"context"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/pool"
)

// Scope is the per-call state handed to every mapper.
type Scope struct {
	// Tenant whose concept maps apply.
	Tenant string

	// Location is the breadcrumb of the value being mapped, rooted at the
	// resource type, e.g. "Observation.component[1].code".
	Location string

	// Result accumulates the issues of the whole mapping pass.
	Result *normalizer.Result

	// ForceCacheReloadTS, when set, makes the registry treat anything loaded
	// before it as stale.
	ForceCacheReloadTS *time.Time
}

// At returns a copy of s located at location.
func (s Scope) At(location string) Scope {
	s.Location = location
	return s
}

// Child returns a copy of s located at the named property below the current location.
func (s Scope) Child(name string) Scope {
	return s.At(pool.Child(s.Location, name))
}

// ResourceMapper maps the top-level fields of one resource type. Returning a
// nil resource means the resource cannot be mapped.
type ResourceMapper interface {
	ResourceType() string
	Map(ctx context.Context, resource fhir.Resource, scope Scope) (fhir.Resource, error)
}

// ElementMapper maps every value of one element type wherever it occurs.
// Returning nil leaves the value unchanged and stops descent into it.
type ElementMapper interface {
	ElementType() string
	Map(ctx context.Context, element fhir.Node, resource fhir.Resource, scope Scope) (fhir.Node, error)
}

// ResourceMapperFunc adapts a function to ResourceMapper.
type ResourceMapperFunc struct {
	Type string
	Fn   func(ctx context.Context, resource fhir.Resource, scope Scope) (fhir.Resource, error)
}

func (f ResourceMapperFunc) ResourceType() string { return f.Type }

func (f ResourceMapperFunc) Map(ctx context.Context, resource fhir.Resource, scope Scope) (fhir.Resource, error) {
	return f.Fn(ctx, resource, scope)
}

// ElementMapperFunc adapts a function to ElementMapper.
type ElementMapperFunc struct {
	Type string
	Fn   func(ctx context.Context, element fhir.Node, resource fhir.Resource, scope Scope) (fhir.Node, error)
}

func (f ElementMapperFunc) ElementType() string { return f.Type }

func (f ElementMapperFunc) Map(ctx context.Context, element fhir.Node, resource fhir.Resource, scope Scope) (fhir.Node, error) {
	return f.Fn(ctx, element, resource, scope)
}

// PassThrough returns a resource mapper that accepts resources unchanged.
func PassThrough(resourceType string) ResourceMapper {
	return ResourceMapperFunc{
		Type: resourceType,
		Fn: func(_ context.Context, resource fhir.Resource, _ Scope) (fhir.Resource, error) {
			return resource, nil
		},
	}
}
