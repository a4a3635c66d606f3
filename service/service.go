// Package service defines the small interfaces the normalizer consumes from
// its collaborators. Following Go's philosophy of small interfaces, each
// interface has 1-2 methods.
package service

import (
	"context"
	"errors"

	"github.com/gofhir/normalizer/fhir"
)

// ErrNotFound is returned when a document cannot be found.
var ErrNotFound = errors.New("document not found")

// DocumentLoader fetches the raw registry manifest and the concept-map and
// value-set payload documents it names. Implementations bound their own I/O;
// the registry never retries a single fetch.
type DocumentLoader interface {
	FetchManifest(ctx context.Context) ([]byte, error)
	FetchPayload(ctx context.Context, name string) ([]byte, error)
}

// DependsOn is a conditional-applicability clause attached to a concept-map
// target: the target applies only when Property on the resource holds Value.
type DependsOn struct {
	Property string `json:"property"`
	System   string `json:"system,omitempty"`
	Value    string `json:"value"`
	Display  string `json:"display,omitempty"`
}

// DependencyEvaluator decides whether depends-on clauses hold for a resource.
// There is one evaluator per resource type.
type DependencyEvaluator interface {
	ResourceType() string
	Evaluate(ctx context.Context, resource fhir.Resource, clauses []DependsOn) (bool, error)
}
