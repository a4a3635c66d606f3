package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"

	"github.com/gofhir/normalizer/cache"
	"github.com/gofhir/normalizer/fhir"
)

// compiledCacheSize bounds the number of compiled depends-on expressions kept.
const compiledCacheSize = 1024

// FHIRPathEvaluator evaluates depends-on clauses as FHIRPath expressions over
// the resource's FHIR JSON. A clause holds when
//
//	(<property>).exists($this = '<value>')
//
// is true. Every clause must hold.
type FHIRPathEvaluator struct {
	resourceType string
	compiled     *cache.Cache[string, *fhirpath.Expression]
}

// NewFHIRPathEvaluator creates an evaluator for one resource type.
func NewFHIRPathEvaluator(resourceType string) *FHIRPathEvaluator {
	return &FHIRPathEvaluator{
		resourceType: resourceType,
		compiled:     cache.New[string, *fhirpath.Expression](compiledCacheSize),
	}
}

// ResourceType returns the resource type this evaluator serves.
func (e *FHIRPathEvaluator) ResourceType() string {
	return e.resourceType
}

// Evaluate reports whether every clause holds for resource.
func (e *FHIRPathEvaluator) Evaluate(ctx context.Context, resource fhir.Resource, clauses []DependsOn) (bool, error) {
	if len(clauses) == 0 {
		return true, nil
	}

	data, err := json.Marshal(resource)
	if err != nil {
		return false, fmt.Errorf("failed to convert resource to JSON: %w", err)
	}

	for _, clause := range clauses {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		expression := DependsOnExpression(clause)
		compiled, err := e.getOrCompile(expression)
		if err != nil {
			return false, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expression, err)
		}

		result, err := compiled.Evaluate(data)
		if err != nil {
			return false, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", expression, err)
		}
		if !toBool(result) {
			return false, nil
		}
	}
	return true, nil
}

// CacheSize returns the number of cached expressions.
func (e *FHIRPathEvaluator) CacheSize() int {
	return e.compiled.Len()
}

// getOrCompile returns a cached compiled expression or compiles a new one.
func (e *FHIRPathEvaluator) getOrCompile(expression string) (*fhirpath.Expression, error) {
	if compiled, ok := e.compiled.Get(expression); ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.compiled.Set(expression, compiled)
	return compiled, nil
}

// DependsOnExpression renders a clause as a FHIRPath boolean expression.
func DependsOnExpression(clause DependsOn) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(strings.TrimSpace(clause.Property))
	b.WriteString(").exists($this = '")
	b.WriteString(escapeLiteral(clause.Value))
	b.WriteString("')")
	return b.String()
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// toBool converts a FHIRPath result collection to a boolean.
// Follows FHIRPath truthiness rules:
// - Empty collection = false
// - Single boolean = that boolean's value
// - Non-empty non-boolean collection = true
func toBool(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}

// Verify interface compliance
var _ DependencyEvaluator = (*FHIRPathEvaluator)(nil)
