package mapper

import (
	"context"
	"fmt"
	"strings"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/registry"
)

// Lookup is the part of the registry the Base helper uses.
type Lookup interface {
	MapConcept(ctx context.Context, tenant, element string, cc *fhir.CodeableConcept, resource fhir.Resource, force *time.Time) (registry.ConceptMapping, error)
	MapCodeAgainstEnum(ctx context.Context, tenant, element, code string, enum []string, extensionURL string, resource fhir.Resource, force *time.Time) (registry.CodeMapping, error)
	ValueSet(ctx context.Context, element, profileURL string, force *time.Time) (registry.ValueSetResult, error)
}

// Base wraps registry lookups with issue recording. Concrete mappers embed
// or hold one.
type Base struct {
	Lookup Lookup
}

// NewBase creates a Base over lookup.
func NewBase(lookup Lookup) Base {
	return Base{Lookup: lookup}
}

// LookupConceptMapping maps cc through the tenant's concept map for element.
//
// When nothing matches, an error issue is recorded at the scope's location and
// nil is returned. When legal is non-empty and none of the mapped codes is in
// it, a second issue flags the registry content; the mapped concept is still
// returned. The returned concept carries the provenance extension.
func (b Base) LookupConceptMapping(ctx context.Context, scope Scope, element string, cc *fhir.CodeableConcept, resource fhir.Resource, legal []string) (*fhir.CodeableConcept, error) {
	m, err := b.Lookup.MapConcept(ctx, scope.Tenant, element, cc, resource, scope.ForceCacheReloadTS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scope.Location, err)
	}
	if !m.Found() {
		recordNoMapping(scope, element, registry.SourceFromConcept(cc).Values(), m.Metadata)
		return nil, nil
	}

	out := m.Apply()
	if len(legal) > 0 && !anyCodeIn(out, legal) {
		recordOutsideLegal(scope, element, codesOf(out), legal, m.Metadata)
	}
	return out, nil
}

// LookupConceptMappingForEnum maps a code restricted to enum. A missing
// mapping and a mapped code outside enum each record an issue; callers should
// only store the code when InEnum is set.
func (b Base) LookupConceptMappingForEnum(ctx context.Context, scope Scope, element, code string, enum []string, extensionURL string, resource fhir.Resource) (registry.CodeMapping, error) {
	m, err := b.Lookup.MapCodeAgainstEnum(ctx, scope.Tenant, element, code, enum, extensionURL, resource, scope.ForceCacheReloadTS)
	if err != nil {
		return m, fmt.Errorf("%s: %w", scope.Location, err)
	}
	if !m.Found() {
		recordNoMapping(scope, element, []string{code}, m.Metadata)
		return m, nil
	}
	if !m.InEnum {
		recordOutsideLegal(scope, element, []string{m.Code()}, enum, m.Metadata)
	}
	return m, nil
}

// LegalCodes returns the codes of the value set registered for element under
// profileURL. A missing value set records a warning and returns nil, which
// callers treat as "no restriction".
func (b Base) LegalCodes(ctx context.Context, scope Scope, element, profileURL string) ([]string, error) {
	if profileURL == "" {
		return nil, nil
	}
	vs, err := b.Lookup.ValueSet(ctx, element, profileURL, scope.ForceCacheReloadTS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scope.Location, err)
	}
	if len(vs.Codes) == 0 {
		addIssue(scope, normalizer.Warning(normalizer.IssueTypeNotFound).
			ID(normalizer.IssueMissingValueSet).
			Diagnostics(fmt.Sprintf("No value set registered for %s in profile '%s'", element, profileURL)).
			At(scope.Location).
			Build())
		return nil, nil
	}
	return vs.CodeValues(), nil
}

func recordNoMapping(scope Scope, element string, values []string, md []normalizer.Metadata) {
	addIssue(scope, normalizer.Error(normalizer.IssueTypeCodeInvalid).
		ID(normalizer.IssueConceptMapLookup).
		Diagnostics(fmt.Sprintf("Tenant source value '%s' has no target in any %s concept map for tenant '%s'",
			strings.Join(values, ", "), element, scope.Tenant)).
		At(scope.Location).
		Metadata(md...).
		Build())
}

func recordOutsideLegal(scope Scope, element string, codes, legal []string, md []normalizer.Metadata) {
	addIssue(scope, normalizer.Error(normalizer.IssueTypeValue).
		ID(normalizer.IssueConceptMapValueSet).
		Diagnostics(fmt.Sprintf("The %s concept map for tenant '%s' has a target '%s' outside the required values [%s]",
			element, scope.Tenant, strings.Join(codes, ", "), strings.Join(legal, ", "))).
		At(scope.Location).
		Metadata(md...).
		Build())
}

func addIssue(scope Scope, issue normalizer.Issue) {
	if scope.Result != nil {
		scope.Result.AddIssue(issue)
	}
}

func codesOf(cc *fhir.CodeableConcept) []string {
	var out []string
	for _, c := range cc.Coding {
		if c != nil {
			out = append(out, c.Code)
		}
	}
	return out
}

func anyCodeIn(cc *fhir.CodeableConcept, legal []string) bool {
	for _, c := range cc.Coding {
		if c == nil {
			continue
		}
		for _, l := range legal {
			if c.Code == l {
				return true
			}
		}
	}
	return false
}
