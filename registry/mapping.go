package registry

import (
	"context"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/service"
)

// ConceptMapping is the outcome of MapConcept. A nil Concept means no target
// was found; Metadata still names the concept maps that were searched.
type ConceptMapping struct {
	Concept   *fhir.CodeableConcept
	Extension *fhir.Extension
	Metadata  []normalizer.Metadata

	// Unchanged is set when the input was already canonical.
	Unchanged bool
}

// Found reports whether a target concept was resolved.
func (m ConceptMapping) Found() bool {
	return m.Concept != nil
}

// Apply returns the concept to store: the input when unchanged, otherwise
// the replacement carrying the provenance extension.
func (m ConceptMapping) Apply() *fhir.CodeableConcept {
	if m.Concept == nil || m.Unchanged || m.Extension == nil {
		return m.Concept
	}
	exts, added := fhir.EnsureExtension(m.Concept.Extension, m.Extension)
	if !added {
		return m.Concept
	}
	cp := *m.Concept
	cp.Extension = exts
	return &cp
}

// CodeMapping is the outcome of MapCode and MapCodeAgainstEnum.
type CodeMapping struct {
	Coding    *fhir.Coding
	Extension *fhir.Extension
	Metadata  []normalizer.Metadata
	Unchanged bool

	// InEnum reports whether the resulting code is one of the legal values.
	// Only set by MapCodeAgainstEnum.
	InEnum bool
}

// Found reports whether a target code was resolved.
func (m CodeMapping) Found() bool {
	return m.Coding != nil
}

// Code returns the resulting code, or "".
func (m CodeMapping) Code() string {
	if m.Coding == nil {
		return ""
	}
	return m.Coding.Code
}

// ValueSetResult is the outcome of a value-set lookup.
type ValueSetResult struct {
	Codes    []TargetValue         `json:"codes"`
	Metadata []normalizer.Metadata `json:"metadata,omitempty"`
}

// CodeValues returns the codes alone.
func (v ValueSetResult) CodeValues() []string {
	out := make([]string, len(v.Codes))
	for i, c := range v.Codes {
		out[i] = c.Code
	}
	return out
}

// MapConcept resolves cc through the tenant's concept map for element.
// Depends-on clauses are evaluated against resource.
func (r *Registry) MapConcept(ctx context.Context, tenant, element string, cc *fhir.CodeableConcept, resource fhir.Resource, force *time.Time) (ConceptMapping, error) {
	if tenant == "" {
		return ConceptMapping{}, ErrTenantRequired
	}
	item, err := r.conceptMapItem(ctx, tenant, element, force)
	if err != nil {
		return ConceptMapping{}, err
	}

	out := ConceptMapping{Metadata: item.Metadata}
	src := SourceFromConcept(cc)
	if src.IsEmpty() {
		r.metrics.RecordLookup(element, false)
		return out, nil
	}

	target, err := r.selectTarget(ctx, tenant, element, src, item.Candidates(src), resource)
	if err != nil {
		return out, err
	}

	switch {
	case target == nil && item.IsTarget(src):
		out.Concept = cc
		out.Unchanged = true
	case target == nil:
		r.metrics.RecordLookup(element, false)
		return out, nil
	case target.source().Key() == src.Key():
		out.Concept = cc
		out.Unchanged = true
	default:
		out.Concept = target.CodeableConcept()
		if item.SourceExtensionURL != "" {
			out.Extension = fhir.NewExtension(item.SourceExtensionURL, cc)
		}
	}
	r.metrics.RecordLookup(element, true)
	return out, nil
}

// MapCode resolves a bare code. The target concept must hold exactly one
// value; anything else is treated as no match.
func (r *Registry) MapCode(ctx context.Context, tenant, element, code string, resource fhir.Resource, force *time.Time) (CodeMapping, error) {
	return r.mapCode(ctx, tenant, element, code, "", resource, force)
}

// MapCodeAgainstEnum resolves code for an element restricted to enum. A code
// that is already legal is returned as is, with an extension under
// extensionURL recording it. Otherwise the concept map decides.
func (r *Registry) MapCodeAgainstEnum(ctx context.Context, tenant, element, code string, enum []string, extensionURL string, resource fhir.Resource, force *time.Time) (CodeMapping, error) {
	if containsString(enum, code) {
		if tenant == "" {
			return CodeMapping{}, ErrTenantRequired
		}
		r.metrics.RecordLookup(element, true)
		out := CodeMapping{
			Coding:    &fhir.Coding{Code: code},
			Unchanged: true,
			InEnum:    true,
		}
		if extensionURL != "" {
			out.Extension = fhir.NewExtension(extensionURL, &fhir.Coding{Code: code})
		}
		return out, nil
	}

	out, err := r.mapCode(ctx, tenant, element, code, extensionURL, resource, force)
	if err != nil {
		return out, err
	}
	out.InEnum = out.Coding != nil && containsString(enum, out.Coding.Code)
	return out, nil
}

func (r *Registry) mapCode(ctx context.Context, tenant, element, code, fallbackURL string, resource fhir.Resource, force *time.Time) (CodeMapping, error) {
	if tenant == "" {
		return CodeMapping{}, ErrTenantRequired
	}
	item, err := r.conceptMapItem(ctx, tenant, element, force)
	if err != nil {
		return CodeMapping{}, err
	}

	out := CodeMapping{Metadata: item.Metadata}
	if code == "" {
		r.metrics.RecordLookup(element, false)
		return out, nil
	}
	src := NewSourceConcept(SourceKey{Value: code})

	target, err := r.selectTarget(ctx, tenant, element, src, item.Candidates(src), resource)
	if err != nil {
		return out, err
	}

	switch {
	case target == nil && item.HasTargetCode(code):
		out.Coding = &fhir.Coding{Code: code}
		out.Unchanged = true
	case target == nil || len(target.Values) != 1:
		r.metrics.RecordLookup(element, false)
		return out, nil
	case target.Values[0].Code == code:
		out.Coding = target.Values[0].Coding()
		out.Unchanged = true
	default:
		out.Coding = target.Values[0].Coding()
		url := item.SourceExtensionURL
		if url == "" {
			url = fallbackURL
		}
		if url != "" {
			out.Extension = fhir.NewExtension(url, &fhir.Coding{Code: code})
		}
	}
	r.metrics.RecordLookup(element, true)
	return out, nil
}

// selectTarget filters candidates by their depends-on clauses. Clause-free
// candidates always qualify. More than one qualifying candidate is an error.
func (r *Registry) selectTarget(ctx context.Context, tenant, element string, src SourceConcept, candidates []*TargetConcept, resource fhir.Resource) (*TargetConcept, error) {
	var matched []*TargetConcept
	for _, c := range candidates {
		clauses := c.DependsOn()
		if len(clauses) == 0 {
			matched = append(matched, c)
			continue
		}
		ok, err := r.dependsOnHolds(ctx, element, resource, clauses)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, c)
		}
	}

	switch len(matched) {
	case 0:
		return nil, nil
	case 1:
		return matched[0], nil
	default:
		return nil, &AmbiguousMappingError{
			Tenant:     tenant,
			Element:    element,
			Source:     src.String(),
			Candidates: len(matched),
		}
	}
}

func (r *Registry) dependsOnHolds(ctx context.Context, element string, resource fhir.Resource, clauses []service.DependsOn) (bool, error) {
	if resource == nil {
		r.log.Warn().Str("element", element).Msg("depends-on clauses without a resource, candidate skipped")
		return false, nil
	}
	eval, ok := r.evaluator(resource.ResourceType())
	if !ok {
		r.log.Warn().
			Str("element", element).
			Str("resource_type", resource.ResourceType()).
			Msg("no depends-on evaluator, candidate skipped")
		return false, nil
	}
	return eval.Evaluate(ctx, resource, clauses)
}

// ValueSet returns the codes registered for element under profileURL. An
// empty result is not an error.
func (r *Registry) ValueSet(ctx context.Context, element, profileURL string, force *time.Time) (ValueSetResult, error) {
	if profileURL == "" {
		return ValueSetResult{}, ErrProfileRequired
	}
	item, err := r.valueSetItem(ctx, element, profileURL, force)
	if err != nil {
		return ValueSetResult{}, err
	}
	r.metrics.RecordLookup(element, len(item.Codes) > 0)
	return ValueSetResult{Codes: item.Codes, Metadata: item.Metadata}, nil
}

// RequiredValueSet is ValueSet for content that must exist: an empty result
// is returned as a *MissingContentError.
func (r *Registry) RequiredValueSet(ctx context.Context, element, profileURL string, force *time.Time) (ValueSetResult, error) {
	res, err := r.ValueSet(ctx, element, profileURL, force)
	if err != nil {
		return res, err
	}
	if len(res.Codes) == 0 {
		return res, &MissingContentError{Element: element, ProfileURL: profileURL}
	}
	return res, nil
}
