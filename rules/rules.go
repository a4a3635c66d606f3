// Package rules holds the concrete normalization rules: one resource mapper
// per supported resource type and element mappers for nested types.
package rules

import (
	"context"
	"fmt"

	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/mapper"
)

// Provenance extension URLs for primitive codes, recorded on the resource.
const (
	ExtensionBase          = "https://gofhir.io/fhir/StructureDefinition/"
	ExtOriginalAppointment = ExtensionBase + "original-appointment-status"
	ExtOriginalGender      = ExtensionBase + "original-administrative-gender"
)

// Data elements looked up in the registry.
const (
	ElementConditionCode          = "Condition.code"
	ElementConditionCategory      = "Condition.category"
	ElementObservationCode        = "Observation.code"
	ElementObservationValue       = "Observation.valueCodeableConcept"
	ElementComponentCode          = "Observation.component.code"
	ElementComponentValue         = "Observation.component.valueCodeableConcept"
	ElementAppointmentStatus      = "Appointment.status"
	ElementAppointmentServiceType = "Appointment.serviceType"
	ElementPatientGender          = "Patient.gender"
	ElementPatientMaritalStatus   = "Patient.maritalStatus"
)

var (
	// AppointmentStatuses are the legal Appointment.status codes.
	AppointmentStatuses = []string{
		"proposed", "pending", "booked", "arrived", "fulfilled",
		"cancelled", "noshow", "entered-in-error", "checked-in", "waitlist",
	}

	// AdministrativeGenders are the legal Patient.gender codes.
	AdministrativeGenders = []string{"male", "female", "other", "unknown"}
)

// Option configures Rules.
type Option func(*Rules)

// WithProfile restricts element to the value set registered under profileURL.
// Mapped concepts outside it are reported.
func WithProfile(element, profileURL string) Option {
	return func(r *Rules) {
		r.profiles[element] = profileURL
	}
}

// Rules builds the mappers over one registry.
type Rules struct {
	base     mapper.Base
	profiles map[string]string
}

// New creates the rule set.
func New(lookup mapper.Lookup, opts ...Option) *Rules {
	r := &Rules{
		base:     mapper.NewBase(lookup),
		profiles: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResourceMappers returns one mapper per supported resource type.
func (r *Rules) ResourceMappers() []mapper.ResourceMapper {
	return []mapper.ResourceMapper{
		mapper.ResourceMapperFunc{Type: fhir.TypeCondition, Fn: r.mapCondition},
		mapper.ResourceMapperFunc{Type: fhir.TypeObservation, Fn: r.mapObservation},
		mapper.ResourceMapperFunc{Type: fhir.TypeAppointment, Fn: r.mapAppointment},
		mapper.ResourceMapperFunc{Type: fhir.TypePatient, Fn: r.mapPatient},
	}
}

// ElementMappers returns the mappers for nested element types.
func (r *Rules) ElementMappers() []mapper.ElementMapper {
	return []mapper.ElementMapper{
		mapper.ElementMapperFunc{Type: fhir.TypeObservationComponent, Fn: r.mapComponent},
	}
}

// mapConcept returns the normalized concept and whether it differs from cc.
func (r *Rules) mapConcept(ctx context.Context, scope mapper.Scope, element string, cc *fhir.CodeableConcept, resource fhir.Resource) (*fhir.CodeableConcept, bool, error) {
	if cc == nil {
		return nil, false, nil
	}
	legal, err := r.base.LegalCodes(ctx, scope, element, r.profiles[element])
	if err != nil {
		return nil, false, err
	}
	out, err := r.base.LookupConceptMapping(ctx, scope, element, cc, resource, legal)
	if err != nil {
		return nil, false, err
	}
	if out == nil || out == cc {
		return cc, false, nil
	}
	return out, true, nil
}

// mapConcepts maps a collection, returning nil when no item changed.
func (r *Rules) mapConcepts(ctx context.Context, scope mapper.Scope, name, element string, ccs []*fhir.CodeableConcept, resource fhir.Resource) ([]*fhir.CodeableConcept, error) {
	var out []*fhir.CodeableConcept
	for i, cc := range ccs {
		mapped, changed, err := r.mapConcept(ctx, scope.At(itemLocation(scope, name, i)), element, cc, resource)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		if out == nil {
			out = make([]*fhir.CodeableConcept, len(ccs))
			copy(out, ccs)
		}
		out[i] = mapped
	}
	return out, nil
}

// mapEnum normalizes a primitive code restricted to enum, recording the
// original under extURL on the resource. It returns the new code and
// extension list, or ok=false when the resource should keep its value.
func (r *Rules) mapEnum(ctx context.Context, scope mapper.Scope, element, code string, enum []string, extURL string, resource fhir.Resource) (string, []*fhir.Extension, bool, error) {
	if code == "" {
		return code, nil, false, nil
	}
	m, err := r.base.LookupConceptMappingForEnum(ctx, scope, element, code, enum, extURL, resource)
	if err != nil {
		return code, nil, false, err
	}
	if !m.InEnum {
		return code, nil, false, nil
	}
	exts, _ := fhir.EnsureExtension(resource.GetExtension(), m.Extension)
	return m.Code(), exts, true, nil
}

func wrongType(want string, got fhir.Node) error {
	return fmt.Errorf("%s mapper received %T", want, got)
}
