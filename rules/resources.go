package rules

import (
	"context"

	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/mapper"
	"github.com/gofhir/normalizer/pool"
)

func itemLocation(scope mapper.Scope, name string, i int) string {
	return pool.Item(scope.Location, name, i)
}

func (r *Rules) mapCondition(ctx context.Context, res fhir.Resource, scope mapper.Scope) (fhir.Resource, error) {
	c, ok := res.(*fhir.Condition)
	if !ok {
		return nil, wrongType(fhir.TypeCondition, res)
	}
	var out fhir.Node = c

	code, changed, err := r.mapConcept(ctx, scope.Child("code"), ElementConditionCode, c.Code, c)
	if err != nil {
		return nil, err
	}
	if changed {
		out = out.WithField("code", code)
	}

	categories, err := r.mapConcepts(ctx, scope, "category", ElementConditionCategory, c.Category, c)
	if err != nil {
		return nil, err
	}
	if categories != nil {
		out = out.WithField("category", categories)
	}
	return out.(fhir.Resource), nil
}

func (r *Rules) mapObservation(ctx context.Context, res fhir.Resource, scope mapper.Scope) (fhir.Resource, error) {
	o, ok := res.(*fhir.Observation)
	if !ok {
		return nil, wrongType(fhir.TypeObservation, res)
	}
	var out fhir.Node = o

	code, changed, err := r.mapConcept(ctx, scope.Child("code"), ElementObservationCode, o.Code, o)
	if err != nil {
		return nil, err
	}
	if changed {
		out = out.WithField("code", code)
	}

	if cc := o.Value.CodeableConcept(); cc != nil {
		value, changed, err := r.mapConcept(ctx, scope.Child(o.Value.PropertyName("value")), ElementObservationValue, cc, o)
		if err != nil {
			return nil, err
		}
		if changed {
			out = out.WithField("value", fhir.NewDynamicValue(value))
		}
	}
	return out.(fhir.Resource), nil
}

// mapComponent is the element mapper for Observation.component. A nil result
// leaves the component as it was.
func (r *Rules) mapComponent(ctx context.Context, n fhir.Node, resource fhir.Resource, scope mapper.Scope) (fhir.Node, error) {
	comp, ok := n.(*fhir.ObservationComponent)
	if !ok {
		return nil, wrongType(fhir.TypeObservationComponent, n)
	}
	var out fhir.Node = comp

	code, changed, err := r.mapConcept(ctx, scope.Child("code"), ElementComponentCode, comp.Code, resource)
	if err != nil {
		return nil, err
	}
	if changed {
		out = out.WithField("code", code)
	}

	if cc := comp.Value.CodeableConcept(); cc != nil {
		value, changed, err := r.mapConcept(ctx, scope.Child(comp.Value.PropertyName("value")), ElementComponentValue, cc, resource)
		if err != nil {
			return nil, err
		}
		if changed {
			out = out.WithField("value", fhir.NewDynamicValue(value))
		}
	}

	if out == fhir.Node(comp) {
		return nil, nil
	}
	return out, nil
}

func (r *Rules) mapAppointment(ctx context.Context, res fhir.Resource, scope mapper.Scope) (fhir.Resource, error) {
	a, ok := res.(*fhir.Appointment)
	if !ok {
		return nil, wrongType(fhir.TypeAppointment, res)
	}
	var out fhir.Node = a

	status, exts, ok, err := r.mapEnum(ctx, scope.Child("status"), ElementAppointmentStatus, a.Status,
		AppointmentStatuses, ExtOriginalAppointment, a)
	if err != nil {
		return nil, err
	}
	if ok {
		out = applyEnum(out, "status", a.Status, status, a.Extension, exts)
	}

	serviceTypes, err := r.mapConcepts(ctx, scope, "serviceType", ElementAppointmentServiceType, a.ServiceType, a)
	if err != nil {
		return nil, err
	}
	if serviceTypes != nil {
		out = out.WithField("serviceType", serviceTypes)
	}
	return out.(fhir.Resource), nil
}

func (r *Rules) mapPatient(ctx context.Context, res fhir.Resource, scope mapper.Scope) (fhir.Resource, error) {
	p, ok := res.(*fhir.Patient)
	if !ok {
		return nil, wrongType(fhir.TypePatient, res)
	}
	var out fhir.Node = p

	gender, exts, ok, err := r.mapEnum(ctx, scope.Child("gender"), ElementPatientGender, p.Gender,
		AdministrativeGenders, ExtOriginalGender, p)
	if err != nil {
		return nil, err
	}
	if ok {
		out = applyEnum(out, "gender", p.Gender, gender, p.Extension, exts)
	}

	marital, changed, err := r.mapConcept(ctx, scope.Child("maritalStatus"), ElementPatientMaritalStatus, p.MaritalStatus, p)
	if err != nil {
		return nil, err
	}
	if changed {
		out = out.WithField("maritalStatus", marital)
	}
	return out.(fhir.Resource), nil
}

// applyEnum writes a normalized primitive code and its extension list,
// touching only what changed.
func applyEnum(out fhir.Node, field, before, after string, extsBefore, extsAfter []*fhir.Extension) fhir.Node {
	if after != before {
		out = out.WithField(field, after)
	}
	if len(extsAfter) != len(extsBefore) {
		out = out.WithField("extension", extsAfter)
	}
	return out
}
