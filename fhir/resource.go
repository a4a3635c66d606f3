package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownResourceType is returned when a resourceType has no Go model.
var ErrUnknownResourceType = errors.New("unknown resource type")

var factories = map[string]func() Resource{
	TypeCondition:   func() Resource { return &Condition{} },
	TypeObservation: func() Resource { return &Observation{} },
	TypeAppointment: func() Resource { return &Appointment{} },
	TypePatient:     func() Resource { return &Patient{} },
}

// NewResource returns an empty resource of the given type.
func NewResource(resourceType string) (Resource, error) {
	f, ok := factories[resourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, resourceType)
	}
	return f(), nil
}

// SupportedResourceTypes returns the resource types that can be parsed, sorted.
func SupportedResourceTypes() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// resourceTypeProbe reads only the resourceType discriminator.
type resourceTypeProbe struct {
	ResourceType string `json:"resourceType"`
}

// ParseResource decodes a FHIR JSON resource into its Go model.
func ParseResource(data []byte) (Resource, error) {
	var probe resourceTypeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("reading resourceType: %w", err)
	}
	if probe.ResourceType == "" {
		return nil, errors.New("missing resourceType")
	}

	r, err := NewResource(probe.ResourceType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", probe.ResourceType, err)
	}
	return r, nil
}

// ContainedList holds inline resources. The tree mapper never descends into it.
type ContainedList []Resource

// UnmarshalJSON decodes modelled resource types and keeps any other type as a
// RawResource.
func (l *ContainedList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(ContainedList, 0, len(raws))
	for i, raw := range raws {
		r, err := ParseResource(raw)
		if errors.Is(err, ErrUnknownResourceType) {
			r, err = newRawResource(raw)
		}
		if err != nil {
			return fmt.Errorf("contained[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

// RawResource is a resource of a type without a Go model, held as received.
// It has no fields and encodes back to its original JSON.
type RawResource struct {
	Type string
	ID   string
	Data json.RawMessage
}

func newRawResource(data []byte) (*RawResource, error) {
	var head struct {
		ResourceType string `json:"resourceType"`
		ID           string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	return &RawResource{Type: head.ResourceType, ID: head.ID, Data: append(json.RawMessage(nil), data...)}, nil
}

func (r *RawResource) TypeName() string { return r.Type }
func (r *RawResource) ResourceType() string { return r.Type }
func (r *RawResource) GetID() string { return r.ID }
func (r *RawResource) GetExtension() []*Extension { return nil }
func (r *RawResource) Fields() []Field { return nil }
func (r *RawResource) WithField(string, any) Node { return r }
func (r *RawResource) MarshalJSON() ([]byte, error) { return r.Data, nil }

func appendContained(fs []Field, l ContainedList) []Field {
	if len(l) == 0 {
		return fs
	}
	return append(fs, Field{Name: "contained", Value: l})
}
