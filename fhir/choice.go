package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DynamicValue holds the value of a polymorphic value[x] property.
// Type is the FHIR JSON suffix of the held type, e.g. "CodeableConcept" or
// "String". Value is a Node for structured types and a Go primitive
// (string, bool, int64, float64) otherwise. Types this package does not model
// are kept as json.RawMessage.
type DynamicValue struct {
	Type  string
	Value any
}

// NewDynamicValue wraps v, deriving the type suffix from the concrete Node.
func NewDynamicValue(v Node) *DynamicValue {
	if v == nil {
		return nil
	}
	return &DynamicValue{Type: v.TypeName(), Value: v}
}

// Node returns the held value when it is structured.
func (d *DynamicValue) Node() (Node, bool) {
	if d == nil {
		return nil, false
	}
	n, ok := d.Value.(Node)
	return n, ok && n != nil
}

// CodeableConcept returns the held CodeableConcept, or nil.
func (d *DynamicValue) CodeableConcept() *CodeableConcept {
	if d == nil {
		return nil
	}
	cc, _ := d.Value.(*CodeableConcept)
	return cc
}

// Coding returns the held Coding, or nil.
func (d *DynamicValue) Coding() *Coding {
	if d == nil {
		return nil
	}
	c, _ := d.Value.(*Coding)
	return c
}

// PropertyName returns the FHIR JSON property name for base, e.g.
// "valueCodeableConcept" for base "value".
func (d *DynamicValue) PropertyName(base string) string {
	if d == nil || d.Type == "" {
		return base
	}
	return base + d.Type
}

// ChoiceTypeSuffixes contains the valid suffixes for value[x] properties.
// When encountering valueString, valueCodeableConcept, etc. the suffix names
// the held type.
var ChoiceTypeSuffixes = []string{
	// Primitives
	"String",
	"Boolean",
	"Integer",
	"Integer64",
	"Decimal",
	"DateTime",
	"Date",
	"Time",
	"Instant",
	"Uri",
	"Url",
	"Canonical",
	"Code",
	"Id",
	"Markdown",
	"Base64Binary",
	"Oid",
	"Uuid",
	"PositiveInt",
	"UnsignedInt",

	// Complex types
	"Address",
	"Age",
	"Annotation",
	"Attachment",
	"CodeableConcept",
	"Coding",
	"ContactPoint",
	"Duration",
	"HumanName",
	"Identifier",
	"Meta",
	"Money",
	"Period",
	"Quantity",
	"Range",
	"Ratio",
	"Reference",
	"SampledData",
	"Signature",
	"Timing",
}

// newChoiceTarget returns a pointer to decode a JSON value of the given suffix into.
func newChoiceTarget(suffix string) any {
	switch suffix {
	case "CodeableConcept":
		return &CodeableConcept{}
	case "Coding":
		return &Coding{}
	case "Reference":
		return &Reference{}
	case "Identifier":
		return &Identifier{}
	case "Period":
		return &Period{}
	case "Quantity", "Age", "Duration":
		return &Quantity{}
	case "Meta":
		return &Meta{}
	case "Boolean":
		return new(bool)
	case "Integer", "Integer64", "PositiveInt", "UnsignedInt":
		return new(int64)
	case "Decimal":
		return new(float64)
	case "String", "DateTime", "Date", "Time", "Instant", "Uri", "Url", "Canonical",
		"Code", "Id", "Markdown", "Base64Binary", "Oid", "Uuid":
		return new(string)
	}
	return new(json.RawMessage)
}

// deref turns a decode target back into the value stored in a DynamicValue.
func deref(target any) any {
	switch v := target.(type) {
	case *bool:
		return *v
	case *int64:
		return *v
	case *float64:
		return *v
	case *string:
		return *v
	case *json.RawMessage:
		return *v
	}
	return target
}

// decodeChoice finds the "<base><Suffix>" property in raw and decodes it.
// It returns nil when the object carries no such property.
func decodeChoice(raw map[string]json.RawMessage, base string) (*DynamicValue, error) {
	for _, suffix := range ChoiceTypeSuffixes {
		data, ok := raw[base+suffix]
		if !ok {
			continue
		}
		target := newChoiceTarget(suffix)
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("decoding %s%s: %w", base, suffix, err)
		}
		return &DynamicValue{Type: suffix, Value: deref(target)}, nil
	}
	return nil, nil
}

// SplitChoiceName splits a FHIR JSON property such as "valueCodeableConcept"
// into its base name and type suffix. ok is false for non-choice names.
func SplitChoiceName(key string) (base, suffix string, ok bool) {
	for _, s := range ChoiceTypeSuffixes {
		if strings.HasSuffix(key, s) && len(key) > len(s) {
			return key[:len(key)-len(s)], s, true
		}
	}
	return key, "", false
}
