package registry

import (
	"encoding/json"
	"fmt"

	"github.com/gofhir/fhir/r4"

	normalizer "github.com/gofhir/normalizer"
)

// ValueSetItem is the code list registered for one (element, profile).
type ValueSetItem struct {
	Codes    []TargetValue
	Metadata []normalizer.Metadata
}

// Contains reports whether code is one of the item's codes.
func (v *ValueSetItem) Contains(code string) bool {
	if v == nil {
		return false
	}
	for _, c := range v.Codes {
		if c.Code == code {
			return true
		}
	}
	return false
}

// parseValueSet decodes a FHIR ValueSet payload. The expansion is preferred;
// without one the explicitly listed compose concepts are used.
func parseValueSet(data []byte) ([]TargetValue, error) {
	var vs r4.ValueSet
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, fmt.Errorf("decoding value set: %w", err)
	}

	var codes []TargetValue
	if vs.Expansion != nil && len(vs.Expansion.Contains) > 0 {
		for i := range vs.Expansion.Contains {
			codes = appendContains(codes, &vs.Expansion.Contains[i])
		}
		return codes, nil
	}

	if vs.Compose != nil {
		for i := range vs.Compose.Include {
			include := &vs.Compose.Include[i]
			system := ""
			if include.System != nil {
				system = CanonicalSystem(*include.System)
			}
			for j := range include.Concept {
				concept := &include.Concept[j]
				if concept.Code == nil {
					continue
				}
				codes = append(codes, TargetValue{
					Code:    *concept.Code,
					System:  system,
					Display: deref(concept.Display),
				})
			}
		}
	}
	return codes, nil
}

func appendContains(codes []TargetValue, contains *r4.ValueSetExpansionContains) []TargetValue {
	if contains.Code != nil {
		codes = append(codes, TargetValue{
			Code:    *contains.Code,
			System:  CanonicalSystem(deref(contains.System)),
			Display: deref(contains.Display),
		})
	}
	for i := range contains.Contains {
		codes = appendContains(codes, &contains.Contains[i])
	}
	return codes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
