package fhir

import (
	"encoding/json"
	"fmt"
)

// Extra holds the properties of a JSON object that the Go model does not
// declare. They are written back unchanged on encode, so values the
// normalizer does not touch survive a parse and marshal round trip.
type Extra map[string]json.RawMessage

// decodeObject decodes data into v, an alias of the model type, and returns
// the raw object along with the properties v left unread. Properties named
// <base><Suffix> for one of choiceBases belong to decodeChoice and are not
// reported.
func decodeObject(data []byte, v any, choiceBases ...string) (map[string]json.RawMessage, Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, nil, err
	}
	raw, err := rawObject(data)
	if err != nil {
		return nil, nil, err
	}
	modelled, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	known, err := rawObject(modelled)
	if err != nil {
		return nil, nil, err
	}

	var extra Extra
	for name, value := range raw {
		if _, ok := known[name]; ok || name == "resourceType" || isChoiceProperty(name, choiceBases) {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[name] = value
	}
	return raw, extra, nil
}

func isChoiceProperty(name string, bases []string) bool {
	for _, base := range bases {
		if len(name) <= len(base) || name[:len(base)] != base {
			continue
		}
		for _, suffix := range ChoiceTypeSuffixes {
			if name[len(base):] == suffix {
				return true
			}
		}
	}
	return false
}

// encodeObject marshals v and adds each non-nil choice under its suffixed
// property name. A non-empty resourceType is written too. Extra properties
// are added only where the model did not write the same name.
func encodeObject(resourceType string, v any, choices map[string]*DynamicValue, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if resourceType == "" && len(extra) == 0 && !hasChoice(choices) {
		return data, nil
	}

	obj, err := rawObject(data)
	if err != nil {
		return nil, err
	}
	if resourceType != "" {
		rt, err := json.Marshal(resourceType)
		if err != nil {
			return nil, err
		}
		obj["resourceType"] = rt
	}
	for base, dv := range choices {
		if dv == nil || dv.Type == "" {
			continue
		}
		enc, err := json.Marshal(dv.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", dv.PropertyName(base), err)
		}
		obj[dv.PropertyName(base)] = enc
	}
	for name, value := range extra {
		if _, ok := obj[name]; !ok {
			obj[name] = value
		}
	}
	return json.Marshal(obj)
}

func hasChoice(choices map[string]*DynamicValue) bool {
	for _, dv := range choices {
		if dv != nil {
			return true
		}
	}
	return false
}
