package fhir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const observationJSON = `{
  "resourceType": "Observation",
  "id": "obs-1",
  "status": "final",
  "code": {"coding": [{"system": "http://loinc.org", "code": "8867-4"}]},
  "effectiveDateTime": "2024-03-01T10:00:00Z",
  "contained": [{"resourceType": "Patient", "id": "p1", "gender": "female"}],
  "component": [
    {"code": {"text": "systolic"}, "valueQuantity": {"value": 120, "unit": "mmHg"}},
    {"code": {"text": "position"}, "valueCodeableConcept": {"coding": [{"code": "sitting"}]}}
  ]
}`

func TestParseResource_Observation(t *testing.T) {
	r, err := ParseResource([]byte(observationJSON))
	require.NoError(t, err)

	obs, ok := r.(*Observation)
	require.True(t, ok, "expected *Observation, got %T", r)

	assert.Equal(t, "obs-1", obs.GetID())
	assert.Equal(t, "Observation", obs.ResourceType())
	require.NotNil(t, obs.Effective)
	assert.Equal(t, "DateTime", obs.Effective.Type)
	assert.Equal(t, "2024-03-01T10:00:00Z", obs.Effective.Value)

	require.Len(t, obs.Component, 2)
	assert.Equal(t, "Quantity", obs.Component[0].Value.Type)
	cc := obs.Component[1].Value.CodeableConcept()
	require.NotNil(t, cc)
	assert.Equal(t, "sitting", cc.Coding[0].Code)

	require.Len(t, obs.Contained, 1)
	assert.Equal(t, "Patient", obs.Contained[0].ResourceType())
}

func TestMarshal_WritesChoiceSuffixAndResourceType(t *testing.T) {
	r, err := ParseResource([]byte(observationJSON))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "Observation", obj["resourceType"])
	assert.Equal(t, "2024-03-01T10:00:00Z", obj["effectiveDateTime"])

	components := obj["component"].([]any)
	second := components[1].(map[string]any)
	assert.Contains(t, second, "valueCodeableConcept")
	assert.NotContains(t, second, "value")

	contained := obj["contained"].([]any)
	assert.Equal(t, "Patient", contained[0].(map[string]any)["resourceType"])
}

func TestExtension_JSON(t *testing.T) {
	ext := NewExtension("http://example.org/original", &Coding{Code: "booked-ish"})

	data, err := json.Marshal(ext)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"http://example.org/original","valueCoding":{"code":"booked-ish"}}`, string(data))

	var back Extension
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ext.Equal(&back))
}

func TestParseResource_Errors(t *testing.T) {
	_, err := ParseResource([]byte(`{"id": "x"}`))
	assert.Error(t, err)

	_, err = ParseResource([]byte(`{"resourceType": "Encounter"}`))
	assert.True(t, errors.Is(err, ErrUnknownResourceType))

	_, err = ParseResource([]byte(`not json`))
	assert.Error(t, err)
}

func TestWithField_CopiesAndLeavesReceiver(t *testing.T) {
	code := &CodeableConcept{Text: "old"}
	subject := &Reference{Reference: "Patient/1"}
	cond := &Condition{ID: "c1", Code: code, Subject: subject}

	replacement := &CodeableConcept{Text: "new"}
	updated := cond.WithField("code", Node(replacement)).(*Condition)

	assert.Same(t, code, cond.Code, "receiver must not change")
	assert.Same(t, replacement, updated.Code)
	assert.Same(t, subject, updated.Subject, "untouched fields keep their reference")
	assert.NotSame(t, cond, updated)
}

func TestWithField_Collection(t *testing.T) {
	first := &ObservationComponent{Code: &CodeableConcept{Text: "a"}}
	second := &ObservationComponent{Code: &CodeableConcept{Text: "b"}}
	obs := &Observation{Component: []*ObservationComponent{first, second}}

	var components []Node
	for _, f := range obs.Fields() {
		if f.Name == "component" {
			components = f.Value.([]Node)
		}
	}
	require.Len(t, components, 2)

	replaced := &ObservationComponent{Code: &CodeableConcept{Text: "b2"}}
	components[1] = replaced
	updated := obs.WithField("component", components).(*Observation)

	assert.Same(t, first, updated.Component[0])
	assert.Same(t, replaced, updated.Component[1])
	assert.Same(t, second, obs.Component[1])
}

func TestFields_ReportsKinds(t *testing.T) {
	obs := &Observation{
		Status:    "final",
		Code:      &CodeableConcept{Text: "x"},
		Value:     NewDynamicValue(&CodeableConcept{Text: "y"}),
		Category:  []*CodeableConcept{{Text: "vital-signs"}},
		Contained: ContainedList{&Patient{ID: "p"}},
	}

	kinds := map[string]string{}
	for _, f := range obs.Fields() {
		switch f.Value.(type) {
		case Node:
			kinds[f.Name] = "node"
		case []Node:
			kinds[f.Name] = "collection"
		case *DynamicValue:
			kinds[f.Name] = "choice"
		case ContainedList:
			kinds[f.Name] = "contained"
		default:
			kinds[f.Name] = "primitive"
		}
	}

	assert.Equal(t, map[string]string{
		"status":    "primitive",
		"code":      "node",
		"value":     "choice",
		"category":  "collection",
		"contained": "contained",
	}, kinds)
}

func TestSplitChoiceName(t *testing.T) {
	tests := []struct {
		key        string
		wantBase   string
		wantSuffix string
		wantOK     bool
	}{
		{"valueCodeableConcept", "value", "CodeableConcept", true},
		{"effectiveDateTime", "effective", "DateTime", true},
		{"onsetPeriod", "onset", "Period", true},
		{"status", "status", "", false},
		{"String", "String", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			base, suffix, ok := SplitChoiceName(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantSuffix, suffix)
		})
	}
}

func TestCodeableConcept_Equal(t *testing.T) {
	a := &CodeableConcept{Coding: []*Coding{{System: "s", Code: "1"}}, Text: "t"}
	b := &CodeableConcept{Coding: []*Coding{{System: "s", Code: "1"}}, Text: "t"}
	c := &CodeableConcept{Coding: []*Coding{{System: "s", Code: "2"}}, Text: "t"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*CodeableConcept)(nil).Equal(nil))
}

func TestSupportedResourceTypes(t *testing.T) {
	assert.Equal(t, []string{"Appointment", "Condition", "Observation", "Patient"}, SupportedResourceTypes())
}

func TestRoundTrip_KeepsUnmodelledProperties(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			"patient demographics",
			`{"resourceType":"Patient","id":"p1","gender":"male",
			  "name":[{"family":"Doe","given":["John"]}],
			  "telecom":[{"system":"phone","value":"555-0100"}],
			  "address":[{"city":"Springfield"}],
			  "_gender":{"extension":[{"url":"http://example.org/source","valueString":"M"}]}}`,
		},
		{
			"condition with nested extensions and coding extras",
			`{"resourceType":"Condition","id":"c1",
			  "encounter":{"reference":"Encounter/e1"},
			  "abatementDateTime":"2024-02-01",
			  "note":[{"text":"resolved"}],
			  "code":{"coding":[{"system":"http://hl7.org/fhir/sid/icd-10","code":"R51",
			    "extension":[{"url":"http://example.org/rank","valueInteger":1}]}]},
			  "extension":[{"url":"http://example.org/outer",
			    "extension":[{"url":"inner","valueString":"x"}]}]}`,
		},
		{
			"observation with an unmodelled contained resource",
			`{"resourceType":"Observation","id":"o1","status":"final",
			  "contained":[{"resourceType":"Practitioner","id":"pr1","name":[{"family":"Who"}]}],
			  "issued":"2024-03-01T10:00:00Z",
			  "referenceRange":[{"low":{"value":1}}],
			  "component":[{"code":{"text":"a"},"valueQuantity":{"value":1,"unit":"mg","comparator":"<"}}]}`,
		},
		{
			"appointment participants",
			`{"resourceType":"Appointment","id":"a1","status":"booked",
			  "participant":[{"actor":{"reference":"Patient/p1"},"status":"accepted","period":{"start":"2024-01-01"}}],
			  "minutesDuration":30}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseResource([]byte(tt.json))
			require.NoError(t, err)

			data, err := json.Marshal(r)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))
		})
	}
}

func TestContained_UnmodelledTypeKeptRaw(t *testing.T) {
	r, err := ParseResource([]byte(`{"resourceType":"Observation",
		"contained":[{"resourceType":"Medication","id":"m1"},{"resourceType":"Patient","id":"p1"}]}`))
	require.NoError(t, err)

	obs := r.(*Observation)
	require.Len(t, obs.Contained, 2)
	raw, ok := obs.Contained[0].(*RawResource)
	require.True(t, ok, "expected *RawResource, got %T", obs.Contained[0])
	assert.Equal(t, "Medication", raw.ResourceType())
	assert.Equal(t, "m1", raw.GetID())
	assert.IsType(t, &Patient{}, obs.Contained[1])
}

func TestRoundTrip_ReplacedFieldWins(t *testing.T) {
	r, err := ParseResource([]byte(`{"resourceType":"Observation","id":"o1",
		"valueString":"high","note":[{"text":"keep"}]}`))
	require.NoError(t, err)

	updated := r.(*Observation).WithField("value", NewDynamicValue(&CodeableConcept{Text: "H"}))
	data, err := json.Marshal(updated)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resourceType":"Observation","id":"o1",
		"valueCodeableConcept":{"text":"H"},"note":[{"text":"keep"}]}`, string(data))
}
