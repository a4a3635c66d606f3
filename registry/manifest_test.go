package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/normalizer/pkg/logger"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`[
		{"registry_entry_type": "concept_map", "data_element": "Condition.code", "filename": "a.json",
		 "tenant_id": " tenantA ", "source_extension_url": "http://example.org/ext", "version": "2",
		 "concept_map_name": "Conditions", "concept_map_uuid": "1B4E28BA-2FA1-11D2-883F-0016D3CCA427"},
		{"registry_entry_type": "VALUE_SET", "data_element": "Condition.code", "filename": "vs.json",
		 "profile_url": "http://example.org/profile", "registry_uuid": "2b4e28ba-2fa1-11d2-883f-0016d3cca427"},
		{"registry_entry_type": "concept_map", "data_element": "Condition.code", "filename": "bad-uuid.json",
		 "concept_map_uuid": "not-a-uuid"},
		{"registry_entry_type": "concept_map", "filename": "no-element.json"},
		{"registry_entry_type": "concept_map", "data_element": "Condition.code"},
		{"registry_entry_type": "naming_system", "data_element": "Condition.code", "filename": "x.json"}
	]`)

	entries, err := ParseManifest(data, logger.Nop())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	cm := entries[0]
	assert.Equal(t, KindConceptMap, cm.Kind)
	assert.Equal(t, "tenantA", cm.TenantID)
	assert.Equal(t, "http://example.org/ext", cm.SourceExtensionURL)
	assert.Equal(t, "Conditions", cm.Metadata.Name)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", cm.Metadata.UUID)
	assert.Equal(t, "2", cm.Metadata.Version)
	assert.True(t, cm.appliesTo("tenantA"))
	assert.False(t, cm.appliesTo("tenantB"))

	vs := entries[1]
	assert.Equal(t, KindValueSet, vs.Kind)
	assert.Equal(t, "2b4e28ba-2fa1-11d2-883f-0016d3cca427", vs.Metadata.UUID)
	assert.True(t, vs.appliesTo("anyone"))
}

func TestParseManifest_Malformed(t *testing.T) {
	_, err := ParseManifest([]byte(`{"not": "a list"}`), logger.Nop())
	assert.Error(t, err)
}

func TestCanonicalSystem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"urn:oid:2.16.840.1.113883.6.96", SystemSNOMED},
		{"URN:OID:2.16.840.1.113883.6.96", SystemSNOMED},
		{"http://snomed.info/sct/", SystemSNOMED},
		{" SNOMED ", SystemSNOMED},
		{"urn:oid:2.16.840.1.113883.6.90", SystemICD10CM},
		{"urn:oid:2.16.840.1.113883.6.1", SystemLOINC},
		{"2.16.840.1.113883.12.292", SystemCVX},
		{"http://example.org/local/", "http://example.org/local"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalSystem(tt.in))
		})
	}
}

func TestSourceConcept_SetSemantics(t *testing.T) {
	a := NewSourceConcept(
		SourceKey{Value: "R51", System: "urn:oid:2.16.840.1.113883.6.3"},
		SourceKey{Value: "25064002", System: SystemSNOMED},
	)
	b := NewSourceConcept(
		SourceKey{Value: "25064002", System: "snomed"},
		SourceKey{Value: "R51", System: SystemICD10},
		SourceKey{Value: "R51", System: SystemICD10 + "/"},
	)
	assert.Equal(t, a.Key(), b.Key(), "order, aliases and duplicates do not matter")

	c := NewSourceConcept(SourceKey{Value: "R51", System: SystemICD10})
	assert.NotEqual(t, a.Key(), c.Key())
	// ICD-10 sorts before SNOMED CT by canonical system.
	assert.Equal(t, []string{"R51", "25064002"}, a.Values())
}
