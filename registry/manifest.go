package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	normalizer "github.com/gofhir/normalizer"
)

// EntryKind distinguishes concept-map entries from value-set entries.
type EntryKind string

const (
	KindConceptMap EntryKind = "concept_map"
	KindValueSet   EntryKind = "value_set"
)

// ManifestEntry describes one registry document. Entries are immutable once
// parsed; a reload replaces the whole list.
type ManifestEntry struct {
	Kind               EntryKind           `json:"kind"`
	DataElement        string              `json:"dataElement"`
	Filename           string              `json:"filename"`
	Version            string              `json:"version,omitempty"`
	TenantID           string              `json:"tenantId,omitempty"`
	ProfileURL         string              `json:"profileUrl,omitempty"`
	SourceExtensionURL string              `json:"sourceExtensionUrl,omitempty"`
	Metadata           normalizer.Metadata `json:"metadata"`
}

// manifestRow is the wire form of a manifest entry.
type manifestRow struct {
	RegistryUUID       string `json:"registry_uuid"`
	RegistryEntryType  string `json:"registry_entry_type"`
	DataElement        string `json:"data_element"`
	Filename           string `json:"filename"`
	Version            string `json:"version"`
	TenantID           string `json:"tenant_id"`
	ProfileURL         string `json:"profile_url"`
	SourceExtensionURL string `json:"source_extension_url"`
	ConceptMapName     string `json:"concept_map_name"`
	ConceptMapUUID     string `json:"concept_map_uuid"`
	ValueSetName       string `json:"value_set_name"`
	ValueSetUUID       string `json:"value_set_uuid"`
}

// ParseManifest decodes a manifest document. Rows that cannot be used are
// dropped and logged; only a malformed document is an error.
func ParseManifest(data []byte, log zerolog.Logger) ([]ManifestEntry, error) {
	var rows []manifestRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	entries := make([]ManifestEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := row.entry()
		if err != nil {
			log.Warn().Err(err).
				Int("row", i).
				Str("filename", row.Filename).
				Msg("dropping manifest entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r manifestRow) entry() (ManifestEntry, error) {
	e := ManifestEntry{
		DataElement:        strings.TrimSpace(r.DataElement),
		Filename:           strings.TrimSpace(r.Filename),
		Version:            r.Version,
		TenantID:           strings.TrimSpace(r.TenantID),
		ProfileURL:         strings.TrimSpace(r.ProfileURL),
		SourceExtensionURL: strings.TrimSpace(r.SourceExtensionURL),
	}
	if e.DataElement == "" {
		return e, fmt.Errorf("missing data_element")
	}
	if e.Filename == "" {
		return e, fmt.Errorf("missing filename")
	}

	var name, id string
	switch kind := EntryKind(strings.ToLower(strings.TrimSpace(r.RegistryEntryType))); kind {
	case KindConceptMap:
		e.Kind = kind
		name, id = r.ConceptMapName, r.ConceptMapUUID
	case KindValueSet:
		e.Kind = kind
		name, id = r.ValueSetName, r.ValueSetUUID
	default:
		return e, fmt.Errorf("unknown registry_entry_type %q", r.RegistryEntryType)
	}

	if id == "" {
		id = r.RegistryUUID
	}
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return e, fmt.Errorf("invalid uuid %q: %w", id, err)
		}
		id = parsed.String()
	}

	e.Metadata = normalizer.Metadata{
		RegistryEntryType: string(e.Kind),
		Name:              name,
		UUID:              id,
		Version:           r.Version,
	}
	return e, nil
}

// appliesTo reports whether the entry serves tenant. Entries without a
// tenant serve every tenant.
func (e ManifestEntry) appliesTo(tenant string) bool {
	return e.TenantID == "" || e.TenantID == tenant
}
