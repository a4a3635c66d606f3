package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/pool"
	"github.com/gofhir/normalizer/service"
)

// SourceKey is one (value, system) pair of a source concept. System is the
// canonical system URI, empty when the source has none.
type SourceKey struct {
	Value  string
	System string
}

func (k SourceKey) String() string {
	if k.System == "" {
		return k.Value
	}
	return k.System + "|" + k.Value
}

// SourceConcept is the set of keys identifying a source concept. Two source
// concepts match only when their sets are equal.
type SourceConcept struct {
	Keys []SourceKey
}

// NewSourceConcept canonicalizes systems, drops duplicates and orders keys.
func NewSourceConcept(keys ...SourceKey) SourceConcept {
	seen := make(map[SourceKey]struct{}, len(keys))
	out := make([]SourceKey, 0, len(keys))
	for _, k := range keys {
		k.System = CanonicalSystem(k.System)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].System != out[j].System {
			return out[i].System < out[j].System
		}
		return out[i].Value < out[j].Value
	})
	return SourceConcept{Keys: out}
}

// SourceFromConcept builds the source concept of a CodeableConcept: its
// codings, or its text when it has none.
func SourceFromConcept(cc *fhir.CodeableConcept) SourceConcept {
	if cc == nil {
		return SourceConcept{}
	}
	var keys []SourceKey
	for _, c := range cc.Coding {
		if c == nil || c.Code == "" {
			continue
		}
		keys = append(keys, SourceKey{Value: c.Code, System: c.System})
	}
	if len(keys) == 0 && cc.Text != "" {
		keys = append(keys, SourceKey{Value: cc.Text})
	}
	return NewSourceConcept(keys...)
}

// Key returns the canonical string used to index the set.
func (s SourceConcept) Key() string {
	buf := pool.AcquireBuffer()
	defer pool.ReleaseBuffer(buf)

	b := *buf
	for i, k := range s.Keys {
		if i > 0 {
			b = append(b, '\x1e')
		}
		b = append(b, k.System...)
		b = append(b, 0)
		b = append(b, k.Value...)
	}
	*buf = b
	return string(b)
}

// IsEmpty reports whether the concept has no keys.
func (s SourceConcept) IsEmpty() bool {
	return len(s.Keys) == 0
}

// Values returns the source values in key order.
func (s SourceConcept) Values() []string {
	out := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		out[i] = k.Value
	}
	return out
}

func (s SourceConcept) String() string {
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		parts[i] = k.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TargetValue is one canonical code of a target concept.
type TargetValue struct {
	Code      string              `json:"code"`
	System    string              `json:"system,omitempty"`
	Display   string              `json:"display,omitempty"`
	Version   string              `json:"version,omitempty"`
	DependsOn []service.DependsOn `json:"dependsOn,omitempty"`
}

// Coding returns the value as a coding.
func (v TargetValue) Coding() *fhir.Coding {
	return &fhir.Coding{System: v.System, Code: v.Code, Display: v.Display, Version: v.Version}
}

// TargetConcept is a canonical concept a source maps onto.
type TargetConcept struct {
	Values []TargetValue
	Text   string
}

// DependsOn returns the union of the clauses of every value.
func (t *TargetConcept) DependsOn() []service.DependsOn {
	var out []service.DependsOn
	seen := make(map[service.DependsOn]struct{})
	for _, v := range t.Values {
		for _, d := range v.DependsOn {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// CodeableConcept builds the replacement concept: target codings only, with
// the target text.
func (t *TargetConcept) CodeableConcept() *fhir.CodeableConcept {
	cc := &fhir.CodeableConcept{Text: t.Text}
	for _, v := range t.Values {
		cc.Coding = append(cc.Coding, v.Coding())
	}
	return cc
}

func (t *TargetConcept) source() SourceConcept {
	keys := make([]SourceKey, len(t.Values))
	for i, v := range t.Values {
		keys[i] = SourceKey{Value: v.Code, System: v.System}
	}
	return NewSourceConcept(keys...)
}

// ConceptMapItem is the merged concept map for one (tenant, element).
type ConceptMapItem struct {
	SourceExtensionURL string
	Metadata           []normalizer.Metadata

	sources map[string][]*TargetConcept
	targets map[string]struct{}
	codes   map[string]struct{}
}

func newConceptMapItem() *ConceptMapItem {
	return &ConceptMapItem{
		sources: make(map[string][]*TargetConcept),
		targets: make(map[string]struct{}),
		codes:   make(map[string]struct{}),
	}
}

func (m *ConceptMapItem) add(src SourceConcept, target *TargetConcept) {
	if src.IsEmpty() || len(target.Values) == 0 {
		return
	}
	m.sources[src.Key()] = append(m.sources[src.Key()], target)

	m.targets[target.source().Key()] = struct{}{}
	for _, v := range target.Values {
		m.codes[v.Code] = struct{}{}
	}
}

// Candidates returns the target concepts registered for src.
func (m *ConceptMapItem) Candidates(src SourceConcept) []*TargetConcept {
	if m == nil {
		return nil
	}
	return m.sources[src.Key()]
}

// IsTarget reports whether src equals the values of a registered target
// concept, i.e. the input is already canonical.
func (m *ConceptMapItem) IsTarget(src SourceConcept) bool {
	if m == nil || src.IsEmpty() {
		return false
	}
	_, ok := m.targets[src.Key()]
	return ok
}

// HasTargetCode reports whether code is the code of any registered target.
func (m *ConceptMapItem) HasTargetCode(code string) bool {
	if m == nil {
		return false
	}
	_, ok := m.codes[code]
	return ok
}

// Len returns the number of distinct source concepts.
func (m *ConceptMapItem) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sources)
}

// conceptMapDocument is the wire form of a concept-map payload.
type conceptMapDocument struct {
	Group []struct {
		Source        string `json:"source"`
		Target        string `json:"target"`
		TargetVersion string `json:"targetVersion"`
		Element       []struct {
			Code    string `json:"code"`
			Display string `json:"display"`
			Target  []struct {
				Code      string              `json:"code"`
				Display   string              `json:"display"`
				DependsOn []service.DependsOn `json:"dependsOn"`
			} `json:"target"`
		} `json:"element"`
	} `json:"group"`
}

// parseConceptMap adds the mappings of one payload document to item.
//
// An element or target code that starts with "{" is an embedded JSON
// CodeableConcept: as a source every coding is a key, as a target every
// coding is a value.
func parseConceptMap(data []byte, item *ConceptMapItem) error {
	var doc conceptMapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding concept map: %w", err)
	}

	for gi, group := range doc.Group {
		for ei, element := range group.Element {
			src, err := parseSource(element.Code, group.Source)
			if err != nil {
				return fmt.Errorf("group[%d].element[%d]: %w", gi, ei, err)
			}
			for ti, t := range element.Target {
				target, err := parseTarget(t.Code, t.Display, t.DependsOn, group.Target, group.TargetVersion)
				if err != nil {
					return fmt.Errorf("group[%d].element[%d].target[%d]: %w", gi, ei, ti, err)
				}
				item.add(src, target)
			}
		}
	}
	return nil
}

func parseSource(code, system string) (SourceConcept, error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "{") {
		return NewSourceConcept(SourceKey{Value: code, System: system}), nil
	}

	var cc fhir.CodeableConcept
	if err := json.Unmarshal([]byte(code), &cc); err != nil {
		return SourceConcept{}, fmt.Errorf("embedded source concept: %w", err)
	}
	var keys []SourceKey
	for _, c := range cc.Coding {
		if c == nil || c.Code == "" {
			continue
		}
		s := c.System
		if s == "" {
			s = system
		}
		keys = append(keys, SourceKey{Value: c.Code, System: s})
	}
	if len(keys) == 0 && cc.Text != "" {
		keys = append(keys, SourceKey{Value: cc.Text})
	}
	return NewSourceConcept(keys...), nil
}

func parseTarget(code, display string, dependsOn []service.DependsOn, system, version string) (*TargetConcept, error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "{") {
		return &TargetConcept{Values: []TargetValue{{
			Code:      code,
			System:    system,
			Display:   display,
			Version:   version,
			DependsOn: dependsOn,
		}}}, nil
	}

	var cc fhir.CodeableConcept
	if err := json.Unmarshal([]byte(code), &cc); err != nil {
		return nil, fmt.Errorf("embedded target concept: %w", err)
	}
	target := &TargetConcept{Text: cc.Text}
	for _, c := range cc.Coding {
		if c == nil || c.Code == "" {
			continue
		}
		v := TargetValue{
			Code:      c.Code,
			System:    c.System,
			Display:   c.Display,
			Version:   c.Version,
			DependsOn: dependsOn,
		}
		if v.System == "" {
			v.System = system
		}
		if v.Version == "" {
			v.Version = version
		}
		target.Values = append(target.Values, v)
	}
	return target, nil
}

func (m *ConceptMapItem) merge(other *ConceptMapItem) {
	for k, targets := range other.sources {
		m.sources[k] = append(m.sources[k], targets...)
	}
	for k := range other.targets {
		m.targets[k] = struct{}{}
	}
	for c := range other.codes {
		m.codes[c] = struct{}{}
	}
}
