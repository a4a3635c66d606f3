package fhir

import "encoding/json"

// Type names used as registration keys.
const (
	TypeCoding          = "Coding"
	TypeCodeableConcept = "CodeableConcept"
	TypeExtension       = "Extension"
	TypeReference       = "Reference"
	TypeIdentifier      = "Identifier"
	TypePeriod          = "Period"
	TypeQuantity        = "Quantity"
	TypeMeta            = "Meta"
)

// Coding is a single (system, code, display, version) tuple.
type Coding struct {
	System       string `json:"system,omitempty"`
	Version      string `json:"version,omitempty"`
	Code         string `json:"code,omitempty"`
	Display      string `json:"display,omitempty"`
	UserSelected *bool  `json:"userSelected,omitempty"`
	Extra        Extra  `json:"-"`
}

func (c *Coding) TypeName() string { return TypeCoding }

func (c *Coding) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "system", c.System)
	fs = appendString(fs, "version", c.Version)
	fs = appendString(fs, "code", c.Code)
	fs = appendString(fs, "display", c.Display)
	if c.UserSelected != nil {
		fs = append(fs, Field{Name: "userSelected", Value: *c.UserSelected})
	}
	return fs
}

func (c *Coding) WithField(name string, value any) Node {
	cp := *c
	switch name {
	case "system":
		cp.System = str(value)
	case "version":
		cp.Version = str(value)
	case "code":
		cp.Code = str(value)
	case "display":
		cp.Display = str(value)
	}
	return &cp
}

// CodeableConcept is a compound coded value: a list of codings plus optional
// free text.
type CodeableConcept struct {
	Extension []*Extension `json:"extension,omitempty"`
	Coding    []*Coding    `json:"coding,omitempty"`
	Text      string       `json:"text,omitempty"`
	Extra     Extra        `json:"-"`
}

func (c *CodeableConcept) TypeName() string { return TypeCodeableConcept }

func (c *CodeableConcept) Fields() []Field {
	var fs []Field
	fs = appendMany(fs, "extension", c.Extension)
	fs = appendMany(fs, "coding", c.Coding)
	fs = appendString(fs, "text", c.Text)
	return fs
}

func (c *CodeableConcept) WithField(name string, value any) Node {
	cp := *c
	switch name {
	case "extension":
		cp.Extension = many[Extension](value)
	case "coding":
		cp.Coding = many[Coding](value)
	case "text":
		cp.Text = str(value)
	}
	return &cp
}

// Extension carries additional information. The normalizer uses it to record
// the original representation of a value it replaced.
type Extension struct {
	URL   string        `json:"url"`
	Value *DynamicValue `json:"-"`
	Extra Extra         `json:"-"`
}

// NewExtension creates an extension holding v under url.
func NewExtension(url string, v Node) *Extension {
	return &Extension{URL: url, Value: NewDynamicValue(v)}
}

func (e *Extension) TypeName() string { return TypeExtension }

func (e *Extension) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "url", e.URL)
	fs = appendChoice(fs, "value", e.Value)
	return fs
}

func (e *Extension) WithField(name string, value any) Node {
	cp := *e
	switch name {
	case "url":
		cp.URL = str(value)
	case "value":
		cp.Value = choice(value)
	}
	return &cp
}

func (e *Extension) MarshalJSON() ([]byte, error) {
	type alias Extension
	return encodeObject("", (*alias)(e), map[string]*DynamicValue{"value": e.Value}, e.Extra)
}

func (e *Extension) UnmarshalJSON(data []byte) error {
	type alias Extension
	raw, extra, err := decodeObject(data, (*alias)(e), "value")
	if err != nil {
		return err
	}
	e.Extra = extra
	e.Value, err = decodeChoice(raw, "value")
	return err
}

// Reference is a reference from one resource to another.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
	Extra      Extra       `json:"-"`
}

func (r *Reference) TypeName() string { return TypeReference }

func (r *Reference) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "reference", r.Reference)
	fs = appendString(fs, "type", r.Type)
	fs = appendOne(fs, "identifier", r.Identifier)
	fs = appendString(fs, "display", r.Display)
	return fs
}

func (r *Reference) WithField(name string, value any) Node {
	cp := *r
	switch name {
	case "reference":
		cp.Reference = str(value)
	case "type":
		cp.Type = str(value)
	case "identifier":
		cp.Identifier = one[Identifier](value)
	case "display":
		cp.Display = str(value)
	}
	return &cp
}

// Identifier is a business identifier.
type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
	Extra  Extra            `json:"-"`
}

func (i *Identifier) TypeName() string { return TypeIdentifier }

func (i *Identifier) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "use", i.Use)
	fs = appendOne(fs, "type", i.Type)
	fs = appendString(fs, "system", i.System)
	fs = appendString(fs, "value", i.Value)
	fs = appendOne(fs, "period", i.Period)
	return fs
}

func (i *Identifier) WithField(name string, value any) Node {
	cp := *i
	switch name {
	case "use":
		cp.Use = str(value)
	case "type":
		cp.Type = one[CodeableConcept](value)
	case "system":
		cp.System = str(value)
	case "value":
		cp.Value = str(value)
	case "period":
		cp.Period = one[Period](value)
	}
	return &cp
}

// Period is a time range.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Extra Extra  `json:"-"`
}

func (p *Period) TypeName() string { return TypePeriod }

func (p *Period) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "start", p.Start)
	fs = appendString(fs, "end", p.End)
	return fs
}

func (p *Period) WithField(name string, value any) Node {
	cp := *p
	switch name {
	case "start":
		cp.Start = str(value)
	case "end":
		cp.End = str(value)
	}
	return &cp
}

// Quantity is a measured amount.
type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
	Extra  Extra    `json:"-"`
}

func (q *Quantity) TypeName() string { return TypeQuantity }

func (q *Quantity) Fields() []Field {
	var fs []Field
	if q.Value != nil {
		fs = append(fs, Field{Name: "value", Value: *q.Value})
	}
	fs = appendString(fs, "unit", q.Unit)
	fs = appendString(fs, "system", q.System)
	fs = appendString(fs, "code", q.Code)
	return fs
}

func (q *Quantity) WithField(name string, value any) Node {
	cp := *q
	switch name {
	case "unit":
		cp.Unit = str(value)
	case "system":
		cp.System = str(value)
	case "code":
		cp.Code = str(value)
	}
	return &cp
}

// Meta is resource metadata.
type Meta struct {
	VersionID   string    `json:"versionId,omitempty"`
	LastUpdated string    `json:"lastUpdated,omitempty"`
	Source      string    `json:"source,omitempty"`
	Profile     []string  `json:"profile,omitempty"`
	Tag         []*Coding `json:"tag,omitempty"`
	Extra       Extra     `json:"-"`
}

func (m *Meta) TypeName() string { return TypeMeta }

func (m *Meta) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "versionId", m.VersionID)
	fs = appendString(fs, "lastUpdated", m.LastUpdated)
	fs = appendString(fs, "source", m.Source)
	if len(m.Profile) > 0 {
		fs = append(fs, Field{Name: "profile", Value: m.Profile})
	}
	fs = appendMany(fs, "tag", m.Tag)
	return fs
}

func (m *Meta) WithField(name string, value any) Node {
	cp := *m
	switch name {
	case "versionId":
		cp.VersionID = str(value)
	case "lastUpdated":
		cp.LastUpdated = str(value)
	case "source":
		cp.Source = str(value)
	case "profile":
		cp.Profile, _ = value.([]string)
	case "tag":
		cp.Tag = many[Coding](value)
	}
	return &cp
}

// Datatypes without choice properties only need their extra properties kept.

func (c *Coding) MarshalJSON() ([]byte, error) {
	type alias Coding
	return encodeObject("", (*alias)(c), nil, c.Extra)
}

func (c *Coding) UnmarshalJSON(data []byte) (err error) {
	type alias Coding
	_, c.Extra, err = decodeObject(data, (*alias)(c))
	return err
}

func (c *CodeableConcept) MarshalJSON() ([]byte, error) {
	type alias CodeableConcept
	return encodeObject("", (*alias)(c), nil, c.Extra)
}

func (c *CodeableConcept) UnmarshalJSON(data []byte) (err error) {
	type alias CodeableConcept
	_, c.Extra, err = decodeObject(data, (*alias)(c))
	return err
}

func (r *Reference) MarshalJSON() ([]byte, error) {
	type alias Reference
	return encodeObject("", (*alias)(r), nil, r.Extra)
}

func (r *Reference) UnmarshalJSON(data []byte) (err error) {
	type alias Reference
	_, r.Extra, err = decodeObject(data, (*alias)(r))
	return err
}

func (i *Identifier) MarshalJSON() ([]byte, error) {
	type alias Identifier
	return encodeObject("", (*alias)(i), nil, i.Extra)
}

func (i *Identifier) UnmarshalJSON(data []byte) (err error) {
	type alias Identifier
	_, i.Extra, err = decodeObject(data, (*alias)(i))
	return err
}

func (p *Period) MarshalJSON() ([]byte, error) {
	type alias Period
	return encodeObject("", (*alias)(p), nil, p.Extra)
}

func (p *Period) UnmarshalJSON(data []byte) (err error) {
	type alias Period
	_, p.Extra, err = decodeObject(data, (*alias)(p))
	return err
}

func (q *Quantity) MarshalJSON() ([]byte, error) {
	type alias Quantity
	return encodeObject("", (*alias)(q), nil, q.Extra)
}

func (q *Quantity) UnmarshalJSON(data []byte) (err error) {
	type alias Quantity
	_, q.Extra, err = decodeObject(data, (*alias)(q))
	return err
}

func (m *Meta) MarshalJSON() ([]byte, error) {
	type alias Meta
	return encodeObject("", (*alias)(m), nil, m.Extra)
}

func (m *Meta) UnmarshalJSON(data []byte) (err error) {
	type alias Meta
	_, m.Extra, err = decodeObject(data, (*alias)(m))
	return err
}

func rawObject(data []byte) (map[string]json.RawMessage, error) {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
