package fhir

// Resource and backbone type names.
const (
	TypeCondition              = "Condition"
	TypeObservation            = "Observation"
	TypeObservationComponent   = "ObservationComponent"
	TypeAppointment            = "Appointment"
	TypeAppointmentParticipant = "AppointmentParticipant"
	TypePatient                = "Patient"
)

// Condition is a clinical condition, problem or diagnosis.
type Condition struct {
	ID                 string             `json:"id,omitempty"`
	Meta               *Meta              `json:"meta,omitempty"`
	Contained          ContainedList      `json:"contained,omitempty"`
	Extension          []*Extension       `json:"extension,omitempty"`
	ClinicalStatus     *CodeableConcept   `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept   `json:"verificationStatus,omitempty"`
	Category           []*CodeableConcept `json:"category,omitempty"`
	Severity           *CodeableConcept   `json:"severity,omitempty"`
	Code               *CodeableConcept   `json:"code,omitempty"`
	BodySite           []*CodeableConcept `json:"bodySite,omitempty"`
	Subject            *Reference         `json:"subject,omitempty"`
	Onset              *DynamicValue      `json:"-"`
	RecordedDate       string             `json:"recordedDate,omitempty"`
	Extra              Extra              `json:"-"`
}

func (c *Condition) TypeName() string { return TypeCondition }
func (c *Condition) ResourceType() string { return TypeCondition }
func (c *Condition) GetID() string { return c.ID }
func (c *Condition) GetExtension() []*Extension { return c.Extension }

func (c *Condition) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "id", c.ID)
	fs = appendOne(fs, "meta", c.Meta)
	fs = appendContained(fs, c.Contained)
	fs = appendMany(fs, "extension", c.Extension)
	fs = appendOne(fs, "clinicalStatus", c.ClinicalStatus)
	fs = appendOne(fs, "verificationStatus", c.VerificationStatus)
	fs = appendMany(fs, "category", c.Category)
	fs = appendOne(fs, "severity", c.Severity)
	fs = appendOne(fs, "code", c.Code)
	fs = appendMany(fs, "bodySite", c.BodySite)
	fs = appendOne(fs, "subject", c.Subject)
	fs = appendChoice(fs, "onset", c.Onset)
	fs = appendString(fs, "recordedDate", c.RecordedDate)
	return fs
}

func (c *Condition) WithField(name string, value any) Node {
	cp := *c
	switch name {
	case "id":
		cp.ID = str(value)
	case "meta":
		cp.Meta = one[Meta](value)
	case "contained":
		cp.Contained, _ = value.(ContainedList)
	case "extension":
		cp.Extension = many[Extension](value)
	case "clinicalStatus":
		cp.ClinicalStatus = one[CodeableConcept](value)
	case "verificationStatus":
		cp.VerificationStatus = one[CodeableConcept](value)
	case "category":
		cp.Category = many[CodeableConcept](value)
	case "severity":
		cp.Severity = one[CodeableConcept](value)
	case "code":
		cp.Code = one[CodeableConcept](value)
	case "bodySite":
		cp.BodySite = many[CodeableConcept](value)
	case "subject":
		cp.Subject = one[Reference](value)
	case "onset":
		cp.Onset = choice(value)
	case "recordedDate":
		cp.RecordedDate = str(value)
	}
	return &cp
}

func (c *Condition) MarshalJSON() ([]byte, error) {
	type alias Condition
	return encodeObject(TypeCondition, (*alias)(c), map[string]*DynamicValue{"onset": c.Onset}, c.Extra)
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	type alias Condition
	raw, extra, err := decodeObject(data, (*alias)(c), "onset")
	if err != nil {
		return err
	}
	c.Extra = extra
	c.Onset, err = decodeChoice(raw, "onset")
	return err
}

// Observation is a measurement or simple assertion.
type Observation struct {
	ID             string                  `json:"id,omitempty"`
	Meta           *Meta                   `json:"meta,omitempty"`
	Contained      ContainedList           `json:"contained,omitempty"`
	Extension      []*Extension            `json:"extension,omitempty"`
	Status         string                  `json:"status,omitempty"`
	Category       []*CodeableConcept      `json:"category,omitempty"`
	Code           *CodeableConcept        `json:"code,omitempty"`
	Subject        *Reference              `json:"subject,omitempty"`
	Effective      *DynamicValue           `json:"-"`
	Value          *DynamicValue           `json:"-"`
	Interpretation []*CodeableConcept      `json:"interpretation,omitempty"`
	Component      []*ObservationComponent `json:"component,omitempty"`
	Extra          Extra                   `json:"-"`
}

func (o *Observation) TypeName() string { return TypeObservation }
func (o *Observation) ResourceType() string { return TypeObservation }
func (o *Observation) GetID() string { return o.ID }
func (o *Observation) GetExtension() []*Extension { return o.Extension }

func (o *Observation) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "id", o.ID)
	fs = appendOne(fs, "meta", o.Meta)
	fs = appendContained(fs, o.Contained)
	fs = appendMany(fs, "extension", o.Extension)
	fs = appendString(fs, "status", o.Status)
	fs = appendMany(fs, "category", o.Category)
	fs = appendOne(fs, "code", o.Code)
	fs = appendOne(fs, "subject", o.Subject)
	fs = appendChoice(fs, "effective", o.Effective)
	fs = appendChoice(fs, "value", o.Value)
	fs = appendMany(fs, "interpretation", o.Interpretation)
	fs = appendMany(fs, "component", o.Component)
	return fs
}

func (o *Observation) WithField(name string, value any) Node {
	cp := *o
	switch name {
	case "id":
		cp.ID = str(value)
	case "meta":
		cp.Meta = one[Meta](value)
	case "contained":
		cp.Contained, _ = value.(ContainedList)
	case "extension":
		cp.Extension = many[Extension](value)
	case "status":
		cp.Status = str(value)
	case "category":
		cp.Category = many[CodeableConcept](value)
	case "code":
		cp.Code = one[CodeableConcept](value)
	case "subject":
		cp.Subject = one[Reference](value)
	case "effective":
		cp.Effective = choice(value)
	case "value":
		cp.Value = choice(value)
	case "interpretation":
		cp.Interpretation = many[CodeableConcept](value)
	case "component":
		cp.Component = many[ObservationComponent](value)
	}
	return &cp
}

func (o *Observation) MarshalJSON() ([]byte, error) {
	type alias Observation
	return encodeObject(TypeObservation, (*alias)(o), map[string]*DynamicValue{
		"effective": o.Effective,
		"value":     o.Value,
	}, o.Extra)
}

func (o *Observation) UnmarshalJSON(data []byte) error {
	type alias Observation
	raw, extra, err := decodeObject(data, (*alias)(o), "effective", "value")
	if err != nil {
		return err
	}
	o.Extra = extra
	if o.Effective, err = decodeChoice(raw, "effective"); err != nil {
		return err
	}
	o.Value, err = decodeChoice(raw, "value")
	return err
}

// ObservationComponent is one component result of an Observation.
type ObservationComponent struct {
	Code           *CodeableConcept   `json:"code,omitempty"`
	Value          *DynamicValue      `json:"-"`
	Interpretation []*CodeableConcept `json:"interpretation,omitempty"`
	Extra          Extra              `json:"-"`
}

func (c *ObservationComponent) TypeName() string { return TypeObservationComponent }

func (c *ObservationComponent) Fields() []Field {
	var fs []Field
	fs = appendOne(fs, "code", c.Code)
	fs = appendChoice(fs, "value", c.Value)
	fs = appendMany(fs, "interpretation", c.Interpretation)
	return fs
}

func (c *ObservationComponent) WithField(name string, value any) Node {
	cp := *c
	switch name {
	case "code":
		cp.Code = one[CodeableConcept](value)
	case "value":
		cp.Value = choice(value)
	case "interpretation":
		cp.Interpretation = many[CodeableConcept](value)
	}
	return &cp
}

func (c *ObservationComponent) MarshalJSON() ([]byte, error) {
	type alias ObservationComponent
	return encodeObject("", (*alias)(c), map[string]*DynamicValue{"value": c.Value}, c.Extra)
}

func (c *ObservationComponent) UnmarshalJSON(data []byte) error {
	type alias ObservationComponent
	raw, extra, err := decodeObject(data, (*alias)(c), "value")
	if err != nil {
		return err
	}
	c.Extra = extra
	c.Value, err = decodeChoice(raw, "value")
	return err
}

// Appointment is a booking of a healthcare event.
type Appointment struct {
	ID              string                    `json:"id,omitempty"`
	Meta            *Meta                     `json:"meta,omitempty"`
	Contained       ContainedList             `json:"contained,omitempty"`
	Extension       []*Extension              `json:"extension,omitempty"`
	Status          string                    `json:"status,omitempty"`
	ServiceType     []*CodeableConcept        `json:"serviceType,omitempty"`
	AppointmentType *CodeableConcept          `json:"appointmentType,omitempty"`
	Description     string                    `json:"description,omitempty"`
	Start           string                    `json:"start,omitempty"`
	End             string                    `json:"end,omitempty"`
	Participant     []*AppointmentParticipant `json:"participant,omitempty"`
	Extra           Extra                     `json:"-"`
}

func (a *Appointment) TypeName() string { return TypeAppointment }
func (a *Appointment) ResourceType() string { return TypeAppointment }
func (a *Appointment) GetID() string { return a.ID }
func (a *Appointment) GetExtension() []*Extension { return a.Extension }

func (a *Appointment) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "id", a.ID)
	fs = appendOne(fs, "meta", a.Meta)
	fs = appendContained(fs, a.Contained)
	fs = appendMany(fs, "extension", a.Extension)
	fs = appendString(fs, "status", a.Status)
	fs = appendMany(fs, "serviceType", a.ServiceType)
	fs = appendOne(fs, "appointmentType", a.AppointmentType)
	fs = appendString(fs, "description", a.Description)
	fs = appendString(fs, "start", a.Start)
	fs = appendString(fs, "end", a.End)
	fs = appendMany(fs, "participant", a.Participant)
	return fs
}

func (a *Appointment) WithField(name string, value any) Node {
	cp := *a
	switch name {
	case "id":
		cp.ID = str(value)
	case "meta":
		cp.Meta = one[Meta](value)
	case "contained":
		cp.Contained, _ = value.(ContainedList)
	case "extension":
		cp.Extension = many[Extension](value)
	case "status":
		cp.Status = str(value)
	case "serviceType":
		cp.ServiceType = many[CodeableConcept](value)
	case "appointmentType":
		cp.AppointmentType = one[CodeableConcept](value)
	case "description":
		cp.Description = str(value)
	case "start":
		cp.Start = str(value)
	case "end":
		cp.End = str(value)
	case "participant":
		cp.Participant = many[AppointmentParticipant](value)
	}
	return &cp
}

func (a *Appointment) MarshalJSON() ([]byte, error) {
	type alias Appointment
	return encodeObject(TypeAppointment, (*alias)(a), nil, a.Extra)
}

func (a *Appointment) UnmarshalJSON(data []byte) (err error) {
	type alias Appointment
	_, a.Extra, err = decodeObject(data, (*alias)(a))
	return err
}

// AppointmentParticipant is one participant of an Appointment.
type AppointmentParticipant struct {
	Type     []*CodeableConcept `json:"type,omitempty"`
	Actor    *Reference         `json:"actor,omitempty"`
	Required string             `json:"required,omitempty"`
	Status   string             `json:"status,omitempty"`
	Extra    Extra              `json:"-"`
}

func (p *AppointmentParticipant) TypeName() string { return TypeAppointmentParticipant }

func (p *AppointmentParticipant) Fields() []Field {
	var fs []Field
	fs = appendMany(fs, "type", p.Type)
	fs = appendOne(fs, "actor", p.Actor)
	fs = appendString(fs, "required", p.Required)
	fs = appendString(fs, "status", p.Status)
	return fs
}

func (p *AppointmentParticipant) WithField(name string, value any) Node {
	cp := *p
	switch name {
	case "type":
		cp.Type = many[CodeableConcept](value)
	case "actor":
		cp.Actor = one[Reference](value)
	case "required":
		cp.Required = str(value)
	case "status":
		cp.Status = str(value)
	}
	return &cp
}

func (p *AppointmentParticipant) MarshalJSON() ([]byte, error) {
	type alias AppointmentParticipant
	return encodeObject("", (*alias)(p), nil, p.Extra)
}

func (p *AppointmentParticipant) UnmarshalJSON(data []byte) (err error) {
	type alias AppointmentParticipant
	_, p.Extra, err = decodeObject(data, (*alias)(p))
	return err
}

// Patient is a person receiving care.
type Patient struct {
	ID            string           `json:"id,omitempty"`
	Meta          *Meta            `json:"meta,omitempty"`
	Contained     ContainedList    `json:"contained,omitempty"`
	Extension     []*Extension     `json:"extension,omitempty"`
	Identifier    []*Identifier    `json:"identifier,omitempty"`
	Active        *bool            `json:"active,omitempty"`
	Gender        string           `json:"gender,omitempty"`
	BirthDate     string           `json:"birthDate,omitempty"`
	MaritalStatus *CodeableConcept `json:"maritalStatus,omitempty"`
	Extra         Extra            `json:"-"`
}

func (p *Patient) TypeName() string { return TypePatient }
func (p *Patient) ResourceType() string { return TypePatient }
func (p *Patient) GetID() string { return p.ID }
func (p *Patient) GetExtension() []*Extension { return p.Extension }

func (p *Patient) Fields() []Field {
	var fs []Field
	fs = appendString(fs, "id", p.ID)
	fs = appendOne(fs, "meta", p.Meta)
	fs = appendContained(fs, p.Contained)
	fs = appendMany(fs, "extension", p.Extension)
	fs = appendMany(fs, "identifier", p.Identifier)
	if p.Active != nil {
		fs = append(fs, Field{Name: "active", Value: *p.Active})
	}
	fs = appendString(fs, "gender", p.Gender)
	fs = appendString(fs, "birthDate", p.BirthDate)
	fs = appendOne(fs, "maritalStatus", p.MaritalStatus)
	return fs
}

func (p *Patient) WithField(name string, value any) Node {
	cp := *p
	switch name {
	case "id":
		cp.ID = str(value)
	case "meta":
		cp.Meta = one[Meta](value)
	case "contained":
		cp.Contained, _ = value.(ContainedList)
	case "extension":
		cp.Extension = many[Extension](value)
	case "identifier":
		cp.Identifier = many[Identifier](value)
	case "gender":
		cp.Gender = str(value)
	case "birthDate":
		cp.BirthDate = str(value)
	case "maritalStatus":
		cp.MaritalStatus = one[CodeableConcept](value)
	}
	return &cp
}

func (p *Patient) MarshalJSON() ([]byte, error) {
	type alias Patient
	return encodeObject(TypePatient, (*alias)(p), nil, p.Extra)
}

func (p *Patient) UnmarshalJSON(data []byte) (err error) {
	type alias Patient
	_, p.Extra, err = decodeObject(data, (*alias)(p))
	return err
}
