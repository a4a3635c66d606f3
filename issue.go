package normalizer

import "strings"

// IssueSeverity represents the severity of a normalization issue.
// Maps to OperationOutcome.issue.severity in FHIR.
type IssueSeverity string

const (
	// SeverityFatal indicates normalization of the resource could not continue.
	SeverityFatal IssueSeverity = "fatal"
	// SeverityError indicates a value that could not be normalized.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueType represents the type of normalization issue.
// Maps to OperationOutcome.issue.code in FHIR.
type IssueType string

const (
	// IssueTypeValue indicates a mapped value outside the legal values for its element.
	IssueTypeValue IssueType = "value"
	// IssueTypeCodeInvalid indicates a source code without a registry mapping.
	IssueTypeCodeInvalid IssueType = "code-invalid"
	// IssueTypeNotFound indicates required normalization content was not found.
	IssueTypeNotFound IssueType = "not-found"
)

// Issue identifiers raised by the mapping layer.
const (
	// IssueConceptMapLookup is raised when a source value has no registry target.
	IssueConceptMapLookup = "NOV_CONMAP_LOOKUP"
	// IssueConceptMapValueSet is raised when a registry target is outside the legal values.
	IssueConceptMapValueSet = "INV_CONMAP_VALUE_SET"
	// IssueMissingValueSet is raised when required value set content is missing.
	IssueMissingValueSet = "NOV_VALUE_SET"
)

// Metadata identifies one registry entry that contributed to, or was searched
// for, a normalization decision.
type Metadata struct {
	RegistryEntryType string `json:"registryEntryType"`
	Name              string `json:"name,omitempty"`
	UUID              string `json:"uuid,omitempty"`
	Version           string `json:"version,omitempty"`
}

// Issue represents a single normalization issue.
// It maps to OperationOutcome.issue in FHIR.
type Issue struct {
	// Severity of the issue (error, warning, information)
	Severity IssueSeverity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// ID is a stable identifier for the kind of issue (e.g. NOV_CONMAP_LOOKUP)
	ID string `json:"id,omitempty"`

	// Diagnostics contains human-readable details about the issue
	Diagnostics string `json:"diagnostics,omitempty"`

	// Expression contains the breadcrumb location(s) of the element in error
	Expression []string `json:"expression,omitempty"`

	// Metadata lists the registry entries involved
	Metadata []Metadata `json:"metadata,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// Location returns the first expression, or "" when the issue has none.
func (i Issue) Location() string {
	if len(i.Expression) == 0 {
		return ""
	}
	return i.Expression[0]
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	if i.ID != "" {
		b.WriteString(" [")
		b.WriteString(i.ID)
		b.WriteByte(']')
	}
	b.WriteString(": ")
	b.WriteString(i.Diagnostics)
	if loc := i.Location(); loc != "" {
		b.WriteString(" @ ")
		b.WriteString(loc)
	}
	return b.String()
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// ID sets the issue identifier.
func (b *IssueBuilder) ID(id string) *IssueBuilder {
	b.issue.ID = id
	return b
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// At sets the breadcrumb location.
func (b *IssueBuilder) At(location string) *IssueBuilder {
	b.issue.Expression = []string{location}
	return b
}

// Metadata attaches registry metadata.
func (b *IssueBuilder) Metadata(md ...Metadata) *IssueBuilder {
	if len(md) > 0 {
		b.issue.Metadata = append([]Metadata(nil), md...)
	}
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
