package normalizer

import (
	"sync"
)

// Result accumulates the issues raised while normalizing one resource.
// It is shared by every mapper invoked during that resource's pass, so all
// methods are safe for concurrent use.
type Result struct {
	// Valid is false once an error or fatal issue has been recorded.
	Valid bool `json:"valid"`

	Issues []Issue `json:"issues,omitempty"`

	ResourceType string `json:"resourceType,omitempty"`
	ResourceID   string `json:"resourceId,omitempty"`

	mu sync.Mutex
}

// NewResult creates an empty, valid result.
func NewResult() *Result {
	return &Result{
		Valid:  true,
		Issues: make([]Issue, 0, 4),
	}
}

// AddIssue records an issue.
func (r *Result) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issue)
	if issue.IsError() {
		r.Valid = false
	}
}

// AddError records an error at location.
func (r *Result) AddError(code IssueType, diagnostics, location string) {
	r.AddIssue(Error(code).Diagnostics(diagnostics).At(location).Build())
}

// Count returns the number of issues of the given severity.
func (r *Result) Count(severity IssueSeverity) int {
	return len(r.filter(func(i Issue) bool { return i.Severity == severity }))
}

// ErrorCount returns the number of error and fatal issues.
func (r *Result) ErrorCount() int {
	return len(r.filter(Issue.IsError))
}

// HasErrors reports whether an error or fatal issue was recorded.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// At returns the issues recorded at a breadcrumb location.
func (r *Result) At(location string) []Issue {
	return r.filter(func(i Issue) bool { return i.Location() == location })
}

// WithID returns the issues carrying a registry issue id such as
// IssueConceptMapLookup.
func (r *Result) WithID(id string) []Issue {
	return r.filter(func(i Issue) bool { return i.ID == id })
}

// Locations returns the distinct breadcrumbs that have issues, in the order
// they were first recorded.
func (r *Result) Locations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.Issues))
	var out []string
	for _, issue := range r.Issues {
		loc := issue.Location()
		if _, ok := seen[loc]; ok || loc == "" {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}

func (r *Result) filter(keep func(Issue) bool) []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Issue
	for _, issue := range r.Issues {
		if keep(issue) {
			out = append(out, issue)
		}
	}
	return out
}
