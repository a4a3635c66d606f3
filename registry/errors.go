package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingContent is matched by *MissingContentError.
	ErrMissingContent = errors.New("missing normalization content")

	// ErrTenantRequired is returned by concept-map lookups without a tenant.
	ErrTenantRequired = errors.New("tenant id is required for concept map lookups")

	// ErrProfileRequired is returned by value-set lookups without a profile URL.
	ErrProfileRequired = errors.New("profile url is required for value set lookups")
)

// MissingContentError is returned by RequiredValueSet when no codes are registered.
type MissingContentError struct {
	Element    string
	ProfileURL string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("missing normalization content: no value set for %s in profile %s", e.Element, e.ProfileURL)
}

// Is reports whether target is ErrMissingContent.
func (e *MissingContentError) Is(target error) bool {
	return target == ErrMissingContent
}

// AmbiguousMappingError is returned when more than one target concept
// qualifies for a source concept after depends-on filtering. The registry
// content is inconsistent and cannot be used safely.
type AmbiguousMappingError struct {
	Tenant     string
	Element    string
	Source     string
	Candidates int
}

func (e *AmbiguousMappingError) Error() string {
	return fmt.Sprintf("ambiguous concept map for %s (tenant %q): %d targets qualify for source %s",
		e.Element, e.Tenant, e.Candidates, e.Source)
}

// InconsistentExtensionError is returned when manifest entries merged into one
// concept map declare different source extension URLs.
type InconsistentExtensionError struct {
	Tenant  string
	Element string
	URLs    []string
}

func (e *InconsistentExtensionError) Error() string {
	return fmt.Sprintf("inconsistent source extension urls for %s (tenant %q): %s",
		e.Element, e.Tenant, strings.Join(e.URLs, ", "))
}
