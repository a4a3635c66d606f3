package registry

import "strings"

// Canonical code system URIs.
const (
	SystemSNOMED   = "http://snomed.info/sct"
	SystemICD10    = "http://hl7.org/fhir/sid/icd-10"
	SystemICD10CM  = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemICD9CM   = "http://hl7.org/fhir/sid/icd-9-cm"
	SystemLOINC    = "http://loinc.org"
	SystemRxNorm   = "http://www.nlm.nih.gov/research/umls/rxnorm"
	SystemCPT      = "http://www.ama-assn.org/go/cpt"
	SystemCVX      = "http://hl7.org/fhir/sid/cvx"
	SystemNDC      = "http://hl7.org/fhir/sid/ndc"
	SystemUCUM     = "http://unitsofmeasure.org"
)

// systemAliases maps lower-cased aliases onto canonical URIs.
var systemAliases = map[string]string{
	"urn:oid:2.16.840.1.113883.6.96": SystemSNOMED,
	"2.16.840.1.113883.6.96":         SystemSNOMED,
	"snomed":                         SystemSNOMED,
	"snomed-ct":                      SystemSNOMED,
	"snomedct":                       SystemSNOMED,
	"http://snomed.info/id":          SystemSNOMED,

	"urn:oid:2.16.840.1.113883.6.3": SystemICD10,
	"2.16.840.1.113883.6.3":         SystemICD10,
	"icd-10":                        SystemICD10,
	"icd10":                         SystemICD10,

	"urn:oid:2.16.840.1.113883.6.90": SystemICD10CM,
	"2.16.840.1.113883.6.90":         SystemICD10CM,
	"icd-10-cm":                      SystemICD10CM,
	"icd10cm":                        SystemICD10CM,

	"urn:oid:2.16.840.1.113883.6.103": SystemICD9CM,
	"2.16.840.1.113883.6.103":         SystemICD9CM,
	"icd-9-cm":                        SystemICD9CM,

	"urn:oid:2.16.840.1.113883.6.1": SystemLOINC,
	"2.16.840.1.113883.6.1":         SystemLOINC,
	"loinc":                         SystemLOINC,
	"http://www.loinc.org":          SystemLOINC,

	"urn:oid:2.16.840.1.113883.6.88": SystemRxNorm,
	"2.16.840.1.113883.6.88":         SystemRxNorm,
	"rxnorm":                         SystemRxNorm,

	"urn:oid:2.16.840.1.113883.6.12": SystemCPT,
	"2.16.840.1.113883.6.12":         SystemCPT,
	"cpt":                            SystemCPT,

	"urn:oid:2.16.840.1.113883.12.292": SystemCVX,
	"2.16.840.1.113883.12.292":         SystemCVX,
	"cvx":                              SystemCVX,

	"urn:oid:2.16.840.1.113883.6.69": SystemNDC,
	"2.16.840.1.113883.6.69":         SystemNDC,
	"ndc":                            SystemNDC,

	"urn:oid:2.16.840.1.113883.6.8": SystemUCUM,
	"2.16.840.1.113883.6.8":         SystemUCUM,
	"ucum":                          SystemUCUM,
}

// CanonicalSystem maps a tenant-specific alias of a well-known vocabulary onto
// its canonical URI. Surrounding whitespace and a trailing "/" are dropped.
// Unknown systems are returned trimmed but otherwise unchanged.
func CanonicalSystem(system string) string {
	s := strings.TrimRight(strings.TrimSpace(system), "/")
	if s == "" {
		return ""
	}
	if canonical, ok := systemAliases[strings.ToLower(s)]; ok {
		return canonical
	}
	return s
}
