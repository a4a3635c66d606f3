package fhir

// EnsureExtension returns exts with ext appended unless an extension with the
// same URL is already present. The first extension recorded under a URL is
// kept, so applying the same provenance twice is a no-op. The input slice is
// never modified; added reports whether a new slice was built.
func EnsureExtension(exts []*Extension, ext *Extension) (out []*Extension, added bool) {
	if ext == nil || ext.URL == "" {
		return exts, false
	}
	for _, e := range exts {
		if e != nil && e.URL == ext.URL {
			return exts, false
		}
	}
	out = make([]*Extension, 0, len(exts)+1)
	out = append(out, exts...)
	return append(out, ext), true
}

// FindExtension returns the first extension with url, or nil.
func FindExtension(exts []*Extension, url string) *Extension {
	for _, e := range exts {
		if e != nil && e.URL == url {
			return e
		}
	}
	return nil
}
