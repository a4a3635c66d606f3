// Package pool provides sync.Pool backed buffers for building breadcrumb
// locations and registry keys without per-call allocations.
package pool

import "strconv"

// Child returns the breadcrumb of property name below base, e.g.
// Child("Observation.component[1]", "code"). An empty base yields name.
func Child(base, name string) string {
	buf := AcquireBuffer()
	defer ReleaseBuffer(buf)

	*buf = appendProperty(append(*buf, base...), name)
	return string(*buf)
}

// Item returns the breadcrumb of element index of the collection name below
// base, e.g. Item("Observation", "component", 1) = "Observation.component[1]".
func Item(base, name string, index int) string {
	buf := AcquireBuffer()
	defer ReleaseBuffer(buf)

	b := appendProperty(append(*buf, base...), name)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(index), 10)
	*buf = append(b, ']')
	return string(*buf)
}

func appendProperty(b []byte, name string) []byte {
	if len(b) > 0 {
		b = append(b, '.')
	}
	return append(b, name...)
}
