package fhir

// Node is a structured (non-primitive) value that can enumerate its
// properties and be rebuilt with one property replaced.
type Node interface {
	// TypeName returns the registration key of the concrete type.
	TypeName() string

	// Fields lists the properties that are set, in declaration order.
	// A collection property is reported as []Node, a choice property as
	// *DynamicValue, and anything else that is not a Node is a primitive.
	Fields() []Field

	// WithField returns a shallow copy with the named property replaced.
	// The receiver is never modified. Unknown names leave the copy unchanged.
	WithField(name string, value any) Node
}

// Field is one named property of a Node.
type Field struct {
	Name  string
	Value any
}

// Resource is a top-level Node.
type Resource interface {
	Node
	ResourceType() string
	GetID() string
	GetExtension() []*Extension
}

// nodePtr constrains a type parameter to a pointer to E that implements Node.
type nodePtr[E any] interface {
	*E
	Node
}

// appendOne appends a single Node property when it is set.
func appendOne[E any, P nodePtr[E]](fs []Field, name string, v P) []Field {
	if v == nil {
		return fs
	}
	return append(fs, Field{Name: name, Value: Node(v)})
}

// appendMany appends a collection property when it is non-empty.
func appendMany[E any, P nodePtr[E]](fs []Field, name string, vs []P) []Field {
	if len(vs) == 0 {
		return fs
	}
	return append(fs, Field{Name: name, Value: Nodes(vs)})
}

func appendString(fs []Field, name, v string) []Field {
	if v == "" {
		return fs
	}
	return append(fs, Field{Name: name, Value: v})
}

func appendChoice(fs []Field, name string, v *DynamicValue) []Field {
	if v == nil {
		return fs
	}
	return append(fs, Field{Name: name, Value: v})
}

// Nodes converts a typed slice into a []Node. Nil elements stay nil.
func Nodes[E any, P nodePtr[E]](vs []P) []Node {
	out := make([]Node, len(vs))
	for i, v := range vs {
		if v != nil {
			out[i] = v
		}
	}
	return out
}

// many converts a []Node (or an already typed slice) back into a typed slice.
func many[E any, P nodePtr[E]](value any) []P {
	switch v := value.(type) {
	case []P:
		return v
	case []Node:
		out := make([]P, len(v))
		for i, n := range v {
			out[i], _ = n.(P)
		}
		return out
	}
	return nil
}

func one[E any, P nodePtr[E]](value any) P {
	p, _ := value.(P)
	return p
}

func str(value any) string {
	s, _ := value.(string)
	return s
}

func choice(value any) *DynamicValue {
	dv, _ := value.(*DynamicValue)
	return dv
}
