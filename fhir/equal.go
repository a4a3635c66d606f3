package fhir

import (
	"bytes"
	"encoding/json"
)

// Equal reports whether two codings carry the same system, code, display and version.
func (c *Coding) Equal(other *Coding) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.System == other.System &&
		c.Code == other.Code &&
		c.Display == other.Display &&
		c.Version == other.Version
}

// Equal reports whether two concepts hold equal codings in the same order,
// the same text and equal extensions.
func (c *CodeableConcept) Equal(other *CodeableConcept) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Text != other.Text || len(c.Coding) != len(other.Coding) || len(c.Extension) != len(other.Extension) {
		return false
	}
	for i := range c.Coding {
		if !c.Coding[i].Equal(other.Coding[i]) {
			return false
		}
	}
	for i := range c.Extension {
		if !c.Extension[i].Equal(other.Extension[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two extensions have the same URL and value.
func (e *Extension) Equal(other *Extension) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.URL == other.URL && e.Value.Equal(other.Value)
}

// Equal reports whether two choice values hold the same type and value.
func (d *DynamicValue) Equal(other *DynamicValue) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Type != other.Type {
		return false
	}
	switch v := d.Value.(type) {
	case *CodeableConcept:
		o, ok := other.Value.(*CodeableConcept)
		return ok && v.Equal(o)
	case *Coding:
		o, ok := other.Value.(*Coding)
		return ok && v.Equal(o)
	case json.RawMessage:
		o, ok := other.Value.(json.RawMessage)
		return ok && bytes.Equal(v, o)
	case Node:
		o, ok := other.Value.(Node)
		return ok && v == o
	}
	return d.Value == other.Value
}
