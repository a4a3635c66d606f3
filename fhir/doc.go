// Package fhir holds the subset of the clinical data model the normalizer
// operates on.
//
// Every structured type implements Node, which lists its own properties and
// returns a modified copy on WithField. The tree mapper walks resources through
// that interface only, so adding a type never requires new traversal code.
//
// Polymorphic value[x] properties are held in a DynamicValue, a tagged union
// whose Type is the FHIR JSON suffix ("CodeableConcept", "String", ...).
// JSON encoding and decoding follow FHIR JSON: a DynamicValue under "value"
// is written as "valueCodeableConcept", "valueString" and so on.
package fhir
