// Package schema provides the field type model for scan documents.
//
// A schema is a tree of field types. Leaves carry a scalar kind (String,
// Unsigned16BitInteger, IPv4Address, ...) and compounds group them:
//
//   - Record: ordered, uniquely named fields
//   - List: a repeated element
//   - NestedList: a list of lists, stored as a repeated record by warehouse targets
//
// Every field type carries Attributes: whether it is required, a doc string,
// and the set of export targets it is hidden from. Records are immutable.
// Composition functions (Extend, Exclude, Include, SetRequired) return new
// records and never modify their inputs.
//
// Records can also be declared in YAML:
//
//	fields:
//	  ip:
//	    type: IPv4Address
//	    required: true
//	  ports: ListOf(Unsigned16BitInteger)
//	  metadata:
//	    allow_unknown: true
//	    fields: {}
//
// Named types (other records, aliases) are resolved through Parser.Resolve.
package schema
