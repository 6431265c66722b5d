package schema

import "slices"

// Kind is the structural category of a field type.
type Kind int

const (
	KindLeaf Kind = iota
	KindRecord
	KindList
	KindNestedList
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	case KindNestedList:
		return "nested_list"
	}
	return "unknown"
}

// FieldType is implemented by Leaf, *Record, List and NestedList.
// The set is closed.
type FieldType interface {
	Kind() Kind

	// TypeName is the declared name: the leaf kind, the record name, or
	// "ListOf"/"NestedListOf".
	TypeName() string

	Attributes() Attributes
	Doc() string

	// Validate checks a decoded value (as produced by encoding/json or
	// yaml.v3) against the type. A nil value is accepted; presence of
	// required fields is checked by the enclosing record.
	Validate(value any) error

	withAttributes(Attributes) FieldType
	validate(path string, value any, errs *ValidationErrors)
}

// Field is a named field type inside a record.
type Field struct {
	Name string
	Type FieldType
}

// With returns a copy of ft with the options applied on top of its current attributes.
func With(ft FieldType, opts ...Option) FieldType {
	return ft.withAttributes(applyOptions(ft.Attributes(), opts))
}

// Visible reports whether ft is exported to target t. A list is hidden when
// its element is hidden.
func Visible(ft FieldType, t Target) bool {
	if ft.Attributes().ExcludedFrom(t) {
		return false
	}
	switch v := ft.(type) {
	case List:
		return Visible(v.elem, t)
	case NestedList:
		return Visible(v.elem, t)
	}
	return true
}

// Equal reports whether two field types are structurally identical,
// attributes included.
func Equal(a, b FieldType) bool {
	if a.Kind() != b.Kind() || a.TypeName() != b.TypeName() {
		return false
	}
	if !attributesEqual(a.Attributes(), b.Attributes()) {
		return false
	}
	switch av := a.(type) {
	case Leaf:
		bv := b.(Leaf)
		return av.kind == bv.kind && slices.Equal(av.values, bv.values)
	case List:
		return Equal(av.elem, b.(List).elem)
	case NestedList:
		bv := b.(NestedList)
		return av.subfield == bv.subfield && Equal(av.elem, bv.elem)
	case *Record:
		bv := b.(*Record)
		if len(av.fields) != len(bv.fields) || av.extends != bv.extends {
			return false
		}
		for i, f := range av.fields {
			g := bv.fields[i]
			if f.Name != g.Name || !Equal(f.Type, g.Type) {
				return false
			}
		}
		return true
	}
	return false
}

func attributesEqual(a, b Attributes) bool {
	if a.Required != b.Required || a.Doc != b.Doc || a.IncludeRaw != b.IncludeRaw || a.AllowUnknown != b.AllowUnknown {
		return false
	}
	for _, t := range Targets() {
		if a.ExcludedFrom(t) != b.ExcludedFrom(t) {
			return false
		}
	}
	return true
}
