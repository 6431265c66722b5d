package schema

// FieldSchema is a serializable description of a field type, used by the
// CLI and the HTTP API.
type FieldSchema struct {
	Name         string        `json:"name,omitempty" yaml:"name,omitempty"`
	Type         string        `json:"type" yaml:"type"`
	Kind         string        `json:"kind" yaml:"kind"`
	Extends      string        `json:"extends,omitempty" yaml:"extends,omitempty"`
	Required     bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Doc          string        `json:"doc,omitempty" yaml:"doc,omitempty"`
	Exclude      []string      `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	IncludeRaw   bool          `json:"include_raw,omitempty" yaml:"include_raw,omitempty"`
	AllowUnknown bool          `json:"allow_unknown,omitempty" yaml:"allow_unknown,omitempty"`
	Values       []string      `json:"values,omitempty" yaml:"values,omitempty"`
	Subfield     string        `json:"subfield,omitempty" yaml:"subfield,omitempty"`
	Elem         *FieldSchema  `json:"of,omitempty" yaml:"of,omitempty"`
	Fields       []FieldSchema `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Describe returns the description of ft. Nested named records are
// described in full.
func Describe(ft FieldType) FieldSchema {
	attrs := ft.Attributes()
	fs := FieldSchema{
		Type:         ft.TypeName(),
		Kind:         ft.Kind().String(),
		Required:     attrs.Required,
		Doc:          attrs.Doc,
		IncludeRaw:   attrs.IncludeRaw,
		AllowUnknown: attrs.AllowUnknown,
	}
	for _, t := range Targets() {
		if attrs.ExcludedFrom(t) {
			fs.Exclude = append(fs.Exclude, string(t))
		}
	}
	switch v := ft.(type) {
	case Leaf:
		fs.Values = v.Values()
	case List:
		elem := Describe(v.elem)
		fs.Elem = &elem
	case NestedList:
		elem := Describe(v.elem)
		fs.Elem = &elem
		fs.Subfield = v.subfield
	case *Record:
		fs.Extends = v.extends
		for _, f := range v.fields {
			child := Describe(f.Type)
			child.Name = f.Name
			fs.Fields = append(fs.Fields, child)
		}
	}
	return fs
}

// Summary is the short form of a registered schema used in listings.
type Summary struct {
	Name    string   `json:"name" yaml:"name"`
	Extends string   `json:"extends,omitempty" yaml:"extends,omitempty"`
	Fields  int      `json:"fields" yaml:"fields"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Summarize returns the listing form of a record.
func Summarize(r *Record) Summary {
	s := Summary{Name: r.name, Extends: r.extends, Fields: len(r.fields)}
	for _, t := range Targets() {
		if r.attrs.ExcludedFrom(t) {
			s.Exclude = append(s.Exclude, string(t))
		}
	}
	return s
}

// CountLeaves returns the number of leaves reachable from ft.
func CountLeaves(ft FieldType) int {
	switch v := ft.(type) {
	case List:
		return CountLeaves(v.elem)
	case NestedList:
		return CountLeaves(v.elem)
	case *Record:
		n := 0
		for _, f := range v.fields {
			n += CountLeaves(f.Type)
		}
		return n
	}
	return 1
}
