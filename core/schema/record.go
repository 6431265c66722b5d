package schema

import (
	"fmt"
	"reflect"
	"sort"
)

// Record is an ordered set of uniquely named fields.
type Record struct {
	name    string
	extends string
	fields  []Field
	index   map[string]int
	attrs   Attributes
}

// NewRecord builds a record from fields in declaration order.
func NewRecord(fields []Field, opts ...Option) (*Record, error) {
	r := &Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		attrs:  applyOptions(Attributes{}, opts),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("record field with empty name")
		}
		if f.Type == nil {
			return nil, fmt.Errorf("field %q: nil type", f.Name)
		}
		if _, ok := r.index[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r, nil
}

// MustRecord is NewRecord for static declarations; it panics on error.
func MustRecord(fields []Field, opts ...Option) *Record {
	r, err := NewRecord(fields, opts...)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return r
}

// F is shorthand for a Field literal.
func F(name string, ft FieldType) Field {
	return Field{Name: name, Type: ft}
}

func (r *Record) clone() *Record {
	c := *r
	c.fields = append([]Field(nil), r.fields...)
	c.index = make(map[string]int, len(r.index))
	for k, v := range r.index {
		c.index[k] = v
	}
	c.attrs = r.attrs.clone()
	return &c
}

// Named returns a copy of the record carrying a schema name.
func (r *Record) Named(name string) *Record {
	c := r.clone()
	c.name = name
	return c
}

func (r *Record) Name() string { return r.name }

// Extends is the name of the parent the record was derived from, if any.
func (r *Record) Extends() string { return r.extends }

func (r *Record) Kind() Kind { return KindRecord }

func (r *Record) TypeName() string {
	if r.name != "" {
		return r.name
	}
	return "Record"
}

func (r *Record) Attributes() Attributes { return r.attrs.clone() }
func (r *Record) Doc() string            { return r.attrs.Doc }
func (r *Record) AllowUnknown() bool     { return r.attrs.AllowUnknown }
func (r *Record) Len() int               { return len(r.fields) }

func (r *Record) withAttributes(a Attributes) FieldType {
	c := r.clone()
	c.attrs = a
	return c
}

// Fields returns the fields in declaration order.
func (r *Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Field returns the type of the named field.
func (r *Record) Field(name string) (FieldType, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Type, true
}

// Names returns the field names in declaration order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// VisibleFields returns the fields exported to target t.
func (r *Record) VisibleFields(t Target) []Field {
	var out []Field
	for _, f := range r.fields {
		if Visible(f.Type, t) {
			out = append(out, f)
		}
	}
	return out
}

func (r *Record) Validate(value any) error {
	var errs ValidationErrors
	r.validate("", value, &errs)
	return errs.errOrNil()
}

func (r *Record) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		return
	}
	obj, ok := value.(map[string]any)
	if !ok {
		errs.add(path, fmt.Errorf("%w: %s expects an object, got %T", ErrTypeMismatch, r.TypeName(), value))
		return
	}
	for _, f := range r.fields {
		v, present := obj[f.Name]
		if (!present || v == nil) && f.Type.Attributes().Required {
			errs.add(joinPath(path, f.Name), ErrMissingRequired)
			continue
		}
		f.Type.validate(joinPath(path, f.Name), v, errs)
	}
	if r.attrs.AllowUnknown {
		return
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if _, ok := r.index[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		errs.add(joinPath(path, k), ErrUnknownField)
	}
}

// List is a repeated element type.
type List struct {
	elem  FieldType
	attrs Attributes
}

// ListOf creates a list of elem. Exclusions of the element also hide the list.
func ListOf(elem FieldType, opts ...Option) List {
	return List{elem: elem, attrs: applyOptions(Attributes{}, opts)}
}

func (l List) Kind() Kind             { return KindList }
func (l List) TypeName() string       { return "ListOf" }
func (l List) Elem() FieldType        { return l.elem }
func (l List) Attributes() Attributes { return l.attrs.clone() }
func (l List) Doc() string            { return l.attrs.Doc }

func (l List) withAttributes(a Attributes) FieldType {
	l.attrs = a
	return l
}

func (l List) Validate(value any) error {
	var errs ValidationErrors
	l.validate("", value, &errs)
	return errs.errOrNil()
}

func (l List) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		return
	}
	items, ok := sliceItems(value)
	if !ok {
		errs.add(path, fmt.Errorf("%w: ListOf(%s) expects an array, got %T", ErrTypeMismatch, l.elem.TypeName(), value))
		return
	}
	for i, item := range items {
		l.elem.validate(indexPath(path, i), item, errs)
	}
}

// NestedList is a list of lists of elem. Warehouse targets store it as a
// repeated record holding one repeated sub-field.
type NestedList struct {
	elem     FieldType
	subfield string
	attrs    Attributes
}

// NestedListOf creates a nested list whose inner lists are exported under subfield.
func NestedListOf(elem FieldType, subfield string, opts ...Option) NestedList {
	return NestedList{elem: elem, subfield: subfield, attrs: applyOptions(Attributes{}, opts)}
}

func (n NestedList) Kind() Kind             { return KindNestedList }
func (n NestedList) TypeName() string       { return "NestedListOf" }
func (n NestedList) Elem() FieldType        { return n.elem }
func (n NestedList) Subfield() string       { return n.subfield }
func (n NestedList) Attributes() Attributes { return n.attrs.clone() }
func (n NestedList) Doc() string            { return n.attrs.Doc }

func (n NestedList) withAttributes(a Attributes) FieldType {
	n.attrs = a
	return n
}

func (n NestedList) Validate(value any) error {
	var errs ValidationErrors
	n.validate("", value, &errs)
	return errs.errOrNil()
}

// validate accepts either [[...], ...] or the warehouse shape [{subfield: [...]}, ...].
func (n NestedList) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		return
	}
	outer, ok := sliceItems(value)
	if !ok {
		errs.add(path, fmt.Errorf("%w: NestedListOf(%s) expects an array, got %T", ErrTypeMismatch, n.elem.TypeName(), value))
		return
	}
	for i, item := range outer {
		p := indexPath(path, i)
		if obj, ok := item.(map[string]any); ok {
			item = obj[n.subfield]
			p = joinPath(p, n.subfield)
		}
		inner, ok := sliceItems(item)
		if !ok {
			errs.add(p, fmt.Errorf("%w: expects an array, got %T", ErrTypeMismatch, item))
			continue
		}
		for j, v := range inner {
			n.elem.validate(indexPath(p, j), v, errs)
		}
	}
}

func sliceItems(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
