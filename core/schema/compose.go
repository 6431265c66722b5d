package schema

import "fmt"

// Extend derives a new record from parent. The result starts with the
// parent's fields in the parent's order; a field of own with the same name
// replaces the parent's field in place, and fields only own declares are
// appended in own's order. Exclusions are the union of both sides minus
// what own explicitly includes, for fields and for the record itself.
//
// Replacing a field with one of a different kind fails with
// ErrFieldKindConflict. Neither input is modified.
func Extend(parent, own *Record) (*Record, error) {
	out := parent.clone()
	out.extends = parent.name
	out.name = own.name

	for _, f := range own.fields {
		i, ok := out.index[f.Name]
		if !ok {
			out.index[f.Name] = len(out.fields)
			out.fields = append(out.fields, f)
			continue
		}
		prev := out.fields[i].Type
		if prev.Kind() != f.Type.Kind() {
			return nil, fmt.Errorf("%w: field %q is %s in %s, %s in extension",
				ErrFieldKindConflict, f.Name, prev.Kind(), parent.TypeName(), f.Type.Kind())
		}
		attrs := f.Type.Attributes()
		attrs.Exclude = mergeExclusions(prev.Attributes(), attrs)
		out.fields[i] = Field{Name: f.Name, Type: f.Type.withAttributes(attrs)}
	}

	attrs := own.attrs.clone()
	attrs.Exclude = mergeExclusions(parent.attrs, own.attrs)
	if attrs.Doc == "" {
		attrs.Doc = parent.attrs.Doc
	}
	attrs.AllowUnknown = own.attrs.AllowUnknown || parent.attrs.AllowUnknown
	out.attrs = attrs
	return out, nil
}

// Exclude hides the named fields from targets. The fields remain part of
// the record and are still validated.
func Exclude(r *Record, names []string, targets ...Target) (*Record, error) {
	return updateFields(r, names, ExcludeFrom(targets...))
}

// Include re-includes the named fields in targets.
func Include(r *Record, names []string, targets ...Target) (*Record, error) {
	return updateFields(r, names, IncludeIn(targets...))
}

// SetRequired sets the required flag on the named fields.
func SetRequired(r *Record, required bool, names ...string) (*Record, error) {
	opt := Optional()
	if required {
		opt = Required()
	}
	return updateFields(r, names, opt)
}

func updateFields(r *Record, names []string, opts ...Option) (*Record, error) {
	out := r.clone()
	for _, name := range names {
		i, ok := out.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownField, name, r.TypeName())
		}
		out.fields[i].Type = With(out.fields[i].Type, opts...)
	}
	return out, nil
}
