package schema

import "slices"

// Attributes are the properties shared by every field type.
type Attributes struct {
	Required bool
	Doc      string

	// Exclude lists the targets this field is hidden from. The field stays
	// part of the logical type and is still validated.
	Exclude []Target

	// Include lists targets the field is explicitly re-included in. It wins
	// over any exclusion inherited through extension.
	Include []Target

	// IncludeRaw asks analyzed string leaves to also index an untokenized copy.
	IncludeRaw bool

	// AllowUnknown lets a record accept keys it does not declare.
	AllowUnknown bool
}

// ExcludedFrom reports whether the attributes hide a field from target t.
func (a Attributes) ExcludedFrom(t Target) bool {
	return slices.Contains(a.Exclude, t) && !slices.Contains(a.Include, t)
}

func (a Attributes) clone() Attributes {
	a.Exclude = slices.Clone(a.Exclude)
	a.Include = slices.Clone(a.Include)
	return a
}

// mergeExclusions applies the extension rule: the union of both exclusion
// sets, minus whatever the child explicitly includes.
func mergeExclusions(parent, child Attributes) []Target {
	var out []Target
	for _, t := range Targets() {
		if !slices.Contains(parent.Exclude, t) && !slices.Contains(child.Exclude, t) {
			continue
		}
		if slices.Contains(child.Include, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func addTargets(set []Target, targets ...Target) []Target {
	out := slices.Clone(set)
	for _, t := range targets {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func removeTargets(set []Target, targets ...Target) []Target {
	var out []Target
	for _, t := range set {
		if !slices.Contains(targets, t) {
			out = append(out, t)
		}
	}
	return out
}

// Option sets an attribute when constructing a field type.
type Option func(*Attributes)

// Required marks the field as mandatory.
func Required() Option {
	return func(a *Attributes) { a.Required = true }
}

// Optional clears the required flag.
func Optional() Option {
	return func(a *Attributes) { a.Required = false }
}

func WithDoc(doc string) Option {
	return func(a *Attributes) { a.Doc = doc }
}

// ExcludeFrom hides the field from the given targets.
func ExcludeFrom(targets ...Target) Option {
	return func(a *Attributes) {
		a.Exclude = addTargets(a.Exclude, targets...)
		a.Include = removeTargets(a.Include, targets...)
	}
}

// IncludeIn re-includes the field in targets a parent excluded it from.
func IncludeIn(targets ...Target) Option {
	return func(a *Attributes) {
		a.Include = addTargets(a.Include, targets...)
		a.Exclude = removeTargets(a.Exclude, targets...)
	}
}

// WithRaw adds an untokenized raw sub-field to analyzed strings.
func WithRaw() Option {
	return func(a *Attributes) { a.IncludeRaw = true }
}

// AllowUnknown makes a record accept undeclared keys.
func AllowUnknown() Option {
	return func(a *Attributes) { a.AllowUnknown = true }
}

func applyOptions(a Attributes, opts []Option) Attributes {
	a = a.clone()
	for _, opt := range opts {
		opt(&a)
	}
	return a
}
