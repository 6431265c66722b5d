// Package lint encodes certificate lint outcomes for storage.
//
// Every rule in a RuleSet yields one of nine outcomes. The search index
// stores a compact form where failing outcomes become true and all others
// are dropped; the warehouse keeps the outcome names. Summary flags are
// always derived from the outcomes.
package lint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zdb/zschema/core/schema"
)

var (
	ErrInvalidRuleName = errors.New("invalid lint rule name")
	ErrUnknownRule     = errors.New("unknown lint rule")
)

// Severity is the class a rule belongs to, taken from its name prefix.
type Severity int

const (
	SeverityNotice Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNotice:
		return "notice"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// SeverityOf returns the class of a rule from its n_, w_ or e_ prefix.
func SeverityOf(rule string) (Severity, error) {
	switch {
	case strings.HasPrefix(rule, "n_") && len(rule) > 2:
		return SeverityNotice, nil
	case strings.HasPrefix(rule, "w_") && len(rule) > 2:
		return SeverityWarning, nil
	case strings.HasPrefix(rule, "e_") && len(rule) > 2:
		return SeverityError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRuleName, rule)
}

// Results maps rule names to outcomes for one certificate. Rules that are
// absent were not evaluated.
type Results map[string]Outcome

// Summary flags, derived from Results.
type Summary struct {
	NoticesPresent  bool `json:"notices_present"`
	WarningsPresent bool `json:"warnings_present"`
	ErrorsPresent   bool `json:"errors_present"`
	FatalsPresent   bool `json:"fatals_present"`
}

// RuleSet is the fixed, ordered collection of known lint rules.
type RuleSet struct {
	rules    []string
	severity map[string]Severity
}

// NewRuleSet validates rule names and keeps them in the given order.
func NewRuleSet(rules []string) (*RuleSet, error) {
	rs := &RuleSet{
		rules:    make([]string, 0, len(rules)),
		severity: make(map[string]Severity, len(rules)),
	}
	for _, rule := range rules {
		sev, err := SeverityOf(rule)
		if err != nil {
			return nil, err
		}
		if _, dup := rs.severity[rule]; dup {
			return nil, fmt.Errorf("lint rule %q listed twice", rule)
		}
		rs.severity[rule] = sev
		rs.rules = append(rs.rules, rule)
	}
	return rs, nil
}

func (rs *RuleSet) Rules() []string { return append([]string(nil), rs.rules...) }
func (rs *RuleSet) Len() int        { return len(rs.rules) }

// Severity returns the class of a known rule.
func (rs *RuleSet) Severity(rule string) (Severity, bool) {
	s, ok := rs.severity[rule]
	return s, ok
}

// Count returns the number of rules per class.
func (rs *RuleSet) Count() map[Severity]int {
	out := make(map[Severity]int, 3)
	for _, s := range rs.severity {
		out[s]++
	}
	return out
}

// Record returns the schema of the per-rule fields: one LintBool per rule.
func (rs *RuleSet) Record() *schema.Record {
	fields := make([]schema.Field, len(rs.rules))
	for i, rule := range rs.rules {
		fields[i] = schema.F(rule, schema.NewLeaf(schema.LeafLintBool))
	}
	return schema.MustRecord(fields)
}

func (rs *RuleSet) check(res Results) error {
	var unknown []string
	for rule := range res {
		if _, ok := rs.severity[rule]; !ok {
			unknown = append(unknown, rule)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %s", ErrUnknownRule, strings.Join(unknown, ", "))
}

// Summarize derives the summary flags. A class flag is set when any rule
// of that class failed; the fatal flag is set when any rule is Fatal.
func (rs *RuleSet) Summarize(res Results) (Summary, error) {
	if err := rs.check(res); err != nil {
		return Summary{}, err
	}
	var s Summary
	for rule, o := range res {
		if o == Fatal {
			s.FatalsPresent = true
		}
		if !o.Failing() {
			continue
		}
		switch rs.severity[rule] {
		case SeverityNotice:
			s.NoticesPresent = true
		case SeverityWarning:
			s.WarningsPresent = true
		case SeverityError:
			s.ErrorsPresent = true
		}
	}
	return s, nil
}

// Compact returns the search-index form. Null values are omitted, so only
// failing rules appear, each mapped to true.
func (rs *RuleSet) Compact(res Results) (map[string]any, error) {
	if err := rs.check(res); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for rule, o := range res {
		if v := o.Compact(); v != nil {
			out[rule] = v
		}
	}
	return out, nil
}

// Full returns the warehouse form: every evaluated rule with its outcome name.
func (rs *RuleSet) Full(res Results) (map[string]any, error) {
	if err := rs.check(res); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(res))
	for rule, o := range res {
		out[rule] = o.String()
	}
	return out, nil
}

// ParseFull reads outcomes back from the warehouse form.
func (rs *RuleSet) ParseFull(full map[string]string) (Results, error) {
	res := make(Results, len(full))
	for rule, name := range full {
		o, err := ParseOutcome(name)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule, err)
		}
		res[rule] = o
	}
	if err := rs.check(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Project returns the per-rule encoding for target t.
func (rs *RuleSet) Project(res Results, t schema.Target) (map[string]any, error) {
	switch t {
	case schema.TargetElasticsearch:
		return rs.Compact(res)
	case schema.TargetBigQuery:
		return rs.Full(res)
	}
	return nil, fmt.Errorf("%w: %q", schema.ErrUnknownTarget, t)
}

// Document returns the complete lint value of a certificate for target t:
// the linter version, the derived summary flags and the projected rules.
func (rs *RuleSet) Document(version uint16, res Results, t schema.Target) (map[string]any, error) {
	sum, err := rs.Summarize(res)
	if err != nil {
		return nil, err
	}
	lints, err := rs.Project(res, t)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"version":          version,
		"notices_present":  sum.NoticesPresent,
		"warnings_present": sum.WarningsPresent,
		"errors_present":   sum.ErrorsPresent,
		"fatals_present":   sum.FatalsPresent,
		"lints":            lints,
	}, nil
}
