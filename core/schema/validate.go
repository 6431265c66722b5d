package schema

import (
	"errors"
	"strconv"
	"strings"
)

// ValidationError is a single failure at a dotted field path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationErrors collects every failure found in one value.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func (es *ValidationErrors) add(path string, err error) {
	*es = append(*es, &ValidationError{Path: path, Err: err})
}

func (es ValidationErrors) errOrNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// ValidationResult is the outcome of validating one document. Results are
// reported per document so a failing document never aborts a batch.
type ValidationResult struct {
	Schema string   `json:"schema"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateDocument validates doc against ft and reports every failure.
// Unlike FieldType.Validate, a nil document is rejected.
func ValidateDocument(name string, ft FieldType, doc any) ValidationResult {
	res := ValidationResult{Schema: name, Valid: true}
	if doc == nil {
		res.Valid = false
		res.Errors = []string{ErrTypeMismatch.Error() + ": empty document"}
		return res
	}
	err := ft.Validate(doc)
	if err == nil {
		return res
	}
	res.Valid = false
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			res.Errors = append(res.Errors, e.Error())
		}
		return res
	}
	res.Errors = []string{err.Error()}
	return res
}
