package schema

import "fmt"

// Target is an export backend that field types are projected onto.
type Target string

const (
	TargetElasticsearch Target = "elasticsearch"
	TargetBigQuery      Target = "bigquery"
)

// Targets returns every supported target in a stable order.
func Targets() []Target {
	return []Target{TargetElasticsearch, TargetBigQuery}
}

// ParseTarget converts a target name. "es" and "bq" are accepted as short forms.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "elasticsearch", "es":
		return TargetElasticsearch, nil
	case "bigquery", "bq":
		return TargetBigQuery, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

func (t Target) String() string { return string(t) }
