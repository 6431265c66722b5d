package formatter

import (
	"encoding/json"
	"io"

	"github.com/zdb/zschema/core/schema"
)

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

// FormatSummaries formats a schema listing as JSON.
func (f *JSONFormatter) FormatSummaries(w io.Writer, sums []schema.Summary) error {
	return f.FormatValue(w, map[string]any{
		"count":   len(sums),
		"schemas": sums,
	})
}

// FormatSchema formats a schema description as JSON.
func (f *JSONFormatter) FormatSchema(w io.Writer, desc schema.FieldSchema) error {
	return f.FormatValue(w, desc)
}

// FormatValue formats any value as JSON.
func (f *JSONFormatter) FormatValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	Register(NewJSONFormatter())
}
