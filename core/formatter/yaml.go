package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zdb/zschema/core/schema"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string        { return "yaml" }
func (f *YAMLFormatter) Description() string { return "YAML output format" }

// FormatSummaries formats a schema listing as YAML.
func (f *YAMLFormatter) FormatSummaries(w io.Writer, sums []schema.Summary) error {
	return f.encode(w, map[string]any{
		"count":   len(sums),
		"schemas": sums,
	})
}

// FormatSchema formats a schema description as YAML.
func (f *YAMLFormatter) FormatSchema(w io.Writer, desc schema.FieldSchema) error {
	return f.encode(w, desc)
}

// FormatValue formats any value as YAML. Values are passed through JSON
// first so json struct tags (render output, diffs) name the keys.
func (f *YAMLFormatter) FormatValue(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return f.encode(w, generic)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
