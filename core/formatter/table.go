package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/zdb/zschema/core/schema"
)

// TableFormatter formats output as aligned text.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatSummaries prints one row per schema.
func (f *TableFormatter) FormatSummaries(w io.Writer, sums []schema.Summary) error {
	if len(sums) == 0 {
		fmt.Fprintln(w, "No schemas registered.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXTENDS\tFIELDS\tEXCLUDED FROM")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, dash(s.Extends), s.Fields, dash(strings.Join(s.Exclude, ",")))
	}
	return tw.Flush()
}

// FormatSchema prints the schema as an indented field tree.
func (f *TableFormatter) FormatSchema(w io.Writer, desc schema.FieldSchema) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := desc.Type
	if desc.Extends != "" {
		header += " (extends " + desc.Extends + ")"
	}
	fmt.Fprintln(tw, header)
	for _, child := range desc.Fields {
		f.writeField(tw, child, 1)
	}
	return tw.Flush()
}

func (f *TableFormatter) writeField(w io.Writer, fs schema.FieldSchema, depth int) {
	fmt.Fprintf(w, "%s%s\t%s\t%s\n", strings.Repeat("  ", depth), fs.Name, typeLabel(fs), flags(fs))
	if fs.Elem != nil && fs.Elem.Kind == "record" {
		fs = *fs.Elem
	}
	for _, child := range fs.Fields {
		f.writeField(w, child, depth+1)
	}
}

// FormatValue prints values as indented JSON; structured exports have no
// natural table form.
func (f *TableFormatter) FormatValue(w io.Writer, v any) error {
	return NewJSONFormatter().FormatValue(w, v)
}

func typeLabel(fs schema.FieldSchema) string {
	switch {
	case fs.Elem != nil && fs.Kind == "nested_list":
		return fmt.Sprintf("NestedListOf(%s, %s)", fs.Elem.Type, fs.Subfield)
	case fs.Elem != nil:
		return fmt.Sprintf("ListOf(%s)", fs.Elem.Type)
	case len(fs.Values) > 0:
		return fmt.Sprintf("Enum[%s]", strings.Join(fs.Values, "|"))
	}
	return fs.Type
}

func flags(fs schema.FieldSchema) string {
	var out []string
	if fs.Required {
		out = append(out, "required")
	}
	if fs.AllowUnknown {
		out = append(out, "open")
	}
	if len(fs.Exclude) > 0 {
		out = append(out, "excluded:"+strings.Join(fs.Exclude, ","))
	}
	return strings.Join(out, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	Register(NewTableFormatter())
}
