package render

import (
	"fmt"
	"unicode"

	"github.com/zdb/zschema/core/schema"
)

// BigQuery column modes.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// BQField is one column of a BigQuery table schema.
type BQField struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Mode        string    `json:"mode"`
	Description string    `json:"description,omitempty"`
	Fields      []BQField `json:"fields,omitempty"`
}

// BigQueryRenderer produces table schemas. Column names that start with a
// digit (port keys) get a "p" prefix, and records with no visible columns
// are dropped since BigQuery rejects empty RECORDs.
type BigQueryRenderer struct{}

func NewBigQueryRenderer() *BigQueryRenderer {
	return &BigQueryRenderer{}
}

func (b *BigQueryRenderer) Target() schema.Target { return schema.TargetBigQuery }

func (b *BigQueryRenderer) Description() string {
	return "BigQuery table schema"
}

// Render returns the column list of the table for rec.
func (b *BigQueryRenderer) Render(name string, rec *schema.Record) (any, error) {
	cols, err := b.Columns(rec)
	if err != nil {
		return nil, fmt.Errorf("render %s for bigquery: %w", name, err)
	}
	return cols, nil
}

// Columns returns the top-level columns of rec.
func (b *BigQueryRenderer) Columns(rec *schema.Record) ([]BQField, error) {
	var cols []BQField
	for _, f := range rec.VisibleFields(schema.TargetBigQuery) {
		col, ok, err := b.field(f.Name, f.Type, "")
		if err != nil {
			return nil, err
		}
		if ok {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// ColumnName maps a field name to a legal BigQuery column name.
func ColumnName(name string) string {
	if name != "" && unicode.IsDigit(rune(name[0])) {
		return "p" + name
	}
	return name
}

func (b *BigQueryRenderer) field(name string, ft schema.FieldType, mode string) (BQField, bool, error) {
	attrs := ft.Attributes()
	if mode == "" {
		mode = ModeNullable
		if attrs.Required {
			mode = ModeRequired
		}
	}
	col := BQField{Name: ColumnName(name), Mode: mode, Description: attrs.Doc}

	switch v := ft.(type) {
	case schema.Leaf:
		col.Type = v.Native(schema.TargetBigQuery).Type
		return col, true, nil
	case *schema.Record:
		sub, err := b.Columns(v)
		if err != nil {
			return BQField{}, false, fmt.Errorf("%s: %w", name, err)
		}
		if len(sub) == 0 {
			return BQField{}, false, nil
		}
		col.Type = "RECORD"
		col.Fields = sub
		return col, true, nil
	case schema.List:
		if v.Elem().Kind() == schema.KindList || v.Elem().Kind() == schema.KindNestedList {
			return BQField{}, false, fmt.Errorf("%s: repeated field of repeated type; use NestedListOf", name)
		}
		elem, ok, err := b.field(name, v.Elem(), ModeRepeated)
		if err != nil || !ok {
			return BQField{}, ok, err
		}
		if elem.Description == "" {
			elem.Description = attrs.Doc
		}
		return elem, true, nil
	case schema.NestedList:
		inner, ok, err := b.field(v.Subfield(), v.Elem(), ModeRepeated)
		if err != nil || !ok {
			return BQField{}, ok, err
		}
		col.Type = "RECORD"
		col.Mode = ModeRepeated
		col.Fields = []BQField{inner}
		return col, true, nil
	}
	return BQField{}, false, fmt.Errorf("%s: unsupported type %s", name, ft.TypeName())
}

func init() {
	DefaultRegistry.Register(NewBigQueryRenderer())
}
