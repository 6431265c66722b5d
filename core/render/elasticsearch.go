package render

import (
	"github.com/zdb/zschema/core/schema"
)

// ESProperty is one node of an Elasticsearch mapping.
type ESProperty struct {
	Type       string                `json:"type,omitempty"`
	Analyzer   string                `json:"analyzer,omitempty"`
	Dynamic    bool                  `json:"dynamic,omitempty"`
	Properties map[string]ESProperty `json:"properties,omitempty"`
	Fields     map[string]ESProperty `json:"fields,omitempty"`
}

// ElasticsearchRenderer produces index mappings. Lists map to their element
// type since every Elasticsearch field may hold an array.
type ElasticsearchRenderer struct {
	// RawField is the sub-field name for untokenized copies of analyzed strings.
	RawField string
}

// NewElasticsearchRenderer creates a renderer using the "raw" sub-field.
func NewElasticsearchRenderer() *ElasticsearchRenderer {
	return &ElasticsearchRenderer{RawField: "raw"}
}

func (e *ElasticsearchRenderer) Target() schema.Target { return schema.TargetElasticsearch }

func (e *ElasticsearchRenderer) Description() string {
	return "Elasticsearch index mapping"
}

// Render returns {name: {"properties": {...}}}.
func (e *ElasticsearchRenderer) Render(name string, rec *schema.Record) (any, error) {
	return map[string]ESProperty{name: e.record(rec)}, nil
}

// Mapping returns the mapping of rec without the name wrapper.
func (e *ElasticsearchRenderer) Mapping(rec *schema.Record) ESProperty {
	return e.record(rec)
}

func (e *ElasticsearchRenderer) record(rec *schema.Record) ESProperty {
	p := ESProperty{
		Dynamic:    rec.AllowUnknown(),
		Properties: make(map[string]ESProperty),
	}
	for _, f := range rec.VisibleFields(schema.TargetElasticsearch) {
		p.Properties[f.Name] = e.field(f.Type)
	}
	if len(p.Properties) == 0 && !p.Dynamic {
		p.Type = "object"
	}
	return p
}

func (e *ElasticsearchRenderer) field(ft schema.FieldType) ESProperty {
	switch v := ft.(type) {
	case *schema.Record:
		return e.record(v)
	case schema.List:
		return e.field(v.Elem())
	case schema.NestedList:
		return e.field(v.Elem())
	case schema.Leaf:
		native := v.Native(schema.TargetElasticsearch)
		p := ESProperty{Type: native.Type, Analyzer: native.Analyzer}
		if v.Attributes().IncludeRaw && v.Analyzed() {
			p.Fields = map[string]ESProperty{e.RawField: {Type: "keyword"}}
		}
		return p
	}
	return ESProperty{}
}

func init() {
	DefaultRegistry.Register(NewElasticsearchRenderer())
}
