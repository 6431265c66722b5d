package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser turns YAML type declarations into field types.
//
// A type is either a scalar string naming a leaf kind, a named type, or
// ListOf(X); or a mapping with these keys:
//
//	type          leaf kind, named type, ListOf or NestedListOf
//	of            element type of ListOf / NestedListOf
//	subfield      inner field name of NestedListOf
//	values        closed Enum values
//	fields        inline record fields (type omitted)
//	doc, required, exclude, include, include_raw, allow_unknown
type Parser struct {
	// Resolve looks up a named type (a registered record or an alias).
	Resolve func(name string) (FieldType, error)

	// OnRedefine is called when a field name is declared twice in one
	// mapping. The later declaration wins and keeps the first position.
	OnRedefine func(path string)
}

var typeKeys = map[string]bool{
	"type": true, "of": true, "subfield": true, "values": true, "fields": true,
	"doc": true, "required": true, "exclude": true, "include": true,
	"include_raw": true, "allow_unknown": true,
}

// ParseRecord parses a YAML document holding a type declaration.
func (p *Parser) ParseRecord(data []byte) (*Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("parse yaml: empty document")
	}
	ft, err := p.ParseType("", doc.Content[0])
	if err != nil {
		return nil, err
	}
	rec, ok := ft.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: expected a record, got %s", ErrTypeMismatch, ft.TypeName())
	}
	return rec, nil
}

// ParseFields parses a mapping of field name to type declaration,
// preserving declaration order.
func (p *Parser) ParseFields(path string, node *yaml.Node) ([]Field, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nodeError(node, "%s: fields must be a mapping", path)
	}
	var fields []Field
	pos := make(map[string]int)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		fieldPath := joinPath(path, name)
		ft, err := p.ParseType(fieldPath, node.Content[i+1])
		if err != nil {
			return nil, err
		}
		if j, ok := pos[name]; ok {
			if p.OnRedefine != nil {
				p.OnRedefine(fieldPath)
			}
			fields[j].Type = ft
			continue
		}
		pos[name] = len(fields)
		fields = append(fields, Field{Name: name, Type: ft})
	}
	return fields, nil
}

// ParseType parses one type declaration. path is used in error messages.
func (p *Parser) ParseType(path string, node *yaml.Node) (FieldType, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return p.ParseString(path, node.Value)
	case yaml.MappingNode:
		return p.parseSpec(path, node)
	}
	return nil, nodeError(node, "%s: type must be a name or a mapping", path)
}

// ParseString parses a type expression: a leaf kind, a named type or ListOf(X).
func (p *Parser) ParseString(path, expr string) (FieldType, error) {
	expr = strings.TrimSpace(expr)
	if inner, ok := strings.CutPrefix(expr, "ListOf("); ok && strings.HasSuffix(inner, ")") {
		elem, err := p.ParseString(path, strings.TrimSuffix(inner, ")"))
		if err != nil {
			return nil, err
		}
		return ListOf(elem), nil
	}
	if kind, ok := LookupLeafKind(expr); ok {
		return NewLeaf(kind), nil
	}
	if p.Resolve != nil {
		ft, err := p.Resolve(expr)
		if err == nil {
			return ft, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nil, fmt.Errorf("%s: %w: %q", path, ErrUnknownType, expr)
}

type typeSpec struct {
	Type         string   `yaml:"type"`
	Subfield     string   `yaml:"subfield"`
	Values       []string `yaml:"values"`
	Doc          string   `yaml:"doc"`
	Required     bool     `yaml:"required"`
	Exclude      []string `yaml:"exclude"`
	Include      []string `yaml:"include"`
	IncludeRaw   bool     `yaml:"include_raw"`
	AllowUnknown bool     `yaml:"allow_unknown"`
}

func (p *Parser) parseSpec(path string, node *yaml.Node) (FieldType, error) {
	var of, fields *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !typeKeys[key] {
			return nil, nodeError(node.Content[i], "%s: unknown key %q", path, key)
		}
		switch key {
		case "of":
			of = node.Content[i+1]
		case "fields":
			fields = node.Content[i+1]
		}
	}

	var spec typeSpec
	if err := node.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	opts, err := spec.options()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var ft FieldType
	switch {
	case spec.Type == "" && fields != nil:
		fs, err := p.ParseFields(path, fields)
		if err != nil {
			return nil, err
		}
		rec, err := NewRecord(fs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ft = rec
	case spec.Type == "":
		return nil, nodeError(node, "%s: type or fields required", path)
	case fields != nil:
		return nil, nodeError(node, "%s: fields only allowed on inline records", path)
	case spec.Type == "ListOf" || spec.Type == "NestedListOf":
		if of == nil {
			return nil, nodeError(node, "%s: %s requires of", path, spec.Type)
		}
		elem, err := p.ParseType(path, of)
		if err != nil {
			return nil, err
		}
		if spec.Type == "ListOf" {
			ft = ListOf(elem)
			break
		}
		if spec.Subfield == "" {
			return nil, nodeError(node, "%s: NestedListOf requires subfield", path)
		}
		ft = NestedListOf(elem, spec.Subfield)
	case spec.Type == string(LeafEnum):
		ft = Enum(spec.Values)
	default:
		if len(spec.Values) > 0 {
			return nil, nodeError(node, "%s: values only allowed on Enum", path)
		}
		ft, err = p.ParseString(path, spec.Type)
		if err != nil {
			return nil, err
		}
	}
	return With(ft, opts...), nil
}

func (s typeSpec) options() ([]Option, error) {
	var opts []Option
	if s.Required {
		opts = append(opts, Required())
	}
	if s.Doc != "" {
		opts = append(opts, WithDoc(s.Doc))
	}
	if s.IncludeRaw {
		opts = append(opts, WithRaw())
	}
	if s.AllowUnknown {
		opts = append(opts, AllowUnknown())
	}
	for _, list := range []struct {
		names []string
		opt   func(...Target) Option
	}{{s.Exclude, ExcludeFrom}, {s.Include, IncludeIn}} {
		for _, name := range list.names {
			t, err := ParseTarget(name)
			if err != nil {
				return nil, err
			}
			opts = append(opts, list.opt(t))
		}
	}
	return opts, nil
}

func nodeError(node *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}
