// Package catalog loads the scan-document schemas into a registry.
//
// The declarations are data, embedded from data/:
//
//	aliases.yaml    named leaf aliases (CensysString)
//	lints.yaml      certificate lint rule names
//	records.yaml    protocol results and shared sub-records, in dependency order
//	documents.yaml  aggregate documents: port/protocol/scan bindings plus fixed fields
//
// Load also registers three synthesized schemas: local_metadata and
// zdb_metadata from the annotation keys, and zlint_lints from the lint rules.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/zdb/zschema/core/annotation"
	"github.com/zdb/zschema/core/layout"
	"github.com/zdb/zschema/core/lint"
	"github.com/zdb/zschema/core/registry"
	"github.com/zdb/zschema/core/schema"
)

//go:embed data/*.yaml
var embedded embed.FS

// Names of the synthesized schemas.
const (
	LocalMetadata = "local_metadata"
	ZDBMetadata   = "zdb_metadata"
	LintRules     = "zlint_lints"
)

// Data returns the embedded declaration files.
func Data() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Options configures Load.
type Options struct {
	// Keys supplies the metadata keys (default: annotation.Default()).
	Keys annotation.KeySource

	// FS holds the declaration files (default: Data()).
	FS fs.FS

	Logger zerolog.Logger
}

// Catalog describes what Load registered.
type Catalog struct {
	Rules   *lint.RuleSet
	Aliases map[string]schema.FieldType

	// Records lists registered record names in declaration order.
	Records []string

	// Documents maps aggregate document names to their bindings.
	Documents map[string][]layout.Binding

	// Redefinitions lists schema names and field paths declared more than
	// once. The last declaration wins.
	Redefinitions []string
}

// Load registers every declared schema in reg. Aggregate documents are
// registered lazily and built on first lookup; call reg.All to build them
// eagerly.
func Load(reg *registry.Registry, opts Options) (*Catalog, error) {
	if opts.Keys == nil {
		opts.Keys = annotation.Default()
	}
	if opts.FS == nil {
		opts.FS = Data()
	}

	l := &loader{
		reg:    reg,
		fsys:   opts.FS,
		logger: opts.Logger.With().Str("component", "catalog").Logger(),
		cat: &Catalog{
			Aliases:   make(map[string]schema.FieldType),
			Documents: make(map[string][]layout.Binding),
		},
	}
	l.parser = &schema.Parser{Resolve: l.resolve, OnRedefine: l.redefined}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"aliases", l.loadAliases},
		{"lints", l.loadLints},
		{"metadata", func() error { return l.loadMetadata(opts.Keys) }},
		{"records", l.loadRecords},
		{"documents", l.loadDocuments},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("load %s: %w", step.name, err)
		}
	}

	l.logger.Info().
		Int("records", len(l.cat.Records)).
		Int("documents", len(l.cat.Documents)).
		Int("lint_rules", l.cat.Rules.Len()).
		Msg("catalog loaded")
	return l.cat, nil
}

type loader struct {
	mu     sync.Mutex
	reg    *registry.Registry
	fsys   fs.FS
	logger zerolog.Logger
	parser *schema.Parser
	cat    *Catalog
}

func (l *loader) resolve(name string) (schema.FieldType, error) {
	return l.resolveIn(l.reg, name)
}

// resolveIn looks name up in reg, which inside a lazy build is the view
// that tracks the schemas being built.
func (l *loader) resolveIn(reg *registry.Registry, name string) (schema.FieldType, error) {
	if ft, ok := l.cat.Aliases[name]; ok {
		return ft, nil
	}
	return reg.Resolve(name)
}

func (l *loader) redefined(path string) {
	l.logger.Warn().Str("field", path).Msg("field declared twice, keeping the last declaration")
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cat.Redefinitions = append(l.cat.Redefinitions, path)
}

func (l *loader) decode(file string, v any) error {
	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

func (l *loader) loadAliases() error {
	var doc struct {
		Aliases yaml.Node `yaml:"aliases"`
	}
	if err := l.decode("aliases.yaml", &doc); err != nil {
		return err
	}
	node := &doc.Aliases
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("aliases.yaml: aliases must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		ft, err := l.parser.ParseType(name, node.Content[i+1])
		if err != nil {
			return err
		}
		if ft.Kind() != schema.KindLeaf {
			return fmt.Errorf("alias %s: only leaf aliases are supported", name)
		}
		l.cat.Aliases[name] = ft
	}
	return nil
}

func (l *loader) loadLints() error {
	var doc struct {
		Rules []string `yaml:"rules"`
	}
	if err := l.decode("lints.yaml", &doc); err != nil {
		return err
	}
	rules, err := lint.NewRuleSet(doc.Rules)
	if err != nil {
		return err
	}
	l.cat.Rules = rules
	return l.reg.RegisterLazy(LintRules, func(*registry.Registry) (*schema.Record, error) {
		return rules.Record(), nil
	})
}

func (l *loader) loadMetadata(keys annotation.KeySource) error {
	leaf, err := l.resolve("CensysString")
	if err != nil {
		leaf = schema.NewLeaf(schema.LeafWhitespaceAnalyzedString, schema.WithRaw())
	}
	for name, list := range map[string][]string{
		LocalMetadata: keys.LocalMetadataKeys(),
		ZDBMetadata:   keys.GlobalMetadataKeys(),
	} {
		rec, err := annotation.MetadataRecord(list, leaf)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := l.reg.Register(name, rec); err != nil {
			return err
		}
	}
	return nil
}

type recordDecl struct {
	Name         string    `yaml:"name"`
	Extends      string    `yaml:"extends"`
	Doc          string    `yaml:"doc"`
	Exclude      []string  `yaml:"exclude"`
	Include      []string  `yaml:"include"`
	AllowUnknown bool      `yaml:"allow_unknown"`
	Fields       yaml.Node `yaml:"fields"`
	line         int
}

func (l *loader) loadRecords() error {
	var doc struct {
		Records []yaml.Node `yaml:"records"`
	}
	if err := l.decode("records.yaml", &doc); err != nil {
		return err
	}

	decls := make([]recordDecl, len(doc.Records))
	last := make(map[string]int)
	for i := range doc.Records {
		if err := doc.Records[i].Decode(&decls[i]); err != nil {
			return fmt.Errorf("records.yaml line %d: %w", doc.Records[i].Line, err)
		}
		decls[i].line = doc.Records[i].Line
		if decls[i].Name == "" {
			return fmt.Errorf("records.yaml line %d: record without name", decls[i].line)
		}
		if prev, ok := last[decls[i].Name]; ok {
			l.logger.Warn().
				Str("schema", decls[i].Name).
				Int("line", decls[prev].line).
				Int("redefined_at", decls[i].line).
				Msg("schema declared twice, keeping the last declaration")
			l.cat.Redefinitions = append(l.cat.Redefinitions, decls[i].Name)
		}
		last[decls[i].Name] = i
	}

	for i, d := range decls {
		if last[d.Name] != i {
			continue
		}
		if err := l.registerRecord(d); err != nil {
			return fmt.Errorf("records.yaml line %d: %w", d.line, err)
		}
		l.cat.Records = append(l.cat.Records, d.Name)
	}
	return nil
}

func (l *loader) registerRecord(d recordDecl) error {
	opts, err := recordOptions(d.Doc, d.Exclude, d.Include, d.AllowUnknown)
	if err != nil {
		return err
	}

	var fields []schema.Field
	if d.Fields.Kind != 0 {
		fields, err = l.parser.ParseFields(d.Name, &d.Fields)
		if err != nil {
			return err
		}
	}
	own, err := schema.NewRecord(fields, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	if d.Extends == "" {
		return l.reg.Register(d.Name, own)
	}
	_, err = l.reg.Define(d.Name, d.Extends, own)
	return err
}

func recordOptions(doc string, exclude, include []string, allowUnknown bool) ([]schema.Option, error) {
	var opts []schema.Option
	if doc != "" {
		opts = append(opts, schema.WithDoc(doc))
	}
	if allowUnknown {
		opts = append(opts, schema.AllowUnknown())
	}
	for _, name := range exclude {
		t, err := schema.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.ExcludeFrom(t))
	}
	for _, name := range include {
		t, err := schema.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.IncludeIn(t))
	}
	return opts, nil
}

type documentDecl struct {
	Name     string           `yaml:"name"`
	Doc      string           `yaml:"doc"`
	Bindings []layout.Binding `yaml:"bindings"`
	Fields   yaml.Node        `yaml:"fields"`
}

func (l *loader) loadDocuments() error {
	var doc struct {
		Documents []documentDecl `yaml:"documents"`
	}
	if err := l.decode("documents.yaml", &doc); err != nil {
		return err
	}

	for _, d := range doc.Documents {
		if d.Name == "" {
			return fmt.Errorf("documents.yaml: document without name")
		}
		l.cat.Documents[d.Name] = d.Bindings
		err := l.reg.RegisterLazy(d.Name, func(reg *registry.Registry) (*schema.Record, error) {
			return l.buildDocument(reg, d)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) buildDocument(reg *registry.Registry, d documentDecl) (*schema.Record, error) {
	b := layout.NewBuilder(reg.Get)
	for _, bd := range d.Bindings {
		b.Add(bd)
	}
	if d.Fields.Kind != 0 {
		parser := &schema.Parser{
			Resolve:    func(name string) (schema.FieldType, error) { return l.resolveIn(reg, name) },
			OnRedefine: l.redefined,
		}
		fields, err := parser.ParseFields(d.Name, &d.Fields)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			b.Field(f.Name, f.Type)
		}
	}
	var opts []schema.Option
	if d.Doc != "" {
		opts = append(opts, schema.WithDoc(d.Doc))
	}
	return b.Build(opts...)
}
