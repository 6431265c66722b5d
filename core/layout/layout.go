// Package layout builds aggregate documents keyed by port and protocol.
//
// A host document holds one sub-record per open port, named by the decimal
// port number. Each port record holds one field per protocol, which is
// either a registered protocol schema or a record of scan names, each a
// registered schema:
//
//	"443": {"https": {"tls": tls_result, "heartbleed": heartbleed_result}}
//
// Build output is deterministic: ports ascend numerically, protocol and
// scan names are sorted, and fixed fields follow the ports in the order
// they were added.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/zdb/zschema/core/schema"
)

// ErrDuplicateBinding is returned when a (port, protocol, scan) slot is bound
// twice, or a protocol is bound both directly and per scan.
var ErrDuplicateBinding = errors.New("duplicate binding")

// Port is a TCP/UDP port used as a document key.
type Port uint16

// PortLookup is the pseudo-port that holds DNS lookups in website documents.
const PortLookup Port = 0

// Key is the field name of the port in a document.
func (p Port) Key() string { return strconv.Itoa(int(p)) }

func (p Port) String() string { return p.Key() }

// ParsePort parses a decimal port key.
func ParsePort(s string) (Port, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return Port(n), nil
}

// Binding places a registered schema at port/protocol, or at
// port/protocol/scan when Scan is set.
type Binding struct {
	Port     Port   `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Scan     string `json:"scan,omitempty" yaml:"scan,omitempty"`
	Schema   string `json:"schema" yaml:"schema"`
}

func (b Binding) String() string {
	if b.Scan == "" {
		return fmt.Sprintf("%d/%s", b.Port, b.Protocol)
	}
	return fmt.Sprintf("%d/%s/%s", b.Port, b.Protocol, b.Scan)
}

// Lookup resolves a schema name, normally registry.Registry.Get.
type Lookup func(name string) (*schema.Record, error)

// Builder accumulates bindings and fixed fields for one aggregate document.
type Builder struct {
	lookup   Lookup
	bindings []Binding
	fields   []schema.Field
}

// NewBuilder creates a builder that resolves schema names with lookup.
func NewBuilder(lookup Lookup) *Builder {
	return &Builder{lookup: lookup}
}

// Bind places schemaName directly at port/protocol.
func (b *Builder) Bind(port Port, protocol, schemaName string) *Builder {
	return b.Add(Binding{Port: port, Protocol: protocol, Schema: schemaName})
}

// BindScan places schemaName at port/protocol/scan.
func (b *Builder) BindScan(port Port, protocol, scan, schemaName string) *Builder {
	return b.Add(Binding{Port: port, Protocol: protocol, Scan: scan, Schema: schemaName})
}

func (b *Builder) Add(binding Binding) *Builder {
	b.bindings = append(b.bindings, binding)
	return b
}

// Field adds a fixed, non-port field such as tags or location.
func (b *Builder) Field(name string, ft schema.FieldType) *Builder {
	b.fields = append(b.fields, schema.Field{Name: name, Type: ft})
	return b
}

// Bindings returns the bindings added so far.
func (b *Builder) Bindings() []Binding {
	return append([]Binding(nil), b.bindings...)
}

type protocolSlot struct {
	direct *Binding
	scans  map[string]Binding
}

// Build resolves every binding and assembles the document record.
func (b *Builder) Build(opts ...schema.Option) (*schema.Record, error) {
	ports := make(map[Port]map[string]*protocolSlot)
	for i := range b.bindings {
		bd := b.bindings[i]
		if bd.Protocol == "" || bd.Schema == "" {
			return nil, fmt.Errorf("binding %s: protocol and schema are required", bd)
		}
		protocols, ok := ports[bd.Port]
		if !ok {
			protocols = make(map[string]*protocolSlot)
			ports[bd.Port] = protocols
		}
		slot, ok := protocols[bd.Protocol]
		if !ok {
			slot = &protocolSlot{scans: make(map[string]Binding)}
			protocols[bd.Protocol] = slot
		}
		if err := slot.add(bd); err != nil {
			return nil, err
		}
	}

	portNums := make([]Port, 0, len(ports))
	for p := range ports {
		portNums = append(portNums, p)
	}
	sort.Slice(portNums, func(i, j int) bool { return portNums[i] < portNums[j] })

	fields := make([]schema.Field, 0, len(ports)+len(b.fields))
	for _, port := range portNums {
		rec, err := b.buildPort(ports[port])
		if err != nil {
			return nil, err
		}
		fields = append(fields, schema.Field{Name: port.Key(), Type: rec})
	}
	fields = append(fields, b.fields...)

	return schema.NewRecord(fields, opts...)
}

func (s *protocolSlot) add(bd Binding) error {
	if bd.Scan == "" {
		if s.direct != nil || len(s.scans) > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateBinding, bd)
		}
		s.direct = &bd
		return nil
	}
	if s.direct != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, bd)
	}
	if _, ok := s.scans[bd.Scan]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, bd)
	}
	s.scans[bd.Scan] = bd
	return nil
}

func (b *Builder) buildPort(protocols map[string]*protocolSlot) (*schema.Record, error) {
	var fields []schema.Field
	for _, protocol := range sortedKeys(protocols) {
		slot := protocols[protocol]
		if slot.direct != nil {
			rec, err := b.resolve(*slot.direct)
			if err != nil {
				return nil, err
			}
			fields = append(fields, schema.Field{Name: protocol, Type: rec})
			continue
		}
		var scans []schema.Field
		for _, scan := range sortedKeys(slot.scans) {
			rec, err := b.resolve(slot.scans[scan])
			if err != nil {
				return nil, err
			}
			scans = append(scans, schema.Field{Name: scan, Type: rec})
		}
		rec, err := schema.NewRecord(scans)
		if err != nil {
			return nil, err
		}
		fields = append(fields, schema.Field{Name: protocol, Type: rec})
	}
	return schema.NewRecord(fields)
}

func (b *Builder) resolve(bd Binding) (*schema.Record, error) {
	rec, err := b.lookup(bd.Schema)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", bd, err)
	}
	return rec, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
