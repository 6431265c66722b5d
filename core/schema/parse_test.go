package schema

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParseRecord(t *testing.T) {
	yaml := `
fields:
  ip:
    type: IPv4Address
    required: true
  tags: ListOf(String)
  protocols:
    type: ListOf
    of:
      type: String
      exclude: [bigquery]
  curve:
    type: Enum
    values: [P-256, P-384]
  paths:
    type: NestedListOf
    of: HexString
    subfield: path
  metadata:
    allow_unknown: true
    fields: {}
  location: location
`
	location := MustRecord([]Field{F("city", NewLeaf(LeafString))}).Named("location")
	p := &Parser{Resolve: func(name string) (FieldType, error) {
		if name == "location" {
			return location, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}}

	rec, err := p.ParseRecord([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}

	want := []string{"ip", "tags", "protocols", "curve", "paths", "metadata", "location"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	ip, _ := rec.Field("ip")
	if !ip.Attributes().Required || ip.TypeName() != "IPv4Address" {
		t.Errorf("ip = %s required=%v", ip.TypeName(), ip.Attributes().Required)
	}
	protocols, _ := rec.Field("protocols")
	if Visible(protocols, TargetBigQuery) {
		t.Error("protocols should be hidden from bigquery")
	}
	curve, _ := rec.Field("curve")
	if got := curve.(Leaf).Values(); !reflect.DeepEqual(got, []string{"P-256", "P-384"}) {
		t.Errorf("curve values = %v", got)
	}
	paths, _ := rec.Field("paths")
	if nl, ok := paths.(NestedList); !ok || nl.Subfield() != "path" {
		t.Errorf("paths = %#v, want NestedList with subfield path", paths)
	}
	metadata, _ := rec.Field("metadata")
	if !metadata.(*Record).AllowUnknown() {
		t.Error("metadata should allow unknown keys")
	}
	loc, _ := rec.Field("location")
	if loc.TypeName() != "location" {
		t.Errorf("location type = %s", loc.TypeName())
	}
}

func TestParseRedefinition(t *testing.T) {
	yaml := `
fields:
  a: String
  b: Boolean
  a: Unsigned8BitInteger
`
	var redefined []string
	p := &Parser{OnRedefine: func(path string) { redefined = append(redefined, path) }}

	rec, err := p.ParseRecord([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if got := rec.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want [a b]", got)
	}
	a, _ := rec.Field("a")
	if a.TypeName() != "Unsigned8BitInteger" {
		t.Errorf("a = %s, want last declaration", a.TypeName())
	}
	if !reflect.DeepEqual(redefined, []string{"a"}) {
		t.Errorf("redefined = %v, want [a]", redefined)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"unknown type", "fields: {a: Widget}", ErrUnknownType},
		{"unknown list element", "fields: {a: ListOf(Widget)}", ErrUnknownType},
		{"unknown target", "fields: {a: {type: String, exclude: [solr]}}", ErrUnknownTarget},
		{"scalar root", "String", ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Parser{}).ParseRecord([]byte(tt.yaml))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRecord error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	invalid := []string{
		"fields: {a: {type: String, colour: red}}",
		"fields: {a: {type: ListOf}}",
		"fields: {a: {type: NestedListOf, of: String}}",
		"fields: {a: {doc: nothing}}",
		"fields: {a: {type: String, values: [x]}}",
	}
	for _, y := range invalid {
		if _, err := (&Parser{}).ParseRecord([]byte(y)); err == nil {
			t.Errorf("ParseRecord(%q) should fail", y)
		}
	}
}

func TestDescribe(t *testing.T) {
	rec := MustRecord([]Field{
		F("names", ListOf(NewLeaf(LeafFQDN))),
		F("cidr", NewLeaf(LeafString, ExcludeFrom(TargetBigQuery), WithDoc("block"))),
	}).Named("policy")

	d := Describe(rec)
	if d.Type != "policy" || d.Kind != "record" || len(d.Fields) != 2 {
		t.Fatalf("Describe = %+v", d)
	}
	if d.Fields[0].Elem == nil || d.Fields[0].Elem.Type != "FQDN" {
		t.Errorf("names elem = %+v, want FQDN", d.Fields[0].Elem)
	}
	if !reflect.DeepEqual(d.Fields[1].Exclude, []string{"bigquery"}) || d.Fields[1].Doc != "block" {
		t.Errorf("cidr = %+v", d.Fields[1])
	}
	if n := CountLeaves(rec); n != 2 {
		t.Errorf("CountLeaves = %d, want 2", n)
	}
}
