package schema

import (
	"errors"
	"reflect"
	"testing"
)

func baseTLS(t *testing.T) *Record {
	t.Helper()
	rec, err := NewRecord([]Field{
		F("version", NewLeaf(LeafString)),
		F("cipher", NewLeaf(LeafString)),
		F("handshake", MustRecord([]Field{
			F("length", NewLeaf(LeafUnsigned32BitInteger)),
		})),
	})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	return rec.Named("tls_result")
}

func TestExtendPreservesParentFields(t *testing.T) {
	parent := baseTLS(t)
	own := MustRecord([]Field{F("ip_address", NewLeaf(LeafIPv4Address, Required()))}).Named("https")

	out, err := Extend(parent, own)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	want := []string{"version", "cipher", "handshake", "ip_address"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if out.Name() != "https" {
		t.Errorf("Name() = %q, want https", out.Name())
	}
	if out.Extends() != "tls_result" {
		t.Errorf("Extends() = %q, want tls_result", out.Extends())
	}
	for _, f := range parent.Fields() {
		got, _ := out.Field(f.Name)
		if !Equal(got, f.Type) {
			t.Errorf("field %q changed by extension", f.Name)
		}
	}
	ip, _ := out.Field("ip_address")
	if !ip.Attributes().Required {
		t.Error("ip_address should be required")
	}
}

func TestExtendOverridesInPlace(t *testing.T) {
	parent := baseTLS(t)
	own := MustRecord([]Field{
		F("cipher", Enum([]string{"aes", "chacha"}, WithDoc("negotiated cipher"))),
		F("extra", NewLeaf(LeafBoolean)),
	})

	out, err := Extend(parent, own)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	want := []string{"version", "cipher", "handshake", "extra"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	cipher, _ := out.Field("cipher")
	if cipher.TypeName() != "Enum" || cipher.Doc() != "negotiated cipher" {
		t.Errorf("cipher = %s %q, want child definition", cipher.TypeName(), cipher.Doc())
	}

	// The parent is untouched.
	orig, _ := parent.Field("cipher")
	if orig.TypeName() != "String" {
		t.Errorf("parent cipher = %s, want String", orig.TypeName())
	}
	if parent.Len() != 3 {
		t.Errorf("parent Len() = %d, want 3", parent.Len())
	}
}

func TestExtendKindConflict(t *testing.T) {
	tests := []struct {
		name string
		own  FieldType
	}{
		{"leaf over record", NewLeaf(LeafString)},
		{"list over record", ListOf(NewLeaf(LeafString))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			own := MustRecord([]Field{F("handshake", tt.own)})
			_, err := Extend(baseTLS(t), own)
			if !errors.Is(err, ErrFieldKindConflict) {
				t.Errorf("Extend error = %v, want ErrFieldKindConflict", err)
			}
		})
	}

	own := MustRecord([]Field{F("version", MustRecord(nil))})
	if _, err := Extend(baseTLS(t), own); !errors.Is(err, ErrFieldKindConflict) {
		t.Errorf("record over leaf: error = %v, want ErrFieldKindConflict", err)
	}
}

func TestExtendExclusionPropagation(t *testing.T) {
	parent := MustRecord([]Field{
		F("cidr", NewLeaf(LeafString, ExcludeFrom(TargetBigQuery))),
		F("names", ListOf(NewLeaf(LeafFQDN))),
	}).Named("policy")

	// Redeclaring without include keeps the parent's exclusion.
	kept, err := Extend(parent, MustRecord([]Field{F("cidr", NewLeaf(LeafString, WithDoc("x")))}))
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	cidr, _ := kept.Field("cidr")
	if !cidr.Attributes().ExcludedFrom(TargetBigQuery) {
		t.Error("cidr should stay excluded from bigquery")
	}
	if len(kept.VisibleFields(TargetBigQuery)) != 1 {
		t.Errorf("VisibleFields(bigquery) = %d, want 1", len(kept.VisibleFields(TargetBigQuery)))
	}

	// An explicit include wins.
	back, err := Extend(parent, MustRecord([]Field{F("cidr", NewLeaf(LeafString, IncludeIn(TargetBigQuery)))}))
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	cidr, _ = back.Field("cidr")
	if cidr.Attributes().ExcludedFrom(TargetBigQuery) {
		t.Error("cidr should be re-included in bigquery")
	}

	// Child exclusions add to the parent's.
	more, err := Extend(parent, MustRecord([]Field{F("names", ListOf(NewLeaf(LeafFQDN), ExcludeFrom(TargetElasticsearch)))}))
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	names, _ := more.Field("names")
	if !names.Attributes().ExcludedFrom(TargetElasticsearch) || names.Attributes().ExcludedFrom(TargetBigQuery) {
		t.Errorf("names exclusions = %v, want [elasticsearch]", names.Attributes().Exclude)
	}
}

func TestExtendRecordExclusion(t *testing.T) {
	location := MustRecord([]Field{F("city", NewLeaf(LeafString))}).Named("location")
	restricted, err := Extend(location, MustRecord(nil, ExcludeFrom(TargetBigQuery)).Named("restricted_location"))
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if Visible(restricted, TargetBigQuery) {
		t.Error("restricted location should be hidden from bigquery")
	}
	if !Visible(restricted, TargetElasticsearch) {
		t.Error("restricted location should be visible in elasticsearch")
	}
	if !Visible(location, TargetBigQuery) {
		t.Error("parent should stay visible in bigquery")
	}
}

func TestExcludeKeepsLogicalType(t *testing.T) {
	rec := MustRecord([]Field{
		F("a", NewLeaf(LeafString)),
		F("b", NewLeaf(LeafBoolean)),
	})

	out, err := Exclude(rec, []string{"a"}, TargetElasticsearch)
	if err != nil {
		t.Fatalf("Exclude failed: %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("Len() = %d, want 2", out.Len())
	}
	if got := len(out.VisibleFields(TargetElasticsearch)); got != 1 {
		t.Errorf("VisibleFields(elasticsearch) = %d, want 1", got)
	}
	if err := out.Validate(map[string]any{"a": 1}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("excluded field should still be validated, got %v", err)
	}

	if _, err := Exclude(rec, []string{"missing"}, TargetBigQuery); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Exclude(missing) error = %v, want ErrUnknownField", err)
	}

	in, err := Include(out, []string{"a"}, TargetElasticsearch)
	if err != nil {
		t.Fatalf("Include failed: %v", err)
	}
	if got := len(in.VisibleFields(TargetElasticsearch)); got != 2 {
		t.Errorf("after Include VisibleFields = %d, want 2", got)
	}
}

func TestSetRequired(t *testing.T) {
	rec := MustRecord([]Field{F("ip", NewLeaf(LeafIPv4Address))})

	req, err := SetRequired(rec, true, "ip")
	if err != nil {
		t.Fatalf("SetRequired failed: %v", err)
	}
	if err := req.Validate(map[string]any{}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("Validate(empty) = %v, want ErrMissingRequired", err)
	}
	if err := rec.Validate(map[string]any{}); err != nil {
		t.Errorf("original record should accept empty object, got %v", err)
	}
}

func TestNewRecordDuplicateField(t *testing.T) {
	_, err := NewRecord([]Field{
		F("a", NewLeaf(LeafString)),
		F("a", NewLeaf(LeafBoolean)),
	})
	if !errors.Is(err, ErrDuplicateField) {
		t.Errorf("NewRecord error = %v, want ErrDuplicateField", err)
	}
}
