package annotation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zdb/zschema/core/schema"
)

func TestMetadataRecord(t *testing.T) {
	keys := Default().LocalMetadataKeys()
	rec, err := MetadataRecord(keys, schema.NewLeaf(schema.LeafString))
	if err != nil {
		t.Fatalf("MetadataRecord failed: %v", err)
	}
	if !reflect.DeepEqual(rec.Names(), keys) {
		t.Errorf("Names() = %v, want %v", rec.Names(), keys)
	}
	if err := rec.Validate(map[string]any{"product": "router"}); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestMetadataRecordDuplicateKey(t *testing.T) {
	_, err := MetadataRecord([]string{"os", "os"}, schema.NewLeaf(schema.LeafString))
	if !errors.Is(err, schema.ErrDuplicateField) {
		t.Errorf("MetadataRecord error = %v, want ErrDuplicateField", err)
	}
}

func TestStaticCopiesKeys(t *testing.T) {
	s := Static{Local: []string{"a"}}
	keys := s.LocalMetadataKeys()
	keys[0] = "b"
	if s.Local[0] != "a" {
		t.Error("LocalMetadataKeys exposed the backing slice")
	}
	var _ KeySource = s
}
