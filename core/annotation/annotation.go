// Package annotation supplies the metadata keys that scan annotations may
// attach to protocol results and hosts.
package annotation

import (
	"fmt"

	"github.com/zdb/zschema/core/schema"
)

// KeySource provides metadata key names at initialization time.
type KeySource interface {
	// LocalMetadataKeys are the keys of the metadata record inside each
	// protocol result.
	LocalMetadataKeys() []string

	// GlobalMetadataKeys are the keys of the host-level metadata record.
	GlobalMetadataKeys() []string
}

// Static is a KeySource backed by fixed lists, usually read from config.
type Static struct {
	Local  []string `yaml:"local_keys"`
	Global []string `yaml:"global_keys"`
}

func (s Static) LocalMetadataKeys() []string  { return append([]string(nil), s.Local...) }
func (s Static) GlobalMetadataKeys() []string { return append([]string(nil), s.Global...) }

// Default returns the keys produced by the stock annotation set.
func Default() Static {
	return Static{
		Local:  []string{"manufacturer", "product", "version", "revision", "description"},
		Global: []string{"manufacturer", "product", "version", "revision", "os", "os_version", "os_description", "device_type", "description"},
	}
}

// MetadataRecord builds a record with one field of type leaf per key.
func MetadataRecord(keys []string, leaf schema.FieldType) (*schema.Record, error) {
	fields := make([]schema.Field, len(keys))
	for i, key := range keys {
		fields[i] = schema.F(key, leaf)
	}
	rec, err := schema.NewRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("metadata record: %w", err)
	}
	return rec, nil
}
