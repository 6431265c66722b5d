// Package ports defines the contracts between the schema core and the
// adapters that serve it. Implementations live in adapters/ and core/.
package ports

import (
	"time"

	"github.com/zdb/zschema/core/schema"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// SchemaSource is the read side of a schema registry.
// *registry.Registry implements it.
type SchemaSource interface {
	Get(name string) (*schema.Record, error)
	Names() []string
	Summaries() ([]schema.Summary, error)
}
