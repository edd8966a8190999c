package namespace

import (
	"math"

	"github.com/samber/lo"

	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
)

var systemDatabases = []string{"admin", "local", "config"}

// IsSystemDatabase reports whether name is one of the databases the server manages itself.
func IsSystemDatabase(name string) bool {
	return lo.Contains(systemDatabases, name)
}

// Counts accumulates namespace statistics over the user databases of one cluster.
type Counts struct {
	Views       int64
	Objects     int64
	Indexes     int64
	Collections int64
	Databases   int64
	DataSize    float64
}

// Field is one named counter value.
type Field struct {
	Key   string
	Value any
}

// Fold adds one database's measurements. Identifiers outside the namespace catalog are ignored.
func (c *Counts) Fold(results []measurement.Result) {
	c.Databases++

	for _, res := range results {
		v := res.Stats.Max

		switch res.ID {
		case measurement.DatabaseViewCount:
			c.Views += round(v)
		case measurement.DatabaseObjectCount:
			c.Objects += round(v)
		case measurement.DatabaseIndexCount:
			c.Indexes += round(v)
		case measurement.DatabaseCollectionCount:
			c.Collections += round(v)
		case measurement.DatabaseDataSize:
			c.DataSize += v
		}
	}
}

// Fields returns the counters in record order.
func (c Counts) Fields() []Field {
	return []Field{
		{Key: "views", Value: c.Views},
		{Key: "objects", Value: c.Objects},
		{Key: "indexes", Value: c.Indexes},
		{Key: "collections", Value: c.Collections},
		{Key: "databases", Value: c.Databases},
		{Key: "data_size", Value: c.DataSize},
	}
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
