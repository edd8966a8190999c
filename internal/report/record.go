package report

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/mgmonteleone/AtlasFleetReport/internal/cluster"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/namespace"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/errors"
	"github.com/mgmonteleone/AtlasFleetReport/internal/snapshot"
)

// Field keys of the run parameters.
const (
	KeyGranularity = "Granularity"
	KeyPeriod      = "Period"
)

// Field - one named cell of a record
type Field struct {
	Key   string
	Value Value
}

// Record is an ordered set of uniquely keyed fields: one row of the fleet report.
type Record struct {
	fields []Field
	index  map[string]int
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Keys returns the field keys in order.
func (r Record) Keys() []string {
	return lo.Map(r.fields, func(f Field, _ int) string { return f.Key })
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)

	return out
}

// Get looks a field up by key.
func (r Record) Get(key string) (Value, bool) {
	i, ok := r.index[key]
	if !ok {
		return Value{}, false
	}

	return r.fields[i].Value, true
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Project flattens the record into a key/value map using fn for every value.
func (r Record) Project(fn func(Value) any) map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		out[f.Key] = fn(f.Value)
	}

	return out
}

// Row projects the values onto keys. Keys the record lacks give nil.
func (r Record) Row(keys []string, fn func(Value) any) []any {
	return lo.Map(keys, func(k string, _ int) any {
		v, ok := r.Get(k)
		if !ok {
			return nil
		}

		return fn(v)
	})
}

// FromPairs builds a record from ordered key/value pairs.
func FromPairs(pairs []Field) (Record, error) {
	r := Record{index: make(map[string]int, len(pairs))}
	for _, f := range pairs {
		if err := r.add(f.Key, f.Value); err != nil {
			return Record{}, err
		}
	}

	return r, nil
}

func (r *Record) add(key string, v Value) error {
	if _, dup := r.index[key]; dup {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateField, key)
	}

	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: v})

	return nil
}

// Builder assembles a record from the sections of one cluster. Optional sections stay out of
// the record unless set.
type Builder struct {
	desc    cluster.Descriptor
	ns      *namespace.Counts
	metrics []snapshot.Reading
	hasRun  bool
	gran    measurement.Granularity
	period  measurement.Period
}

// NewBuilder starts a record from the descriptor fields.
func NewBuilder(desc cluster.Descriptor) *Builder {
	return &Builder{desc: desc}
}

// WithNamespace merges namespace counters.
func (b *Builder) WithNamespace(counts namespace.Counts) *Builder {
	b.ns = &counts
	return b
}

// WithMetrics merges the readings of a primary snapshot. A nil snapshot is a no-op.
func (b *Builder) WithMetrics(snap *snapshot.Snapshot) *Builder {
	if snap != nil {
		b.metrics = snap.Readings()
	}

	return b
}

// WithRun appends the run parameters.
func (b *Builder) WithRun(g measurement.Granularity, p measurement.Period) *Builder {
	b.hasRun, b.gran, b.period = true, g, p
	return b
}

// Build flattens the sections in record order.
func (b *Builder) Build() (Record, error) {
	pairs := descriptorFields(b.desc)

	if b.ns != nil {
		for _, f := range b.ns.Fields() {
			pairs = append(pairs, Field{Key: f.Key, Value: Of(f.Value)})
		}
	}

	for _, rd := range b.metrics {
		pairs = append(pairs, Field{Key: rd.ID.String(), Value: Float(rd.Value)})
	}

	if b.hasRun {
		pairs = append(pairs,
			Field{Key: KeyGranularity, Value: Enum(b.gran.Name(), b.gran.Label())},
			Field{Key: KeyPeriod, Value: Enum(b.period.Name(), b.period.Label())},
		)
	}

	return FromPairs(pairs)
}

func descriptorFields(d cluster.Descriptor) []Field {
	return []Field{
		{Key: "ro", Value: Int(d.Nodes.ReadOnly)},
		{Key: "analytics", Value: Int(d.Nodes.Analytics)},
		{Key: "electable", Value: Int(d.Nodes.Electable)},
		{Key: "shards", Value: Int(d.Shards)},
		{Key: "io_type", Value: String(d.VolumeType)},
		{Key: "IOPS", Value: Int(d.IOPS)},
		{Key: "tier", Value: String(d.Tier)},
		{Key: "disk_size", Value: Float(d.DiskSizeGB)},
		{Key: "name", Value: String(d.Name)},
		{Key: "id", Value: String(d.ID)},
		{Key: "project_id", Value: String(d.ProjectID)},
		{Key: "project_name", Value: String(d.ProjectName)},
		{Key: "mongodb_major_version", Value: String(d.MajorVersion)},
		{Key: "mongodb_version", Value: String(d.Version)},
		{Key: "state_name", Value: String(string(d.State))},
	}
}
