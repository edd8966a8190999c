// Package parquet buffers report records and writes them as one parquet file.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"os"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/compress"
	"github.com/apache/arrow/go/v11/parquet/pqarrow"
	"github.com/dustin/go-humanize"

	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
)

var _ sink.Sink = (*Sink)(nil)

// Sink collects records and writes them on Close. The schema covers every key of every record.
type Sink struct {
	w      io.Writer
	closer io.Closer
	recs   []report.Record
}

// New creates a Sink writing to w.
func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Create creates the file at path and returns a Sink writing to it.
func Create(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("os.Create: %w", err)
	}

	return &Sink{w: f, closer: f}, nil
}

// Write implements sink.Sink.
func (s *Sink) Write(_ context.Context, rec report.Record) error {
	s.recs = append(s.recs, rec)
	return nil
}

// Close writes the buffered records. Nothing is written when no record arrived.
func (s *Sink) Close(_ context.Context) error {
	err := s.flush()

	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close file: %w", cerr))
		}
	}

	return err
}

func (s *Sink) flush() error {
	if len(s.recs) == 0 {
		return nil
	}

	schema := Schema(s.recs...)

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for _, rec := range s.recs {
		for i, f := range schema.Fields() {
			v, _ := rec.Get(f.Name)
			appendValue(builder.Field(i), v)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	cw := &countingWriter{w: s.w}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(schema, cw, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("pqarrow.NewFileWriter: %w", err)
	}

	if err := writer.Write(record); err != nil {
		return fmt.Errorf("Write: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("writer.Close: %w", err)
	}

	log.Printf("[INFO] parquet: %d rows, %d columns, %s", len(s.recs), len(schema.Fields()), humanize.Bytes(uint64(cw.n)))

	return nil
}

// Schema maps the union of the record keys, in first-seen order, to nullable arrow columns. A
// column takes its type from the first non-null value; an all-null column is a string column.
func Schema(recs ...report.Record) *arrow.Schema {
	var (
		keys  []string
		kinds = make(map[string]report.Kind)
	)

	for _, rec := range recs {
		for _, f := range rec.Fields() {
			kind, seen := kinds[f.Key]
			if !seen {
				keys = append(keys, f.Key)
			}
			if !seen || kind == report.KindNull {
				kinds[f.Key] = f.Value.Kind()
			}
		}
	}

	cols := make([]arrow.Field, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, arrow.Field{Name: k, Type: arrowType(kinds[k]), Nullable: true})
	}

	return arrow.NewSchema(cols, nil)
}

func arrowType(k report.Kind) arrow.DataType {
	switch k {
	case report.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case report.KindInt:
		return arrow.PrimitiveTypes.Int64
	case report.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue appends v to a schema column. Values of another kind are
// converted where possible and nulled otherwise.
func appendValue(b array.Builder, v report.Value) {
	if v.IsNull() {
		b.AppendNull()
		return
	}

	switch cb := b.(type) {
	case *array.Float64Builder:
		if f, ok := v.Float64(); ok {
			cb.Append(f)
			return
		}
	case *array.Int64Builder:
		if x, ok := v.Label().(int64); ok {
			cb.Append(x)
			return
		}
	case *array.BooleanBuilder:
		if x, ok := v.Label().(bool); ok {
			cb.Append(x)
			return
		}
	case *array.StringBuilder:
		cb.Append(v.String())
		return
	}

	b.AppendNull()
}

// Export writes every record of seq to path.
func Export(ctx context.Context, seq iter.Seq2[report.Record, error], path string) (int, error) {
	s, err := Create(path)
	if err != nil {
		return 0, err
	}

	return sink.Drain(ctx, seq, s)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
