// Package docstore inserts report records as documents into a MongoDB collection.
package docstore

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
)

// DefaultDatabase is the database reports are written to unless configured otherwise.
const DefaultDatabase = "fleetReport"

// Run fields added to every document.
const (
	KeyRunUTCDate    = "run_utc_date"
	KeyRunTimestamp  = "run_timestamp"
	KeyRunDateString = "run_datestring"
	KeyRunDate       = "run_date"
)

// Inserter inserts one document. *mongo.Collection satisfies it.
type Inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Finder runs a query. *mongo.Collection satisfies it.
type Finder interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

var _ sink.Sink = (*Sink)(nil)

// Sink writes one document per record. Every document of a run carries the same run fields.
type Sink struct {
	coll    Inserter
	runTime time.Time
	closer  func(ctx context.Context) error

	written int
}

// New creates a Sink stamping documents with runTime.
func New(coll Inserter, runTime time.Time) *Sink {
	return &Sink{coll: coll, runTime: runTime.UTC()}
}

// Connect dials uri and returns a sink writing into database.collection-for-scope. Closing the sink
// disconnects the client.
func Connect(ctx context.Context, uri, database, scope string, runTime time.Time) (*Sink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}

	s := New(client.Database(database).Collection(CollectionName(scope)), runTime)
	s.closer = client.Disconnect

	return s, nil
}

// CollectionName derives the collection from the scope name.
func CollectionName(scope string) string {
	return strings.ReplaceAll(scope, " ", "_")
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, rec report.Record) error {
	if _, err := s.coll.InsertOne(ctx, Document(rec, s.runTime)); err != nil {
		return fmt.Errorf("InsertOne: %w", err)
	}

	s.written++

	return nil
}

// Close implements sink.Sink.
func (s *Sink) Close(ctx context.Context) error {
	log.Printf("[INFO] docstore: %d documents written", s.written)

	if s.closer == nil {
		return nil
	}

	if err := s.closer(ctx); err != nil {
		return fmt.Errorf("Disconnect: %w", err)
	}

	return nil
}

// Document flattens rec into an ordered document with enums as names, followed by the run fields.
func Document(rec report.Record, runTime time.Time) bson.D {
	fields := rec.Fields()
	doc := make(bson.D, 0, len(fields)+4)

	for _, f := range fields {
		doc = append(doc, bson.E{Key: f.Key, Value: f.Value.Name()})
	}

	utc := runTime.UTC()

	return append(doc,
		bson.E{Key: KeyRunUTCDate, Value: utc},
		bson.E{Key: KeyRunTimestamp, Value: utc.Unix()},
		bson.E{Key: KeyRunDateString, Value: utc.Format(time.RFC3339)},
		bson.E{Key: KeyRunDate, Value: time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)},
	)
}

// Records lazily reads stored documents back as records, dropping the document id.
func Records(ctx context.Context, coll Finder, filter any) iter.Seq2[report.Record, error] {
	return func(yield func(report.Record, error) bool) {
		if filter == nil {
			filter = bson.D{}
		}

		cur, err := coll.Find(ctx, filter)
		if err != nil {
			yield(report.Record{}, fmt.Errorf("Find: %w", err))
			return
		}
		defer cur.Close(ctx) // nolint: errcheck

		for cur.Next(ctx) {
			var doc bson.D
			if err := cur.Decode(&doc); err != nil {
				yield(report.Record{}, fmt.Errorf("Decode: %w", err))
				return
			}

			rec, err := FromDocument(doc)
			if !yield(rec, err) || err != nil {
				return
			}
		}

		if err := cur.Err(); err != nil {
			yield(report.Record{}, fmt.Errorf("cursor: %w", err))
		}
	}
}

// FromDocument converts a stored document into a record.
func FromDocument(doc bson.D) (report.Record, error) {
	pairs := make([]report.Field, 0, len(doc))

	for _, e := range doc {
		if e.Key == "_id" {
			continue
		}

		pairs = append(pairs, report.Field{Key: e.Key, Value: fromBSON(e.Value)})
	}

	return report.FromPairs(pairs)
}

func fromBSON(v any) report.Value {
	switch x := v.(type) {
	case time.Time:
		return report.String(x.UTC().Format(time.RFC3339))
	case primitive.DateTime:
		return report.String(x.Time().UTC().Format(time.RFC3339))
	default:
		return report.Of(x)
	}
}
