package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/testutils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
)

type fakeCollection struct {
	docs []any
	err  error
}

func (f *fakeCollection) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{InsertedID: len(f.docs)}, nil
}

func (f *fakeCollection) Find(_ context.Context, _ interface{}, _ ...*options.FindOptions) (*mongo.Cursor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func testRecord(t *testing.T) report.Record {
	t.Helper()

	rec, err := report.FromPairs([]report.Field{
		{Key: "name", Value: report.String("orders")},
		{Key: "electable", Value: report.Int(3)},
		{Key: "CACHE_USED_BYTES", Value: report.Float(1.5)},
		{Key: "Granularity", Value: report.Enum("HOUR", "PT1H")},
	})
	require.NoError(t, err)

	return rec
}

// TestDocument verifies enum names and the run fields.
func TestDocument(t *testing.T) {
	t.Parallel()

	run := testutils.MustParseTime(t, "2024-05-01T10:30:00+02:00")

	doc := Document(testRecord(t), run)
	m := doc.Map()

	assert.Equal(t, "HOUR", m["Granularity"])
	assert.Equal(t, int64(3), m["electable"])
	assert.Equal(t, run.UTC(), m[KeyRunUTCDate])
	assert.Equal(t, run.Unix(), m[KeyRunTimestamp])
	assert.Equal(t, "2024-05-01T08:30:00Z", m[KeyRunDateString])
	assert.Equal(t, testutils.MustParseDate(t, "2024-05-01"), m[KeyRunDate])

	assert.Equal(t, "name", doc[0].Key)
	assert.Equal(t, KeyRunDate, doc[len(doc)-1].Key)
}

// TestSink_Write verifies that one document is inserted per record.
func TestSink_Write(t *testing.T) {
	t.Parallel()

	coll := &fakeCollection{}
	s := New(coll, testutils.MustParseDate(t, "2024-05-01"))

	require.NoError(t, s.Write(context.Background(), testRecord(t)))
	require.NoError(t, s.Write(context.Background(), testRecord(t)))
	require.NoError(t, s.Close(context.Background()))

	assert.Len(t, coll.docs, 2)
}

// TestSink_WriteError verifies that insert faults are returned.
func TestSink_WriteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := New(&fakeCollection{err: boom}, testutils.MustParseDate(t, "2024-05-01"))

	require.ErrorIs(t, s.Write(context.Background(), testRecord(t)), boom)
}

// TestCollectionName verifies that spaces are replaced.
func TestCollectionName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Acme_Corp_Prod", CollectionName("Acme Corp Prod"))
}

// TestRecords verifies that stored documents read back as records without the id.
func TestRecords(t *testing.T) {
	t.Parallel()

	run := testutils.MustParseTime(t, "2024-05-01T10:00:00Z")
	coll := &fakeCollection{docs: []any{
		append(bson.D{{Key: "_id", Value: primitive.NewObjectID()}}, Document(testRecord(t), run)...),
	}}

	var recs []report.Record
	for rec, err := range Records(context.Background(), coll, nil) {
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	require.Len(t, recs, 1)
	assert.False(t, recs[0].Has("_id"))

	v, ok := recs[0].Get("Granularity")
	require.True(t, ok)
	assert.Equal(t, "HOUR", v.Label())

	v, ok = recs[0].Get(KeyRunUTCDate)
	require.True(t, ok)
	assert.Equal(t, "2024-05-01T10:00:00Z", v.Label())
}

// TestRecords_FindError verifies that a query fault is yielded once.
func TestRecords_FindError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	n := 0
	for _, err := range Records(context.Background(), &fakeCollection{err: boom}, nil) {
		require.ErrorIs(t, err, boom)
		n++
	}

	assert.Equal(t, 1, n)
}
