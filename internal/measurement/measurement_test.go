package measurement

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCatalogs_Sizes verifies the fixed catalog sizes.
func TestCatalogs_Sizes(t *testing.T) {
	t.Parallel()

	assert.Len(t, HostCatalog(), 14)
	assert.Len(t, DiskCatalog(), 10)
	assert.Len(t, NamespaceCatalog(), 5)
}

// TestCatalogs_NoOverlap verifies that no identifier appears twice across catalogs.
func TestCatalogs_NoOverlap(t *testing.T) {
	t.Parallel()

	all := append(append(HostCatalog(), DiskCatalog()...), NamespaceCatalog()...)
	assert.Len(t, lo.Uniq(all), len(all))
}

// TestCatalogs_CallerCannotMutate verifies that accessors hand out copies.
func TestCatalogs_CallerCannotMutate(t *testing.T) {
	t.Parallel()

	ids := HostCatalog()
	ids[0] = "BOGUS"

	assert.Equal(t, CacheBytesRead, HostCatalog()[0])
}

func TestID_Reduce(t *testing.T) {
	t.Parallel()

	stats := Stats{Mean: 2, Max: 9}

	assert.InDelta(t, 2.0, DiskIOPSRead.Reduce(stats), 0.0001)
	assert.InDelta(t, 9.0, DiskIOPSReadMax.Reduce(stats), 0.0001)
	assert.True(t, DiskUtilizationMax.IsMax())
	assert.False(t, CacheUsed.IsMax())
}

// TestSummarize_SkipsNulls verifies that null samples are ignored.
func TestSummarize_SkipsNulls(t *testing.T) {
	t.Parallel()

	points := []Point{
		{Value: lo.ToPtr(1.0)},
		{Value: nil},
		{Value: lo.ToPtr(5.0)},
		{Value: lo.ToPtr(3.0)},
	}

	stats, ok := Summarize(points)
	require.True(t, ok)

	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 3.0, stats.Mean, 0.0001)
	assert.InDelta(t, 5.0, stats.Max, 0.0001)
	assert.InDelta(t, 1.0, stats.Min, 0.0001)
	assert.InDelta(t, 3.0, stats.Last, 0.0001)
}

// TestSummarize_AllNullIsMissing verifies that a series without values is reported as missing.
func TestSummarize_AllNullIsMissing(t *testing.T) {
	t.Parallel()

	_, ok := Summarize([]Point{{}, {}})
	assert.False(t, ok)

	_, ok = Summarize(nil)
	assert.False(t, ok)
}

func TestNewResult_Window(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	res, ok := NewResult(CacheUsed, "host-1:27017", []Point{
		{Timestamp: t1, Value: lo.ToPtr(4.0)},
		{Timestamp: t0, Value: lo.ToPtr(2.0)},
	})
	require.True(t, ok)

	assert.Equal(t, t0, res.Start)
	assert.Equal(t, t1, res.End)
	assert.Equal(t, "host-1:27017", res.HostID)
	assert.InDelta(t, 3.0, res.Value(), 0.0001)
}

func TestParseGranularity(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"HOUR", "hour", "PT1H"} {
		g, err := ParseGranularity(in)
		require.NoError(t, err, in)
		assert.Equal(t, Hour, g)
	}

	_, err := ParseGranularity("FORTNIGHT")
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	p, err := ParsePeriod("weeks_1")
	require.NoError(t, err)
	assert.Equal(t, Weeks1, p)
	assert.Equal(t, "P1W", p.Label())
	assert.Equal(t, "WEEKS_1", p.Name())

	_, err = ParsePeriod("")
	assert.Error(t, err)
}
