package measurement

import (
	"math"
	"time"
)

// Point is one raw sample as returned by the API. A nil Value means the API had no data for that step.
type Point struct {
	Timestamp time.Time
	Value     *float64
}

// Stats is the statistical summary of one series.
type Stats struct {
	Mean  float64
	Max   float64
	Min   float64
	Last  float64
	Count int
}

// Result is one summarized series for one host.
type Result struct {
	ID     ID
	Stats  Stats
	HostID string
	Start  time.Time
	End    time.Time
}

// Value returns the scalar the identifier reduces to.
func (r Result) Value() float64 {
	return r.ID.Reduce(r.Stats)
}

// Summarize reduces raw points, skipping null samples. ok is false when no sample carried a value.
func Summarize(points []Point) (stats Stats, ok bool) {
	var sum float64

	stats.Min = math.Inf(1)
	stats.Max = math.Inf(-1)

	for _, p := range points {
		if p.Value == nil {
			continue
		}

		v := *p.Value
		sum += v
		stats.Count++
		stats.Last = v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}

	if stats.Count == 0 {
		return Stats{}, false
	}

	stats.Mean = sum / float64(stats.Count)

	return stats, true
}

// NewResult summarizes points into a Result. ok is false when the series is missing.
func NewResult(id ID, hostID string, points []Point) (Result, bool) {
	stats, ok := Summarize(points)
	if !ok {
		return Result{}, false
	}

	res := Result{ID: id, Stats: stats, HostID: hostID}
	for _, p := range points {
		if p.Timestamp.IsZero() {
			continue
		}
		if res.Start.IsZero() || p.Timestamp.Before(res.Start) {
			res.Start = p.Timestamp
		}
		if p.Timestamp.After(res.End) {
			res.End = p.Timestamp
		}
	}

	return res, true
}
