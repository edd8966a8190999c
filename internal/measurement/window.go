package measurement

import (
	"fmt"
	"strings"
)

// Granularity is the sampling resolution of a requested series.
type Granularity struct {
	name  string
	label string
}

// Period is the lookback window of a requested series.
type Period struct {
	name  string
	label string
}

var (
	TenSecond  = Granularity{"TEN_SECOND", "PT10S"}
	Minute     = Granularity{"MINUTE", "PT1M"}
	FiveMinute = Granularity{"FIVE_MINUTE", "PT5M"}
	Hour       = Granularity{"HOUR", "PT1H"}
	Day        = Granularity{"DAY", "P1D"}

	Hours1  = Period{"HOURS_1", "PT1H"}
	Hours8  = Period{"HOURS_8", "PT8H"}
	Hours24 = Period{"HOURS_24", "PT24H"}
	Hours48 = Period{"HOURS_48", "PT48H"}
	Weeks1  = Period{"WEEKS_1", "P1W"}
	Weeks4  = Period{"WEEKS_4", "P4W"}
	Months1 = Period{"MONTHS_1", "P1M"}
	Months2 = Period{"MONTHS_2", "P2M"}
	Years1  = Period{"YEARS_1", "P1Y"}
	Years2  = Period{"YEARS_2", "P2Y"}
)

var (
	granularities = []Granularity{TenSecond, Minute, FiveMinute, Hour, Day}
	periods       = []Period{Hours1, Hours8, Hours24, Hours48, Weeks1, Weeks4, Months1, Months2, Years1, Years2}
)

// Name returns the enum name, e.g. HOUR.
func (g Granularity) Name() string { return g.name }

// Label returns the ISO-8601 value sent to the API, e.g. PT1H.
func (g Granularity) Label() string { return g.label }

func (g Granularity) String() string { return g.name }

// IsZero reports whether g was never set.
func (g Granularity) IsZero() bool { return g.name == "" }

// Name returns the enum name, e.g. WEEKS_1.
func (p Period) Name() string { return p.name }

// Label returns the ISO-8601 value sent to the API, e.g. P1W.
func (p Period) Label() string { return p.label }

func (p Period) String() string { return p.name }

// IsZero reports whether p was never set.
func (p Period) IsZero() bool { return p.name == "" }

// ParseGranularity accepts either the enum name or the ISO-8601 label.
func ParseGranularity(s string) (Granularity, error) {
	for _, g := range granularities {
		if strings.EqualFold(s, g.name) || strings.EqualFold(s, g.label) {
			return g, nil
		}
	}

	return Granularity{}, fmt.Errorf("unknown granularity %q", s)
}

// ParsePeriod accepts either the enum name or the ISO-8601 label.
func ParsePeriod(s string) (Period, error) {
	for _, p := range periods {
		if strings.EqualFold(s, p.name) || strings.EqualFold(s, p.label) {
			return p, nil
		}
	}

	return Period{}, fmt.Errorf("unknown period %q", s)
}
