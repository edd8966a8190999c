// Package sheets writes report records as rows of a spreadsheet worksheet.
package sheets

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
)

const (
	statusCell = "A1"
	// headerRow is the zero-based index of the header row, right under the status cell.
	headerRow = 1

	statusHeaders  = "Creating Headers....."
	statusComplete = "COMPLETE!"
)

var _ sink.Sink = (*Sink)(nil)

// Sink writes one row per record into a freshly recreated worksheet. The header starts with the
// keys of the first record and widens when a later record brings a new key; rows written before
// the widening keep an empty cell in the new column.
type Sink struct {
	wb      Workbook
	title   string
	curTime utils.Provider[time.Time]

	sheetID int64
	started bool
	header  []string
	seen    map[string]struct{}
}

// Config - Sink config
type Config struct {
	Workbook Workbook
	// Title names the worksheet, usually the organization or project name
	Title   string
	CurTime utils.Provider[time.Time]
}

// New creates a Sink. The worksheet is recreated on the first write.
func New(cfg Config) *Sink {
	curTime := cfg.CurTime
	if curTime == nil {
		curTime = func(context.Context) time.Time { return time.Now() }
	}

	return &Sink{wb: cfg.Workbook, title: cfg.Title, curTime: curTime}
}

func (s *Sink) start(ctx context.Context) error {
	id, err := s.wb.RecreateSheet(ctx, s.title)
	if err != nil {
		return fmt.Errorf("RecreateSheet: %w", err)
	}

	s.sheetID, s.started = id, true

	return s.status(ctx, statusHeaders)
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, rec report.Record) error {
	if !s.started {
		if err := s.start(ctx); err != nil {
			return err
		}
	}

	if s.header == nil {
		s.header = rec.Keys()
		s.seen = make(map[string]struct{}, len(s.header))
		for _, k := range s.header {
			s.seen[k] = struct{}{}
		}

		if err := s.wb.AppendRow(ctx, s.title, toRow(s.header)); err != nil {
			return fmt.Errorf("AppendRow header: %w", err)
		}
	} else if err := s.widen(ctx, rec); err != nil {
		return err
	}

	name := recordName(rec)
	start := s.curTime(ctx)

	if err := s.status(ctx, "Pulling Data for "+name); err != nil {
		return err
	}

	if err := s.wb.AppendRow(ctx, s.title, rec.Row(s.header, cell)); err != nil {
		return fmt.Errorf("AppendRow %s: %w", name, err)
	}

	took := s.curTime(ctx).Sub(start).Round(100 * time.Millisecond)

	return s.status(ctx, fmt.Sprintf("Completed %s (%s)", name, took))
}

// Close formats the header row and marks the worksheet complete.
func (s *Sink) Close(ctx context.Context) error {
	if !s.started {
		if err := s.start(ctx); err != nil {
			return err
		}
	}

	if len(s.header) > 0 {
		if err := s.wb.FormatHeader(ctx, s.sheetID, headerRow, int64(len(s.header))); err != nil {
			return fmt.Errorf("FormatHeader: %w", err)
		}
	}

	log.Printf("[INFO] sheets: worksheet %q complete, %d columns", s.title, len(s.header))

	return s.status(ctx, statusComplete)
}

// widen appends the keys of rec missing from the header as new header cells.
func (s *Sink) widen(ctx context.Context, rec report.Record) error {
	for _, k := range rec.Keys() {
		if _, ok := s.seen[k]; ok {
			continue
		}

		cellRef := fmt.Sprintf("%s%d", columnName(len(s.header)), headerRow+1)
		if err := s.wb.SetCell(ctx, s.title, cellRef, k); err != nil {
			return fmt.Errorf("SetCell header %s: %w", k, err)
		}

		s.seen[k] = struct{}{}
		s.header = append(s.header, k)

		log.Printf("[INFO] sheets: header widened with %s at %s", k, cellRef)
	}

	return nil
}

// columnName returns the A1 column letters of the zero-based column index i.
func columnName(i int) string {
	name := ""
	for i++; i > 0; i = (i - 1) / 26 {
		name = string(rune('A'+(i-1)%26)) + name
	}

	return name
}

func (s *Sink) status(ctx context.Context, text string) error {
	if err := s.wb.SetCell(ctx, s.title, statusCell, text); err != nil {
		return fmt.Errorf("SetCell status: %w", err)
	}

	return nil
}

// cell projects a value for the spreadsheet: enums become labels and missing values empty cells.
func cell(v report.Value) any {
	if v.IsNull() {
		return ""
	}

	return v.Label()
}

func toRow(keys []string) []any {
	row := make([]any, len(keys))
	for i, k := range keys {
		row[i] = k
	}

	return row
}

func recordName(rec report.Record) string {
	if v, ok := rec.Get("name"); ok {
		return v.String()
	}

	return "record"
}
