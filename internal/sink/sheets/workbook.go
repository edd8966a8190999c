package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"

// Workbook is the subset of a spreadsheet the sink needs.
type Workbook interface {
	// RecreateSheet drops the sheet named title when it exists and adds an empty one.
	RecreateSheet(ctx context.Context, title string) (sheetID int64, err error)
	// SetCell overwrites one cell, e.g. "A1".
	SetCell(ctx context.Context, title, cell string, value any) error
	// AppendRow adds a row after the last non-empty one.
	AppendRow(ctx context.Context, title string, row []any) error
	// FormatHeader styles the given zero-based row over columns [0, cols).
	FormatHeader(ctx context.Context, sheetID, row, cols int64) error
}

// GoogleWorkbook implements Workbook with the Sheets v4 API.
type GoogleWorkbook struct {
	srv           *gsheets.Service
	spreadsheetID string
}

// NewGoogleWorkbook authenticates with a service-account JSON key. uri is the spreadsheet URL or bare id.
func NewGoogleWorkbook(ctx context.Context, credentialsJSON []byte, uri string) (*GoogleWorkbook, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, scopeSpreadsheets)
	if err != nil {
		return nil, fmt.Errorf("JWTConfigFromJSON: %w", err)
	}

	srv, err := gsheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService: %w", err)
	}

	id, err := SpreadsheetID(uri)
	if err != nil {
		return nil, err
	}

	return &GoogleWorkbook{srv: srv, spreadsheetID: id}, nil
}

// SpreadsheetID extracts the id from a spreadsheet URL such as
// https://docs.google.com/spreadsheets/d/<id>/edit. A bare id is returned as is.
func SpreadsheetID(uri string) (string, error) {
	if !strings.Contains(uri, "/") {
		if uri == "" {
			return "", errors.New("empty spreadsheet uri")
		}
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("url.Parse: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "d" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("no spreadsheet id in %q", uri)
}

// RecreateSheet implements Workbook.
func (wb *GoogleWorkbook) RecreateSheet(ctx context.Context, title string) (int64, error) {
	ss, err := wb.srv.Spreadsheets.Get(wb.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("Spreadsheets.Get: %w", err)
	}

	var reqs []*gsheets.Request
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			reqs = append(reqs, &gsheets.Request{DeleteSheet: &gsheets.DeleteSheetRequest{SheetId: sh.Properties.SheetId}})
		}
	}

	reqs = append(reqs, &gsheets.Request{AddSheet: &gsheets.AddSheetRequest{
		Properties: &gsheets.SheetProperties{
			Title:          title,
			GridProperties: &gsheets.GridProperties{RowCount: 2, ColumnCount: 1},
		},
	}})

	resp, err := wb.srv.Spreadsheets.BatchUpdate(wb.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("Spreadsheets.BatchUpdate: %w", err)
	}

	last := resp.Replies[len(resp.Replies)-1]
	if last == nil || last.AddSheet == nil || last.AddSheet.Properties == nil {
		return 0, errors.New("AddSheet: empty reply")
	}

	return last.AddSheet.Properties.SheetId, nil
}

// SetCell implements Workbook.
func (wb *GoogleWorkbook) SetCell(ctx context.Context, title, cell string, value any) error {
	_, err := wb.srv.Spreadsheets.Values.Update(wb.spreadsheetID, a1(title, cell), &gsheets.ValueRange{
		Values: [][]any{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Values.Update: %w", err)
	}

	return nil
}

// AppendRow implements Workbook.
func (wb *GoogleWorkbook) AppendRow(ctx context.Context, title string, row []any) error {
	_, err := wb.srv.Spreadsheets.Values.Append(wb.spreadsheetID, a1(title, "A2"), &gsheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Values.Append: %w", err)
	}

	return nil
}

// FormatHeader implements Workbook.
func (wb *GoogleWorkbook) FormatHeader(ctx context.Context, sheetID, row, cols int64) error {
	black := &gsheets.Color{Red: 0, Green: 0, Blue: 0, ForceSendFields: []string{"Red", "Green", "Blue"}}
	white := &gsheets.Color{Red: 1, Green: 1, Blue: 1}

	req := &gsheets.Request{RepeatCell: &gsheets.RepeatCellRequest{
		Range: &gsheets.GridRange{
			SheetId:          sheetID,
			StartRowIndex:    row,
			EndRowIndex:      row + 1,
			StartColumnIndex: 0,
			EndColumnIndex:   cols,
			ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
		},
		Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
			BackgroundColor:     black,
			HorizontalAlignment: "CENTER",
			WrapStrategy:        "WRAP",
			TextFormat: &gsheets.TextFormat{
				ForegroundColor: white,
				FontSize:        10,
				Bold:            true,
			},
		}},
		Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment,wrapStrategy)",
	}}

	_, err := wb.srv.Spreadsheets.BatchUpdate(wb.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{req},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Spreadsheets.BatchUpdate: %w", err)
	}

	return nil
}

func a1(title, cell string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cell
}
