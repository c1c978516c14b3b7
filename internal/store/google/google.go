package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"screentime/internal/core"
	"screentime/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Records"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var (
	_ store.RecordWriter = (*Client)(nil)
	_ store.RecordLoader = (*Client)(nil)
)

// Options configure a Sheets-backed record store.
type Options struct {
	SpreadsheetID string
	// SheetName is the tab holding the Category,Value table (default "Records").
	SheetName string
	// Inline credentials take precedence over the file.
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client authenticated with a service account.
// When neither credential option is set GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName(opts.SheetName))
	return NewWithService(svc, spreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheetName(sheet)}
}

func sheetName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return defaultSheetName
	}
	return s
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(opts.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) tableRange() string {
	return fmt.Sprintf("%s!A:B", c.sheet)
}

// AppendRecord adds one row under the table, writing the header first when the
// sheet is empty.
func (c *Client) AppendRecord(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	head, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!A1:B1", c.sheet)).Context(ctx).Do()
	if err != nil {
		return &core.IOError{Op: "read", Path: c.sheet, Err: err}
	}

	rows := [][]any{}
	if len(head.Values) == 0 {
		rows = append(rows, headerRow())
	}
	rows = append(rows, recordRow(r))

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.tableRange(), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return &core.IOError{Op: "append", Path: c.sheet, Err: err}
	}
	return nil
}

// ReplaceAllRecords clears the table and writes the header followed by rs.
func (c *Client) ReplaceAllRecords(ctx context.Context, rs []core.Record) error {
	if err := core.ValidateRecords(rs); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := make([][]any, 0, len(rs)+1)
	rows = append(rows, headerRow())
	for _, r := range rs {
		rows = append(rows, recordRow(r))
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.tableRange(), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return &core.IOError{Op: "clear", Path: c.sheet, Err: err}
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheet), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return &core.IOError{Op: "update", Path: c.sheet, Err: err}
	}
	return nil
}

// LoadRecords reads the table. An empty sheet reports found=false.
func (c *Client) LoadRecords(ctx context.Context) ([]core.Record, bool, error) {
	if c.svc == nil {
		return nil, false, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.tableRange()).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, false, &core.IOError{Op: "read", Path: c.sheet, Err: err}
	}
	if len(resp.Values) == 0 {
		return nil, false, nil
	}
	records, err := parseRecords(resp.Values, c.sheet)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func headerRow() []any {
	row := make([]any, len(core.StoreHeader))
	for i, h := range core.StoreHeader {
		row[i] = h
	}
	return row
}

func recordRow(r core.Record) []any {
	return []any{r.Category, r.Value}
}
