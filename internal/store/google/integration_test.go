//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"screentime/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/store/google

func TestIntegration_RecordsRoundTrip(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Options{
		SpreadsheetID:      spreadsheetID,
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	week := core.WeekRecords(map[string]float64{"Monday": 1.5, "Friday": 4})
	if err := client.ReplaceAllRecords(ctx, week); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := client.AppendRecord(ctx, core.Record{Category: "Integration", Value: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, found, err := client.LoadRecords(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got) != len(week)+1 || got[len(got)-1].Category != "Integration" {
		t.Fatalf("unexpected records: %+v", got)
	}
}
