package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"

	"barriada/internal/export"
	"barriada/internal/gcp"
	applog "barriada/internal/log"
	ports "barriada/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// prefix is prepended to every tab name, e.g. "2025 ".
	prefix string
}

// Ensure interface conformance
var _ ports.TablePublisher = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_PREFIX
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := gcp.ClientOptions(ctx, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	applog.ForComponent(applog.ComponentSheets).InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        os.Getenv("GOOGLE_SHEET_PREFIX"),
	}, nil
}

// Publish overwrites one tab per table, creating missing tabs first.
func (c *Client) Publish(ctx context.Context, tables []export.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(tables) == 0 {
		return nil
	}

	existing, err := c.tabTitles(ctx)
	if err != nil {
		return err
	}
	var add []*gsheet.Request
	for _, t := range tables {
		title := c.tabName(t.Sheet)
		if _, ok := existing[title]; ok {
			continue
		}
		add = append(add, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		})
	}
	if len(add) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: add}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheets: %w", err)
		}
	}

	cleared := make([]string, 0, len(tables))
	data := make([]*gsheet.ValueRange, 0, len(tables))
	for _, t := range tables {
		title := c.tabName(t.Sheet)
		cleared = append(cleared, a1(title, "A:Z"))
		data = append(data, &gsheet.ValueRange{Range: a1(title, "A1"), Values: t.Values()})
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: cleared}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheets: %w", err)
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheets: %w", err)
	}

	applog.ForComponent(applog.ComponentSheets).InfoContext(ctx, "Statement published to Google Sheets",
		applog.FieldOperation, applog.OpPublish, "tabs", len(tables))
	return nil
}

func (c *Client) tabTitles(ctx context.Context) (map[string]struct{}, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	out := make(map[string]struct{}, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			out[s.Properties.Title] = struct{}{}
		}
	}
	return out, nil
}

func (c *Client) tabName(sheet string) string {
	return c.prefix + sheet
}

// a1 quotes the tab title so names with spaces or accents are valid.
func a1(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}
