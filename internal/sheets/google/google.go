package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "subtrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSubscriptionsSheet = "Subscriptions"
	DefaultExpensesSheet      = "Expenses"
)

// Config selects the spreadsheet and credentials. One of ServiceAccountJSON
// or ServiceAccountFile is required; GOOGLE_APPLICATION_CREDENTIALS is used
// when both are empty.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	SubscriptionsSheet string
	ExpensesSheet      string
}

type Client struct {
	svc                *gsheet.Service
	spreadsheetID      string
	subscriptionsSheet string
	expensesSheet      string
}

// Ensure interface conformance
var _ ports.BackupWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service. Empty sheet names fall back to
// the defaults.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	subs := strings.TrimSpace(cfg.SubscriptionsSheet)
	if subs == "" {
		subs = DefaultSubscriptionsSheet
	}
	exps := strings.TrimSpace(cfg.ExpensesSheet)
	if exps == "" {
		exps = DefaultExpensesSheet
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      strings.TrimSpace(cfg.SpreadsheetID),
		subscriptionsSheet: subs,
		expensesSheet:      exps,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteBackup replaces the content of both tabs with the snapshot.
func (c *Client) WriteBackup(ctx context.Context, snap ports.Snapshot) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.replaceSheet(ctx, c.subscriptionsSheet, snap.Subscriptions); err != nil {
		return "", err
	}
	if err := c.replaceSheet(ctx, c.expensesSheet, snap.Expenses); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A1:%s%d,%s!A1:%s%d",
		c.subscriptionsSheet, columnName(width(snap.Subscriptions)), max(len(snap.Subscriptions), 1),
		c.expensesSheet, columnName(width(snap.Expenses)), max(len(snap.Expenses), 1))
	return ref, nil
}

func (c *Client) replaceSheet(ctx context.Context, sheet string, rows [][]string) error {
	clearRange := fmt.Sprintf("%s!A:Z", sheet)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}

	dataRange := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet %s: %w", sheet, err)
	}
	return nil
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

func width(rows [][]string) int {
	w := 1
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// columnName converts a 1-based column index into its A1 letters.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
