// Package google appends transactions to a Google Sheets ledger using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"coincraft/internal/core"
	ports "coincraft/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.LedgerAppender = (*Client)(nil)

// Options configures the Sheets ledger client. Exactly one of
// CredentialsJSON or CredentialsFile must be set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets ledger client created",
		"spreadsheet_id", opts.SpreadsheetID,
		"sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendTransaction appends one ledger row:
// date, type, description, amount in pesos, category, account.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	pesos := float64(t.Amount.Centavos) / 100.0
	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		t.Date.String(), string(t.Type), t.Description, pesos, t.Category, t.Account,
	}}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Transaction appended to ledger",
		"id", t.ID,
		"sheets_ref", ref)

	return ref, nil
}
