// Package sheets reads a ledger kept in a Google Sheets spreadsheet.
//
// The spreadsheet is the budget. It holds three tabs, each with a header row:
//
//	Accounts:     Name | Type | Balance | Closed | On Budget
//	Categories:   Group | Category | Assigned | Available | Goal
//	Transactions: Date | Payee | Group | Category | Account | Amount
//
// Header lookup is case-insensitive and column order is free. Account ids
// are the account names; category ids are "group/category".
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/log"
)

const (
	DefaultAccountsTab     = "Accounts"
	DefaultCategoriesTab   = "Categories"
	DefaultTransactionsTab = "Transactions"

	readTimeout = 15 * time.Second
)

// valuesReader abstracts the two Sheets calls the backend needs.
type valuesReader interface {
	title(ctx context.Context, spreadsheetID string) (string, error)
	values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type Config struct {
	SpreadsheetID   string
	AccountsTab     string
	CategoriesTab   string
	TransactionsTab string
	Location        *time.Location
}

type Client struct {
	reader valuesReader
	cfg    Config
	logger *log.Logger
}

var _ ledger.Client = (*Client)(nil)

// New connects to the Sheets API with service account credentials taken
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&apiReader{svc: svc}, cfg, logger), nil
}

func newClient(r valuesReader, cfg Config, logger *log.Logger) *Client {
	if cfg.AccountsTab == "" {
		cfg.AccountsTab = DefaultAccountsTab
	}
	if cfg.CategoriesTab == "" {
		cfg.CategoriesTab = DefaultCategoriesTab
	}
	if cfg.TransactionsTab == "" {
		cfg.TransactionsTab = DefaultTransactionsTab
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{reader: r, cfg: cfg, logger: logger.WithComponent(log.ComponentSheets)}
}

func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	if logger != nil {
		logger.WithComponent(log.ComponentSheets).InfoContext(ctx, "Creating Google Sheets service",
			"credentials_size", len(credentialsJSON))
	}
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

type apiReader struct {
	svc *gsheet.Service
}

func (a *apiReader) title(ctx context.Context, spreadsheetID string) (string, error) {
	ss, err := a.svc.Spreadsheets.Get(spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if ss.Properties == nil {
		return "", nil
	}
	return ss.Properties.Title, nil
}

func (a *apiReader) values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Budget returns the spreadsheet as the budget. A non-empty id must be the
// configured spreadsheet id.
func (c *Client) Budget(ctx context.Context, id string) (core.Budget, error) {
	if id != "" && id != c.cfg.SpreadsheetID {
		return core.Budget{}, core.Errorf(core.KindNoBudget, "budget %s not found", id)
	}
	cctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	title, err := c.reader.title(cctx, c.cfg.SpreadsheetID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("read spreadsheet: %w", err)
	}
	return core.Budget{ID: c.cfg.SpreadsheetID, Name: title}, nil
}

func (c *Client) Accounts(ctx context.Context, budgetID string) ([]core.Account, error) {
	values, err := c.read(ctx, budgetID, c.cfg.AccountsTab)
	if err != nil {
		return nil, err
	}
	return parseAccounts(values)
}

func (c *Client) CategoryGroups(ctx context.Context, budgetID string) ([]core.CategoryGroup, error) {
	values, err := c.read(ctx, budgetID, c.cfg.CategoriesTab)
	if err != nil {
		return nil, err
	}
	return parseCategories(values)
}

func (c *Client) Transactions(ctx context.Context, budgetID string) ([]core.Transaction, error) {
	values, err := c.read(ctx, budgetID, c.cfg.TransactionsTab)
	if err != nil {
		return nil, err
	}
	return parseTransactions(values, c.cfg.Location)
}

func (c *Client) read(ctx context.Context, budgetID, tab string) ([][]interface{}, error) {
	if budgetID != c.cfg.SpreadsheetID {
		return nil, fmt.Errorf("unknown budget %q", budgetID)
	}
	cctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	rng := fmt.Sprintf("%s!A:Z", tab)
	values, err := c.reader.values(cctx, c.cfg.SpreadsheetID, rng)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read sheet range",
			"range", rng, log.FieldError, err.Error())
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Read sheet range", "range", rng, log.FieldRows, len(values))
	return values, nil
}
