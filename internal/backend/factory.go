package backend

import (
	"context"
	"fmt"
	"time"

	"ynabmetrics/internal/ledger/memory"
	"ynabmetrics/internal/ledger/sheets"
	"ynabmetrics/internal/ledger/ynab"
	"ynabmetrics/internal/log"
	"ynabmetrics/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	switch config.Type {
	case YNABBackend:
		return f.createYNABBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createYNABBackend(config Config) (*BackendResult, error) {
	opts := []ynab.Option{
		ynab.WithLogger(f.logger),
		ynab.WithLocation(config.Location),
	}
	if config.Observer != nil {
		opts = append(opts, ynab.WithObserver(config.Observer))
	}
	client := ynab.New(ynab.Config{
		BaseURL:         config.YNABAPIURL,
		Token:           config.YNABAPIToken,
		Timeout:         config.UpstreamTimeout,
		RequestsPerHour: config.YNABRequestsPerHour,
	}, opts...)

	if config.YNABAPIToken == "" {
		f.logger.Warn("YNAB_API_TOKEN is not set, metrics will report a missing credential")
	}
	f.logger.Info("Initialized YNAB backend",
		"base_url", config.YNABAPIURL,
		"requests_per_hour", config.YNABRequestsPerHour)

	return &BackendResult{Client: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.LedgerDataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger data file: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_file", config.LedgerDataFile)

	return &BackendResult{
		Client:  store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	db, err := storage.NewSQLiteLedger(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Client:  db,
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID: config.GoogleSpreadsheetID,
		Location:      config.Location,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Client:  client,
		Cleanup: nil, // No cleanup needed for sheets backend
	}, nil
}
