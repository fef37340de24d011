// Package backend selects and builds the ledger source named by LEDGER_BACKEND.
package backend

import (
	"context"
	"time"

	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/ledger/ynab"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger client and optional cleanup function
type BackendResult struct {
	Client  ledger.Client
	Cleanup CleanupFunc
}

// Factory creates ledger clients based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// YNAB specific
	YNABAPIToken        string
	YNABAPIURL          string
	YNABRequestsPerHour int
	UpstreamTimeout     time.Duration
	Observer            ynab.RequestObserver

	// Memory specific
	LedgerDataFile string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string

	// Zone ledger dates are interpreted in. Defaults to time.Local.
	Location *time.Location
}

// BackendType represents the type of backend
type BackendType string

const (
	YNABBackend   BackendType = "ynab"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case YNABBackend, MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
