package backend

import (
	"fmt"

	"ynabmetrics/internal/config"
	"ynabmetrics/internal/ledger/ynab"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, observer ynab.RequestObserver) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type: backendType,

		YNABAPIToken:        appConfig.YNABAPIToken,
		YNABAPIURL:          appConfig.YNABAPIURL,
		YNABRequestsPerHour: appConfig.YNABRequestsPerHour,
		UpstreamTimeout:     appConfig.UpstreamTimeout,
		Observer:            observer,

		LedgerDataFile:      appConfig.LedgerDataFile,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case MemoryBackend:
		if c.LedgerDataFile == "" {
			return fmt.Errorf("ledger data file is required for memory backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case YNABBackend:
		// A missing token is reported per metric, not at startup.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{YNABBackend, MemoryBackend, SQLiteBackend, SheetsBackend}
}
