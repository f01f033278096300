package backend

import (
	"fmt"

	"shareledger/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// CSV
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleExpensesSheet      string
	GoogleContributionsSheet string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = config.BackendCSV
	MemoryBackend BackendType = config.BackendMemory
	SQLiteBackend BackendType = config.BackendSQLite
	SheetsBackend BackendType = config.BackendSheets
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                     backendType,
		DataDirectory:            appConfig.DataDir,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleExpensesSheet:      appConfig.GoogleExpensesSheet,
		GoogleContributionsSheet: appConfig.GoogleContributionsSheet,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{CSVBackend, MemoryBackend, SQLiteBackend, SheetsBackend}
}
