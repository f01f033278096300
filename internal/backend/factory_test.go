package backend

import (
	"context"
	"path/filepath"
	"testing"

	"shareledger/internal/config"
	"shareledger/internal/core"
	"shareledger/internal/records/csvfile"
	"shareledger/internal/records/memory"
	"shareledger/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{DataBackend: "sqlite", DataDir: "d", SQLiteDBPath: "d/x.db"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "d/x.db" || cfg.DataDirectory != "d" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, DataDirectory: "data"}, false},
		{"csv without dir", Config{Type: CSVBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)
	dir := t.TempDir()

	tests := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, r *BackendResult)
	}{
		{
			name: "csv",
			cfg:  Config{Type: CSVBackend, DataDirectory: dir},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*csvfile.Store); !ok {
					t.Fatalf("store = %T", r.Store)
				}
			},
		},
		{
			name: "memory",
			cfg:  Config{Type: MemoryBackend},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*memory.Store); !ok {
					t.Fatalf("store = %T", r.Store)
				}
			},
		},
		{
			name: "sqlite",
			cfg:  Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "ledger.db")},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*storage.SQLiteRepository); !ok {
					t.Fatalf("store = %T", r.Store)
				}
				if r.Cleanup == nil || r.Ping == nil {
					t.Fatalf("sqlite backend should expose cleanup and ping")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer r.Close()
			tt.check(t, r)

			if err := r.Ready(ctx); err != nil {
				t.Fatalf("Ready: %v", err)
			}
			if _, err := r.Store.AppendExpense(ctx, "2025-06", core.ExpenseRecord{
				Date: "2025-06-01", Category: "Rent", PaidBy: core.PaidByBoth, Amount: core.MustAmount("10"),
			}); err != nil {
				t.Fatalf("append: %v", err)
			}
			periods, err := r.Store.ListPeriods(ctx)
			if err != nil || len(periods) != 1 || periods[0] != "2025-06" {
				t.Fatalf("periods = %v, %v", periods, err)
			}
		})
	}
}

func TestBackendResultNilHooks(t *testing.T) {
	var r *BackendResult
	if r.Close() != nil || r.Ready(context.Background()) != nil {
		t.Fatalf("nil result hooks should be no-ops")
	}
}
