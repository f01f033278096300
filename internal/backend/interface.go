package backend

import (
	"context"

	"shareledger/internal/records"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// PingFunc reports whether a backend is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the store and its optional hooks.
type BackendResult struct {
	Store   records.Store
	Cleanup CleanupFunc
	Ping    PingFunc
}

// Close runs the cleanup hook if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ready runs the ping hook if there is one.
func (r *BackendResult) Ready(ctx context.Context) error {
	if r == nil || r.Ping == nil {
		return nil
	}
	return r.Ping(ctx)
}

// Factory creates record stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
