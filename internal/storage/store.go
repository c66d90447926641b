package storage

import (
	"context"
	"errors"

	"github.com/kaigosha/sitewarden/internal/limits"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store is the root storage interface. The service layer treats any load
// failure as "use default state"; stores only report errors, they never
// repair records themselves.
type Store interface {
	Close() error
	Settings() SettingsStore
	Runtime() RuntimeStore
	BreakGlass() BreakGlassStore
	Events() EventStore
}

// SettingsStore persists the settings document as raw JSON so the
// settings package can run its migration/normalization pass on load.
type SettingsStore interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, raw []byte) error
}

// RuntimeStore persists per-site usage state, keyed by site id.
type RuntimeStore interface {
	Get(ctx context.Context, siteID string) (*limits.UsageState, error)
	Put(ctx context.Context, siteID string, state limits.UsageState) error
	All(ctx context.Context) (map[string]limits.UsageState, error)
	Delete(ctx context.Context, siteID string) error
}

// BreakGlassStore persists the single global break-glass runtime record.
type BreakGlassStore interface {
	Get(ctx context.Context) (*limits.BreakGlassRuntime, error)
	Put(ctx context.Context, rt limits.BreakGlassRuntime) error
}

// EventStore persists the bounded event log.
type EventStore interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, limit int) ([]Event, error)
	Prune(ctx context.Context, keep int) (int, error)
	Clear(ctx context.Context) error
}
