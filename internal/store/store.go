// Package store defines the durable archival interface backing mtcore's
// history surfaces: usage records beyond accounting's 30-day in-memory
// window, periodic translation-memory snapshots, and an audit trail of
// permission grants. Grounded on internal/store/store.go's Store interface
// shape, trimmed to this domain's three record kinds.
package store

import (
	"context"
	"time"
)

// UsageRecord is a durable copy of core.UsageRecord, timestamped for
// retention beyond accounting's sliding windows.
type UsageRecord struct {
	ID         int64
	Timestamp  time.Time
	Provider   string
	Model      string
	TokensIn   int
	TokensOut  int
	CharsIn    int
	CharsOut   int
	CostUSD    float64
}

// TMSnapshot records the translation-memory's size and hit/miss counters
// at a point in time, for historical occupancy graphs.
type TMSnapshot struct {
	ID        int64
	Timestamp time.Time
	Entries   int
	Hits      int64
	Misses    int64
}

// PermissionAudit records a single grant/revoke decision against a host
// origin pattern.
type PermissionAudit struct {
	ID        int64
	Timestamp time.Time
	Pattern   string
	Granted   bool
}

type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	LogUsage(ctx context.Context, r UsageRecord) error
	ListUsage(ctx context.Context, since time.Time, limit int) ([]UsageRecord, error)

	SaveTMSnapshot(ctx context.Context, s TMSnapshot) error
	ListTMSnapshots(ctx context.Context, limit int) ([]TMSnapshot, error)

	LogPermissionAudit(ctx context.Context, a PermissionAudit) error
	ListPermissionAudit(ctx context.Context, limit int) ([]PermissionAudit, error)
}
