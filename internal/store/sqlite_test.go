package store

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrate(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestUsageHistoryLogAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.LogUsage(ctx, UsageRecord{Timestamp: now, Provider: "qwenA", Model: "qwen-mt-turbo", TokensIn: 10, TokensOut: 20, CostUSD: 0.01}); err != nil {
		t.Fatalf("log usage failed: %v", err)
	}
	if err := s.LogUsage(ctx, UsageRecord{Timestamp: now.Add(-48 * time.Hour), Provider: "googlenmt", Model: "google-nmt", CharsIn: 100, CostUSD: 0.002}); err != nil {
		t.Fatalf("log usage failed: %v", err)
	}

	recent, err := s.ListUsage(ctx, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("list usage failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record within the last hour, got %d", len(recent))
	}
	if recent[0].Provider != "qwenA" {
		t.Errorf("expected qwenA, got %s", recent[0].Provider)
	}
}

func TestTMSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveTMSnapshot(ctx, TMSnapshot{Timestamp: time.Now().UTC(), Entries: 42, Hits: 100, Misses: 5}); err != nil {
		t.Fatalf("save snapshot failed: %v", err)
	}
	snaps, err := s.ListTMSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("list snapshots failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Entries != 42 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}

func TestPermissionAuditLogAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.LogPermissionAudit(ctx, PermissionAudit{Timestamp: time.Now().UTC(), Pattern: "https://example.com/*", Granted: true}); err != nil {
		t.Fatalf("log audit failed: %v", err)
	}
	entries, err := s.ListPermissionAudit(ctx, 10)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 1 || !entries[0].Granted {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}
