// Package kvstore implements C1: a uniform async get/set/remove abstraction
// over a fast local store and an optional, byte-limited, replicated sync
// store. Grounded on github.com/tidwall/buntdb for the local store (an
// embedded b-tree KV, the closest pack analogue to spec.md §9's "embedded
// b-tree for local") and on internal/providers/http.go's request-helper
// shape for the sync store's replication calls.
package kvstore

import "context"

// MaxSyncBytes is the byte cap spec.md §4.1 imposes on the sync store,
// mirroring chrome.storage.sync's ~100KB quota.
const MaxSyncBytes = 100 * 1024

// Store is the uniform contract both "local" and "sync" expose.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ErrTooLarge is returned by a Store that enforces a byte cap (sync) when
// Set's value exceeds it.
type ErrTooLarge struct {
	Key   string
	Size  int
	Limit int
}

func (e *ErrTooLarge) Error() string {
	return "kvstore: value for " + e.Key + " exceeds size limit"
}

// Well-known keys from spec.md §6's persisted-state layout.
const (
	KeyUsageHistory = "usageHistory"
	KeyTMSnapshot   = "qwen-tm"
	KeyConfig       = "config"
)
