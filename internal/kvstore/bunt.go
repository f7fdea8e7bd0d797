package kvstore

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/tidwall/buntdb"
)

// BuntLocal is the "local" store: session-scoped, fast, unbounded, backed by
// an embedded buntdb b-tree database. buntdb stores string values, so binary
// payloads (JSON snapshots) are base64-encoded on the way in.
type BuntLocal struct {
	db *buntdb.DB
}

// NewBuntLocal opens (creating if absent) a buntdb database at path. Pass
// ":memory:" for an ephemeral in-process store, matching buntdb's own
// convention.
func NewBuntLocal(path string) (*BuntLocal, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntLocal{db: db}, nil
}

func (s *BuntLocal) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *BuntLocal) Set(ctx context.Context, key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, encoded, nil)
		return err
	})
}

func (s *BuntLocal) Remove(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

// Close releases the underlying database file handle.
func (s *BuntLocal) Close() error { return s.db.Close() }
