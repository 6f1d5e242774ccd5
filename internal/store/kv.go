package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/videocatalog/catalogcore/internal/config"
)

// ErrNotFound is returned by KV.Get when the key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// KV wraps an embedded Badger instance used for hot, short-lived state: the
// classifier's category-mapping cache, the in-flight hit counter snapshots the
// Hit Tracker flushes, and the Rating Enricher's 30-day cache.
type KV struct {
	db *badger.DB
}

// OpenKV opens (creating if necessary) the Badger store at cfg.BadgerDir.
func OpenKV(cfg config.StorageConfig) (*KV, error) {
	opts := badger.DefaultOptions(cfg.BadgerDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &KV{db: db}, nil
}

// Close releases the Badger handle.
func (kv *KV) Close() error {
	return kv.db.Close()
}

// Set writes value under key with the given TTL. ttl <= 0 means no expiry.
func (kv *KV) Set(key string, value []byte, ttl time.Duration) error {
	return kv.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get reads the value stored under key. Returns ErrNotFound if absent or expired.
func (kv *KV) Get(key string) ([]byte, error) {
	var out []byte
	err := kv.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes key (a no-op if absent).
func (kv *KV) Delete(key string) error {
	return kv.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Scan invokes fn for every stored key matching prefix; fn returning false stops
// the scan early. Used by the Hit Tracker's aggregate_hits to enumerate "hits:*".
func (kv *KV) Scan(prefix string, fn func(key string, value []byte) bool) error {
	return kv.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			var v []byte
			if err := item.Value(func(val []byte) error {
				v = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
}
