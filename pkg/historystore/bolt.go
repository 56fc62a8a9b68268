package historystore

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/wire"
)

// broadcastLogBucket is the sole bbolt bucket used for checkpointing.
var broadcastLogBucket = []byte("broadcast-log")

// BoltCheckpointer mirrors teacher code's use of go.etcd.io/bbolt as a
// storage.Store backend, narrowed to a single purpose: periodically flush
// broadcast-log entries to disk so a crashed host can resume a session
// without replaying from tick 0 (SPEC_FULL.md's DOMAIN STACK section). It
// does not implement the Store interface itself and does not watch any
// store: it writes only the bundles passed to Checkpoint.
type BoltCheckpointer struct {
	db *bolt.DB
}

// OpenBoltCheckpointer opens (creating if needed) a bbolt file at path.
func OpenBoltCheckpointer(path string) (*BoltCheckpointer, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("historystore: open checkpoint db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(broadcastLogBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("historystore: init checkpoint db: %w", err)
	}
	return &BoltCheckpointer{db: db}, nil
}

// Checkpoint persists bundle at tick.
func (c *BoltCheckpointer) Checkpoint(tick command.SimTick, bundle command.Bundle) error {
	data, err := wire.EncodeBundle(tick, bundle)
	if err != nil {
		return fmt.Errorf("historystore: encode checkpoint: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(broadcastLogBucket)
		return b.Put(tickKey(tick), data)
	})
}

// Load restores the bundle checkpointed at tick, if any.
func (c *BoltCheckpointer) Load(tick command.SimTick) (command.Bundle, bool, error) {
	var bundle command.Bundle
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(broadcastLogBucket)
		data := b.Get(tickKey(tick))
		if data == nil {
			return nil
		}
		decodedTick, decoded, err := wire.DecodeBundle(data)
		if err != nil {
			return err
		}
		if decodedTick != tick {
			return fmt.Errorf("historystore: checkpoint tick mismatch: wanted %d got %d", tick, decodedTick)
		}
		bundle = decoded
		found = true
		return nil
	})
	return bundle, found, err
}

// Close releases the underlying bbolt file.
func (c *BoltCheckpointer) Close() error {
	return c.db.Close()
}

func tickKey(tick command.SimTick) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(tick))
	return key
}
