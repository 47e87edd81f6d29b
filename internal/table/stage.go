package table

import (
	"encoding/json"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

var stagingBucket = []byte("moveData")

// stagingStore wraps the bbolt database MoveData stages translated
// rows into before they are reinserted into the destination table —
// kept as its own type (rather than passing *bolt.DB around) so
// callers elsewhere in this package never need to import bbolt
// directly.
type stagingStore struct {
	db *bolt.DB
}

// openStagingStore opens (creating if needed) a bbolt database at
// path. If the process dies mid-move, the staging file still holds
// every row translated so far.
func openStagingStore(path string) (*stagingStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open moveData staging store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stagingBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &stagingStore{db: db}, nil
}

// put durably records the translated column values for the row
// originally at sourcePos, keyed by its source position so a resumed
// move can tell which source rows it has already translated.
func (s *stagingStore) put(sourcePos int64, newData []any) error {
	buf, err := json.Marshal(newData)
	if err != nil {
		return fmt.Errorf("encode staged row %d: %w", sourcePos, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stagingBucket).Put(stagingKey(sourcePos), buf)
	})
}

func stagingKey(pos int64) []byte {
	return []byte(fmt.Sprintf("%020d", pos))
}

// close closes and removes the staging file, called once the move has
// committed every row into the destination table and the staged copy
// is no longer needed.
func (s *stagingStore) close(path string) error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
