// Package catalog stores named environment snapshots in a single bolt
// database, so a project can keep many snapshots without managing files.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/vito/achronyme/pkg/persist"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("snapshot not found")

var (
	snapshotsBucket = []byte("snapshots")
	entriesBucket   = []byte("entries")
)

// Entry describes a stored snapshot.
type Entry struct {
	Name     string           `msgpack:"name"`
	Size     int              `msgpack:"size"`
	StoredAt int64            `msgpack:"stored_at"`
	Metadata persist.Metadata `msgpack:"metadata"`
}

type Catalog struct {
	db *bolt.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{snapshotsBucket, entriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores snapshot bytes under name, replacing any previous snapshot.
// The bytes must pass checksum verification.
func (c *Catalog) Put(name string, data []byte) (*Entry, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot name must not be empty")
	}
	if _, err := persist.Verify(data); err != nil {
		return nil, fmt.Errorf("refusing to store %q: %w", name, err)
	}
	meta, err := persist.InspectBytes(data)
	if err != nil {
		return nil, fmt.Errorf("refusing to store %q: %w", name, err)
	}

	entry := &Entry{
		Name:     name,
		Size:     len(data),
		StoredAt: time.Now().Unix(),
		Metadata: *meta,
	}
	encoded, err := msgpack.Marshal(entry)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(snapshotsBucket).Put([]byte(name), data); err != nil {
			return err
		}
		return tx.Bucket(entriesBucket).Put([]byte(name), encoded)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns a copy of the snapshot bytes stored under name.
func (c *Catalog) Get(name string) ([]byte, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotsBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		// bolt's slices are only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// List returns every entry in name order.
func (c *Catalog) List() ([]Entry, error) {
	var entries []Entry
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := msgpack.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %q: %w", k, err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Delete removes the snapshot stored under name.
func (c *Catalog) Delete(name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		key := []byte(name)
		if tx.Bucket(snapshotsBucket).Get(key) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err := tx.Bucket(snapshotsBucket).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(entriesBucket).Delete(key)
	})
}
