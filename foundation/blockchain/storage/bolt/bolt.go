// Package bolt implements the ability to read and write the packed wallet to
// a bbolt database file.
package bolt

import (
	"time"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
	"github.com/cockroachdb/errors"
	"go.etcd.io/bbolt"
)

// Bucket and key the packed wallet is stored under.
var (
	bucketName = []byte("wallet")
	packKey    = []byte("pack")
)

// openTimeout bounds the wait for the file lock held by another process.
const openTimeout = time.Second

// Bolt represents the storage implementation for keeping the packed wallet
// in a bbolt database. This implements the storage.Storer interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the bbolt database at the specified path.
func New(dbPath string) (*Bolt, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dbPath)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write replaces the packed wallet inside a single transaction.
func (b *Bolt) Write(pack string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}

		return bkt.Put(packKey, []byte(pack))
	})
}

// Read returns the packed wallet.
func (b *Bolt) Read() (string, error) {
	var pack string

	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt == nil {
			return storage.ErrNotFound
		}

		v := bkt.Get(packKey)
		if v == nil {
			return storage.ErrNotFound
		}

		// The value is only valid for the life of the transaction.
		pack = string(v)
		return nil
	})

	if err != nil {
		return "", err
	}

	return pack, nil
}

// Reset removes the packed wallet.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName) == nil {
			return nil
		}

		return tx.DeleteBucket(bucketName)
	})
}
