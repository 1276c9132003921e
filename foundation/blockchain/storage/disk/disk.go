// Package disk implements the ability to read and write the packed wallet to
// a file on disk.
package disk

import (
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
	"github.com/cockroachdb/errors"
)

// fileName is the name of the file holding the packed wallet.
const fileName = "wallet.pack"

// Disk represents the storage implementation for keeping the packed wallet
// in a file inside the configured directory. This implements the
// storage.Storer interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since the file is written
// and closed on every write.
func (d *Disk) Close() error {
	return nil
}

// Write replaces the packed wallet on disk. The data goes to a temporary
// file first and is renamed into place.
func (d *Disk) Write(pack string) error {
	tmp := d.getPath() + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(pack); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, d.getPath())
}

// Read returns the packed wallet stored on disk.
func (d *Disk) Read() (string, error) {
	data, err := os.ReadFile(d.getPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", storage.ErrNotFound
		}
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// Reset will remove the packed wallet from disk.
func (d *Disk) Reset() error {
	if err := os.Remove(d.getPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// getPath forms the path to the wallet file.
func (d *Disk) getPath() string {
	return path.Join(d.dbPath, fileName)
}
