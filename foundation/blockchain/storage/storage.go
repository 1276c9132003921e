// Package storage defines the contract for persisting the packed wallet. The
// wallet is stored as a single encrypted hex string so any key-value store
// can hold it.
package storage

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Read when no wallet has been written yet.
var ErrNotFound = errors.New("wallet not found")

// Storer is the behavior required to persist a packed wallet.
type Storer interface {
	Write(pack string) error
	Read() (string, error)
	Close() error
}
