// Package memory implements the ability to read and write the packed wallet
// to memory. Every write is kept so tests can inspect the history.
package memory

import (
	"sync"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
)

// Memory represents the storage implementation for holding the packed
// wallet in memory. This implements the storage.Storer interface.
type Memory struct {
	mu     sync.RWMutex
	writes []string
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write stores the packed wallet as the latest version.
func (m *Memory) Write(pack string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, pack)

	return nil
}

// Read returns the latest packed wallet.
func (m *Memory) Read() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.writes) == 0 {
		return "", storage.ErrNotFound
	}

	return m.writes[len(m.writes)-1], nil
}

// Writes returns the number of times the wallet was written.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.writes)
}

// Reset will clear out every stored version.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = nil
}
