// Package workpool maintains the set of hashes that need proof of work and
// validates the work values received for them.
package workpool

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/cockroachdb/errors"
)

// DefaultThreshold is the main network difficulty. A work value is valid
// when its digest read as a big endian number is at or above the threshold.
const DefaultThreshold uint64 = 0xffffffc000000000

// WorkSize is the number of bytes in a work value.
const WorkSize = 8

// ErrInvalidProofOfWork is returned when a work value does not meet the
// difficulty threshold for the hash.
var ErrInvalidProofOfWork = errors.New("invalid proof of work")

// =============================================================================

// Value computes the difficulty value of the work for the specified hash.
// The work bytes are reversed before hashing and the 8 byte digest is
// reversed after, which makes it a little endian read of the digest.
func Value(work string, hash string) (uint64, error) {
	w, err := hex.DecodeString(work)
	if err != nil || len(w) != WorkSize {
		return 0, errors.Wrapf(ErrInvalidProofOfWork, "malformed work: %q", work)
	}

	h, err := hex.DecodeString(hash)
	if err != nil || len(h) != signature.HashSize {
		return 0, errors.Wrapf(ErrInvalidProofOfWork, "malformed hash: %q", hash)
	}

	for i, j := 0, len(w)-1; i < j; i, j = i+1, j-1 {
		w[i], w[j] = w[j], w[i]
	}

	return binary.LittleEndian.Uint64(signature.Hash64(w, h)), nil
}

// Check validates the work for the hash against the threshold.
func Check(work string, hash string, threshold uint64) error {
	v, err := Value(work, hash)
	if err != nil {
		return err
	}

	if v < threshold {
		return errors.Wrapf(ErrInvalidProofOfWork, "work[%s] hash[%s] value[%016x]", work, hash, v)
	}

	return nil
}

// =============================================================================

// Entry represents a hash that needs work and where it is in its lifecycle.
type Entry struct {
	Hash      string     `json:"hash"`
	Account   account.ID `json:"account"`
	Work      string     `json:"work"`
	Worked    bool       `json:"worked"`
	Requested bool       `json:"requested"`
	Needed    bool       `json:"needed"`
}

// Pool keeps the work entries in insertion order with at most one entry per
// hash. A Pool is not safe for concurrent use, the owner provides the
// locking.
type Pool struct {
	threshold uint64
	entries   []Entry
}

// New constructs a pool that validates work against the threshold. A zero
// threshold selects the DefaultThreshold.
func New(threshold uint64) *Pool {
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	return &Pool{
		threshold: threshold,
	}
}

// Threshold returns the difficulty threshold used by the pool.
func (p *Pool) Threshold() uint64 {
	return p.threshold
}

// Check validates the work for the hash against the pool threshold.
func (p *Pool) Check(work string, hash string) error {
	return Check(work, hash, p.threshold)
}

// Add inserts a new entry for the hash. Nothing happens if the hash is
// already in the pool.
func (p *Pool) Add(hash string, acc account.ID, needed bool) bool {
	if p.index(hash) >= 0 {
		return false
	}

	p.entries = append(p.entries, Entry{
		Hash:    strings.ToUpper(hash),
		Account: acc,
		Needed:  needed,
	})

	return true
}

// AddWorked inserts a new entry that already carries its work. Nothing
// happens if the hash is already in the pool.
func (p *Pool) AddWorked(hash string, acc account.ID, needed bool, work string) bool {
	if p.index(hash) >= 0 {
		return false
	}

	p.entries = append(p.entries, Entry{
		Hash:      strings.ToUpper(hash),
		Account:   acc,
		Work:      strings.ToLower(work),
		Worked:    true,
		Requested: true,
		Needed:    needed,
	})

	return true
}

// Entry returns the entry for the hash.
func (p *Pool) Entry(hash string) (Entry, bool) {
	i := p.index(hash)
	if i < 0 {
		return Entry{}, false
	}

	return p.entries[i], true
}

// MarkWorked records the work for the hash. The entry is no longer needed
// and counts as requested.
func (p *Pool) MarkWorked(hash string, work string) bool {
	i := p.index(hash)
	if i < 0 {
		return false
	}

	e := &p.entries[i]
	e.Work = strings.ToLower(work)
	e.Worked = true
	e.Requested = true
	e.Needed = false

	return true
}

// SetRequested marks the work for the hash as requested from a worker.
func (p *Pool) SetRequested(hash string) bool {
	i := p.index(hash)
	if i < 0 {
		return false
	}

	p.entries[i].Requested = true
	return true
}

// SetNeeded marks the work for the hash as required before a pending block
// can be confirmed.
func (p *Pool) SetNeeded(hash string) bool {
	i := p.index(hash)
	if i < 0 {
		return false
	}

	p.entries[i].Needed = true
	return true
}

// Remove deletes the entry for the hash.
func (p *Pool) Remove(hash string) bool {
	i := p.index(hash)
	if i < 0 {
		return false
	}

	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	return true
}

// RemoveAccount deletes every entry that belongs to the account.
func (p *Pool) RemoveAccount(acc account.ID) {
	entries := p.entries[:0]
	for _, e := range p.entries {
		if e.Account != acc {
			entries = append(entries, e)
		}
	}
	p.entries = entries
}

// Waiting reports whether any entry is still without work.
func (p *Pool) Waiting() bool {
	for _, e := range p.entries {
		if !e.Worked {
			return true
		}
	}

	return false
}

// Next returns the first entry without work that is either needed or has
// never been requested.
func (p *Pool) Next() (Entry, bool) {
	for _, e := range p.entries {
		if e.Worked {
			continue
		}

		if e.Needed || !e.Requested {
			return e, true
		}
	}

	return Entry{}, false
}

// Entries returns a copy of the entries in insertion order.
func (p *Pool) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Reset removes all the entries.
func (p *Pool) Reset() {
	p.entries = nil
}

// index returns the position of the hash or -1.
func (p *Pool) index(hash string) int {
	for i, e := range p.entries {
		if strings.EqualFold(e.Hash, hash) {
			return i
		}
	}

	return -1
}
