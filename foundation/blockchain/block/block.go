// Package block provides the ledger block types, their canonical hashes, and
// the signing and wire encoding support for them.
package block

import (
	"encoding/hex"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// Type identifies which of the four block layouts a block uses.
type Type string

// Set of supported block types.
const (
	TypeOpen    Type = "open"
	TypeReceive Type = "receive"
	TypeSend    Type = "send"
	TypeChange  Type = "change"
)

// Set of errors returned when a block does not hold well formed data.
var (
	ErrInvalidType  = errors.New("invalid block type")
	ErrInvalidHash  = errors.New("invalid block hash")
	ErrInvalidField = errors.New("invalid block field")
)

// balanceSize is the number of bytes a send balance takes in the hash and on
// the wire. Raw amounts are 128 bit values.
const balanceSize = 16

// =============================================================================

// Block represents a single entry in an account's chain. The fields that feed
// the hash are fixed once the block is signed. Work, Amount, Account, Origin
// and Immutable are bookkeeping that does not change the hash (except Account
// for an open block).
type Block struct {
	Type           Type        // Layout of the block.
	Previous       string      // Hash of the prior block in the account chain. Empty for open.
	Source         string      // Hash of the send block being received. Open and receive only.
	Representative account.ID  // Voting representative. Open and change only.
	Destination    account.ID  // Account receiving the funds. Send only.
	Balance        uint256.Int // Balance remaining after the send. Send only.
	Account        account.ID  // Account whose chain holds this block.
	Signature      string      // Detached signature of the hash by the account key.
	Work           string      // Proof of work for the block root.
	Amount         uint256.Int // Value moved by the block.
	Origin         account.ID  // Account that sent the funds being received.
	Immutable      bool        // Imported from a finalized source, amounts are trusted.
}

// NewOpen constructs the first block for the specified account.
func NewOpen(source string, representative account.ID, acc account.ID) (Block, error) {
	b := Block{
		Type:           TypeOpen,
		Source:         strings.ToUpper(source),
		Representative: representative,
		Account:        acc,
	}

	if err := b.Validate(); err != nil {
		return Block{}, err
	}

	return b, nil
}

// NewReceive constructs a block that pockets the specified send block.
func NewReceive(previous string, source string) (Block, error) {
	b := Block{
		Type:     TypeReceive,
		Previous: strings.ToUpper(previous),
		Source:   strings.ToUpper(source),
	}

	if err := b.Validate(); err != nil {
		return Block{}, err
	}

	return b, nil
}

// NewSend constructs a block that moves funds to the destination, leaving
// the specified balance behind.
func NewSend(previous string, destination account.ID, balance *uint256.Int) (Block, error) {
	b := Block{
		Type:        TypeSend,
		Previous:    strings.ToUpper(previous),
		Destination: destination,
	}
	b.Balance.Set(balance)

	if err := b.Validate(); err != nil {
		return Block{}, err
	}

	return b, nil
}

// NewChange constructs a block that changes the account's representative.
func NewChange(previous string, representative account.ID) (Block, error) {
	b := Block{
		Type:           TypeChange,
		Previous:       strings.ToUpper(previous),
		Representative: representative,
	}

	if err := b.Validate(); err != nil {
		return Block{}, err
	}

	return b, nil
}

// =============================================================================

// Validate checks the fields required by the block type are present and
// well formed.
func (b Block) Validate() error {
	switch b.Type {
	case TypeOpen:
		if err := checkHash("source", b.Source); err != nil {
			return err
		}
		if err := checkAccount("representative", b.Representative); err != nil {
			return err
		}
		return checkAccount("account", b.Account)

	case TypeReceive:
		if err := checkHash("previous", b.Previous); err != nil {
			return err
		}
		return checkHash("source", b.Source)

	case TypeSend:
		if err := checkHash("previous", b.Previous); err != nil {
			return err
		}
		if b.Balance.BitLen() > balanceSize*8 {
			return errors.Wrap(ErrInvalidField, "balance exceeds 128 bits")
		}
		return checkAccount("destination", b.Destination)

	case TypeChange:
		if err := checkHash("previous", b.Previous); err != nil {
			return err
		}
		return checkAccount("representative", b.Representative)
	}

	return errors.Wrapf(ErrInvalidType, "%q", b.Type)
}

// Hash returns the canonical hash of the block as uppercase hex. An empty
// string is returned for a block that does not validate.
func (b Block) Hash() string {
	h, err := b.hashBytes()
	if err != nil {
		return ""
	}

	return strings.ToUpper(hex.EncodeToString(h))
}

// hashBytes lays out the type dependent fields and hashes them.
func (b Block) hashBytes() ([]byte, error) {
	switch b.Type {
	case TypeOpen:
		source, err := hex.DecodeString(b.Source)
		if err != nil {
			return nil, err
		}
		rep, err := b.Representative.PublicKey()
		if err != nil {
			return nil, err
		}
		acc, err := b.Account.PublicKey()
		if err != nil {
			return nil, err
		}
		return signature.Hash256(source, rep, acc), nil

	case TypeReceive:
		previous, err := hex.DecodeString(b.Previous)
		if err != nil {
			return nil, err
		}
		source, err := hex.DecodeString(b.Source)
		if err != nil {
			return nil, err
		}
		return signature.Hash256(previous, source), nil

	case TypeSend:
		previous, err := hex.DecodeString(b.Previous)
		if err != nil {
			return nil, err
		}
		dest, err := b.Destination.PublicKey()
		if err != nil {
			return nil, err
		}
		return signature.Hash256(previous, dest, b.balanceBytes()), nil

	case TypeChange:
		previous, err := hex.DecodeString(b.Previous)
		if err != nil {
			return nil, err
		}
		rep, err := b.Representative.PublicKey()
		if err != nil {
			return nil, err
		}
		return signature.Hash256(previous, rep), nil
	}

	return nil, errors.Wrapf(ErrInvalidType, "%q", b.Type)
}

// Root returns the hash the proof of work for this block is computed
// against. For an open block that is the account public key, for everything
// else it is the previous block hash.
func (b Block) Root() string {
	if b.Type != TypeOpen {
		return b.Previous
	}

	pk, err := b.Account.PublicKey()
	if err != nil {
		return ""
	}

	return strings.ToUpper(hex.EncodeToString(pk))
}

// Sign returns a copy of the block signed with the specified private key.
func (b Block) Sign(privateKey []byte) (Block, error) {
	h, err := b.hashBytes()
	if err != nil {
		return Block{}, err
	}

	sig, err := signature.Sign(privateKey, h)
	if err != nil {
		return Block{}, err
	}

	b.Signature = strings.ToUpper(hex.EncodeToString(sig))
	return b, nil
}

// Verify checks the block signature against the account that owns the block.
func (b Block) Verify() bool {
	h, err := b.hashBytes()
	if err != nil {
		return false
	}

	pk, err := b.Account.PublicKey()
	if err != nil {
		return false
	}

	sig, err := hex.DecodeString(b.Signature)
	if err != nil {
		return false
	}

	return signature.Verify(pk, h, sig)
}

// Ready reports whether the block carries both a signature and work and can
// be confirmed.
func (b Block) Ready() bool {
	return b.Signature != "" && b.Work != ""
}

// WithWork returns a copy of the block with the specified work attached.
func (b Block) WithWork(work string) Block {
	b.Work = strings.ToLower(work)
	return b
}

// WithPrevious returns an unsigned copy of the block linked to a new
// previous block. Work is cleared since the root changed.
func (b Block) WithPrevious(previous string) Block {
	b.Previous = strings.ToUpper(previous)
	b.Signature = ""
	b.Work = ""
	return b
}

// IsRedeeming reports whether the block pockets the specified send block.
func (b Block) IsRedeeming(source string) bool {
	if b.Type != TypeOpen && b.Type != TypeReceive {
		return false
	}

	return strings.EqualFold(b.Source, source)
}

// balanceBytes returns the balance as a 16 byte big endian value.
func (b Block) balanceBytes() []byte {
	all := b.Balance.Bytes32()
	return all[32-balanceSize:]
}

// =============================================================================

// IsHash reports whether the string is a 32 byte hex encoded hash.
func IsHash(s string) bool {
	if len(s) != signature.HashSize*2 {
		return false
	}

	_, err := hex.DecodeString(s)
	return err == nil
}

// checkHash validates a hash field.
func checkHash(field string, s string) error {
	if !IsHash(s) {
		return errors.Wrapf(ErrInvalidHash, "%s: %q", field, s)
	}

	return nil
}

// checkAccount validates an account field.
func checkAccount(field string, id account.ID) error {
	if _, err := id.PublicKey(); err != nil {
		return errors.Wrapf(ErrInvalidField, "%s: %s", field, err)
	}

	return nil
}
