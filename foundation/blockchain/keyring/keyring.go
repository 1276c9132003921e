// Package keyring derives the sequential key pairs of a wallet from its seed
// and builds key pairs for imported private keys.
package keyring

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/cockroachdb/errors"
)

// SeedSize is the number of bytes in a wallet seed.
const SeedSize = 32

// Set of errors for seed and key handling.
var (
	ErrInvalidHexFormat = errors.New("invalid hex format")
	ErrSeedNotSet       = errors.New("seed not set")
)

// =============================================================================

// Key represents a key pair and the account derived from it.
type Key struct {
	PrivateKey []byte
	PublicKey  []byte
	Account    account.ID
}

// FromPrivateKey builds the key pair for the specified private key.
func FromPrivateKey(privateKey []byte) (Key, error) {
	if len(privateKey) != signature.PrivateKeySize {
		return Key{}, errors.Wrapf(signature.ErrInvalidKeyLength, "private key is %d bytes", len(privateKey))
	}

	pub, err := signature.PublicKey(privateKey)
	if err != nil {
		return Key{}, err
	}

	acc, err := account.FromPublicKey(pub)
	if err != nil {
		return Key{}, err
	}

	k := Key{
		PrivateKey: append([]byte(nil), privateKey...),
		PublicKey:  pub,
		Account:    acc,
	}

	return k, nil
}

// FromHex builds the key pair for the hex encoded private key.
func FromHex(privateKey string) (Key, error) {
	if len(privateKey) != signature.PrivateKeySize*2 {
		return Key{}, errors.Wrapf(signature.ErrInvalidKeyLength, "private key is %d hex characters", len(privateKey))
	}

	raw, err := hex.DecodeString(privateKey)
	if err != nil {
		return Key{}, errors.Wrapf(ErrInvalidHexFormat, "private key: %s", err)
	}

	return FromPrivateKey(raw)
}

// Derive computes the key pair at the index for the seed. The private key is
// the 32 byte hash of the seed followed by the big endian index.
func Derive(seed []byte, index uint32) (Key, error) {
	if len(seed) != SeedSize {
		return Key{}, ErrSeedNotSet
	}

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)

	return FromPrivateKey(signature.Hash256(seed, idx[:]))
}

// PrivateHex returns the private key as uppercase hex.
func (k Key) PrivateHex() string {
	return strings.ToUpper(hex.EncodeToString(k.PrivateKey))
}

// PublicHex returns the public key as uppercase hex.
func (k Key) PublicHex() string {
	return strings.ToUpper(hex.EncodeToString(k.PublicKey))
}

// =============================================================================

// NewSeed generates a random seed.
func NewSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return seed, nil
}

// ParseSeed decodes a 64 character hex seed.
func ParseSeed(s string) ([]byte, error) {
	if len(s) != SeedSize*2 {
		return nil, errors.Wrapf(ErrInvalidHexFormat, "seed is %d hex characters", len(s))
	}

	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidHexFormat, "seed: %s", err)
	}

	return seed, nil
}

// SeedHex returns the seed as uppercase hex.
func SeedHex(seed []byte) string {
	return strings.ToUpper(hex.EncodeToString(seed))
}
