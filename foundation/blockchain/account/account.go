// Package account maps raw public keys to checksummed account strings and
// back.
package account

import (
	"bytes"
	"encoding/base32"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/cockroachdb/errors"
)

// Prefix is the prefix written on new account strings. LegacyPrefix is
// still accepted on input.
const (
	Prefix       = "xrb_"
	LegacyPrefix = "nano_"
)

// alphabet is the base32 alphabet used by the ledger. It drops 0, 2, l and v
// to avoid characters that are easy to confuse.
const alphabet = "13456789abcdefghijkmnopqrstuwxyz"

// encodedKeyLen is 260 bits (4 zero bits and the 256 bit key) in 5 bit
// characters. encodedChecksumLen is the 40 bit checksum.
const (
	encodedKeyLen      = 52
	encodedChecksumLen = 8
)

// ErrInvalidAccountFormat is returned when a string is not a well formed
// account or its checksum does not match.
var ErrInvalidAccountFormat = errors.New("invalid account format")

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// =============================================================================

// ID represents an account string that is used to sign blocks and is
// associated with a chain on the ledger.
type ID string

// ToID validates the string is a well formed account and returns it.
func ToID(s string) (ID, error) {
	if _, err := ID(s).PublicKey(); err != nil {
		return "", err
	}

	return ID(s), nil
}

// FromPublicKey converts the public key to an account value.
func FromPublicKey(publicKey []byte) (ID, error) {
	if len(publicKey) != signature.PublicKeySize {
		return "", errors.Wrapf(ErrInvalidAccountFormat, "public key is %d bytes", len(publicKey))
	}

	// Three leading zero bytes give 280 bits. Dropping the first four
	// characters leaves the four zero padding bits in front of the key.
	padded := append([]byte{0, 0, 0}, publicKey...)
	key := encoding.EncodeToString(padded)[4:]

	checksum := encoding.EncodeToString(reverse(signature.Checksum40(publicKey)))

	return ID(Prefix + key + checksum), nil
}

// PublicKey decodes the account string and returns the public key after
// validating the checksum.
func (id ID) PublicKey() ([]byte, error) {
	s := string(id)

	switch {
	case strings.HasPrefix(s, Prefix):
		s = s[len(Prefix):]
	case strings.HasPrefix(s, LegacyPrefix):
		s = s[len(LegacyPrefix):]
	default:
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "unknown prefix: %q", id)
	}

	if len(s) != encodedKeyLen+encodedChecksumLen {
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "wrong length: %q", id)
	}

	// Only the characters 1 and 3 keep the four padding bits at zero.
	if s[0] != '1' && s[0] != '3' {
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "invalid leading character: %q", id)
	}

	padded, err := encoding.DecodeString("1111" + s[:encodedKeyLen])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "decoding key: %s", err)
	}

	checksum, err := encoding.DecodeString(s[encodedKeyLen:])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "decoding checksum: %s", err)
	}

	publicKey := padded[3:]
	if !bytes.Equal(reverse(signature.Checksum40(publicKey)), checksum) {
		return nil, errors.Wrapf(ErrInvalidAccountFormat, "checksum mismatch: %q", id)
	}

	return publicKey, nil
}

// IsAccount reports whether the underlying data represents a valid account.
func (id ID) IsAccount() bool {
	_, err := id.PublicKey()
	return err == nil
}

// Canonical returns the account written with the current prefix.
func (id ID) Canonical() ID {
	if strings.HasPrefix(string(id), LegacyPrefix) {
		return ID(Prefix + string(id)[len(LegacyPrefix):])
	}

	return id
}

// String implements the fmt.Stringer interface.
func (id ID) String() string {
	return string(id)
}

// =============================================================================

// reverse returns a reversed copy of the bytes.
func reverse(b []byte) []byte {
	r := make([]byte, len(b))
	for i := range b {
		r[len(b)-1-i] = b[i]
	}
	return r
}
