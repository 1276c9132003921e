// Package signature provides helper functions for handling the ledger
// hashing and signature needs. Keys are Ed25519 keys that use BLAKE2b-512 as
// the internal hash function instead of SHA-512.
package signature

import (
	"crypto/subtle"

	"filippo.io/edwards25519"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"
)

// Sizes of the values handled by this package.
const (
	PrivateKeySize = 32
	PublicKeySize  = 32
	SignatureSize  = 64
	HashSize       = 32
)

// ErrInvalidKeyLength is returned when a private or public key is not the
// expected number of bytes.
var ErrInvalidKeyLength = errors.New("invalid key length")

// =============================================================================

// Hash256 returns the 32 byte BLAKE2b digest of the concatenated parts.
func Hash256(parts ...[]byte) []byte {
	return digest(HashSize, parts...)
}

// Hash64 returns the 8 byte BLAKE2b digest of the concatenated parts. This
// is the digest used to validate proof of work.
func Hash64(parts ...[]byte) []byte {
	return digest(8, parts...)
}

// Checksum40 returns the 5 byte BLAKE2b digest of the concatenated parts.
// This is the digest embedded in account strings.
func Checksum40(parts ...[]byte) []byte {
	return digest(5, parts...)
}

// digest performs the BLAKE2b hashing for the specified output size.
func digest(size int, parts ...[]byte) []byte {

	// The only error New can return is for an invalid size or key and
	// both are constants in this package.
	h, err := blake2b.New(size, nil)
	if err != nil {
		panic(err)
	}

	for _, p := range parts {
		h.Write(p)
	}

	return h.Sum(nil)
}

// =============================================================================

// PublicKey derives the public key for the specified 32 byte private key.
func PublicKey(privateKey []byte) ([]byte, error) {
	s, _, err := expand(privateKey)
	if err != nil {
		return nil, err
	}

	return new(edwards25519.Point).ScalarBaseMult(s).Bytes(), nil
}

// Sign uses the specified private key to produce a detached 64 byte
// signature of the message.
func Sign(privateKey []byte, message []byte) ([]byte, error) {
	s, prefix, err := expand(privateKey)
	if err != nil {
		return nil, err
	}

	publicKey := new(edwards25519.Point).ScalarBaseMult(s).Bytes()

	// The nonce is derived from the secret prefix and the message so the
	// same message always produces the same signature.
	r, err := edwards25519.NewScalar().SetUniformBytes(blake512(prefix, message))
	if err != nil {
		return nil, err
	}
	R := new(edwards25519.Point).ScalarBaseMult(r).Bytes()

	k, err := edwards25519.NewScalar().SetUniformBytes(blake512(R, publicKey, message))
	if err != nil {
		return nil, err
	}

	S := edwards25519.NewScalar().MultiplyAdd(k, s, r)

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, R...)
	sig = append(sig, S.Bytes()...)

	return sig, nil
}

// Verify reports whether sig is a valid signature of message by publicKey.
func Verify(publicKey []byte, message []byte, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}

	A, err := new(edwards25519.Point).SetBytes(publicKey)
	if err != nil {
		return false
	}

	S, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	k, err := edwards25519.NewScalar().SetUniformBytes(blake512(sig[:32], publicKey, message))
	if err != nil {
		return false
	}

	// [S]B - [k]A must equal R.
	minusA := new(edwards25519.Point).Negate(A)
	R := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(k, minusA, S)

	return subtle.ConstantTimeCompare(sig[:32], R.Bytes()) == 1
}

// =============================================================================

// expand hashes the private key and returns the clamped secret scalar and
// the prefix used for nonce generation.
func expand(privateKey []byte) (*edwards25519.Scalar, []byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, nil, errors.Wrapf(ErrInvalidKeyLength, "got %d bytes, exp %d", len(privateKey), PrivateKeySize)
	}

	h := blake512(privateKey)

	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, nil, err
	}

	return s, h[32:], nil
}

// blake512 returns the 64 byte BLAKE2b digest of the concatenated parts.
func blake512(parts ...[]byte) []byte {
	h, _ := blake2b.New512(nil)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
