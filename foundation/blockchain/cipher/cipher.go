// Package cipher provides the passphrase based key derivation and the block
// cipher used to protect the wallet at rest.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/sha1"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the size of the derived AES-256 key. BlockSize is the AES block
// size, which is also the size of the IV.
const (
	KeySize   = 32
	BlockSize = aes.BlockSize
)

// ErrInvalidLength is returned when data does not line up with the cipher
// block size.
var ErrInvalidLength = errors.New("data is not a multiple of the block size")

// ErrInvalidPadding is returned when padding can't be removed from
// decrypted data.
var ErrInvalidPadding = errors.New("invalid padding")

// =============================================================================

// DeriveKey derives a 256 bit key from the passphrase and salt using PBKDF2
// with HMAC-SHA1 over the specified number of iterations.
func DeriveKey(passphrase []byte, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, KeySize, sha1.New)
}

// Encrypt pads the data with the specified padding scheme and encrypts it
// under AES-256 in CBC mode.
func Encrypt(data []byte, key []byte, iv []byte, padding Padding) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(iv) != BlockSize {
		return nil, errors.Newf("iv must be %d bytes, got %d", BlockSize, len(iv))
	}

	padded, err := padding.Pad(data, BlockSize)
	if err != nil {
		return nil, err
	}

	if len(padded)%BlockSize != 0 {
		return nil, ErrInvalidLength
	}

	out := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return out, nil
}

// Decrypt decrypts AES-256 CBC data and removes the padding.
func Decrypt(data []byte, key []byte, iv []byte, padding Padding) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(iv) != BlockSize {
		return nil, errors.Newf("iv must be %d bytes, got %d", BlockSize, len(iv))
	}

	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrInvalidLength
	}

	out := make([]byte, len(data))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	return padding.Unpad(out)
}
