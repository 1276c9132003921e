package cipher

import (
	"bytes"
	"crypto/rand"
)

// Padding represents a scheme for filling the last block of data before
// encryption and removing the fill after decryption.
type Padding interface {
	Pad(data []byte, blockSize int) ([]byte, error)
	Unpad(data []byte) ([]byte, error)
}

// Set of supported padding schemes.
var (
	NoPadding   Padding = noPadding{}
	ZeroPadding Padding = zeroPadding{}
	ISO10126    Padding = iso10126{}
	ISO97971    Padding = iso97971{}
	PKCS7       Padding = pkcs7{}
)

// =============================================================================

// noPadding leaves the data untouched. The data must already be a multiple
// of the block size.
type noPadding struct{}

func (noPadding) Pad(data []byte, blockSize int) ([]byte, error) {
	return data, nil
}

func (noPadding) Unpad(data []byte) ([]byte, error) {
	return data, nil
}

// =============================================================================

// zeroPadding fills the remaining block space with 0x00 bytes. Data that
// ends in 0x00 bytes can't be recovered exactly.
type zeroPadding struct{}

func (zeroPadding) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize
	return append(clone(data), make([]byte, n)...), nil
}

func (zeroPadding) Unpad(data []byte) ([]byte, error) {
	return bytes.TrimRight(data, "\x00"), nil
}

// =============================================================================

// iso10126 fills the remaining block space with random bytes except for the
// final byte, which holds the length of the padding.
type iso10126 struct{}

func (iso10126) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize

	fill := make([]byte, n)
	if _, err := rand.Read(fill[:n-1]); err != nil {
		return nil, err
	}
	fill[n-1] = byte(n)

	return append(clone(data), fill...), nil
}

func (iso10126) Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > len(data) {
		return nil, ErrInvalidPadding
	}

	return data[:len(data)-n], nil
}

// =============================================================================

// iso97971 appends a 0x80 marker byte and fills the rest of the block with
// 0x00 bytes.
type iso97971 struct{}

func (iso97971) Pad(data []byte, blockSize int) ([]byte, error) {
	return zeroPadding{}.Pad(append(clone(data), 0x80), blockSize)
}

func (iso97971) Unpad(data []byte) ([]byte, error) {
	trimmed := bytes.TrimRight(data, "\x00")
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != 0x80 {
		return nil, ErrInvalidPadding
	}

	return trimmed[:len(trimmed)-1], nil
}

// =============================================================================

// pkcs7 fills the remaining block space with bytes that all hold the length
// of the padding.
type pkcs7 struct{}

func (pkcs7) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize
	return append(clone(data), bytes.Repeat([]byte{byte(n)}, n)...), nil
}

func (pkcs7) Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > len(data) {
		return nil, ErrInvalidPadding
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}

	return data[:len(data)-n], nil
}

// =============================================================================

// clone returns a copy of the data with room to grow so padding never
// writes into the caller's backing array.
func clone(data []byte) []byte {
	c := make([]byte, len(data), len(data)+BlockSize+1)
	copy(c, data)
	return c
}
