package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/keyring"
	"github.com/cockroachdb/errors"
)

// Set of errors returned by the wallet. Duplicate redemption of a pending
// source and receives below the minimum are reported with a false result,
// not an error.
var (
	ErrInvalidHexFormat    = keyring.ErrInvalidHexFormat
	ErrSeedNotSet          = keyring.ErrSeedNotSet
	ErrSeedExists          = errors.New("seed already exists")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrAccountNotFound     = errors.New("account not found")
	ErrChainNotOpen        = errors.New("first block needs to be an open block")
	ErrChainLinkMismatch   = errors.New("previous block does not match the last chain block")
	ErrBlockNotFound       = errors.New("block not found")
	ErrBlockNotReady       = errors.New("block lacks signature or work")
	ErrIncorrectSendAmount = errors.New("incorrect send amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoChainYet          = errors.New("account needs at least one block")
	ErrInvalidIterations   = errors.New("iterations must be at least 2")
	ErrWalletCorrupted     = errors.New("wallet is corrupted or has been tampered with")
	ErrMalformedBlob       = errors.New("malformed wallet blob")
)

// IsConsistencyError reports whether the error means a ledger invariant was
// violated and the operation must be abandoned. Every other error is an
// expected outcome the caller can branch on.
func IsConsistencyError(err error) bool {
	switch {
	case errors.Is(err, ErrChainNotOpen),
		errors.Is(err, ErrChainLinkMismatch),
		errors.Is(err, ErrIncorrectSendAmount),
		errors.Is(err, ErrWalletCorrupted):
		return true
	}

	return false
}
