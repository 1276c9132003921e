// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// statuses maps the expected wallet errors to the status a client sees.
// Consistency errors are left out and surface as internal errors.
var statuses = []struct {
	err    error
	status int
}{
	{wallet.ErrAccountNotFound, http.StatusNotFound},
	{wallet.ErrBlockNotFound, http.StatusNotFound},
	{wallet.ErrIncorrectPassword, http.StatusUnauthorized},
	{wallet.ErrInsufficientBalance, http.StatusBadRequest},
	{wallet.ErrNoChainYet, http.StatusBadRequest},
	{wallet.ErrInvalidHexFormat, http.StatusBadRequest},
	{wallet.ErrSeedNotSet, http.StatusConflict},
	{wallet.ErrSeedExists, http.StatusConflict},
	{wallet.ErrBlockNotReady, http.StatusBadRequest},
	{wallet.ErrInvalidSignature, http.StatusBadRequest},
	{account.ErrInvalidAccountFormat, http.StatusBadRequest},
	{block.ErrInvalidField, http.StatusBadRequest},
}

// FromWallet wraps an error returned by the wallet with the status the
// client should see. Consistency errors are never trusted so they reach the
// client as internal errors. Errors the client can't act on are returned
// as is.
func FromWallet(err error) error {
	if err == nil {
		return nil
	}

	if wallet.IsConsistencyError(err) {
		return fmt.Errorf("ledger consistency: %w", err)
	}

	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return NewTrusted(err, s.status)
		}
	}

	return err
}
