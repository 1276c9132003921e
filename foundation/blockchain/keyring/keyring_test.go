package keyring_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/keyring"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/stretchr/testify/require"
)

const (
	zeroSeed = "0000000000000000000000000000000000000000000000000000000000000000"
	privHex  = "9F0E444C69F77A49BD0BE89DB92C38FE713E0963165CCA12FAF5712D7657120F"
	pubHex   = "C008B814A7D269A1FA3C6528B19201A24D797912DB9996FF02A1FF356E45552B"
	acct     = account.ID("xrb_3i1aq1cchnmbn9x5rsbap8b15akfh7wj7pwskuzi7ahz8oq6cobd99d4r3b7")
)

func TestDerive(t *testing.T) {
	seed, err := keyring.ParseSeed(zeroSeed)
	require.NoError(t, err)

	k, err := keyring.Derive(seed, 0)
	require.NoError(t, err)
	require.Equal(t, privHex, k.PrivateHex())
	require.Equal(t, pubHex, k.PublicHex())
	require.Equal(t, acct, k.Account)

	k1, err := keyring.Derive(seed, 1)
	require.NoError(t, err)
	require.NotEqual(t, k.Account, k1.Account)

	again, err := keyring.Derive(seed, 1)
	require.NoError(t, err)
	require.Equal(t, k1, again, "derivation should be deterministic")

	_, err = keyring.Derive(nil, 0)
	require.ErrorIs(t, err, keyring.ErrSeedNotSet)
}

func TestFromHex(t *testing.T) {
	k, err := keyring.FromHex(strings.ToLower(privHex))
	require.NoError(t, err)
	require.Equal(t, acct, k.Account)

	_, err = keyring.FromHex(privHex[:62])
	require.ErrorIs(t, err, signature.ErrInvalidKeyLength)

	_, err = keyring.FromHex("ZZ" + privHex[2:])
	require.ErrorIs(t, err, keyring.ErrInvalidHexFormat)
}

func TestSeed(t *testing.T) {
	seed, err := keyring.NewSeed()
	require.NoError(t, err)
	require.Len(t, seed, keyring.SeedSize)

	back, err := keyring.ParseSeed(keyring.SeedHex(seed))
	require.NoError(t, err)
	require.Equal(t, seed, back)

	_, err = keyring.ParseSeed("1234")
	require.ErrorIs(t, err, keyring.ErrInvalidHexFormat)
}
