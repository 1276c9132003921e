package block_test

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/signature"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const (
	privHex = "9F0E444C69F77A49BD0BE89DB92C38FE713E0963165CCA12FAF5712D7657120F"
	pubHex  = "C008B814A7D269A1FA3C6528B19201A24D797912DB9996FF02A1FF356E45552B"
	acct    = account.ID("xrb_3i1aq1cchnmbn9x5rsbap8b15akfh7wj7pwskuzi7ahz8oq6cobd99d4r3b7")
	source  = "A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1"
	prevHex = "B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2"
)

func privateKey(t *testing.T) []byte {
	t.Helper()

	priv, err := hex.DecodeString(privHex)
	require.NoError(t, err)

	return priv
}

func hashOf(t *testing.T, parts ...string) string {
	t.Helper()

	var raw [][]byte
	for _, p := range parts {
		b, err := hex.DecodeString(p)
		require.NoError(t, err)
		raw = append(raw, b)
	}

	return strings.ToUpper(hex.EncodeToString(signature.Hash256(raw...)))
}

// =============================================================================

func TestOpenBlock(t *testing.T) {
	blk, err := block.NewOpen(strings.ToLower(source), acct, acct)
	require.NoError(t, err)

	require.Equal(t, source, blk.Source, "source should be normalized to uppercase")
	require.Equal(t, hashOf(t, source, pubHex, pubHex), blk.Hash())
	require.Equal(t, pubHex, blk.Root(), "open blocks are worked against the account key")
	require.False(t, blk.Ready())

	signed, err := blk.Sign(privateKey(t))
	require.NoError(t, err)
	require.Len(t, signed.Signature, signature.SignatureSize*2)
	require.True(t, signed.Verify())
	require.Empty(t, blk.Signature, "signing should not touch the original value")

	require.True(t, signed.WithWork("ABCDEF0123456789").Ready())
	require.Equal(t, "abcdef0123456789", signed.WithWork("ABCDEF0123456789").Work)
}

func TestReceiveBlock(t *testing.T) {
	blk, err := block.NewReceive(prevHex, source)
	require.NoError(t, err)

	require.Equal(t, hashOf(t, prevHex, source), blk.Hash())
	require.Equal(t, prevHex, blk.Root())
	require.True(t, blk.IsRedeeming(strings.ToLower(source)))
}

func TestSendBlock(t *testing.T) {
	balance := uint256.NewInt(1000)

	blk, err := block.NewSend(prevHex, acct, balance)
	require.NoError(t, err)

	balHex := strings.Repeat("0", 29) + "3E8"
	require.Equal(t, hashOf(t, prevHex, pubHex, balHex), blk.Hash())
	require.False(t, blk.IsRedeeming(source))

	balance.SetUint64(5)
	require.Equal(t, uint64(1000), blk.Balance.Uint64(), "the block should hold its own copy of the balance")

	tooBig := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	_, err = block.NewSend(prevHex, acct, tooBig)
	require.ErrorIs(t, err, block.ErrInvalidField)
}

func TestChangeBlock(t *testing.T) {
	blk, err := block.NewChange(prevHex, acct)
	require.NoError(t, err)

	require.Equal(t, hashOf(t, prevHex, pubHex), blk.Hash())

	blk.Account = acct
	signed, err := blk.Sign(privateKey(t))
	require.NoError(t, err)
	require.True(t, signed.Verify())

	signed.Representative = account.ID("xrb_1111111111111111111111111111111111111111111111111111hifc8npp")
	require.False(t, signed.Verify(), "changing a hashed field should break the signature")
}

func TestWithPrevious(t *testing.T) {
	blk, err := block.NewReceive(prevHex, source)
	require.NoError(t, err)

	blk.Account = acct
	blk, err = blk.Sign(privateKey(t))
	require.NoError(t, err)
	blk = blk.WithWork("0000000000000001")

	moved := blk.WithPrevious(source)
	require.Equal(t, source, moved.Previous)
	require.Empty(t, moved.Signature)
	require.Empty(t, moved.Work)
	require.NotEqual(t, blk.Hash(), moved.Hash())
	require.Equal(t, prevHex, blk.Previous)
}

func TestInvalidBlocks(t *testing.T) {
	_, err := block.NewReceive("1234", source)
	require.ErrorIs(t, err, block.ErrInvalidHash)

	_, err = block.NewOpen(source, acct, account.ID("xrb_bad"))
	require.ErrorIs(t, err, block.ErrInvalidField)

	_, err = block.NewChange(prevHex, account.ID(""))
	require.ErrorIs(t, err, block.ErrInvalidField)

	require.ErrorIs(t, block.Block{Type: "state"}.Validate(), block.ErrInvalidType)
	require.Empty(t, block.Block{Type: "state"}.Hash())
}

func TestNodeJSON(t *testing.T) {
	blk, err := block.NewSend(prevHex, acct, uint256.NewInt(1000))
	require.NoError(t, err)

	blk.Account = acct
	blk.Amount.SetUint64(77)
	blk, err = blk.Sign(privateKey(t))
	require.NoError(t, err)
	blk = blk.WithWork("0123456789abcdef")

	data, err := blk.NodeJSON()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "send", fields["type"])
	require.Equal(t, strings.Repeat("0", 29)+"3E8", fields["balance"])
	require.NotContains(t, fields, "amount", "bookkeeping fields are not sent to the node")
	require.NotContains(t, fields, "account")

	got, err := block.Decode(data)
	require.NoError(t, err)
	require.Equal(t, blk.Hash(), got.Hash())
	require.Equal(t, blk.Signature, got.Signature)
	require.Equal(t, blk.Work, got.Work)
	require.Empty(t, got.Account)
}

func TestPersistedJSON(t *testing.T) {
	blk, err := block.NewOpen(source, acct, acct)
	require.NoError(t, err)

	blk.Amount.SetFromDecimal("340282366920938463463374607431768211455")
	blk.Origin = acct
	blk.Immutable = true
	blk, err = blk.Sign(privateKey(t))
	require.NoError(t, err)

	data, err := json.Marshal(blk)
	require.NoError(t, err)

	var got block.Block
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, blk, got)

	_, err = block.Decode([]byte(`{"type":"send","previous":"` + prevHex + `","destination":"` + string(acct) + `","balance":"12"}`))
	require.ErrorIs(t, err, block.ErrInvalidField)
}
