package wallet_test

import (
	"testing"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/keyring"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// complete signs the block for the first zero seed account and attaches
// valid work, the way a node would hand it back.
func complete(t *testing.T, blk block.Block, amount uint64) block.Block {
	t.Helper()

	blk.Account = acct0
	blk.Amount.SetUint64(amount)

	blk, err := blk.Sign(privateKey(t))
	require.NoError(t, err)

	return blk.WithWork(solve(t, blk.Root()))
}

// =============================================================================

func TestImportBlockRebasesPending(t *testing.T) {
	w := newWallet(t)
	open := openAccount(t, w, acct0, 1000)

	local, ok, err := w.AddPendingReceiveBlock(sourceB, acct0, burn, uint256.NewInt(300))
	require.NoError(t, err)
	require.True(t, ok)

	recv, err := block.NewReceive(open.Hash(), sourceC)
	require.NoError(t, err)
	imported := complete(t, recv, 200)

	require.NoError(t, w.ImportBlock(imported, acct0, false))
	require.Equal(t, "1200", balance(t, w, acct0))

	pending := w.WalletPendingBlocks()
	require.Len(t, pending, 1)
	require.NotEqual(t, local.Hash(), pending[0].Hash())
	require.Equal(t, imported.Hash(), pending[0].Previous)
	require.Equal(t, sourceB, pending[0].Source)
	require.Equal(t, "300", pending[0].Amount.Dec())
	require.Empty(t, pending[0].Work)
	require.True(t, pending[0].Verify())

	info, err := w.Account(acct0)
	require.NoError(t, err)
	require.Equal(t, imported.Hash(), info.LastBlock)
	require.Equal(t, pending[0].Hash(), info.LastPendingBlock)

	require.True(t, provideWork(t, w, pending[0].Root()))
	require.Equal(t, "1500", balance(t, w, acct0))
	require.Empty(t, w.WalletPendingBlocks())
}

func TestImportBlockOpenSibling(t *testing.T) {
	w := newWallet(t)

	local, ok, err := w.AddPendingReceiveBlock(sourceA, acct0, burn, uint256.NewInt(1000))
	require.NoError(t, err)
	require.True(t, ok)

	open, err := block.NewOpen(sourceB, burn, acct0)
	require.NoError(t, err)
	imported := complete(t, open, 50)

	require.NoError(t, w.ImportBlock(imported, acct0, true))
	require.Equal(t, "50", balance(t, w, acct0))

	pending := w.WalletPendingBlocks()
	require.Len(t, pending, 1)
	require.Equal(t, block.TypeReceive, pending[0].Type)
	require.Equal(t, local.Source, pending[0].Source)
	require.Equal(t, imported.Hash(), pending[0].Previous)

	rep, err := w.Representative(acct0)
	require.NoError(t, err)
	require.Equal(t, burn, rep)

	require.Len(t, w.ReadyBlocks(), 1)

	require.True(t, provideWork(t, w, pending[0].Root()))
	require.Equal(t, "1050", balance(t, w, acct0))
}

func TestImportBlockDropsDuplicate(t *testing.T) {
	w := newWallet(t)

	_, ok, err := w.AddPendingReceiveBlock(sourceA, acct0, burn, uint256.NewInt(1000))
	require.NoError(t, err)
	require.True(t, ok)

	// Same source with another representative gives a different hash for
	// the same root.
	open, err := block.NewOpen(sourceA, burn, acct0)
	require.NoError(t, err)
	imported := complete(t, open, 1000)

	require.NoError(t, w.ImportBlock(imported, acct0, false))

	require.Empty(t, w.WalletPendingBlocks())
	require.Equal(t, "1000", balance(t, w, acct0))

	info, err := w.Account(acct0)
	require.NoError(t, err)
	require.Equal(t, imported.Hash(), info.LastPendingBlock)

	// Importing the same block again changes nothing.
	require.NoError(t, w.ImportBlock(imported, acct0, false))

	count, err := w.AccountBlockCount(acct0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestImportBlockErrors(t *testing.T) {
	w := newWallet(t)

	recv, err := block.NewReceive(sourceA, sourceB)
	require.NoError(t, err)
	require.ErrorIs(t, w.ImportBlock(complete(t, recv, 10), acct0, false), wallet.ErrChainNotOpen)

	open, err := block.NewOpen(sourceA, burn, acct0)
	require.NoError(t, err)
	open.Account = acct0
	unworked, err := open.Sign(privateKey(t))
	require.NoError(t, err)
	require.ErrorIs(t, w.ImportBlock(unworked, acct0, false), wallet.ErrBlockNotReady)

	seed, err := keyring.ParseSeed(zeroSeed)
	require.NoError(t, err)
	other, err := keyring.Derive(seed, 1)
	require.NoError(t, err)
	forged, err := open.Sign(other.PrivateKey)
	require.NoError(t, err)
	forged = forged.WithWork(solve(t, forged.Root()))
	require.ErrorIs(t, w.ImportBlock(forged, acct0, false), wallet.ErrInvalidSignature)

	first := openAccount(t, w, acct0, 1000)

	unlinked, err := block.NewReceive(sourceC, sourceB)
	require.NoError(t, err)
	require.ErrorIs(t, w.ImportBlock(complete(t, unlinked, 10), acct0, false), wallet.ErrChainLinkMismatch)

	send, err := block.NewSend(first.Hash(), burn, uint256.NewInt(600))
	require.NoError(t, err)
	bad := complete(t, send, 500)

	require.ErrorIs(t, w.ImportBlock(bad, acct0, false), wallet.ErrIncorrectSendAmount)
	require.Equal(t, "1000", balance(t, w, acct0))

	errored := w.ErrorBlocks()
	require.Len(t, errored, 1)
	require.Equal(t, bad.Hash(), errored[0].Hash())
	require.Empty(t, w.WalletPendingBlocks())
}

func TestImportForkedBlock(t *testing.T) {
	w := newWallet(t)
	open := openAccount(t, w, acct0, 1000)

	send, err := w.AddPendingSendBlock(acct0, burn, uint256.NewInt(400))
	require.NoError(t, err)
	require.True(t, provideWork(t, w, send.Root()))
	require.Equal(t, "600", balance(t, w, acct0))

	_, err = w.AddPendingChangeBlock(acct0, burn)
	require.NoError(t, err)

	fork, err := block.NewSend(open.Hash(), burn, uint256.NewInt(900))
	require.NoError(t, err)
	winner := complete(t, fork, 100)

	found, err := w.ImportForkedBlock(winner, acct0)
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, "900", balance(t, w, acct0))
	require.Empty(t, w.WalletPendingBlocks())

	info, err := w.Account(acct0)
	require.NoError(t, err)
	require.Equal(t, 2, info.BlockCount)
	require.Equal(t, winner.Hash(), info.LastBlock)
	require.Equal(t, winner.Hash(), info.LastPendingBlock)
	require.Equal(t, wallet.DefaultRepresentative, info.Representative)

	ready := w.ReadyBlocks()
	require.Len(t, ready, 2)
	require.Equal(t, open.Hash(), ready[0].Hash())
	require.Equal(t, winner.Hash(), ready[1].Hash())

	_, err = w.BlockByHash(send.Hash())
	require.ErrorIs(t, err, wallet.ErrBlockNotFound)

	stray, err := block.NewReceive(sourceC, sourceB)
	require.NoError(t, err)

	found, err = w.ImportForkedBlock(complete(t, stray, 1), acct0)
	require.NoError(t, err)
	require.False(t, found)
}

func TestImportForkedBlockRejected(t *testing.T) {
	w := newWallet(t)
	open := openAccount(t, w, acct0, 1000)

	send, err := w.AddPendingSendBlock(acct0, burn, uint256.NewInt(400))
	require.NoError(t, err)
	require.True(t, provideWork(t, w, send.Root()))

	change, err := w.AddPendingChangeBlock(acct0, burn)
	require.NoError(t, err)

	seed, err := keyring.ParseSeed(zeroSeed)
	require.NoError(t, err)
	other, err := keyring.Derive(seed, 1)
	require.NoError(t, err)

	fork, err := block.NewSend(open.Hash(), burn, uint256.NewInt(900))
	require.NoError(t, err)

	forged := fork
	forged.Account = acct0
	forged.Amount.SetUint64(100)
	forged, err = forged.Sign(other.PrivateKey)
	require.NoError(t, err)
	forged = forged.WithWork(solve(t, forged.Root()))

	unworked := complete(t, fork, 100)
	unworked.Work = ""

	notOpen, err := block.NewReceive(pubKey0, sourceB)
	require.NoError(t, err)

	tt := []struct {
		name string
		blk  block.Block
		err  error
	}{
		{"signature", forged, wallet.ErrInvalidSignature},
		{"work", unworked, wallet.ErrBlockNotReady},
		{"amount", complete(t, fork, 50), wallet.ErrIncorrectSendAmount},
		{"not-open", complete(t, notOpen, 10), wallet.ErrChainNotOpen},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			found, err := w.ImportForkedBlock(tc.blk, acct0)
			require.True(t, found)
			require.ErrorIs(t, err, tc.err)

			info, err := w.Account(acct0)
			require.NoError(t, err)
			require.Equal(t, 2, info.BlockCount)
			require.Equal(t, send.Hash(), info.LastBlock)
			require.Equal(t, change.Hash(), info.LastPendingBlock)
			require.Equal(t, "600", info.Balance.Dec())

			ready := w.ReadyBlocks()
			require.Len(t, ready, 2)
			require.Equal(t, send.Hash(), ready[1].Hash())

			pending := w.WalletPendingBlocks()
			require.Len(t, pending, 1)
			require.Equal(t, change.Hash(), pending[0].Hash())
		})
	}

	found, err := w.ImportForkedBlock(send, acct0)
	require.NoError(t, err)
	require.False(t, found)
}

func TestImportChainReplacesNodeBalance(t *testing.T) {
	w := newWallet(t)

	acc1, err := w.NewKeyFromSeed()
	require.NoError(t, err)

	require.NoError(t, w.SetAccountBalance(acct0, uint256.NewInt(1000)))
	require.NoError(t, w.SetAccountBalance(acc1, uint256.NewInt(50)))
	require.Equal(t, "1000", balance(t, w, acct0))

	open, err := block.NewOpen(sourceA, wallet.DefaultRepresentative, acct0)
	require.NoError(t, err)
	open = complete(t, open, 1000)

	require.NoError(t, w.ImportChain(acct0, []block.Block{open}))
	require.Equal(t, "1000", balance(t, w, acct0))
	require.Equal(t, "1050", w.WalletBalance().Dec())

	// Confirming a second block recalculates every balance.
	send, err := w.AddPendingSendBlock(acct0, burn, uint256.NewInt(400))
	require.NoError(t, err)
	require.True(t, provideWork(t, w, send.Root()))
	require.Equal(t, "600", balance(t, w, acct0))
	require.Equal(t, "50", balance(t, w, acc1))

	pack, err := w.Pack()
	require.NoError(t, err)

	restored, err := wallet.New(wallet.Config{Passphrase: passphrase, Iterations: 2, WorkThreshold: lowThreshold})
	require.NoError(t, err)
	require.NoError(t, restored.Load(pack))
	require.Equal(t, "600", balance(t, restored, acct0))
	require.Equal(t, "50", balance(t, restored, acc1))

	require.NoError(t, w.SetAccountBalance(acct0, uint256.NewInt(5)))
	w.RecalculateWalletBalances()
	require.Equal(t, "600", balance(t, w, acct0))
	require.Equal(t, "50", balance(t, w, acc1))
}

func TestImportChain(t *testing.T) {
	w := newWallet(t)

	open, err := block.NewOpen(sourceA, wallet.DefaultRepresentative, acct0)
	require.NoError(t, err)
	open = complete(t, open, 1000)

	send, err := block.NewSend(open.Hash(), burn, uint256.NewInt(700))
	require.NoError(t, err)
	send = complete(t, send, 0)

	chain := []block.Block{open, send}

	require.NoError(t, w.ImportChain(acct0, chain))
	require.Equal(t, "700", balance(t, w, acct0))
	require.Empty(t, w.ReadyBlocks())

	last, err := w.LastNBlocks(acct0, 1, 0)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.Equal(t, "300", last[0].Amount.Dec())
	require.True(t, last[0].Immutable)

	require.NoError(t, w.ImportChain(acct0, chain))

	count, err := w.AccountBlockCount(acct0)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	gap, err := block.NewReceive(sourceC, sourceB)
	require.NoError(t, err)

	err = w.ImportChain(acct0, []block.Block{complete(t, gap, 5)})
	require.ErrorIs(t, err, wallet.ErrChainLinkMismatch)
}
