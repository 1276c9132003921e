package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/holiman/uint256"
)

// Balance returns the confirmed balance of the account.
func (w *Wallet) Balance(acc account.ID) (*uint256.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	return e.balance.Clone(), nil
}

// PendingBalance returns the sum of the open and receive blocks of the
// account that are not confirmed yet.
func (w *Wallet) PendingBalance(acc account.ID) (*uint256.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	return w.pendingBalance(e.key.Account), nil
}

// AccountBalance returns the balance of the account including the blocks
// that are not confirmed yet.
func (w *Wallet) AccountBalance(acc account.ID) (*uint256.Int, error) {
	return w.BalanceUpToBlock(acc, "")
}

// WalletBalance returns the sum of the confirmed balances of every account.
func (w *Wallet) WalletBalance() *uint256.Int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var sum uint256.Int
	for _, e := range w.keys {
		sum.Add(&sum, &e.balance)
	}

	return &sum
}

// WalletPendingBalance returns the sum of the pending balances of every
// account.
func (w *Wallet) WalletPendingBalance() *uint256.Int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var sum uint256.Int
	for _, blk := range w.pending {
		if blk.Type == block.TypeOpen || blk.Type == block.TypeReceive {
			sum.Add(&sum, &blk.Amount)
		}
	}

	return &sum
}

// SetAccountBalance overrides the confirmed balance of the account with the
// balance reported by the node. For an account with confirmed blocks the
// next recalculation replaces it again. An account without blocks keeps it
// until its open block is confirmed.
func (w *Wallet) SetAccountBalance(acc account.ID, balance *uint256.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return err
	}

	e.balance.Set(balance)
	w.version++

	return nil
}

// BalanceUpToBlock returns the balance of the account as of the specified
// block. An empty hash returns the balance after every known block,
// pending or confirmed.
func (w *Wallet) BalanceUpToBlock(acc account.ID, hash string) (*uint256.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	bal := w.balanceUpToBlock(e, hash)
	return &bal, nil
}

// RecalculateWalletBalances rebuilds the confirmed balance of every account
// from its chain.
func (w *Wallet) RecalculateWalletBalances() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recalculate()
}

// =============================================================================

// balanceUpToBlock walks the pending blocks of the account and then its
// chain from newest to oldest. Walking starts at the specified hash, or at
// the newest block for an empty hash. Open and receive amounts are added
// until a send block is reached, whose recorded balance ends the walk.
func (w *Wallet) balanceUpToBlock(e *entry, hash string) uint256.Int {
	var sum uint256.Int
	if len(e.chain) == 0 {
		return sum
	}

	found := hash == ""
	if walkBalance(&sum, w.accountPending(e.key.Account), hash, &found) {
		return sum
	}

	walkBalance(&sum, e.chain, hash, &found)
	return sum
}

// recalculate rebuilds every confirmed balance from the chains. Accounts
// without blocks keep the balance the node reported for them.
func (w *Wallet) recalculate() {
	for _, e := range w.keys {
		if len(e.chain) == 0 {
			continue
		}

		var sum uint256.Int
		found := true
		walkBalance(&sum, e.chain, "", &found)
		e.balance = sum
	}

	w.version++
}

// pendingBalance sums the pending open and receive amounts of the account.
func (w *Wallet) pendingBalance(acc account.ID) *uint256.Int {
	var sum uint256.Int
	for _, blk := range w.pending {
		if blk.Account != acc {
			continue
		}

		if blk.Type == block.TypeOpen || blk.Type == block.TypeReceive {
			sum.Add(&sum, &blk.Amount)
		}
	}

	return &sum
}

// walkBalance accumulates the deltas of the blocks from newest to oldest. It
// reports true once a send block has ended the walk.
func walkBalance(sum *uint256.Int, blocks []block.Block, hash string, found *bool) bool {
	for i := len(blocks) - 1; i >= 0; i-- {
		blk := blocks[i]

		if !*found && sameHash(blk.Hash(), hash) {
			*found = true
		}

		if !*found {
			continue
		}

		switch blk.Type {
		case block.TypeOpen, block.TypeReceive:
			sum.Add(sum, &blk.Amount)

		case block.TypeSend:
			sum.Add(sum, &blk.Balance)
			return true
		}
	}

	return false
}
