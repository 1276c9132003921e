package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// AddPendingSendBlock builds and signs a send block that moves the amount
// from one account to the destination, linked to the account's pending
// tail. The block is returned as it stands after work registration, which
// may already have confirmed it.
func (w *Wallet) AddPendingSendBlock(from account.ID, to account.ID, amount *uint256.Int) (block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(from)
	if err != nil {
		return block.Block{}, err
	}

	if e.lastPendingBlock == "" {
		return block.Block{}, errors.Wrapf(ErrNoChainYet, "account[%s]", e.key.Account)
	}

	bal := w.balanceUpToBlock(e, "")
	remaining, underflow := new(uint256.Int).SubOverflow(&bal, amount)
	if underflow {
		return block.Block{}, errors.Wrapf(ErrInsufficientBalance, "balance[%s] amount[%s]", bal.Dec(), amount.Dec())
	}

	blk, err := block.NewSend(e.lastPendingBlock, to.Canonical(), remaining)
	if err != nil {
		return block.Block{}, err
	}
	blk.Amount.Set(amount)

	blk, err = w.signAndQueue(e, blk)
	if err != nil {
		return block.Block{}, err
	}

	w.evHandler("wallet: AddPendingSendBlock: waiting for work: hash[%s] amount[%s]", blk.Hash(), amount.Dec())

	return w.latest(blk.Hash()), nil
}

// AddPendingReceiveBlock builds and signs the block that pockets the
// specified send block. An open block is built when the account has no
// blocks yet, a receive block otherwise. A false result without an error
// means the amount is below the minimum or the source was already redeemed.
func (w *Wallet) AddPendingReceiveBlock(source string, acc account.ID, origin account.ID, amount *uint256.Int) (block.Block, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !block.IsHash(source) {
		return block.Block{}, false, errors.Wrapf(ErrInvalidHexFormat, "source[%s]", source)
	}

	e, err := w.entry(acc)
	if err != nil {
		return block.Block{}, false, err
	}

	if amount.Lt(&w.minimumReceive) {
		w.evHandler("wallet: AddPendingReceiveBlock: below minimum: source[%s] amount[%s]", source, amount.Dec())
		return block.Block{}, false, nil
	}

	if w.isRedeemed(e, source) {
		w.evHandler("wallet: AddPendingReceiveBlock: already redeemed: source[%s]", source)
		return block.Block{}, false, nil
	}

	var blk block.Block
	switch e.lastPendingBlock {
	case "":
		blk, err = block.NewOpen(source, w.representative, e.key.Account)
	default:
		blk, err = block.NewReceive(e.lastPendingBlock, source)
	}
	if err != nil {
		return block.Block{}, false, err
	}

	blk.Amount.Set(amount)
	blk.Origin = origin

	blk, err = w.signAndQueue(e, blk)
	if err != nil {
		return block.Block{}, false, err
	}

	w.evHandler("wallet: AddPendingReceiveBlock: waiting for work: type[%s] hash[%s] amount[%s]", blk.Type, blk.Hash(), amount.Dec())

	return w.latest(blk.Hash()), true, nil
}

// AddPendingChangeBlock builds and signs a block that changes the
// representative of the account.
func (w *Wallet) AddPendingChangeBlock(acc account.ID, representative account.ID) (block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return block.Block{}, err
	}

	if e.lastPendingBlock == "" {
		return block.Block{}, errors.Wrapf(ErrNoChainYet, "account[%s]", e.key.Account)
	}

	blk, err := block.NewChange(e.lastPendingBlock, representative.Canonical())
	if err != nil {
		return block.Block{}, err
	}

	blk, err = w.signAndQueue(e, blk)
	if err != nil {
		return block.Block{}, err
	}

	w.evHandler("wallet: AddPendingChangeBlock: waiting for work: hash[%s] representative[%s]", blk.Hash(), representative)

	return w.latest(blk.Hash()), nil
}

// =============================================================================

// PendingBlocks returns the blocks of the account that are not confirmed
// yet, oldest first.
func (w *Wallet) PendingBlocks(acc account.ID) ([]block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	return w.accountPending(e.key.Account), nil
}

// WalletPendingBlocks returns every block in the wallet that is not
// confirmed yet, in the order they were added.
func (w *Wallet) WalletPendingBlocks() []block.Block {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]block.Block(nil), w.pending...)
}

// PendingBlockByHash returns the pending block with the specified hash.
func (w *Wallet) PendingBlockByHash(hash string) (block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.pendingIndex(hash)
	if i < 0 {
		return block.Block{}, errors.Wrapf(ErrBlockNotFound, "hash[%s]", hash)
	}

	return w.pending[i], nil
}

// ErrorBlocks returns the blocks that failed confirmation.
func (w *Wallet) ErrorBlocks() []block.Block {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]block.Block(nil), w.errored...)
}

// =============================================================================

// signAndQueue signs the block with the account key, makes it the pending
// tail of the account, and registers its work targets.
func (w *Wallet) signAndQueue(e *entry, blk block.Block) (block.Block, error) {
	blk.Account = e.key.Account

	blk, err := blk.Sign(e.key.PrivateKey)
	if err != nil {
		return block.Block{}, err
	}

	w.pending = append(w.pending, blk)
	e.lastPendingBlock = blk.Hash()
	w.version++

	w.registerWork(blk)

	return blk, nil
}

// isRedeemed reports whether the source is already pocketed by a pending,
// ready, or confirmed block.
func (w *Wallet) isRedeemed(e *entry, source string) bool {
	for _, blk := range w.pending {
		if blk.IsRedeeming(source) {
			return true
		}
	}

	for _, blk := range w.ready {
		if blk.IsRedeeming(source) {
			return true
		}
	}

	for _, blk := range e.chain {
		if blk.IsRedeeming(source) {
			return true
		}
	}

	return false
}

// accountPending returns the pending blocks of the account, oldest first.
func (w *Wallet) accountPending(acc account.ID) []block.Block {
	var blocks []block.Block
	for _, blk := range w.pending {
		if blk.Account == acc {
			blocks = append(blocks, blk)
		}
	}

	return blocks
}

// pendingIndex returns the position of the pending block or -1.
func (w *Wallet) pendingIndex(hash string) int {
	for i, blk := range w.pending {
		if sameHash(blk.Hash(), hash) {
			return i
		}
	}

	return -1
}

// removePending drops the pending block with the specified hash.
func (w *Wallet) removePending(hash string) bool {
	i := w.pendingIndex(hash)
	if i < 0 {
		return false
	}

	w.pending = append(w.pending[:i], w.pending[i+1:]...)
	w.version++

	return true
}

// latest returns the current copy of the block, which is either still
// pending or already on a chain.
func (w *Wallet) latest(hash string) block.Block {
	if i := w.pendingIndex(hash); i >= 0 {
		return w.pending[i]
	}

	for _, e := range w.keys {
		for i := len(e.chain) - 1; i >= 0; i-- {
			if sameHash(e.chain[i].Hash(), hash) {
				return e.chain[i]
			}
		}
	}

	for _, blk := range w.errored {
		if sameHash(blk.Hash(), hash) {
			return blk
		}
	}

	return block.Block{}
}
