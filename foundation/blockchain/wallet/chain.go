package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// ErrInvalidSignature is returned when an imported block is not signed by
// the account it is imported into.
var ErrInvalidSignature = errors.New("invalid block signature")

// ConfirmBlock moves the pending block onto its account chain. When
// broadcast is true the block is also queued for broadcast to the node.
func (w *Wallet) ConfirmBlock(hash string, broadcast bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.confirmBlock(hash, broadcast); err != nil {
		return err
	}

	w.confirmFollowing(w.latest(hash))

	return nil
}

// ImportBlock adds a complete block, signed and worked, to the account chain.
// Pending blocks that compete with it for the same root are rebuilt on top
// of it.
func (w *Wallet) ImportBlock(blk block.Block, acc account.ID, broadcast bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return err
	}

	return w.importBlock(e, blk, broadcast)
}

// ImportForkedBlock resolves a fork in favor of the specified block. The
// chain is searched from the newest block back for a block competing for
// the same root. That block and every block after it are discarded along
// with the account's pending blocks, and the new block is imported in its
// place. It reports false when no competing block was found. A block that
// can't take the place of the competing one leaves the account untouched.
func (w *Wallet) ImportForkedBlock(blk block.Block, acc account.ID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return false, err
	}

	blk.Account = e.key.Account
	root := blk.Root()

	for i := len(e.chain) - 1; i >= 0; i-- {
		if !sameHash(e.chain[i].Root(), root) {
			continue
		}

		if sameHash(e.chain[i].Hash(), blk.Hash()) {
			w.evHandler("wallet: ImportForkedBlock: already on chain: hash[%s]", blk.Hash())
			return false, nil
		}

		if err := w.checkForkBlock(e, blk, i); err != nil {
			w.evHandler("wallet: ImportForkedBlock: ERROR: rejected: hash[%s]: %s", blk.Hash(), err)
			return true, err
		}

		w.evHandler("wallet: ImportForkedBlock: fork found: account[%s] discarding[%d] blocks from[%s]", e.key.Account, len(e.chain)-i, e.chain[i].Hash())

		for _, old := range e.chain[i:] {
			w.removeReady(old.Hash())
		}
		e.chain = append([]block.Block(nil), e.chain[:i]...)

		w.clearPending(e)

		e.lastBlock = ""
		if len(e.chain) > 0 {
			e.lastBlock = e.chain[len(e.chain)-1].Hash()
		}
		e.lastPendingBlock = e.lastBlock
		e.balance = w.balanceUpToBlock(e, "")
		e.representative = chainRepresentative(e.chain)
		w.version++

		if err := w.importBlock(e, blk, true); err != nil {
			return true, err
		}

		return true, nil
	}

	return false, nil
}

// ImportChain imports a chain snapshot from the node, oldest block first.
// The blocks are trusted and are not queued for broadcast. Blocks already
// on the chain are skipped.
func (w *Wallet) ImportChain(acc account.ID, blocks []block.Block) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return err
	}

	for i, blk := range blocks {
		blk.Immutable = true

		if err := w.importBlock(e, blk, false); err != nil {
			return errors.Wrapf(err, "block %d of %d", i+1, len(blocks))
		}
	}

	return nil
}

// =============================================================================

// LastNBlocks returns up to n confirmed blocks of the account, newest first,
// skipping the newest offset blocks.
func (w *Wallet) LastNBlocks(acc account.ID, n int, offset int) ([]block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	var blocks []block.Block
	for i := len(e.chain) - 1 - offset; i >= 0 && len(blocks) < n; i-- {
		blocks = append(blocks, e.chain[i])
	}

	return blocks, nil
}

// BlocksUpTo returns the confirmed blocks of the account from the newest
// back to and including the block with the specified hash.
func (w *Wallet) BlocksUpTo(acc account.ID, hash string) ([]block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return nil, err
	}

	var blocks []block.Block
	for i := len(e.chain) - 1; i >= 0; i-- {
		blocks = append(blocks, e.chain[i])
		if sameHash(e.chain[i].Hash(), hash) {
			break
		}
	}

	return blocks, nil
}

// AccountBlockCount returns the number of confirmed blocks of the account.
func (w *Wallet) AccountBlockCount(acc account.ID) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return 0, err
	}

	return len(e.chain), nil
}

// BlockByHash searches every chain for the confirmed block with the
// specified hash.
func (w *Wallet) BlockByHash(hash string) (block.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.keys {
		for i := len(e.chain) - 1; i >= 0; i-- {
			if sameHash(e.chain[i].Hash(), hash) {
				return e.chain[i], nil
			}
		}
	}

	return block.Block{}, errors.Wrapf(ErrBlockNotFound, "hash[%s]", hash)
}

// =============================================================================

// confirmBlock performs the confirmation without taking the lock.
func (w *Wallet) confirmBlock(hash string, broadcast bool) error {
	i := w.pendingIndex(hash)
	if i < 0 {
		return errors.Wrapf(ErrBlockNotFound, "hash[%s]", hash)
	}

	blk := w.pending[i]
	if !blk.Ready() {
		return errors.Wrapf(ErrBlockNotReady, "hash[%s]", hash)
	}

	e, err := w.entry(blk.Account)
	if err != nil {
		return err
	}

	if err := w.applyBlock(e, &blk); err != nil {
		return err
	}

	hash = blk.Hash()
	e.chain = append(e.chain, blk)
	e.lastBlock = hash
	if broadcast {
		w.ready = append(w.ready, blk)
	}
	w.removePending(hash)

	if len(e.chain) > 1 {
		w.recalculate()
	}

	w.addRecent(blk)
	w.version++

	w.evHandler("wallet: ConfirmBlock: added to chain: type[%s] hash[%s] account[%s]", blk.Type, hash, blk.Account)

	return nil
}

// applyBlock validates the block against the chain and applies its effect on
// the account. Send amounts are checked against the recorded balances unless
// the block is immutable, in which case a computable amount replaces the
// declared one.
func (w *Wallet) applyBlock(e *entry, blk *block.Block) error {
	if len(e.chain) == 0 {
		if blk.Type != block.TypeOpen {
			return errors.Wrapf(ErrChainNotOpen, "type[%s] hash[%s]", blk.Type, blk.Hash())
		}

		// A balance reported by the node before the chain arrived is
		// replaced, not added to.
		e.balance.Set(&blk.Amount)
		e.representative = blk.Representative
		return nil
	}

	tail := e.chain[len(e.chain)-1].Hash()
	if !sameHash(blk.Previous, tail) {
		return errors.Wrapf(ErrChainLinkMismatch, "previous[%s] last[%s]", blk.Previous, tail)
	}

	switch blk.Type {
	case block.TypeSend:
		prior := w.balanceUpToBlock(e, blk.Previous)
		computed, underflow := new(uint256.Int).SubOverflow(&prior, &blk.Balance)

		switch {
		case blk.Immutable:
			if !underflow {
				blk.Amount.Set(computed)
			}

		case underflow || !computed.Eq(&blk.Amount):
			w.evHandler("wallet: ConfirmBlock: ERROR: incorrect send amount: declared[%s] balance[%s] remaining[%s]", blk.Amount.Dec(), prior.Dec(), blk.Balance.Dec())
			w.recalculate()
			return errors.Wrapf(ErrIncorrectSendAmount, "declared[%s] balance[%s] remaining[%s]", blk.Amount.Dec(), prior.Dec(), blk.Balance.Dec())
		}

	case block.TypeChange:
		e.representative = blk.Representative
	}

	return nil
}

// checkForkBlock reports whether the block can replace the chain block at
// index i. It performs every check the import would, against the chain as
// it will be once truncated, so a rejected block changes nothing.
func (w *Wallet) checkForkBlock(e *entry, blk block.Block, i int) error {
	hash := blk.Hash()

	if !blk.Ready() {
		return errors.Wrapf(ErrBlockNotReady, "hash[%s]", hash)
	}

	if !blk.Verify() {
		return errors.Wrapf(ErrInvalidSignature, "hash[%s]", hash)
	}

	switch {
	case i == 0 && blk.Type != block.TypeOpen:
		return errors.Wrapf(ErrChainNotOpen, "type[%s] hash[%s]", blk.Type, hash)

	case i > 0 && (blk.Type == block.TypeOpen || !sameHash(blk.Previous, e.chain[i-1].Hash())):
		return errors.Wrapf(ErrChainLinkMismatch, "previous[%s] last[%s]", blk.Previous, e.chain[i-1].Hash())
	}

	if blk.Type != block.TypeSend || blk.Immutable {
		return nil
	}

	// The pending blocks are newer than the chain, so the walk starts on
	// the chain block the fork block follows.
	prior := w.balanceUpToBlock(e, blk.Previous)
	computed, underflow := new(uint256.Int).SubOverflow(&prior, &blk.Balance)
	if underflow || !computed.Eq(&blk.Amount) {
		return errors.Wrapf(ErrIncorrectSendAmount, "declared[%s] balance[%s] remaining[%s]", blk.Amount.Dec(), prior.Dec(), blk.Balance.Dec())
	}

	return nil
}

// importBlock performs the import without taking the lock.
func (w *Wallet) importBlock(e *entry, blk block.Block, broadcast bool) error {
	blk.Account = e.key.Account
	hash := blk.Hash()

	if !blk.Ready() {
		return errors.Wrapf(ErrBlockNotReady, "hash[%s]", hash)
	}

	if !blk.Verify() {
		return errors.Wrapf(ErrInvalidSignature, "hash[%s]", hash)
	}

	for _, c := range e.chain {
		if sameHash(c.Hash(), hash) {
			w.evHandler("wallet: ImportBlock: already on chain: hash[%s]", hash)
			return nil
		}
	}

	switch {
	case len(e.chain) == 0 && blk.Type != block.TypeOpen:
		return errors.Wrapf(ErrChainNotOpen, "type[%s] hash[%s]", blk.Type, hash)

	case len(e.chain) > 0 && !sameHash(blk.Previous, e.chain[len(e.chain)-1].Hash()):
		return errors.Wrapf(ErrChainLinkMismatch, "previous[%s] last[%s]", blk.Previous, e.chain[len(e.chain)-1].Hash())
	}

	// A locally built copy of the same block is replaced by the imported one.
	if w.removePending(hash) {
		w.evHandler("wallet: ImportBlock: replacing pending copy: hash[%s]", hash)
	}

	w.rebaseSiblings(e, blk)

	w.pending = append(w.pending, blk)
	w.version++

	if err := w.confirmBlock(hash, broadcast); err != nil {
		w.removePending(hash)
		w.errored = append(w.errored, blk)
		w.resetPendingTail(e.key.Account)
		return err
	}

	w.pool.Remove(blk.Root())
	w.resetPendingTail(e.key.Account)
	w.confirmFollowing(blk)

	return nil
}

// rebaseSiblings rebuilds the pending blocks of the account that compete
// with the imported block for the same root so they follow the imported
// block instead. A pending block redeeming the same source as the imported
// block is dropped. Rebuilt blocks are new signed values without work and
// their descendants are rebuilt in turn.
func (w *Wallet) rebaseSiblings(e *entry, imported block.Block) {
	importedHash := imported.Hash()
	root := imported.Root()

	for i := 0; i < len(w.pending); i++ {
		p := w.pending[i]
		if p.Account != e.key.Account || !sameHash(p.Root(), root) {
			continue
		}

		oldHash := p.Hash()
		w.pool.Remove(oldHash)

		if (imported.Type == block.TypeOpen || imported.Type == block.TypeReceive) && p.IsRedeeming(imported.Source) {
			w.evHandler("wallet: ImportBlock: dropping duplicate: hash[%s]", oldHash)
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			i--
			w.rebaseChildren(e, oldHash, importedHash)
			continue
		}

		np, err := w.rebuild(e, p, importedHash)
		if err != nil {
			w.evHandler("wallet: ImportBlock: ERROR: rebuilding: hash[%s]: %s", oldHash, err)
			continue
		}

		w.pending[i] = np
		w.pool.Add(np.Hash(), e.key.Account, false)
		w.evHandler("wallet: ImportBlock: rebased: old[%s] new[%s]", oldHash, np.Hash())

		w.rebaseChildren(e, oldHash, np.Hash())
	}
}

// rebaseChildren rebuilds the pending blocks linked to the old hash so they
// link to the new hash, cascading to their own descendants.
func (w *Wallet) rebaseChildren(e *entry, oldPrevious string, newPrevious string) {
	for i, p := range w.pending {
		if p.Account != e.key.Account || p.Type == block.TypeOpen || !sameHash(p.Previous, oldPrevious) {
			continue
		}

		oldHash := p.Hash()
		w.pool.Remove(oldHash)

		np, err := w.rebuild(e, p, newPrevious)
		if err != nil {
			w.evHandler("wallet: ImportBlock: ERROR: rebuilding: hash[%s]: %s", oldHash, err)
			continue
		}

		w.pending[i] = np
		w.pool.Add(np.Hash(), e.key.Account, false)
		w.evHandler("wallet: ImportBlock: rebased: old[%s] new[%s]", oldHash, np.Hash())

		w.rebaseChildren(e, oldHash, np.Hash())
	}
}

// rebuild produces a signed copy of the pending block linked to the new
// previous hash. An open block can't follow another block, so it becomes a
// receive of the same source.
func (w *Wallet) rebuild(e *entry, p block.Block, previous string) (block.Block, error) {
	var np block.Block

	switch p.Type {
	case block.TypeOpen:
		rb, err := block.NewReceive(previous, p.Source)
		if err != nil {
			return block.Block{}, err
		}
		rb.Amount = p.Amount
		rb.Origin = p.Origin
		np = rb

	default:
		np = p.WithPrevious(previous)
	}

	np.Account = e.key.Account
	return np.Sign(e.key.PrivateKey)
}

// clearPending drops every pending block of the account along with its work
// targets.
func (w *Wallet) clearPending(e *entry) {
	pending := w.pending[:0]
	for _, blk := range w.pending {
		if blk.Account != e.key.Account {
			pending = append(pending, blk)
		}
	}
	w.pending = pending

	w.pool.RemoveAccount(e.key.Account)
}

// resetPendingTail points the pending tail of the account at its newest
// pending block, or at its last confirmed block when nothing is pending.
func (w *Wallet) resetPendingTail(acc account.ID) {
	e, err := w.entry(acc)
	if err != nil {
		return
	}

	e.lastPendingBlock = e.lastBlock
	for _, blk := range w.pending {
		if blk.Account == e.key.Account {
			e.lastPendingBlock = blk.Hash()
		}
	}
}

// chainRepresentative returns the representative set by the newest open or
// change block of the chain.
func chainRepresentative(chain []block.Block) account.ID {
	for i := len(chain) - 1; i >= 0; i-- {
		switch chain[i].Type {
		case block.TypeOpen, block.TypeChange:
			return chain[i].Representative
		}
	}

	return ""
}
