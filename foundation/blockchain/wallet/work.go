package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/cockroachdb/errors"
)

// CheckWork validates the work for the hash against the wallet threshold.
func (w *Wallet) CheckWork(work string, hash string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pool.Check(work, hash) == nil
}

// UpdateWorkPool accepts work computed for the hash. Invalid work is
// reported and dropped. Valid work is attached to the pending block that
// uses the hash as its root and that block is confirmed. It reports whether
// a block was confirmed.
func (w *Wallet) UpdateWorkPool(hash string, work string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.updateWorkPool(hash, work)
}

// WorkPool returns a copy of the work entries in insertion order.
func (w *Wallet) WorkPool() []workpool.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pool.Entries()
}

// SetWorkRequested marks the work for the hash as requested from a worker.
func (w *Wallet) SetWorkRequested(hash string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pool.SetRequested(hash)
}

// SetWorkNeeded marks the work for the hash as required.
func (w *Wallet) SetWorkNeeded(hash string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pool.SetNeeded(hash)
}

// WaitingRemoteWork reports whether any work target is still without work.
func (w *Wallet) WaitingRemoteWork() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pool.Waiting()
}

// NextWorkTarget returns the first work entry that is needed or has never
// been requested.
func (w *Wallet) NextWorkTarget() (workpool.Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pool.Next()
}

// NextWorkBlockHash returns the hash the next block of the account will be
// worked against: the last confirmed block, or the account public key when
// the account has no blocks.
func (w *Wallet) NextWorkBlockHash(acc account.ID) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.entry(acc)
	if err != nil {
		return "", err
	}

	if e.lastBlock != "" {
		return e.lastBlock, nil
	}

	return e.key.PublicHex(), nil
}

// =============================================================================

// registerWork records the work targets for a new pending block. Work for
// the root is needed before the block can be confirmed. If that work is
// already cached it is applied right away. The block's own hash becomes a
// future target for the block that follows it.
func (w *Wallet) registerWork(blk block.Block) {
	root := blk.Root()

	if e, ok := w.pool.Entry(root); ok && e.Worked {
		w.updateWorkPool(root, e.Work)
	} else {
		w.needWork(root, blk.Account)
	}

	w.pool.Add(blk.Hash(), blk.Account, false)
}

// needWork makes sure there is an entry for the hash marked as needed.
func (w *Wallet) needWork(hash string, acc account.ID) {
	w.pool.Add(hash, acc, true)
	w.pool.SetNeeded(hash)
	w.version++
}

// updateWorkPool performs the work update without taking the lock.
func (w *Wallet) updateWorkPool(hash string, work string) bool {
	if err := w.pool.Check(work, hash); err != nil {
		w.evHandler("wallet: UpdateWorkPool: ERROR: %s", err)
		return false
	}

	if !w.pool.MarkWorked(hash, work) {
		w.evHandler("wallet: UpdateWorkPool: work cached for missing target: hash[%s]", hash)
		w.pool.AddWorked(hash, "", false, work)
	}
	w.version++

	i := w.rootIndex(hash)
	if i < 0 {
		return false
	}

	blk := w.pending[i].WithWork(work)
	w.pending[i] = blk

	w.evHandler("wallet: UpdateWorkPool: work received: hash[%s] root[%s]", blk.Hash(), hash)

	if err := w.confirmBlock(blk.Hash(), true); err != nil {

		// Work can arrive for a block before its predecessor is confirmed.
		// The block stays pending and is confirmed once the predecessor is.
		if blk.Previous != "" && w.pendingIndex(blk.Previous) >= 0 &&
			(errors.Is(err, ErrChainNotOpen) || errors.Is(err, ErrChainLinkMismatch)) {
			w.evHandler("wallet: UpdateWorkPool: waiting on predecessor: hash[%s] previous[%s]", blk.Hash(), blk.Previous)
			return false
		}

		w.evHandler("wallet: UpdateWorkPool: ERROR: confirming block: hash[%s]: %s", blk.Hash(), err)
		w.removePending(blk.Hash())
		w.errored = append(w.errored, blk)
		w.resetPendingTail(blk.Account)
		return false
	}

	w.pool.Remove(hash)
	w.confirmFollowing(blk)

	return true
}

// confirmFollowing registers the confirmed block as the next work target
// and confirms the block that follows it when its work is already cached.
func (w *Wallet) confirmFollowing(blk block.Block) {
	hash := blk.Hash()
	w.needWork(hash, blk.Account)

	if e, ok := w.pool.Entry(hash); ok && e.Worked {
		w.updateWorkPool(hash, e.Work)
	}
}

// rootIndex returns the position of the pending block worked against the
// hash or -1.
func (w *Wallet) rootIndex(hash string) int {
	for i, blk := range w.pending {
		if sameHash(blk.Root(), hash) {
			return i
		}
	}

	return -1
}
