package wallet

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
)

// ReadyBlocks returns the confirmed blocks waiting to be broadcast, oldest
// first.
func (w *Wallet) ReadyBlocks() []block.Block {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]block.Block(nil), w.ready...)
}

// NextReadyBlock returns the oldest block waiting to be broadcast.
func (w *Wallet) NextReadyBlock() (block.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.ready) == 0 {
		return block.Block{}, false
	}

	return w.ready[0], true
}

// ReadyBlockByHash returns the block waiting to be broadcast with the
// specified hash.
func (w *Wallet) ReadyBlockByHash(hash string) (block.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, blk := range w.ready {
		if sameHash(blk.Hash(), hash) {
			return blk, true
		}
	}

	return block.Block{}, false
}

// RemoveReadyBlock drops the block from the broadcast queue once the node
// has processed it.
func (w *Wallet) RemoveReadyBlock(hash string) (block.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.removeReady(hash)
}

// removeReady performs the removal without taking the lock.
func (w *Wallet) removeReady(hash string) (block.Block, bool) {
	for i, blk := range w.ready {
		if sameHash(blk.Hash(), hash) {
			w.ready = append(w.ready[:i], w.ready[i+1:]...)
			w.version++
			return blk, true
		}
	}

	return block.Block{}, false
}
