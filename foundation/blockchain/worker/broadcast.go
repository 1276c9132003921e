package worker

import (
	"errors"
	"strings"
	"time"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/session"
)

// broadcastOperations handles submitting ready blocks to the node.
func (w *Worker) broadcastOperations() {
	w.evHandler("worker: broadcastOperations: G started")
	defer w.evHandler("worker: broadcastOperations: G completed")

	for {
		select {
		case <-w.broadcastTicker.C:
			if !w.isShutdown() {
				w.runBroadcastOperation()
			}
		case <-w.startBroadcast:
			if !w.isShutdown() {
				w.runBroadcastOperation()
			}
		case <-w.shut:
			w.evHandler("worker: broadcastOperations: received shut signal")
			return
		}
	}
}

// runBroadcastOperation submits the ready blocks oldest first. A block is
// submitted again when the node has not confirmed it within the resend
// timeout.
func (w *Worker) runBroadcastOperation() {
	if w.session == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ready := w.wallet.ReadyBlocks()

	// Forget the blocks the node has processed.
	live := make(map[string]bool, len(ready))
	for _, blk := range ready {
		live[strings.ToUpper(blk.Hash())] = true
	}
	for hash := range w.inflight {
		if !live[hash] {
			delete(w.inflight, hash)
		}
	}

	now := time.Now()
	for _, blk := range ready {
		hash := strings.ToUpper(blk.Hash())

		if sent, exists := w.inflight[hash]; exists && now.Sub(sent) < w.resendTimeout {
			continue
		}

		if err := w.session.ProcessBlock(blk); err != nil {
			if errors.Is(err, session.ErrNotConnected) {
				w.evHandler("worker: runBroadcastOperation: not connected: ready[%d]", len(ready))
				return
			}
			w.evHandler("worker: runBroadcastOperation: hash[%s]: ERROR: %s", hash, err)
			return
		}

		w.inflight[hash] = now
		w.evHandler("worker: runBroadcastOperation: submitted: type[%s] hash[%s]", blk.Type, hash)
	}
}

// resetInflight forces every ready block to be submitted again on the next
// broadcast.
func (w *Worker) resetInflight() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.inflight = make(map[string]time.Time)
}
