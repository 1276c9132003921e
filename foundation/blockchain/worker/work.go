package worker

import (
	"time"
)

// workOperations handles generating work for the pending blocks.
func (w *Worker) workOperations() {
	w.evHandler("worker: workOperations: G started")
	defer w.evHandler("worker: workOperations: G completed")

	for {
		select {
		case <-w.workTicker.C:
			if !w.isShutdown() {
				w.runWorkOperation()
			}
		case <-w.startWork:
			if !w.isShutdown() {
				w.runWorkOperation()
			}
		case <-w.shut:
			w.evHandler("worker: workOperations: received shut signal")
			return
		}
	}
}

// runWorkOperation requests work for every work target that still needs it.
// A failed request leaves the target marked as needed for the next cycle.
func (w *Worker) runWorkOperation() {
	if w.generator == nil || !w.wallet.AutoWork() {
		return
	}

	var confirmed int

	// Each target is requested once per operation.
	for range w.wallet.WorkPool() {
		if w.isShutdown() {
			return
		}

		target, ok := w.wallet.NextWorkTarget()
		if !ok {
			break
		}

		w.wallet.SetWorkRequested(target.Hash)
		w.evHandler("worker: runWorkOperation: requesting: hash[%s] account[%s]", target.Hash, target.Account)

		t := time.Now()
		work, err := w.generator.Generate(w.ctx, target.Hash)
		if err != nil {
			w.evHandler("worker: runWorkOperation: hash[%s]: ERROR: %s", target.Hash, err)
			w.wallet.SetWorkNeeded(target.Hash)
			break
		}

		w.evHandler("worker: runWorkOperation: received: hash[%s] work[%s] duration[%v]", target.Hash, work, time.Since(t))

		if w.wallet.UpdateWorkPool(target.Hash, work) {
			confirmed++
		}
	}

	if confirmed > 0 {
		w.SignalBroadcast()
	}
}
