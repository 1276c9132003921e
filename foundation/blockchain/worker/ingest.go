package worker

import (
	"time"
)

// ingestOperations keeps a session with the node running, reconnecting
// after the reconnect delay when the connection fails.
func (w *Worker) ingestOperations() {
	w.evHandler("worker: ingestOperations: G started")
	defer w.evHandler("worker: ingestOperations: G completed")

	for {
		if w.isShutdown() {
			w.evHandler("worker: ingestOperations: received shut signal")
			return
		}

		w.runIngestOperation()

		t := time.NewTimer(w.reconnectDelay)
		select {
		case <-t.C:
		case <-w.shut:
			t.Stop()
			w.evHandler("worker: ingestOperations: received shut signal")
			return
		}
	}
}

// runIngestOperation dials the node and runs the session until the
// connection drops.
func (w *Worker) runIngestOperation() {
	w.evHandler("worker: runIngestOperation: started")
	defer w.evHandler("worker: runIngestOperation: completed")

	conn, err := w.dial(w.ctx)
	if err != nil {
		w.evHandler("worker: runIngestOperation: dial: ERROR: %s", err)
		return
	}

	// A new connection needs every ready block submitted again.
	w.resetInflight()
	w.SignalBroadcast()

	if err := w.session.Run(w.ctx, conn); err != nil && w.ctx.Err() == nil {
		w.evHandler("worker: runIngestOperation: session: ERROR: %s", err)
	}
}
