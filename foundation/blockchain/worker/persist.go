package worker

// persistOperations handles writing the wallet pack to storage.
func (w *Worker) persistOperations() {
	w.evHandler("worker: persistOperations: G started")
	defer w.evHandler("worker: persistOperations: G completed")

	for {
		select {
		case <-w.persistTicker.C:
			if !w.isShutdown() {
				w.runPersistOperation()
			}
		case <-w.shut:
			w.evHandler("worker: persistOperations: received shut signal")
			return
		}
	}
}

// runPersistOperation packs and stores the wallet when it changed since the
// last write.
func (w *Worker) runPersistOperation() {
	if w.storer == nil {
		return
	}

	version := w.wallet.Version()

	w.mu.Lock()
	unchanged := version == w.persisted
	w.mu.Unlock()

	if unchanged {
		return
	}

	pack, err := w.wallet.Pack()
	if err != nil {
		w.evHandler("worker: runPersistOperation: pack: ERROR: %s", err)
		return
	}

	if err := w.storer.Write(pack); err != nil {
		w.evHandler("worker: runPersistOperation: write: ERROR: %s", err)
		return
	}

	w.mu.Lock()
	w.persisted = version
	w.mu.Unlock()

	w.evHandler("worker: runPersistOperation: persisted: version[%d] checksum[%s]", version, w.wallet.Checksum())
}
