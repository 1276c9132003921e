// Package worker implements the node session, work generation, block
// broadcast and persistence workflows for the wallet.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/session"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
)

// Default intervals for the background operations.
const (
	DefaultWorkInterval      = 2 * time.Second
	DefaultBroadcastInterval = 5 * time.Second
	DefaultPersistInterval   = 10 * time.Second
	DefaultResendTimeout     = 30 * time.Second
	DefaultReconnectDelay    = 5 * time.Second
)

// WorkGenerator computes the proof of work for a block hash.
type WorkGenerator interface {
	Generate(ctx context.Context, hash string) (string, error)
}

// DialFunc opens a connection to the node.
type DialFunc func(ctx context.Context) (session.Conn, error)

// EventHandler defines a function that is called when events occur in the
// processing of the worker.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the worker. The
// session operation only runs when Dial is set and work is only generated
// when Generator is set.
type Config struct {
	Wallet            *wallet.Wallet
	Session           *session.Session
	Storer            storage.Storer
	Dial              DialFunc
	Generator         WorkGenerator
	WorkInterval      time.Duration
	BroadcastInterval time.Duration
	PersistInterval   time.Duration
	ResendTimeout     time.Duration
	ReconnectDelay    time.Duration
	EvHandler         EventHandler
}

// =============================================================================

// Worker manages the background workflows of the wallet.
type Worker struct {
	wallet          *wallet.Wallet
	session         *session.Session
	storer          storage.Storer
	dial            DialFunc
	generator       WorkGenerator
	resendTimeout   time.Duration
	reconnectDelay  time.Duration
	workTicker      *time.Ticker
	broadcastTicker *time.Ticker
	persistTicker   *time.Ticker
	wg              sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc
	shut            chan struct{}
	startWork       chan bool
	startBroadcast  chan bool
	evHandler       EventHandler

	mu        sync.Mutex
	inflight  map[string]time.Time
	persisted uint64
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) *Worker {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		wallet:          cfg.Wallet,
		session:         cfg.Session,
		storer:          cfg.Storer,
		dial:            cfg.Dial,
		generator:       cfg.Generator,
		resendTimeout:   orDefault(cfg.ResendTimeout, DefaultResendTimeout),
		reconnectDelay:  orDefault(cfg.ReconnectDelay, DefaultReconnectDelay),
		workTicker:      time.NewTicker(orDefault(cfg.WorkInterval, DefaultWorkInterval)),
		broadcastTicker: time.NewTicker(orDefault(cfg.BroadcastInterval, DefaultBroadcastInterval)),
		persistTicker:   time.NewTicker(orDefault(cfg.PersistInterval, DefaultPersistInterval)),
		ctx:             ctx,
		cancel:          cancel,
		shut:            make(chan struct{}),
		startWork:       make(chan bool, 1),
		startBroadcast:  make(chan bool, 1),
		evHandler:       ev,
		inflight:        make(map[string]time.Time),
		persisted:       cfg.Wallet.Version(),
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.workOperations,
		w.broadcastOperations,
		w.persistOperations,
	}
	if w.dial != nil && w.session != nil {
		operations = append(operations, w.ingestOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutines performing work and persists the
// wallet one last time.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.workTicker.Stop()
	w.broadcastTicker.Stop()
	w.persistTicker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	w.cancel()
	close(w.shut)
	w.wg.Wait()

	w.evHandler("worker: shutdown: persist wallet")
	w.runPersistOperation()
}

// SignalWork starts a work operation. If there is already a signal pending
// in the channel, just return since a work operation will start.
func (w *Worker) SignalWork() {
	select {
	case w.startWork <- true:
	default:
	}
	w.evHandler("worker: SignalWork: work signaled")
}

// SignalBroadcast starts a broadcast operation. If there is already a signal
// pending in the channel, just return since a broadcast will start.
func (w *Worker) SignalBroadcast() {
	select {
	case w.startBroadcast <- true:
	default:
	}
	w.evHandler("worker: SignalBroadcast: broadcast signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// orDefault returns the default when the duration is not set.
func orDefault(d time.Duration, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
