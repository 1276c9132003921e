package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/raiwallet/app/services/walletd/handlers"
	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/remotework"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/session"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/worker"
	"github.com/ardanlabs/raiwallet/foundation/events"
	"github.com/ardanlabs/raiwallet/foundation/logger"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("WALLET")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			CORSOrigin      string        `conf:"default:*"`
		}
		Wallet struct {
			Storage        string `conf:"default:bolt,help:bolt or disk"`
			DBPath         string `conf:"default:zwallet/wallet.db"`
			Passphrase     string `conf:"mask,required"`
			Seed           string `conf:"mask"`
			Iterations     int    `conf:"default:5000"`
			Representative string
			MinimumReceive string `conf:"default:1"`
			AutoWork       bool   `conf:"default:true"`
			WorkThreshold  string `conf:"default:ffffffc000000000"`
		}
		Node struct {
			URL        string        `conf:"default:ws://localhost:7078"`
			RetryDelay time.Duration `conf:"default:5s"`
			Disabled   bool          `conf:"default:false"`
		}
		Work struct {
			URL     string        `conf:"default:http://localhost:7076"`
			Timeout time.Duration `conf:"default:60s"`
		}
		Worker struct {
			WorkInterval      time.Duration `conf:"default:2s"`
			BroadcastInterval time.Duration `conf:"default:5s"`
			PersistInterval   time.Duration `conf:"default:10s"`
			ResendTimeout     time.Duration `conf:"default:30s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "WALLET"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	minimumReceive, err := uint256.FromDecimal(cfg.Wallet.MinimumReceive)
	if err != nil {
		return fmt.Errorf("parsing minimum receive: %w", err)
	}

	threshold, err := strconv.ParseUint(cfg.Wallet.WorkThreshold, 16, 64)
	if err != nil {
		return fmt.Errorf("parsing work threshold: %w", err)
	}

	// =========================================================================
	// Wallet Support

	// The wallet packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Wallet.DBPath), 0700); err != nil {
		return fmt.Errorf("creating wallet folder: %w", err)
	}

	strg, err := newStorer(cfg.Wallet.Storage, cfg.Wallet.DBPath)
	if err != nil {
		return fmt.Errorf("opening wallet storage: %w", err)
	}
	defer strg.Close()

	w, err := wallet.New(wallet.Config{
		Passphrase:     cfg.Wallet.Passphrase,
		Iterations:     cfg.Wallet.Iterations,
		MinimumReceive: minimumReceive,
		Representative: account.ID(cfg.Wallet.Representative),
		WorkThreshold:  threshold,
		AutoWork:       cfg.Wallet.AutoWork,
		EvHandler:      ev,
	})
	if err != nil {
		return fmt.Errorf("constructing wallet: %w", err)
	}

	if err := loadOrCreate(log, w, strg, cfg.Wallet.Seed); err != nil {
		return err
	}

	for _, info := range w.Accounts() {
		log.Infow("startup", "status", "wallet loaded", "account", info.Account, "balance", info.Balance.Dec(), "label", info.Label)
	}

	// The session feeds what the node reports into the wallet. It only
	// starts processing once the wallet is loaded.
	sess := session.New(w, ev)
	sess.SignalReady()

	// Readiness only reports on the node connection when one is dialed.
	var dial worker.DialFunc
	var connected *session.Session
	if !cfg.Node.Disabled {
		connected = sess
		dial = func(ctx context.Context) (session.Conn, error) {
			conn, err := session.Dial(ctx, cfg.Node.URL, cfg.Node.RetryDelay, ev)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}

	// The worker package implements the different workflows such as the
	// node session, work generation, block broadcast and persistence.
	wrk := worker.Run(worker.Config{
		Wallet:            w,
		Session:           sess,
		Storer:            strg,
		Dial:              dial,
		Generator:         remotework.New(cfg.Work.URL, threshold, cfg.Work.Timeout),
		WorkInterval:      cfg.Worker.WorkInterval,
		BroadcastInterval: cfg.Worker.BroadcastInterval,
		PersistInterval:   cfg.Worker.PersistInterval,
		ResendTimeout:     cfg.Worker.ResendTimeout,
		ReconnectDelay:    cfg.Node.RetryDelay,
		EvHandler:         ev,
	})
	defer wrk.Shutdown()

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mtrcs, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	if err := metrics.RegisterWallet(reg, w, sess); err != nil {
		return fmt.Errorf("registering wallet metrics: %w", err)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(handlers.DebugMuxConfig{
		Build:    build,
		Log:      log,
		Gatherer: reg,
		Wallet:   w,
		Session:  connected,
	})

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Metrics:    mtrcs,
		Wallet:     w,
		Signaler:   wrk,
		Evts:       evts,
		CORSOrigin: cfg.Web.CORSOrigin,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown API started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}

// newStorer opens the configured storage. The disk storage keeps the pack
// in the folder of the database path.
func newStorer(kind string, dbPath string) (storage.Storer, error) {
	switch kind {
	case "bolt":
		return bolt.New(dbPath)
	case "disk":
		return disk.New(filepath.Dir(dbPath))
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}

// loadOrCreate loads the wallet stored in the database. A new wallet is
// created from the seed, or a random one, when nothing is stored yet.
func loadOrCreate(log *zap.SugaredLogger, w *wallet.Wallet, strg storage.Storer, seed string) error {
	pack, err := strg.Read()
	switch {
	case err == nil:
		if err := w.Load(pack); err != nil {
			return fmt.Errorf("loading wallet: %w", err)
		}
		log.Infow("startup", "status", "wallet loaded", "checksum", w.Checksum())
		return nil

	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("reading wallet: %w", err)
	}

	if _, err := w.CreateWallet(seed); err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	pack, err = w.Pack()
	if err != nil {
		return fmt.Errorf("packing wallet: %w", err)
	}

	if err := strg.Write(pack); err != nil {
		return fmt.Errorf("storing wallet: %w", err)
	}

	log.Infow("startup", "status", "wallet created", "checksum", w.Checksum())

	return nil
}
