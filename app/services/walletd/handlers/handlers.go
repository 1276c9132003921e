// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/raiwallet/app/services/walletd/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/raiwallet/app/services/walletd/handlers/v1"
	"github.com/ardanlabs/raiwallet/app/services/walletd/handlers/v1/walletgrp"
	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/business/web/v1/mid"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/session"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/events"
	"github.com/ardanlabs/raiwallet/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIMuxConfig contains all the mandatory systems required by handlers.
type APIMuxConfig struct {
	Shutdown   chan os.Signal
	Log        *zap.SugaredLogger
	Metrics    *metrics.Metrics
	Wallet     *wallet.Wallet
	Signaler   walletgrp.Signaler
	Evts       *events.Events
	CORSOrigin string
}

// APIMux constructs a http.Handler with all application routes defined.
func APIMux(cfg APIMuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Cors(cfg.CORSOrigin),
		mid.Panics(cfg.Metrics),
	)

	// Accept CORS 'OPTIONS' preflight requests if config has been provided.
	// Don't forget to apply the CORS middleware to the routes that need it.
	// Example Config: `conf:"default:https://MY_DOMAIN.COM"`
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors(cfg.CORSOrigin))

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:      cfg.Log,
		Wallet:   cfg.Wallet,
		Signaler: cfg.Signaler,
		Evts:     cfg.Evts,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMuxConfig contains the systems the debug routes report on.
type DebugMuxConfig struct {
	Build    string
	Log      *zap.SugaredLogger
	Gatherer prometheus.Gatherer
	Wallet   *wallet.Wallet
	Session  *session.Session
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(cfg DebugMuxConfig) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build:   cfg.Build,
		Log:     cfg.Log,
		Wallet:  cfg.Wallet,
		Session: cfg.Session,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	// Register the prometheus scrape endpoint.
	mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	return mux
}
