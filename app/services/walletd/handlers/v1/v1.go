// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/raiwallet/app/services/walletd/handlers/v1/walletgrp"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/events"
	"github.com/ardanlabs/raiwallet/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	Wallet   *wallet.Wallet
	Signaler walletgrp.Signaler
	Evts     *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	wgh := walletgrp.Handlers{
		Log:      cfg.Log,
		Wallet:   cfg.Wallet,
		Signaler: cfg.Signaler,
		WS:       websocket.Upgrader{},
		Evts:     cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", wgh.Events)
	app.Handle(http.MethodGet, version, "/accounts", wgh.Accounts)
	app.Handle(http.MethodPost, version, "/accounts", wgh.CreateAccount)
	app.Handle(http.MethodGet, version, "/accounts/:account", wgh.Account)
	app.Handle(http.MethodGet, version, "/accounts/:account/blocks", wgh.Blocks)
	app.Handle(http.MethodPost, version, "/accounts/:account/label", wgh.Label)
	app.Handle(http.MethodPost, version, "/send", wgh.Send)
	app.Handle(http.MethodPost, version, "/change", wgh.Change)
	app.Handle(http.MethodGet, version, "/work", wgh.WorkPool)
	app.Handle(http.MethodPost, version, "/work", wgh.SubmitWork)
	app.Handle(http.MethodGet, version, "/blocks/ready", wgh.ReadyBlocks)
}
