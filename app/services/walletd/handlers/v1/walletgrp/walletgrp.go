// Package walletgrp maintains the group of handlers for wallet access.
package walletgrp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/raiwallet/business/web/errs"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/ardanlabs/raiwallet/foundation/events"
	"github.com/ardanlabs/raiwallet/foundation/web"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// defaultBlockCount is the number of blocks returned when the request
// doesn't ask for a count.
const defaultBlockCount = 20

// Signaler starts background operations once new blocks need work or are
// ready to be broadcast.
type Signaler interface {
	SignalWork()
	SignalBroadcast()
}

// Handlers manages the set of wallet endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Wallet   *wallet.Wallet
	Signaler Signaler
	WS       websocket.Upgrader
	Evts     *events.Events
}

// Accounts returns the accounts of the wallet with their balances.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	infos := h.Wallet.Accounts()

	acts := make([]accountInfo, len(infos))
	for i, info := range infos {
		acts[i] = toAccountInfo(info)
	}

	resp := accountsInfo{
		Balance:        h.Wallet.WalletBalance().Dec(),
		PendingBalance: h.Wallet.WalletPendingBalance().Dec(),
		Accounts:       acts,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CreateAccount derives the next account from the seed or imports the
// private key provided in the body.
func (h Handlers) CreateAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var na newAccount
	if r.ContentLength != 0 {
		if err := web.Decode(r, &na); err != nil {
			return err
		}
	}

	var acc account.ID
	var err error
	switch na.PrivateKey {
	case "":
		acc, err = h.Wallet.NewKeyFromSeed()
	default:
		acc, err = h.Wallet.ImportKey(na.PrivateKey)
	}
	if err != nil {
		return errs.FromWallet(err)
	}

	h.Log.Infow("create account", "traceid", web.GetTraceID(ctx), "account", acc)

	info, err := h.Wallet.Account(acc)
	if err != nil {
		return errs.FromWallet(err)
	}

	return web.Respond(ctx, w, toAccountInfo(info), http.StatusCreated)
}

// Account returns the state of the specified account.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, err := h.Wallet.Account(account.ID(web.Param(r, "account")))
	if err != nil {
		return errs.FromWallet(err)
	}

	resp := toAccountInfo(info)
	if resp.Representative == "" {
		rep, err := h.Wallet.Representative(info.Account)
		if err != nil {
			return errs.FromWallet(err)
		}
		resp.Representative = rep
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns the confirmed blocks of the account, newest first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	count, err := queryInt(r, "count", defaultBlockCount)
	if err != nil {
		return err
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return err
	}

	blocks, err := h.Wallet.LastNBlocks(account.ID(web.Param(r, "account")), count, offset)
	if err != nil {
		return errs.FromWallet(err)
	}

	return web.Respond(ctx, w, toBlockInfos(blocks), http.StatusOK)
}

// Label attaches a label to the account.
func (h Handlers) Label(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nl newLabel
	if err := web.Decode(r, &nl); err != nil {
		return err
	}

	acc := account.ID(web.Param(r, "account"))
	if err := h.Wallet.SetLabel(acc, nl.Label); err != nil {
		return errs.FromWallet(err)
	}

	info, err := h.Wallet.Account(acc)
	if err != nil {
		return errs.FromWallet(err)
	}

	return web.Respond(ctx, w, toAccountInfo(info), http.StatusOK)
}

// Send builds a send block moving the amount between the accounts.
func (h Handlers) Send(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ns newSend
	if err := web.Decode(r, &ns); err != nil {
		return err
	}

	amount, err := uint256.FromDecimal(ns.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blk, err := h.Wallet.AddPendingSendBlock(ns.From, ns.To, amount)
	if err != nil {
		return errs.FromWallet(err)
	}

	h.Log.Infow("send", "traceid", web.GetTraceID(ctx), "from", ns.From, "to", ns.To, "amount", ns.Amount, "hash", blk.Hash())
	h.signalWork()

	return web.Respond(ctx, w, h.currentBlock(blk), http.StatusCreated)
}

// Change builds a change block assigning a new representative.
func (h Handlers) Change(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nc newChange
	if err := web.Decode(r, &nc); err != nil {
		return err
	}

	blk, err := h.Wallet.AddPendingChangeBlock(nc.Account, nc.Representative)
	if err != nil {
		return errs.FromWallet(err)
	}

	h.Log.Infow("change", "traceid", web.GetTraceID(ctx), "account", nc.Account, "representative", nc.Representative, "hash", blk.Hash())
	h.signalWork()

	return web.Respond(ctx, w, h.currentBlock(blk), http.StatusCreated)
}

// WorkPool returns the work targets of the wallet.
func (h Handlers) WorkPool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Wallet.WorkPool(), http.StatusOK)
}

// SubmitWork accepts work computed outside of the wallet.
func (h Handlers) SubmitWork(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nw newWork
	if err := web.Decode(r, &nw); err != nil {
		return err
	}

	if !h.Wallet.CheckWork(nw.Work, nw.Hash) {
		return errs.NewTrusted(fmt.Errorf("hash[%s] work[%s]: %w", nw.Hash, nw.Work, workpool.ErrInvalidProofOfWork), http.StatusBadRequest)
	}

	confirmed := h.Wallet.UpdateWorkPool(nw.Hash, nw.Work)
	if confirmed && h.Signaler != nil {
		h.Signaler.SignalBroadcast()
	}

	resp := workResult{
		Hash:      nw.Hash,
		Confirmed: confirmed,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ReadyBlocks returns the blocks waiting to be processed by the node.
func (h Handlers) ReadyBlocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toBlockInfos(h.Wallet.ReadyBlocks()), http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// signalWork asks the worker to look for work targets.
func (h Handlers) signalWork() {
	if h.Signaler != nil {
		h.Signaler.SignalWork()
	}
}

// currentBlock reports the current copy of the block. Cached work may have
// confirmed the block before the handler responds.
func (h Handlers) currentBlock(blk block.Block) blockInfo {
	hash := blk.Hash()

	if pending, err := h.Wallet.PendingBlockByHash(hash); err == nil {
		blk = pending
	} else if confirmed, err := h.Wallet.BlockByHash(hash); err == nil {
		blk = confirmed
	}

	return blockInfo{
		Hash:  hash,
		Block: blk,
	}
}

// queryInt reads a non negative integer from the query string.
func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.NewTrusted(fmt.Errorf("%s must be a non negative integer", key), http.StatusBadRequest)
	}

	return n, nil
}
