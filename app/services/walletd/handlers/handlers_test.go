package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ardanlabs/raiwallet/app/services/walletd/handlers"
	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/ardanlabs/raiwallet/foundation/events"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const lowThreshold uint64 = 0xff00000000000000

const (
	zeroSeed = "0000000000000000000000000000000000000000000000000000000000000000"
	acct0    = account.ID("xrb_3i1aq1cchnmbn9x5rsbap8b15akfh7wj7pwskuzi7ahz8oq6cobd99d4r3b7")
	pubKey0  = "C008B814A7D269A1FA3C6528B19201A24D797912DB9996FF02A1FF356E45552B"
	burn     = account.ID("xrb_1111111111111111111111111111111111111111111111111111hifc8npp")
	sourceA  = "A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1"
)

type signaler struct {
	work      atomic.Int32
	broadcast atomic.Int32
}

func (s *signaler) SignalWork()      { s.work.Add(1) }
func (s *signaler) SignalBroadcast() { s.broadcast.Add(1) }

type api struct {
	t       *testing.T
	mux     http.Handler
	wallet  *wallet.Wallet
	signals *signaler
}

func newAPI(t *testing.T) *api {
	t.Helper()

	w, err := wallet.New(wallet.Config{
		Passphrase:    "correct horse",
		Iterations:    2,
		WorkThreshold: lowThreshold,
	})
	require.NoError(t, err)

	_, err = w.CreateWallet(zeroSeed)
	require.NoError(t, err)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	s := signaler{}

	mux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:   make(chan os.Signal, 1),
		Log:        zap.NewNop().Sugar(),
		Metrics:    m,
		Wallet:     w,
		Signaler:   &s,
		Evts:       events.New(),
		CORSOrigin: "*",
	})

	return &api{t: t, mux: mux, wallet: w, signals: &s}
}

// call performs the request and decodes the response into out when set.
func (a *api) call(method string, path string, body string, out any) int {
	a.t.Helper()

	var r *http.Request
	switch body {
	case "":
		r = httptest.NewRequest(method, path, nil)
	default:
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}

	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, r)

	if out != nil && w.Code < 300 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out))
	}

	return w.Code
}

func solve(t *testing.T, hash string) string {
	t.Helper()

	for n := uint64(0); n < 1<<20; n++ {
		work := fmt.Sprintf("%016x", n)
		if workpool.Check(work, hash, lowThreshold) == nil {
			return work
		}
	}

	t.Fatalf("unable to find work for hash %s", hash)
	return ""
}

func failing(t *testing.T, hash string) string {
	t.Helper()

	for n := uint64(0); ; n++ {
		work := fmt.Sprintf("%016x", n)
		if workpool.Check(work, hash, lowThreshold) != nil {
			return work
		}
	}
}

// =============================================================================

type accountResp struct {
	Account        string `json:"account"`
	PublicKey      string `json:"publicKey"`
	Balance        string `json:"balance"`
	PendingBalance string `json:"pendingBalance"`
	BlockCount     int    `json:"blockCount"`
	Representative string `json:"representative"`
	Label          string `json:"label"`
}

type blockResp struct {
	Hash  string `json:"hash"`
	Block struct {
		Type     string `json:"type"`
		Previous string `json:"previous"`
		Amount   string `json:"amount"`
	} `json:"block"`
}

func TestAccounts(t *testing.T) {
	a := newAPI(t)

	var list struct {
		Balance  string        `json:"balance"`
		Accounts []accountResp `json:"accounts"`
	}
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/accounts", "", &list))
	require.Equal(t, "0", list.Balance)
	require.Len(t, list.Accounts, 1)
	require.Equal(t, string(acct0), list.Accounts[0].Account)
	require.Equal(t, pubKey0, list.Accounts[0].PublicKey)

	var created accountResp
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/accounts", "", &created))
	require.NotEqual(t, string(acct0), created.Account)
	require.Len(t, a.wallet.Accounts(), 2)

	require.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/v1/accounts", `{"privateKey":"zz"}`, nil))

	var one accountResp
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/accounts/"+string(acct0), "", &one))
	require.Equal(t, string(wallet.DefaultRepresentative), one.Representative)

	require.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/v1/accounts/"+string(burn), "", nil))

	var labeled accountResp
	require.Equal(t, http.StatusOK, a.call(http.MethodPost, "/v1/accounts/"+string(acct0)+"/label", `{"label":"savings"}`, &labeled))
	require.Equal(t, "savings", labeled.Label)
}

func TestWorkAndSend(t *testing.T) {
	a := newAPI(t)

	blk, ok, err := a.wallet.AddPendingReceiveBlock(sourceA, acct0, burn, uint256.NewInt(1000))
	require.NoError(t, err)
	require.True(t, ok)

	var pool []workpool.Entry
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/work", "", &pool))
	require.Len(t, pool, 2)
	require.Equal(t, blk.Root(), pool[0].Hash)
	require.True(t, pool[0].Needed)
	require.Equal(t, blk.Hash(), pool[1].Hash)

	bad := fmt.Sprintf(`{"hash":%q,"work":%q}`, blk.Root(), failing(t, blk.Root()))
	require.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/v1/work", bad, nil))

	var res struct {
		Confirmed bool `json:"confirmed"`
	}
	good := fmt.Sprintf(`{"hash":%q,"work":%q}`, blk.Root(), solve(t, blk.Root()))
	require.Equal(t, http.StatusOK, a.call(http.MethodPost, "/v1/work", good, &res))
	require.True(t, res.Confirmed)
	require.Equal(t, int32(1), a.signals.broadcast.Load())

	var ready []blockResp
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/blocks/ready", "", &ready))
	require.Len(t, ready, 1)
	require.Equal(t, blk.Hash(), ready[0].Hash)
	require.Equal(t, "open", ready[0].Block.Type)

	var blocks []blockResp
	require.Equal(t, http.StatusOK, a.call(http.MethodGet, "/v1/accounts/"+string(acct0)+"/blocks", "", &blocks))
	require.Len(t, blocks, 1)
	require.Equal(t, http.StatusBadRequest, a.call(http.MethodGet, "/v1/accounts/"+string(acct0)+"/blocks?count=many", "", nil))

	var sent blockResp
	send := fmt.Sprintf(`{"from":%q,"to":%q,"amount":"400"}`, acct0, burn)
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/send", send, &sent))
	require.Equal(t, "send", sent.Block.Type)
	require.Equal(t, blk.Hash(), sent.Block.Previous)
	require.Equal(t, "400", sent.Block.Amount)
	require.Equal(t, int32(1), a.signals.work.Load())

	tooMuch := fmt.Sprintf(`{"from":%q,"to":%q,"amount":"5000"}`, acct0, burn)
	require.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/v1/send", tooMuch, nil))

	missing := fmt.Sprintf(`{"from":%q,"to":%q}`, acct0, burn)
	require.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/v1/send", missing, nil))

	var changed blockResp
	change := fmt.Sprintf(`{"account":%q,"representative":%q}`, acct0, burn)
	require.Equal(t, http.StatusCreated, a.call(http.MethodPost, "/v1/change", change, &changed))
	require.Equal(t, "change", changed.Block.Type)
	require.Equal(t, sent.Hash, changed.Block.Previous)
}
