package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/business/web/errs"
	"github.com/ardanlabs/raiwallet/business/web/v1/mid"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/ardanlabs/raiwallet/foundation/validate"
	"github.com/ardanlabs/raiwallet/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Metrics(m), mid.Cors("*"), mid.Panics(m))

	tt := []struct {
		name   string
		err    error
		panic  bool
		status int
		body   errs.Response
	}{
		{
			name:   "not-found",
			err:    errs.FromWallet(wallet.ErrAccountNotFound),
			status: http.StatusNotFound,
			body:   errs.Response{Error: wallet.ErrAccountNotFound.Error()},
		},
		{
			name:   "fields",
			err:    validate.FieldErrors{{Field: "amount", Err: "amount is a required field"}},
			status: http.StatusBadRequest,
			body: errs.Response{
				Error:  "data validation error",
				Fields: map[string]string{"amount": "amount is a required field"},
			},
		},
		{
			name:   "untrusted",
			err:    errs.FromWallet(wallet.ErrChainLinkMismatch),
			status: http.StatusInternalServerError,
			body:   errs.Response{Error: http.StatusText(http.StatusInternalServerError)},
		},
		{
			name:   "panic",
			panic:  true,
			status: http.StatusInternalServerError,
			body:   errs.Response{Error: http.StatusText(http.StatusInternalServerError)},
		},
	}

	for _, tc := range tt {
		tc := tc
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if tc.panic {
				panic("boom")
			}
			return tc.err
		}
		app.Handle(http.MethodGet, "v1", "/"+tc.name, h)
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/"+tc.name, nil))

			require.Equal(t, tc.status, w.Code)
			require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

			var got errs.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			require.Equal(t, tc.body, got)
		})
	}

	require.Equal(t, float64(len(tt)), testutil.ToFloat64(m.Requests))
	require.Equal(t, float64(len(tt)), testutil.ToFloat64(m.Errors))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Panics))
}

func TestFromWallet(t *testing.T) {
	require.NoError(t, errs.FromWallet(nil))

	err := errs.FromWallet(wallet.ErrIncorrectPassword)
	require.True(t, errs.IsTrusted(err))
	require.Equal(t, http.StatusUnauthorized, errs.GetTrusted(err).Status)
	require.ErrorIs(t, err, wallet.ErrIncorrectPassword)

	consistency := []error{
		wallet.ErrChainNotOpen,
		wallet.ErrChainLinkMismatch,
		wallet.ErrIncorrectSendAmount,
		wallet.ErrWalletCorrupted,
	}
	for _, ce := range consistency {
		err := errs.FromWallet(fmt.Errorf("hash[1]: %w", ce))
		require.False(t, errs.IsTrusted(err), ce.Error())
		require.ErrorIs(t, err, ce)
		require.Contains(t, err.Error(), "ledger consistency")
	}

	plain := errors.New("disk full")
	require.Equal(t, plain, errs.FromWallet(plain))
	require.False(t, errs.IsTrusted(plain))
}
