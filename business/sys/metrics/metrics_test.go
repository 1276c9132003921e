package metrics_test

import (
	"testing"

	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterWallet(t *testing.T) {
	w, err := wallet.New(wallet.Config{Passphrase: "correct horse", Iterations: 2})
	require.NoError(t, err)

	_, err = w.CreateWallet("0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.RegisterWallet(reg, w, nil))

	n, err := testutil.GatherAndCount(reg, "walletd_wallet_accounts")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range mfs {
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	require.Equal(t, float64(1), values["walletd_wallet_accounts"])
	require.Equal(t, float64(0), values["walletd_wallet_ready_blocks"])

	require.Error(t, metrics.RegisterWallet(reg, w, nil))
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.Requests.Inc()
	m.Requests.Inc()
	m.Errors.Inc()

	require.Equal(t, float64(2), testutil.ToFloat64(m.Requests))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Errors))
	require.Zero(t, testutil.ToFloat64(m.Panics))

	_, err = metrics.New(reg)
	require.Error(t, err)
}
