// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/ardanlabs/raiwallet/foundation/blockchain/session"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "walletd"

// Metrics represents the set of request metrics we gather.
type Metrics struct {
	Requests prometheus.Counter
	Errors   prometheus.Counter
	Panics   prometheus.Counter
	Duration prometheus.Histogram
}

// New constructs the request metrics and registers them.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Number of requests served.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Number of requests that failed.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Number of requests that panicked.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent serving requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.Requests, m.Errors, m.Panics, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// RegisterWallet registers gauges that sample the wallet state on every
// scrape. The session is optional.
func RegisterWallet(reg prometheus.Registerer, w *wallet.Wallet, sess *session.Session) error {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"accounts", "Number of accounts in the wallet.", func() float64 {
			return float64(len(w.Accounts()))
		}},
		{"pending_blocks", "Blocks waiting for work.", func() float64 {
			return float64(len(w.WalletPendingBlocks()))
		}},
		{"ready_blocks", "Blocks waiting to be processed by the node.", func() float64 {
			return float64(len(w.ReadyBlocks()))
		}},
		{"error_blocks", "Blocks that failed to confirm.", func() float64 {
			return float64(len(w.ErrorBlocks()))
		}},
		{"waiting_work", "One when a work target is still without work.", func() float64 {
			if w.WaitingRemoteWork() {
				return 1
			}
			return 0
		}},
		{"version", "Number of changes applied to the wallet.", func() float64 {
			return float64(w.Version())
		}},
	}

	if sess != nil {
		gauges = append(gauges,
			struct {
				name string
				help string
				fn   func() float64
			}{"node_blocks", "Ledger block count last reported by the node.", func() float64 {
				return float64(sess.BlocksCount())
			}},
		)
	}

	for _, g := range gauges {
		gf := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      g.name,
			Help:      g.help,
		}, g.fn)

		if err := reg.Register(gf); err != nil {
			return err
		}
	}

	return nil
}
