package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/raiwallet/business/sys/metrics"
	"github.com/ardanlabs/raiwallet/foundation/web"
)

// Metrics updates program counters.
func Metrics(m *metrics.Metrics) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()

			// Call the next handler.
			err := handler(ctx, w, r)

			// Increment the request and errors counters.
			m.Requests.Inc()
			m.Duration.Observe(time.Since(start).Seconds())
			if err != nil {
				m.Errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
