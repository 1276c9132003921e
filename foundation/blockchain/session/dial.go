package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
)

// Dial connects to the node websocket, retrying with a fixed delay until a
// connection is made or the context is done.
func Dial(ctx context.Context, url string, delay time.Duration, evHandler EventHandler) (*websocket.Conn, error) {
	for attempt := 1; ; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			if evHandler != nil {
				evHandler("session: Dial: connected: url[%s] attempt[%d]", url, attempt)
			}
			return conn, nil
		}

		if evHandler != nil {
			evHandler("session: Dial: url[%s] attempt[%d]: ERROR: %s", url, attempt, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Wrapf(ctx.Err(), "dial %s", url)
		case <-t.C:
		}
	}
}
