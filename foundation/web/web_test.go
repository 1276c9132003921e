package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/raiwallet/foundation/validate"
	"github.com/ardanlabs/raiwallet/foundation/web"
	"github.com/stretchr/testify/require"
)

type labelRequest struct {
	Label string `json:"label" validate:"required,max=16"`
}

func TestHandle(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mw("app"))

	var traceID string
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		require.NoError(t, err)
		traceID = v.TraceID

		resp := struct {
			Account string `json:"account"`
		}{
			Account: web.Param(r, "account"),
		}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
	app.Handle(http.MethodGet, "v1", "/accounts/:account", h, mw("route"))

	r := httptest.NewRequest(http.MethodGet, "/v1/accounts/xrb_1", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"account":"xrb_1"}`, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, []string{"app", "route"}, order)
	require.Len(t, traceID, 36)
}

func TestDecode(t *testing.T) {
	var req labelRequest

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"label":"savings"}`))
	require.NoError(t, web.Decode(r, &req))
	require.Equal(t, "savings", req.Label)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"label":""}`))
	err := web.Decode(r, &req)
	require.True(t, validate.IsFieldErrors(err))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"savings"}`))
	require.Error(t, web.Decode(r, &req))
}

func TestShutdownError(t *testing.T) {
	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	}
	app.Handle(http.MethodGet, "", "/fail", h)

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown was not signaled")
	}

	require.Equal(t, "00000000-0000-0000-0000-000000000000", web.GetTraceID(context.Background()))
}
