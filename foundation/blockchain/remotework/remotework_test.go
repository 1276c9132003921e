package remotework_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/remotework"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/stretchr/testify/require"
)

const (
	lowThreshold uint64 = 0xff00000000000000
	hash                = "C008B814A7D269A1FA3C6528B19201A24D797912DB9996FF02A1FF356E45552B"
)

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

// server answers work_generate requests with the provided handler.
func server(t *testing.T, answer func(w http.ResponseWriter, hash string)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string `json:"action"`
			Hash   string `json:"hash"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "work_generate", req.Action)

		w.Header().Set("Content-Type", "application/json")
		answer(w, req.Hash)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestGenerate(t *testing.T) {
	want := solve(t, hash)

	srv := server(t, func(w http.ResponseWriter, hash string) {
		fmt.Fprintf(w, `{"work":%q}`, want)
	})

	client := remotework.New(srv.URL, lowThreshold, time.Second)

	work, err := client.Generate(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, want, work)
}

func TestGenerateErrors(t *testing.T) {
	var bad string
	for n := uint64(0); bad == ""; n++ {
		work := fmt.Sprintf("%016x", n)
		if workpool.Check(work, hash, lowThreshold) != nil {
			bad = work
		}
	}

	tt := []struct {
		name   string
		answer func(w http.ResponseWriter, hash string)
	}{
		{
			name: "rpc-error",
			answer: func(w http.ResponseWriter, hash string) {
				fmt.Fprint(w, `{"error":"Bad block hash"}`)
			},
		},
		{
			name: "status",
			answer: func(w http.ResponseWriter, hash string) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error":"busy"}`)
			},
		},
		{
			name: "invalid-work",
			answer: func(w http.ResponseWriter, hash string) {
				fmt.Fprintf(w, `{"work":%q}`, bad)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			srv := server(t, tc.answer)
			client := remotework.New(srv.URL, lowThreshold, time.Second)

			_, err := client.Generate(context.Background(), hash)
			require.Error(t, err)
		})
	}

	client := remotework.New("http://127.0.0.1:1", lowThreshold, time.Second)
	_, err := client.Generate(context.Background(), "1234")
	require.Error(t, err)
}
