// Package remotework requests proof of work from a work server over the
// node RPC protocol.
package remotework

import (
	"context"
	"strings"
	"time"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

// actionWorkGenerate is the RPC action that computes work for a hash.
const actionWorkGenerate = "work_generate"

// ErrInvalidWork is returned when the server answers with work that does
// not meet the threshold.
var ErrInvalidWork = errors.New("work server returned invalid work")

type request struct {
	Action string `json:"action"`
	Hash   string `json:"hash"`
}

type response struct {
	Work  string `json:"work"`
	Error string `json:"error"`
}

// Client requests work from a work server.
type Client struct {
	client    *resty.Client
	threshold uint64
}

// New constructs a client for the work server at the url. Work returned by
// the server is checked against the threshold.
func New(url string, threshold uint64, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:    client,
		threshold: threshold,
	}
}

// Generate asks the server for the work of the hash.
func (c *Client) Generate(ctx context.Context, hash string) (string, error) {
	if !block.IsHash(hash) {
		return "", errors.Newf("invalid hash %q", hash)
	}

	var res response
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(request{Action: actionWorkGenerate, Hash: strings.ToUpper(hash)}).
		SetResult(&res).
		SetError(&res).
		Post("")
	if err != nil {
		return "", errors.Wrap(err, "work_generate")
	}

	if resp.IsError() {
		return "", errors.Newf("work_generate: status[%d] error[%s]", resp.StatusCode(), res.Error)
	}

	if res.Error != "" {
		return "", errors.Newf("work_generate: %s", res.Error)
	}

	work := strings.ToLower(res.Work)
	if err := workpool.Check(work, hash, c.threshold); err != nil {
		return "", errors.Wrapf(ErrInvalidWork, "hash[%s] work[%s]: %s", hash, work, err)
	}

	return work, nil
}
