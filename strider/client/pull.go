package client

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/fizzgig/ledger/internal/lederr"
	"github.com/fizzgig/ledger/internal/recordstream"
)

// PullS issues the pull request and returns a lazy channel of decoded
// document records, built over the response body by recordstream.Stream.
// On a non-success status the body is read and wrapped as a Server
// error rather than being handed back as a stream, per the relay
// contract in spec's wire surface.
func (c *Client) PullS(ctx context.Context, pin, pw string) (<-chan recordstream.Item, func() error, error) {
	u, err := url.Parse(c.BaseURL + "/pull")
	if err != nil {
		return nil, nil, lederr.Wrap("failed to build pull request", err)
	}
	q := u.Query()
	q.Set("pin", pin)
	q.Set("pw", pw)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, lederr.Wrap("failed to build pull request", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, lederr.Wrap("pull request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, lederr.NewServer(string(body))
	}

	items := recordstream.Stream(resp.Body)
	return items, resp.Body.Close, nil
}
