// Package client implements the Strider SDK: reserving a pin and
// streaming a push, and pulling + parsing a peer's data. Grounded on
// original_source/src-tauri/src/commands/push_s.rs and
// original_source/land_strider_sdk/src/pull_stream.rs.
package client

import (
	"net/http"
	"time"

	"github.com/fizzgig/ledger/internal/obslog"
)

// Client talks to one Strider relay base URL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client with a bounded default timeout, matching the
// relay's "no explicit deadlines inside the Ledger, but transport calls
// are bounded" posture.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

var log = obslog.Default("strider-client")
