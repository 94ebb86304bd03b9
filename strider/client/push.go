package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fizzgig/ledger/internal/lederr"
)

const (
	pushChunkSize        = 1024
	pushChannelCapacity  = 32
	pushEmptyReadRetries = 3
)

// PushResult is the outcome of a successful push: the pin the data was
// filed under, ready for a peer to reserve-matching pull.
type PushResult struct {
	Success bool
	Pin     string
}

// PushS reserves a pin with pw, then streams r's bytes to the relay in
// fixed 1024-byte chunks over a bounded channel, matching
// push_s.rs's chunked-read-with-retry loop: a read returning zero bytes
// is retried up to 3 times (to tolerate a transiently-empty reader)
// before the stream is considered finished.
func (c *Client) PushS(ctx context.Context, r io.Reader, pw string) (*PushResult, error) {
	pin, token, err := c.reservePin(ctx, pw)
	if err != nil {
		return nil, err
	}
	log.Info().Str("pin", pin).Msg("pin reserved, starting push")

	chunks := make(chan []byte, pushChannelCapacity)
	go func() {
		defer close(chunks)
		empty := 0
		for {
			buf := make([]byte, pushChunkSize)
			n, err := r.Read(buf)
			if n > 0 {
				empty = 0
				chunks <- buf[:n]
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				return
			}
			if n == 0 {
				empty++
				if empty > pushEmptyReadRetries {
					return
				}
			}
		}
	}()

	pr, pw2 := io.Pipe()
	go func() {
		var err error
		for chunk := range chunks {
			if _, werr := pw2.Write(chunk); werr != nil {
				err = werr
				break
			}
		}
		_ = pw2.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/push_s", pr)
	if err != nil {
		return nil, lederr.Wrap("failed to build push request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, lederr.Wrap("push request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, lederr.NewServer(string(body))
	}

	return &PushResult{Success: true, Pin: pin}, nil
}

func (c *Client) reservePin(ctx context.Context, pw string) (pin, token string, err error) {
	body, err := json.Marshal(map[string]string{"pw": pw})
	if err != nil {
		return "", "", lederr.Wrap("failed to encode reserve_pin request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/reserve_pin", bytes.NewReader(body))
	if err != nil {
		return "", "", lederr.Wrap("failed to build reserve_pin request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", "", lederr.Wrap("reserve_pin request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", "", lederr.NewServer(string(b))
	}

	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Pin     string `json:"pin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", lederr.Wrap("failed to decode reserve_pin response", err)
	}
	if !out.Success {
		return "", "", lederr.New(fmt.Sprintf("reserve_pin did not succeed for pw of length %d", len(pw)))
	}
	return out.Pin, out.Token, nil
}
