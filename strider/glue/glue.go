// Package glue composes a Ledger with the Strider client SDK, providing
// the two operations a command-dispatching shell needs: push the
// ledger's current dump to the relay, and pull + merge a peer's dump.
// Grounded on original_source/src-tauri/src/commands/push_s.rs,
// pull.rs, local_ledger_worker.rs.
package glue

import (
	"context"

	"github.com/fizzgig/ledger/internal/lederr"
	"github.com/fizzgig/ledger/internal/obslog"
	"github.com/fizzgig/ledger/ledger"
	"github.com/fizzgig/ledger/strider/client"
)

var log = obslog.Default("strider-glue")

// Push dumps ledger's current on-disk state and streams it to the relay
// behind a freshly reserved pin, gated by pw.
func Push[T any](ctx context.Context, l *ledger.Ledger[T], c *client.Client, pw string) (string, error) {
	r, err := l.DocDump()
	if err != nil {
		return "", lederr.Wrap("failed to open ledger dump", err)
	}
	defer r.Close()

	result, err := c.PushS(ctx, r, pw)
	if err != nil {
		log.Error().Err(err).Msg("push failed")
		return "", err
	}
	log.Info().Str("pin", result.Pin).Msg("pushed ledger dump to relay")
	return result.Pin, nil
}

// Pull fetches pin's data from the relay using pw, and merges the
// parsed record stream into l.
func Pull[T any](ctx context.Context, l *ledger.Ledger[T], c *client.Client, pin, pw string) error {
	items, closeBody, err := c.PullS(ctx, pin, pw)
	if err != nil {
		log.Error().Err(err).Str("pin", pin).Msg("pull failed")
		return err
	}
	defer closeBody()

	if err := l.Merge(ctx, items); err != nil {
		log.Error().Err(err).Str("pin", pin).Msg("merge failed")
		return err
	}
	log.Info().Str("pin", pin).Msg("pulled and merged relay data")
	return nil
}
