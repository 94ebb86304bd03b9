package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fizzgig/ledger/document"
	"github.com/fizzgig/ledger/internal/cryptutil"
	"github.com/fizzgig/ledger/internal/recordstream"
)

// pushConflictSibling writes payload straight into label's conflict
// sibling directory under uuid, encrypted with the fixed test passphrase
// "password" so the ledger under test can decrypt it via GetConf/Resolve.
func pushConflictSibling[T any](t *testing.T, base, label, uuid string, payload T) {
	t.Helper()
	d := document.New[T](base, document.ConflictLabel(label), uuid)
	d.Update(payload)
	require.NoError(t, d.StoreEncrypted(func(p []byte) ([]byte, error) {
		return cryptutil.Seal("password", p)
	}))
}

// mergeFromDump feeds dst's Merge with src's current on-disk dump, waiting
// for completion and returning any merge error.
func mergeFromDump[T any](t *testing.T, dst *Ledger[T], src *Ledger[T]) error {
	t.Helper()
	r, err := src.DocDump()
	require.NoError(t, err)
	defer r.Close()
	return dst.Merge(context.Background(), recordstream.Stream(r))
}
