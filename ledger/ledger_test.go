package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type secret struct {
	Value string `json:"value"`
}

func TestOpenWrongPassphraseFails(t *testing.T) {
	base := t.TempDir()
	_, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	_, err = Open[secret](base, "Users", "wrong password")
	require.Error(t, err)
	require.Equal(t, "Incorrect password", err.Error())
}

func TestOpenSamePassphraseSucceedsAcrossReopen(t *testing.T) {
	base := t.TempDir()
	_, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	_, err = Open[secret](base, "Users", "password")
	require.NoError(t, err)
}

func TestCreateAndRead(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	require.NoError(t, l.Create("employee-1", secret{Value: "duderino"}))

	got, err := l.ReadByEntryName("employee-1")
	require.NoError(t, err)
	require.Equal(t, secret{Value: "duderino"}, got)
}

func TestSaveAndReloadAcrossLedgerInstances(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "duderino"}))

	reopened, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	got, err := reopened.Read("employee-1")
	require.NoError(t, err)
	require.Equal(t, secret{Value: "duderino"}, got)
}

func TestCreateRejectsEmptyEntryName(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	err = l.Create("", secret{Value: "x"})
	require.Error(t, err)
}

func TestCreateRejectsDuplicateEntryName(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	require.NoError(t, l.Create("employee-1", secret{Value: "a"}))
	err = l.Create("employee-1", secret{Value: "b"})
	require.Error(t, err)
}

func TestUpdateThenRead(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "a"}))

	require.NoError(t, l.Update("employee-1", secret{Value: "b"}))

	got, err := l.Read("employee-1")
	require.NoError(t, err)
	require.Equal(t, secret{Value: "b"}, got)
}

func TestUpdateRejectsMissingEntry(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)

	err = l.Update("no-such-entry", secret{Value: "b"})
	require.Error(t, err)
}

func TestRemoveDeletesEntry(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "a"}))

	require.NoError(t, l.Remove("employee-1"))
	_, err = l.Read("employee-1")
	require.Error(t, err)
}

func TestListEntryLabelsExcludesMetaDoc(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "a"}))
	require.NoError(t, l.Create("employee-2", secret{Value: "b"}))

	labels, err := l.ListEntryLabels()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"employee-1", "employee-2"}, labels)
	require.NotContains(t, labels, MetaDocUUID)
}

func TestListEntryLabelsReflectsRemoval(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "a"}))
	require.NoError(t, l.Create("employee-2", secret{Value: "b"}))
	require.NoError(t, l.Remove("employee-1"))

	labels, err := l.ListEntryLabels()
	require.NoError(t, err)
	require.Equal(t, []string{"employee-2"}, labels)
}

func TestResolveDiscardsConflictWhenKeepOriginal(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "original"}))

	pushConflictSibling(t, base, "Users", "employee-1", secret{Value: "incoming"})

	require.NoError(t, l.Resolve("employee-1", true))
	_, err = l.GetConf("employee-1")
	require.Error(t, err)

	got, err := l.Read("employee-1")
	require.NoError(t, err)
	require.Equal(t, secret{Value: "original"}, got)
}

func TestResolvePromotesConflictWhenNotKeepOriginal(t *testing.T) {
	base := t.TempDir()
	l, err := Open[secret](base, "Users", "password")
	require.NoError(t, err)
	require.NoError(t, l.Create("employee-1", secret{Value: "original"}))

	pushConflictSibling(t, base, "Users", "employee-1", secret{Value: "incoming"})

	require.NoError(t, l.Resolve("employee-1", false))

	got, err := l.Read("employee-1")
	require.NoError(t, err)
	require.Equal(t, secret{Value: "incoming"}, got)
}
