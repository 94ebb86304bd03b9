package archiveexport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTripZstd(t *testing.T) {
	payload := bytes.Repeat([]byte("document-dump-bytes"), 50)
	path := filepath.Join(t.TempDir(), "ledger.fgarchive")

	require.NoError(t, Export(bytes.NewReader(payload), path, Zstd))

	got, err := Import(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestExportImportRoundTripSnappy(t *testing.T) {
	payload := bytes.Repeat([]byte("document-dump-bytes"), 50)
	path := filepath.Join(t.TempDir(), "ledger.fgarchive")

	require.NoError(t, Export(bytes.NewReader(payload), path, Snappy))

	got, err := Import(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestImportDetectsTampering(t *testing.T) {
	payload := []byte(`{"label":"email"}`)
	path := filepath.Join(t.TempDir(), "ledger.fgarchive")
	require.NoError(t, Export(bytes.NewReader(payload), path, Snappy))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = Import(path)
	require.Error(t, err)
}

func TestVerifyEnvelopePassesThroughUnwrappedData(t *testing.T) {
	raw := []byte(`not an envelope at all`)
	got, err := verifyEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, raw, []byte(got))
}

func TestVerifyEnvelopeRejectsNewerVersion(t *testing.T) {
	signed, err := signEnvelope([]byte(`{"label":"email"}`))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(signed, &env))
	env.Version = envelopeVersion + 1
	bumped, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = verifyEnvelope(bumped)
	require.Error(t, err)
}
