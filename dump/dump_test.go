package dump

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestReaderEmptyDirectoryYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	r, err := NewReader(dir)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReaderSingleFileHasNoSeparators(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "AAA")

	r, err := NewReader(dir)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "AAA", string(got))
}

func TestReaderMultipleFilesSeparatedByExactlyOneNewline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "AAA")
	writeFile(t, dir, "b.json", "BBB")

	r, err := NewReader(dir)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)

	s := string(got)
	require.NotContains(t, s, "\n\n")
	require.False(t, len(s) > 0 && s[0] == '\n')
	require.False(t, len(s) > 0 && s[len(s)-1] == '\n')
	require.Contains(t, s, "AAA\nBBB")
}

func TestReaderSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "AAA")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	r, err := NewReader(dir)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "AAA", string(got))
}

func TestReaderWorksWithSmallReadBuffers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "AAAAAAAAAA")
	writeFile(t, dir, "b.json", "BBBBBBBBBB")

	r, err := NewReader(dir)
	require.NoError(t, err)

	buf := make([]byte, 3)
	var all []byte
	for {
		n, err := r.Read(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, "AAAAAAAAAA\nBBBBBBBBBB", string(all))
}
