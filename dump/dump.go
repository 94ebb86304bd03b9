// Package dump implements the lazy, pull-driven byte stream over a ledger
// directory used for export and for Strider push, grounded on
// original_source/local_ledger/src/ledger_dump.rs (LedgerDump).
package dump

import (
	"io"
	"os"
	"path/filepath"
)

// Reader streams every file in a directory, one at a time, emitting a
// single newline byte between files (never before the first, never after
// the last). Files are enumerated once at construction; nothing is
// buffered beyond the current file's open handle.
type Reader struct {
	dir   string
	files []string
	idx   int

	current    *os.File
	eofReached bool
	done       bool
}

// NewReader enumerates dir's entries once and returns a Reader over them.
// Subdirectories are skipped, matching document.GetAllUUIDs's posture of
// never mixing conflict/temp siblings into the primary listing.
func NewReader(dir string) (*Reader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return &Reader{dir: dir, files: files}, nil
}

// Read implements io.Reader. Each call advances through at most one file's
// next chunk; hitting a file's EOF arms a single pending newline separator
// before the next file's bytes begin.
func (r *Reader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}

	for {
		if r.eofReached {
			r.eofReached = false
			if len(p) == 0 {
				return 0, nil
			}
			p[0] = '\n'
			return 1, nil
		}

		if r.current == nil {
			if r.idx >= len(r.files) {
				r.done = true
				return 0, io.EOF
			}
			f, err := os.Open(r.files[r.idx])
			r.idx++
			if err != nil {
				return 0, err
			}
			r.current = f
		}

		n, err := r.current.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			r.current.Close()
			r.current = nil
			if r.idx < len(r.files) {
				r.eofReached = true
				continue
			}
			r.done = true
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
	}
}

// Close releases the currently open file handle, if any.
func (r *Reader) Close() error {
	if r.current != nil {
		err := r.current.Close()
		r.current = nil
		return err
	}
	return nil
}
