// Package homepath resolves the on-disk layout documents live under,
// adapted from the teacher's codex/app/src/path (which generated
// timestamp-salted single-file database paths under ~/.codex). This module
// instead needs one stable, label-keyed directory per document label under
// a fixed root, so the timestamp/hash salting is gone: the label itself is
// the stable key document/src/document.rs relied on.
package homepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootDirName is the directory created under the user's home directory
// (or an overriding base directory) to hold all document labels.
const RootDirName = ".fizzgig"

// Root returns the store's root directory, creating it if absent. base, if
// non-empty, overrides the user's home directory (used by tests and by the
// CLI's --base flag).
func Root(base string) (string, error) {
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("homepath: resolve home directory: %w", err)
		}
		base = home
	}
	root := filepath.Join(base, RootDirName)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", fmt.Errorf("homepath: create root directory: %w", err)
	}
	return root, nil
}

// LabelDir returns (creating if absent) the directory a label's documents
// are stored in: <root>/<label>/.
func LabelDir(base, label string) (string, error) {
	root, err := Root(base)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, label)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("homepath: create label directory: %w", err)
	}
	return dir, nil
}

// DocPath returns the path a document with the given label and uuid is
// stored at. It creates the store root if absent, but not the label
// directory.
func DocPath(base, label, uuid string) (string, error) {
	root, err := Root(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, label, uuid+".json"), nil
}
