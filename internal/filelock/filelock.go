// Package filelock provides OS-level advisory file locking, adapted from
// the teacher's codex/app/src/filelock. Wired into document.Document's
// store protocol to close the race the original Rust implementation left
// to a single in-process lock: two separate processes opening the same
// document file between its conflict check and its rewrite.
package filelock

import (
	"fmt"
	"os"
)

// ErrLocked is returned when the file is already locked by another process.
var ErrLocked = fmt.Errorf("filelock: file is locked by another process")

// Lock acquires a non-blocking exclusive lock on file, returning ErrLocked
// if another process already holds it.
func Lock(file *os.File) error {
	return lock(file)
}

// Unlock releases a lock previously acquired with Lock.
func Unlock(file *os.File) error {
	return unlock(file)
}
