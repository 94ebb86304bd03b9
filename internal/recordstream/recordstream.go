// Package recordstream splits a byte stream into newline-delimited JSON
// records, carrying partial trailing bytes across reads. Shared by the
// Strider client SDK's pull parser and by Ledger.Merge's local-dump
// ingestion path, grounded on
// original_source/land_strider_sdk/src/pull_stream.rs, whose PullStream
// manually implements poll_next over left-over bytes the same way.
package recordstream

import (
	"bufio"
	"encoding/json"
	"io"
)

// Item is one parsed record, or a terminal error.
type Item struct {
	Raw json.RawMessage
	Err error
}

// Stream reads r in chunks, splitting on '\n' bytes into records. A
// record is emitted only once its terminating newline has been seen,
// except for the final record in the stream: if r reaches EOF with
// non-empty, unterminated bytes still buffered, those are flushed as the
// last record. This keeps a purely local dump (which never writes a
// trailing separator after its last file) round-trippable through the
// same parser a networked pull uses, where the relay appends a trailing
// terminator.
func Stream(r io.Reader) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		reader := bufio.NewReaderSize(r, 4096)
		var leftover []byte
		for {
			chunk, err := reader.ReadBytes('\n')
			if len(chunk) > 0 {
				if chunk[len(chunk)-1] == '\n' {
					record := append(leftover, chunk[:len(chunk)-1]...)
					leftover = nil
					if len(record) > 0 {
						out <- Item{Raw: json.RawMessage(record)}
					}
				} else {
					leftover = append(leftover, chunk...)
				}
			}
			if err != nil {
				if err == io.EOF {
					if len(leftover) > 0 {
						out <- Item{Raw: json.RawMessage(leftover)}
					}
					return
				}
				out <- Item{Err: err}
				return
			}
		}
	}()
	return out
}
