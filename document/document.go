// Package document implements the unit of persistence this store is built
// from: a single typed record, its append-only revision chain, and the
// atomic store-with-conflict-check protocol every write goes through.
// Grounded on original_source/document/src/document.rs, translated from
// Rust's Document<T> into a Go generic type.
package document

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fizzgig/ledger/internal/filelock"
	"github.com/fizzgig/ledger/internal/homepath"
	"github.com/fizzgig/ledger/internal/ids"
	"github.com/fizzgig/ledger/internal/lederr"
)

// TempSuffix marks a document staged during a merge, before the peer's
// metadata document has been confirmed compatible.
const TempSuffix = "__temp"

// Document is one record: a typed payload plus the bookkeeping needed to
// detect conflicting concurrent writes to the same uuid.
type Document[T any] struct {
	Base  string // overrides the user home directory; "" means use it
	Label string
	UUID  string

	Rev        string
	RevHistory []string
	Seq        int

	Data             T
	EncryptedData    []byte
	Encrypted        bool
	HasBeenDecrypted bool
}

// wireDoc is the on-disk JSON shape. HasBeenDecrypted is intentionally
// absent: it is a transient, in-memory-only flag (spec: "true only in
// memory once data has been populated from a decrypt").
type wireDoc struct {
	Label         string          `json:"label"`
	UUID          string          `json:"uuid"`
	Rev           string          `json:"rev"`
	RevHistory    []string        `json:"rev_history"`
	Seq           int             `json:"seq"`
	Data          json.RawMessage `json:"data"`
	EncryptedData []byte          `json:"encrypted_data"`
	Encrypted     bool            `json:"encrypted"`
}

// New constructs an in-memory document with seq = 0. If uuid is empty a
// fresh one is generated.
func New[T any](base, label, uuid string) *Document[T] {
	if uuid == "" {
		uuid = ids.New()
	}
	return &Document[T]{Base: base, Label: label, UUID: uuid}
}

// Update replaces the in-memory payload. It performs no I/O and never
// touches the ciphertext fields.
func (d *Document[T]) Update(payload T) {
	d.Data = payload
}

// Store persists the document as cleartext. It refuses to run if the
// document is still carrying an undecrypted ciphertext payload, since that
// would silently discard the caller's actual data.
func (d *Document[T]) Store() error {
	if d.Encrypted && !d.HasBeenDecrypted {
		return lederr.New("document is encrypted, decrypt or use store_encrypted")
	}
	d.Encrypted = false
	return d.doStore()
}

// StoreEncrypted serializes Data, passes it through encryptFn, and
// persists the result. The on-disk "data" field is written as T's zero
// value; the cleartext never touches disk.
func (d *Document[T]) StoreEncrypted(encryptFn func([]byte) ([]byte, error)) error {
	plaintext, err := json.Marshal(d.Data)
	if err != nil {
		return lederr.Wrap("failed to serialize document payload", err)
	}
	ciphertext, err := encryptFn(plaintext)
	if err != nil {
		return lederr.Wrap("failed to encrypt document payload", err)
	}
	d.EncryptedData = ciphertext
	d.Encrypted = true
	d.HasBeenDecrypted = false
	return d.doStore()
}

// StoreTemp persists the document under its temp-suffixed uuid, used by
// merge to stage an incoming document before the peer's metadata document
// is confirmed compatible.
func (d *Document[T]) StoreTemp(encryptFn func([]byte) ([]byte, error)) error {
	original := d.UUID
	d.UUID = TempUUID(original)
	defer func() { d.UUID = original }()
	return d.StoreEncrypted(encryptFn)
}

// StoreConflict persists the document into the sibling conflict directory
// under its own uuid, quarantining it alongside (not over) the local
// primary copy.
func (d *Document[T]) StoreConflict(encryptFn func([]byte) ([]byte, error)) error {
	original := d.Label
	d.Label = ConflictLabel(original)
	defer func() { d.Label = original }()
	return d.StoreEncrypted(encryptFn)
}

// TempUUID returns uuid's temp-staging form.
func TempUUID(uuid string) string { return uuid + TempSuffix }

// TempUUIDToUUID strips the temp suffix, recovering the primary uuid.
func TempUUIDToUUID(tempUUID string) string { return strings.TrimSuffix(tempUUID, TempSuffix) }

// ConflictLabel returns the sibling directory name conflicting copies of
// label's documents are quarantined under.
func ConflictLabel(label string) string { return label + "_conflicts" }

// doStore runs the store protocol shared by Store and StoreEncrypted:
// bump the revision chain, encode, and — if the file already exists —
// reject a write whose chain doesn't fast-forward the on-disk one.
func (d *Document[T]) doStore() error {
	newRev := ids.New()
	d.Seq++
	if d.Seq > 1 {
		d.RevHistory = append(d.RevHistory, d.Rev)
	}
	d.Rev = newRev

	encoded, err := d.encode()
	if err != nil {
		return lederr.Wrap("failed to encode document", err)
	}

	dir, err := homepath.LabelDir(d.Base, d.Label)
	if err != nil {
		return lederr.Wrap("failed to resolve label directory", err)
	}
	path := filepath.Join(dir, d.UUID+".json")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return lederr.Wrap("failed to open document file", err)
	}
	defer f.Close()

	if err := filelock.Lock(f); err != nil {
		return lederr.Wrap("failed to lock document file", err)
	}
	defer filelock.Unlock(f)

	info, err := f.Stat()
	if err != nil {
		return lederr.Wrap("failed to stat document file", err)
	}

	if info.Size() > 0 {
		existing, err := io.ReadAll(f)
		if err != nil {
			return lederr.Wrap("failed to read existing document", err)
		}
		if err := checkForConflict(existing, d.Rev, d.RevHistory); err != nil {
			return err
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return lederr.Wrap("failed to seek document file", err)
	}
	if err := f.Truncate(int64(len(encoded))); err != nil {
		return lederr.Wrap("failed to truncate document file", err)
	}
	if _, err := f.Write(encoded); err != nil {
		return lederr.Wrap("failed to write document file", err)
	}
	return nil
}

// checkForConflict implements the append-only fast-forward policy: the
// caller's rev_history+rev ("new side") must extend the on-disk
// rev_history+rev ("current side") without diverging.
func checkForConflict(existingEncoded []byte, newRev string, newRevHistory []string) error {
	var existing wireDoc
	if err := json.Unmarshal(existingEncoded, &existing); err != nil {
		return lederr.Wrap("failed to decode on-disk document", err)
	}
	return CheckConflict(existing.RevHistory, existing.Rev, newRevHistory, newRev)
}

func (d *Document[T]) encode() ([]byte, error) {
	var dataField json.RawMessage
	if d.Encrypted {
		var zero T
		encoded, err := json.Marshal(zero)
		if err != nil {
			return nil, err
		}
		dataField = encoded
	} else {
		encoded, err := json.Marshal(d.Data)
		if err != nil {
			return nil, err
		}
		dataField = encoded
	}

	w := wireDoc{
		Label:         d.Label,
		UUID:          d.UUID,
		Rev:           d.Rev,
		RevHistory:    d.RevHistory,
		Seq:           d.Seq,
		Data:          dataField,
		EncryptedData: d.EncryptedData,
		Encrypted:     d.Encrypted,
	}
	return json.Marshal(w)
}

func decode[T any](raw []byte) (*Document[T], error) {
	var w wireDoc
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	d := &Document[T]{
		Label:         w.Label,
		UUID:          w.UUID,
		Rev:           w.Rev,
		RevHistory:    w.RevHistory,
		Seq:           w.Seq,
		EncryptedData: w.EncryptedData,
		Encrypted:     w.Encrypted,
	}
	if !w.Encrypted && len(w.Data) > 0 {
		if err := json.Unmarshal(w.Data, &d.Data); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Load reads a cleartext document. It fails if the on-disk record is
// encrypted — callers that expect ciphertext should use DecryptLoad.
func Load[T any](base, label, uuid string) (*Document[T], error) {
	d, err := readRaw[T](base, label, uuid)
	if err != nil {
		return nil, err
	}
	if d.Encrypted {
		return nil, lederr.New("document is encrypted")
	}
	return d, nil
}

// TryLoad is Load with errors collapsed to a missing result. As in the
// original implementation, this has the side effect of creating the label
// directory, preserved per SPEC_FULL.md's resolution of that open question.
func TryLoad[T any](base, label, uuid string) (*Document[T], bool) {
	if _, err := homepath.LabelDir(base, label); err != nil {
		return nil, false
	}
	d, err := Load[T](base, label, uuid)
	if err != nil {
		return nil, false
	}
	return d, true
}

// DecryptLoad reads a document's on-disk record and decrypts its payload
// through decryptFn, populating Data and setting HasBeenDecrypted.
func DecryptLoad[T any](base, label, uuid string, decryptFn func([]byte) ([]byte, error)) (*Document[T], error) {
	d, err := readRaw[T](base, label, uuid)
	if err != nil {
		return nil, err
	}
	plaintext, err := decryptFn(d.EncryptedData)
	if err != nil {
		return nil, lederr.Wrap("failed to decrypt document", err)
	}
	if err := json.Unmarshal(plaintext, &d.Data); err != nil {
		return nil, lederr.Wrap("failed to decode decrypted payload", err)
	}
	d.HasBeenDecrypted = true
	return d, nil
}

func readRaw[T any](base, label, uuid string) (*Document[T], error) {
	path, err := homepath.DocPath(base, label, uuid)
	if err != nil {
		return nil, lederr.Wrap("failed to resolve document path", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, lederr.Wrap("not found", err)
	}
	d, err := decode[T](raw)
	if err != nil {
		return nil, lederr.Wrap("failed to decode document", err)
	}
	d.Base = base
	return d, nil
}

// Remove deletes this document's on-disk file. The in-memory value remains
// usable; a subsequent Store recreates the file.
func (d *Document[T]) Remove() error {
	return RemoveDoc(d.Base, d.Label, d.UUID)
}

// RemoveDoc deletes a document file by label/uuid. It is not an error for
// the file to already be absent.
func RemoveDoc(base, label, uuid string) error {
	path, err := homepath.DocPath(base, label, uuid)
	if err != nil {
		return lederr.Wrap("failed to resolve document path", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return lederr.Wrap("failed to remove document", err)
	}
	return nil
}

// GetAllUUIDs enumerates the non-directory entries of label's directory,
// returning their uuid stems. Subdirectories (conflict siblings living
// elsewhere don't apply here, but any stray directory would) are skipped.
func GetAllUUIDs(base, label string) ([]string, error) {
	dir, err := homepath.LabelDir(base, label)
	if err != nil {
		return nil, lederr.Wrap("failed to resolve label directory", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lederr.Wrap("failed to list label directory", err)
	}
	var uuids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		uuids = append(uuids, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	return uuids, nil
}

// DocExists is a filesystem existence probe for label/uuid.
func DocExists(base, label, uuid string) bool {
	path, err := homepath.DocPath(base, label, uuid)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// RawRecord is a decoded but not-yet-typed document record, exactly as it
// arrives from a peer during a merge: enough to run the conflict check and
// persist it without knowing (or caring about) its payload type T.
type RawRecord struct {
	Label         string          `json:"label"`
	UUID          string          `json:"uuid"`
	Rev           string          `json:"rev"`
	RevHistory    []string        `json:"rev_history"`
	Seq           int             `json:"seq"`
	Data          json.RawMessage `json:"data"`
	EncryptedData []byte          `json:"encrypted_data"`
	Encrypted     bool            `json:"encrypted"`
}

// DecodeRawRecord parses a document's encoded bytes without instantiating
// any generic Document type.
func DecodeRawRecord(raw []byte) (RawRecord, error) {
	var rec RawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return RawRecord{}, lederr.Wrap("failed to decode document record", err)
	}
	return rec, nil
}

// LoadRawRecord reads label/uuid's on-disk record, if any, without
// decrypting or typing its payload. ok is false (with a nil error) if the
// document simply doesn't exist.
func LoadRawRecord(base, label, uuid string) (rec RawRecord, ok bool, err error) {
	path, pathErr := homepath.DocPath(base, label, uuid)
	if pathErr != nil {
		return RawRecord{}, false, lederr.Wrap("failed to resolve document path", pathErr)
	}
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return RawRecord{}, false, nil
		}
		return RawRecord{}, false, lederr.Wrap("failed to read document", readErr)
	}
	rec, err = DecodeRawRecord(raw)
	if err != nil {
		return RawRecord{}, false, err
	}
	return rec, true, nil
}

// StoreRawRecord writes rec verbatim at label/uuid, overwriting whatever
// was previously there. It performs no conflict check: callers (merge) are
// expected to have already run CheckConflict against the relevant local
// record before deciding where to persist this one.
func StoreRawRecord(base, label, uuid string, rec RawRecord) error {
	rec.Label = label
	rec.UUID = uuid
	out, err := json.Marshal(rec)
	if err != nil {
		return lederr.Wrap("failed to encode document record", err)
	}
	dir, err := homepath.LabelDir(base, label)
	if err != nil {
		return lederr.Wrap("failed to resolve label directory", err)
	}
	path := filepath.Join(dir, uuid+".json")
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return lederr.Wrap("failed to write document record", err)
	}
	return nil
}

// CheckConflict applies the same append-only fast-forward policy as the
// store protocol to a pair of (rev_history, rev) sides, for callers (merge)
// that need to compare two already-loaded records rather than an
// in-memory document against an on-disk one.
func CheckConflict(localRevHistory []string, localRev string, incomingRevHistory []string, incomingRev string) error {
	currSide := append(append([]string{}, localRevHistory...), localRev)
	newSide := append(append([]string{}, incomingRevHistory...), incomingRev)

	if len(newSide) < len(currSide) {
		return lederr.NewConflict("Document update conflict")
	}
	for i := range currSide {
		if currSide[i] != newSide[i] {
			return lederr.NewConflict("Document update conflict")
		}
	}
	return nil
}
