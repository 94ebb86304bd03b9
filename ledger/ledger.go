// Package ledger implements the collection of Documents sharing a label:
// passphrase-gated opening, a decrypted-document LRU, CRUD over entries,
// conflict listing/resolution, and the streaming merge protocol. Grounded
// on original_source/local_ledger/src/ledger.rs (LocalLedger<T>).
package ledger

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fizzgig/ledger/document"
	"github.com/fizzgig/ledger/dump"
	"github.com/fizzgig/ledger/internal/cryptutil"
	"github.com/fizzgig/ledger/internal/homepath"
	"github.com/fizzgig/ledger/internal/lederr"
	"github.com/fizzgig/ledger/internal/obslog"
	"github.com/fizzgig/ledger/internal/recordstream"
)

// MetaDocUUID is the reserved uuid holding the ledger's passphrase-hash
// metadata document.
const MetaDocUUID = "META_DOC"

// AssocDocUUID is the reserved uuid an earlier on-disk schema used for a
// label->uuid association map. Per SPEC_FULL.md's resolution of Open
// Question (a), this implementation treats it as an ordinary document: it
// is not specially excluded from listings or merge.
const AssocDocUUID = "ASSOC_DOC"

// cacheCapacity is the fixed size of the decrypted-document LRU.
const cacheCapacity = 100

type metaPayload struct {
	PwHash string `json:"pw_hash"`
}

// Ledger owns one label's directory: a metadata document recording the
// bcrypt hash of the master passphrase, an in-process LRU of decrypted
// documents, and the passphrase itself (held only in memory).
type Ledger[T any] struct {
	Name string

	base       string
	passphrase string
	cache      *lru.Cache[string, *document.Document[T]]
	log        zerolog.Logger
}

// Open loads label's metadata document and bcrypt-verifies passphrase
// against it, or creates a fresh metadata document (and ledger directory)
// if none exists yet. base overrides the user's home directory; pass ""
// in production code.
func Open[T any](base, label, passphrase string) (*Ledger[T], error) {
	cache, err := lru.New[string, *document.Document[T]](cacheCapacity)
	if err != nil {
		return nil, lederr.Wrap("failed to create document cache", err)
	}
	l := &Ledger[T]{Name: label, base: base, passphrase: passphrase, cache: cache, log: obslog.Default("ledger")}

	if meta, ok := document.TryLoad[metaPayload](base, label, MetaDocUUID); ok {
		if err := bcrypt.CompareHashAndPassword([]byte(meta.Data.PwHash), []byte(passphrase)); err != nil {
			return nil, lederr.New("Incorrect password")
		}
		return l, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return nil, lederr.Wrap("failed to hash passphrase", err)
	}
	meta := document.New[metaPayload](base, label, MetaDocUUID)
	meta.Update(metaPayload{PwHash: string(hash)})
	if err := meta.Store(); err != nil {
		return nil, lederr.Wrap("failed to store metadata document", err)
	}
	return l, nil
}

func (l *Ledger[T]) encryptFn(plaintext []byte) ([]byte, error) {
	return cryptutil.Seal(l.passphrase, plaintext)
}

func (l *Ledger[T]) decryptFn(ciphertext []byte) ([]byte, error) {
	return cryptutil.Open(l.passphrase, ciphertext)
}

// Create adds a new entry. entryName becomes the document's uuid; it must
// be non-empty and not already in use, on disk or in cache.
func (l *Ledger[T]) Create(entryName string, payload T) error {
	if entryName == "" {
		return lederr.New("entry name must not be empty")
	}
	if l.cache.Contains(entryName) || document.DocExists(l.base, l.Name, entryName) {
		return lederr.New("entry name already in use")
	}
	d := document.New[T](l.base, l.Name, entryName)
	d.Update(payload)
	if err := d.StoreEncrypted(l.encryptFn); err != nil {
		return err
	}
	l.cache.Add(entryName, d)
	return nil
}

// Read resolves an entry by uuid, decrypting from disk (and populating the
// cache) if it isn't already cached in decrypted form.
func (l *Ledger[T]) Read(uuid string) (T, error) {
	var zero T
	if cached, ok := l.cache.Get(uuid); ok {
		if !cached.Encrypted || cached.HasBeenDecrypted {
			return cached.Data, nil
		}
	}
	d, err := document.DecryptLoad[T](l.base, l.Name, uuid, l.decryptFn)
	if err != nil {
		return zero, lederr.Wrap("entry not found", err)
	}
	l.cache.Add(uuid, d)
	return d.Data, nil
}

// ReadByEntryName is Read under the name entries are created with: the
// uuid and the user-facing entry name are the same string.
func (l *Ledger[T]) ReadByEntryName(name string) (T, error) {
	return l.Read(name)
}

// Update replaces an existing entry's payload. The entry must already
// exist, either on disk or in cache.
func (l *Ledger[T]) Update(entryName string, payload T) error {
	if !l.cache.Contains(entryName) && !document.DocExists(l.base, l.Name, entryName) {
		return lederr.New("Entry name not found")
	}
	d, ok := l.cache.Get(entryName)
	if !ok || (d.Encrypted && !d.HasBeenDecrypted) {
		loaded, err := document.DecryptLoad[T](l.base, l.Name, entryName, l.decryptFn)
		if err != nil {
			return err
		}
		d = loaded
	}
	d.Update(payload)
	if err := d.StoreEncrypted(l.encryptFn); err != nil {
		return err
	}
	l.cache.Add(entryName, d)
	return nil
}

// Remove deletes an entry's file and its cache entry.
func (l *Ledger[T]) Remove(entryName string) error {
	if err := document.RemoveDoc(l.base, l.Name, entryName); err != nil {
		return err
	}
	l.cache.Remove(entryName)
	return nil
}

// ListEntryLabels enumerates every entry's uuid, excluding the reserved
// metadata document.
func (l *Ledger[T]) ListEntryLabels() ([]string, error) {
	uuids, err := document.GetAllUUIDs(l.base, l.Name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, u := range uuids {
		if u == MetaDocUUID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// ListEntriesWithConflicts enumerates the uuids currently quarantined in
// this ledger's conflict sibling directory.
func (l *Ledger[T]) ListEntriesWithConflicts() ([]string, error) {
	return document.GetAllUUIDs(l.base, document.ConflictLabel(l.Name))
}

// GetConf decrypts and returns the conflict sibling of entryName, if any.
func (l *Ledger[T]) GetConf(entryName string) (T, error) {
	var zero T
	d, err := document.DecryptLoad[T](l.base, document.ConflictLabel(l.Name), entryName, l.decryptFn)
	if err != nil {
		return zero, err
	}
	return d.Data, nil
}

// Resolve settles a conflict for entryName. If keepOriginal is true, the
// conflict sibling is simply discarded. Otherwise the conflict sibling is
// promoted: it overwrites the primary entry and both copies collapse into
// the (now-promoted) one.
func (l *Ledger[T]) Resolve(entryName string, keepOriginal bool) error {
	conflictLabel := document.ConflictLabel(l.Name)
	if keepOriginal {
		return document.RemoveDoc(l.base, conflictLabel, entryName)
	}

	rec, ok, err := document.LoadRawRecord(l.base, conflictLabel, entryName)
	if err != nil {
		return err
	}
	if !ok {
		return lederr.New("no conflict recorded for entry")
	}
	if err := document.StoreRawRecord(l.base, l.Name, entryName, rec); err != nil {
		return err
	}
	if err := document.RemoveDoc(l.base, conflictLabel, entryName); err != nil {
		return err
	}
	l.cache.Remove(entryName)
	return nil
}

// DocDump returns a lazy byte stream over this ledger's directory, for
// export or for Strider push.
func (l *Ledger[T]) DocDump() (*dump.Reader, error) {
	dir, err := homepath.LabelDir(l.base, l.Name)
	if err != nil {
		return nil, lederr.Wrap("failed to resolve ledger directory", err)
	}
	return dump.NewReader(dir)
}

// Merge consumes a lazy sequence of newline-delimited document records
// (typically produced by recordstream.Stream over a peer's dump or pull
// response) and implements the conflict-quarantine / temp-staging protocol
// described in SPEC_FULL.md's Merge module: non-conflicting documents are
// staged under a temp uuid until the peer's metadata document is confirmed
// compatible, conflicting documents are quarantined as conflict siblings,
// and a MetaDocConflict mid-stream rolls back everything written so far.
func (l *Ledger[T]) Merge(ctx context.Context, items <-chan recordstream.Item) error {
	var tempUUIDs []string
	var conflictUUIDs []string
	metaStored := false

	rollback := func() {
		l.log.Warn().Int("staged", len(tempUUIDs)).Int("conflicts", len(conflictUUIDs)).Msg("meta document conflict, rolling back merge")
		for _, u := range tempUUIDs {
			_ = document.RemoveDoc(l.base, l.Name, document.TempUUID(u))
		}
		for _, u := range conflictUUIDs {
			_ = document.RemoveDoc(l.base, document.ConflictLabel(l.Name), u)
		}
	}

	for item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if item.Err != nil {
			return lederr.Wrap("failed to read incoming record", item.Err)
		}

		rec, err := document.DecodeRawRecord(item.Raw)
		if err != nil {
			return lederr.Wrap("failed to decode incoming record", err)
		}

		if rec.UUID == MetaDocUUID {
			local, ok, err := document.LoadRawRecord(l.base, l.Name, MetaDocUUID)
			if err != nil {
				return err
			}
			if ok {
				if err := document.CheckConflict(local.RevHistory, local.Rev, rec.RevHistory, rec.Rev); err != nil {
					rollback()
					return lederr.NewMetaDocConflict("meta document conflict")
				}
			}
			if err := document.StoreRawRecord(l.base, l.Name, MetaDocUUID, rec); err != nil {
				return err
			}
			metaStored = true
			continue
		}

		local, hasLocal, err := document.LoadRawRecord(l.base, l.Name, rec.UUID)
		if err != nil {
			return err
		}

		conflict := false
		if hasLocal {
			if err := document.CheckConflict(local.RevHistory, local.Rev, rec.RevHistory, rec.Rev); err != nil {
				conflict = true
			}
		}

		switch {
		case conflict:
			l.log.Info().Str("uuid", rec.UUID).Msg("document conflict, quarantining incoming revision")
			if err := document.StoreRawRecord(l.base, document.ConflictLabel(l.Name), rec.UUID, rec); err != nil {
				return err
			}
			conflictUUIDs = append(conflictUUIDs, rec.UUID)
		case !metaStored:
			if err := document.StoreRawRecord(l.base, l.Name, document.TempUUID(rec.UUID), rec); err != nil {
				return err
			}
			tempUUIDs = append(tempUUIDs, rec.UUID)
		default:
			if err := l.reencryptAndStorePrimary(rec); err != nil {
				return err
			}
			l.cache.Remove(rec.UUID)
		}
	}

	for _, u := range tempUUIDs {
		tempRec, ok, err := document.LoadRawRecord(l.base, l.Name, document.TempUUID(u))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := l.reencryptAndStorePrimary(tempRec); err != nil {
			return err
		}
		if err := document.RemoveDoc(l.base, l.Name, document.TempUUID(u)); err != nil {
			return err
		}
		l.cache.Remove(u)
	}

	l.log.Info().Int("conflicts", len(conflictUUIDs)).Msg("merge complete")
	return nil
}

// reencryptAndStorePrimary decrypts rec's ciphertext under this ledger's
// passphrase (which only succeeds because the metadata check already
// confirmed the peer used the same passphrase) and re-encrypts it with a
// fresh salt/nonce before writing it as the primary copy.
func (l *Ledger[T]) reencryptAndStorePrimary(rec document.RawRecord) error {
	plaintext, err := l.decryptFn(rec.EncryptedData)
	if err != nil {
		return lederr.Wrap("failed to decrypt incoming document", err)
	}
	ciphertext, err := l.encryptFn(plaintext)
	if err != nil {
		return lederr.Wrap("failed to re-encrypt incoming document", err)
	}
	rec.EncryptedData = ciphertext
	rec.Data = json.RawMessage("null")
	return document.StoreRawRecord(l.base, l.Name, rec.UUID, rec)
}
