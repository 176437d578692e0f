// Package ingest accepts scouting payloads into the CSV store: it parses them, skips payloads
// already recorded in the upload ledger, appends (or replaces) rows, records the upload and
// invalidates the snapshot cache.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/parser"
	"github.com/pable/go-scout-metrics/internal/storage"
)

// Store is the writable scouting store.
type Store interface {
	Append(batch *model.Batch) (int, error)
	Replace(batch *model.Batch) error
}

var _ Store = (*storage.CSVStore)(nil)

// Ledger records accepted uploads by payload hash.
type Ledger interface {
	UploadBySHA256(hash string) (*storage.Upload, error)
	InsertUpload(u storage.Upload) error
}

// Invalidator is told when the store changed.
type Invalidator interface {
	Invalidate()
}

// Options carries the optional collaborators of an Ingester. A nil Ledger disables duplicate
// detection and upload records.
type Options struct {
	Ledger  Ledger
	Cache   Invalidator
	Parsers *parser.Factory
	Log     *logger.Logger
	Now     func() time.Time
	NewID   func() string
}

// Ingester writes parsed payloads to a Store.
type Ingester struct {
	store   Store
	ledger  Ledger
	cache   Invalidator
	parsers *parser.Factory
	log     *logger.Logger
	now     func() time.Time
	newID   func() string

	// mu spans the ledger check, the store write and the ledger insert so identical
	// concurrent payloads are written once.
	mu sync.Mutex
}

func New(store Store, opts Options) *Ingester {
	in := &Ingester{
		store:   store,
		ledger:  opts.Ledger,
		cache:   opts.Cache,
		parsers: opts.Parsers,
		log:     opts.Log,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if in.parsers == nil {
		in.parsers = parser.NewFactory()
	}
	if in.log == nil {
		in.log = logger.Nop()
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.newID == nil {
		in.newID = func() string { return uuid.NewString() }
	}
	return in
}

// Request is one payload to ingest.
type Request struct {
	Data       []byte
	Hint       parser.Hint
	Source     string // "http", "ingest" or "fetch"
	RemoteAddr string
	// Replace overwrites the store instead of appending. Replacing never counts as a duplicate.
	Replace bool
}

// Result describes an accepted payload. For a duplicate, UploadID and Rows are those of the
// earlier upload and nothing was written.
type Result struct {
	UploadID  string
	Format    parser.Format
	Rows      int
	Duplicate bool
	SHA256    string
}

// Ingest parses req and writes it. Structural payload problems are returned unwritten and
// satisfy IsClientError.
func (in *Ingester) Ingest(req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, parser.ErrEmptyUpload
	}
	p, format, err := in.parsers.Resolve(req.Hint, req.Data)
	if err != nil {
		return nil, err
	}
	batch, err := p.Parse(req.Data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Data)
	hash := hex.EncodeToString(sum[:])
	log := in.log.With("source", req.Source, "format", format, "sha256", hash[:12])

	in.mu.Lock()
	defer in.mu.Unlock()

	if in.ledger != nil && !req.Replace {
		prev, err := in.ledger.UploadBySHA256(hash)
		if err != nil {
			return nil, fmt.Errorf("check upload ledger: %w", err)
		}
		if prev != nil {
			log.Info("duplicate upload skipped", "upload_id", prev.ID, "rows", prev.Rows)
			return &Result{UploadID: prev.ID, Format: format, Rows: prev.Rows, Duplicate: true, SHA256: hash}, nil
		}
	}

	rows := batch.Len()
	if req.Replace {
		err = in.store.Replace(batch)
	} else {
		rows, err = in.store.Append(batch)
	}
	if err != nil {
		return nil, fmt.Errorf("write scouting store: %w", err)
	}
	if in.cache != nil {
		in.cache.Invalidate()
	}

	id := in.newID()
	if in.ledger != nil {
		u := storage.Upload{
			ID:         id,
			ReceivedAt: in.now(),
			Source:     req.Source,
			Format:     string(format),
			RemoteAddr: req.RemoteAddr,
			SHA256:     hash,
			Rows:       rows,
			Columns:    batch.Columns,
		}
		// The rows are already stored; a client retry would duplicate them.
		if err := in.ledger.InsertUpload(u); err != nil {
			log.Warn("record upload failed", "upload_id", id, "error", err)
		}
	}
	log.Info("upload stored", "upload_id", id, "rows", rows, "replace", req.Replace)
	return &Result{UploadID: id, Format: format, Rows: rows, SHA256: hash}, nil
}

// IsClientError reports whether err comes from the payload itself rather than from storage.
func IsClientError(err error) bool {
	return errors.Is(err, parser.ErrEmptyUpload) ||
		errors.Is(err, parser.ErrMalformed) ||
		errors.Is(err, parser.ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnsupportedEncoding) ||
		errors.Is(err, ErrTooLarge)
}
