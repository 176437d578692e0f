package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pable/go-scout-metrics/internal/model"
)

// DefaultFileName is the file created when the store path is an empty directory.
const DefaultFileName = "scouting.csv"

// CSVStore is the append-only scouting CSV. Path may name a file or a directory; in directory
// mode the most recently modified *.csv inside is the store.
//
// Every write replaces the whole file through a temp file and rename, so readers see either
// the old or the new file and never a partial line or a repeated header.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Root is the configured path (file or directory).
func (s *CSVStore) Root() string { return s.path }

// File returns the CSV file currently backing the store and whether it exists.
func (s *CSVStore) File() (string, bool, error) {
	file, info, err := s.resolve()
	return file, info != nil, err
}

func (s *CSVStore) resolve() (string, fs.FileInfo, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.path, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if !info.IsDir() {
		return s.path, info, nil
	}

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return "", nil, fmt.Errorf("read dir %s: %w", s.path, err)
	}
	var (
		best     string
		bestInfo fs.FileInfo
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if bestInfo == nil || fi.ModTime().After(bestInfo.ModTime()) ||
			(fi.ModTime().Equal(bestInfo.ModTime()) && e.Name() > filepath.Base(best)) {
			best, bestInfo = filepath.Join(s.path, e.Name()), fi
		}
	}
	if bestInfo == nil {
		return filepath.Join(s.path, DefaultFileName), nil, nil
	}
	return best, bestInfo, nil
}

// ModTime reports the backing file's modification time; exists is false before the first write.
func (s *CSVStore) ModTime() (time.Time, bool, error) {
	_, info, err := s.resolve()
	if err != nil || info == nil {
		return time.Time{}, false, err
	}
	return info.ModTime(), true, nil
}

// Load reads every row of the backing file. A missing file yields no rows.
func (s *CSVStore) Load() ([]model.RawRecord, error) {
	b, err := s.ReadBatch()
	if err != nil {
		return nil, err
	}
	return b.Records(), nil
}

// ReadBatch reads the backing file in tabular form. Rows of any width are accepted;
// the normalizer decides what to keep.
func (s *CSVStore) ReadBatch() (*model.Batch, error) {
	file, info, err := s.resolve()
	if err != nil {
		return nil, err
	}
	if info == nil {
		return &model.Batch{}, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	b, err := decodeCSV(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return b, nil
}

func decodeCSV(data []byte) (*model.Batch, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return &model.Batch{}, nil
	}
	if err != nil {
		return nil, err
	}
	b := &model.Batch{Columns: make([]string, len(header))}
	for i, c := range header {
		b.Columns[i] = strings.ToLower(strings.TrimSpace(c))
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

// Append adds the batch's rows to the store, creating the file with the header contract if needed.
// Columns the file does not have yet are added to its header; earlier rows get empty cells there.
func (s *CSVStore) Append(batch *model.Batch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, info, err := s.resolve()
	if err != nil {
		return 0, err
	}
	current := &model.Batch{}
	if info != nil {
		if current, err = s.ReadBatch(); err != nil {
			return 0, err
		}
	}

	cols := mergeColumns(current.Columns, batch.Columns)
	rows := make([][]string, 0, len(current.Rows)+len(batch.Rows))
	for _, r := range current.Rows {
		rows = append(rows, project(current.Columns, r, cols))
	}
	for _, r := range batch.Rows {
		rows = append(rows, project(batch.Columns, r, cols))
	}
	if err := writeAtomic(file, cols, rows); err != nil {
		return 0, err
	}
	return len(batch.Rows), nil
}

// Replace overwrites the store with the batch.
func (s *CSVStore) Replace(batch *model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, _, err := s.resolve()
	if err != nil {
		return err
	}
	cols := mergeColumns(nil, batch.Columns)
	rows := make([][]string, 0, len(batch.Rows))
	for _, r := range batch.Rows {
		rows = append(rows, project(batch.Columns, r, cols))
	}
	return writeAtomic(file, cols, rows)
}

// EnsureHeader creates a header-only file when the store does not exist and returns the backing file path.
func (s *CSVStore) EnsureHeader() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, info, err := s.resolve()
	if err != nil {
		return "", err
	}
	if info != nil {
		return file, nil
	}
	if err := writeAtomic(file, slices.Clone(model.Header), nil); err != nil {
		return "", err
	}
	return file, nil
}

// mergeColumns keeps the existing header order and appends new columns. A fresh header starts
// from the column contract, followed by any extra columns in batch order.
func mergeColumns(existing, incoming []string) []string {
	base := existing
	if len(base) == 0 {
		base = model.Header
	}
	out := slices.Clone(base)
	for _, c := range incoming {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// project maps row (laid out as from) onto the to layout.
func project(from, row, to []string) []string {
	out := make([]string, len(to))
	idx := make(map[string]int, len(to))
	for i, c := range to {
		idx[c] = i
	}
	for i, c := range from {
		if i >= len(row) {
			break
		}
		if j, ok := idx[c]; ok {
			out[j] = row[i]
		}
	}
	return out
}

func writeAtomic(file string, cols []string, rows [][]string) (err error) {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".scouting-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err = w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("replace %s: %w", file, err)
	}
	return nil
}
