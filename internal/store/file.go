package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-records-service/internal/models"
	"github.com/kjstillabower/weather-records-service/internal/observability"
)

// FileStore keeps records in memory and mirrors them to a JSON file after every
// mutation. Mutations and the file rewrite run under the write lock; reads share
// the read lock. An empty path gives a memory-only store.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]models.WeatherRecord
	order   []string // insertion order, used to break CreatedAt ties
	logger  *zap.Logger
}

// NewFileStore returns an empty store backed by path. Call Load to restore persisted records.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:    path,
		records: make(map[string]models.WeatherRecord),
		logger:  logger,
	}
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore() *FileStore {
	return NewFileStore("", nil)
}

// Path returns the backing file path ("" for memory-only stores).
func (s *FileStore) Path() string {
	return s.path
}

// Load replaces the in-memory contents with the persisted file. A missing file
// leaves the store empty and is not an error. On a read or parse failure the store
// is left empty, the unreadable file is renamed to <path>.corrupt so later saves
// cannot overwrite it, and an error wrapping ErrPersistence is returned.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]models.WeatherRecord)
	s.order = nil
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		observability.StorePersistFailuresTotal.WithLabelValues("load").Inc()
		return fmt.Errorf("%w: read %s: %w", ErrPersistence, s.path, s.quarantineLocked(err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	records, order, err := decodeRecords(data)
	if err != nil {
		observability.StorePersistFailuresTotal.WithLabelValues("load").Inc()
		return fmt.Errorf("%w: parse %s: %w", ErrPersistence, s.path, s.quarantineLocked(err))
	}
	s.records = records
	s.order = order
	return nil
}

// CorruptPath returns where an unreadable store file is moved by Load.
func (s *FileStore) CorruptPath() string {
	if s.path == "" {
		return ""
	}
	return s.path + ".corrupt"
}

// quarantineLocked moves the store file aside after a failed load and returns
// loadErr, joined with the rename error if the move failed.
func (s *FileStore) quarantineLocked(loadErr error) error {
	backup := s.CorruptPath()
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.Error("unreadable store file could not be moved aside",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(err),
		)
		return errors.Join(loadErr, fmt.Errorf("move aside: %w", err))
	}
	s.logger.Warn("unreadable store file moved aside",
		zap.String("path", s.path),
		zap.String("backup", backup),
		zap.Error(loadErr),
	)
	return loadErr
}

func (s *FileStore) Get(id string) (models.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return models.WeatherRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Put inserts rec, or overwrites the record with the same id keeping its position, then persists.
func (s *FileStore) Put(rec models.WeatherRecord) error {
	if rec.ID == "" {
		return errors.New("store: record id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	s.persistLocked()
	return nil
}

func (s *FileStore) List() []models.WeatherRecord {
	s.mu.RLock()
	out := make([]models.WeatherRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.WeatherRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Delete removes the record and persists. Returns ErrNotFound if id is absent.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.persistLocked()
	return nil
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save rewrites the store file. Unlike the implicit persist in Put and Delete, the error is returned.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// persistLocked saves and swallows the error after logging it. Caller holds the write lock.
func (s *FileStore) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.logger.Warn("store save failed; in-memory state retained",
			zap.String("path", s.path),
			zap.Int("records", len(s.records)),
			zap.Error(err))
	}
}

// saveLocked writes the whole store to a temp file in the target directory, syncs it
// and renames it over the target. Caller holds the write lock.
func (s *FileStore) saveLocked() error {
	if s.path == "" {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.StoreSaveDuration.Observe(time.Since(start).Seconds())
	}()

	data, err := s.encodeLocked()
	if err != nil {
		observability.StorePersistFailuresTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		observability.StorePersistFailuresTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// encodeLocked renders the store as one JSON object keyed by id, keys in insertion order.
func (s *FileStore) encodeLocked() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, id := range s.order {
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.MarshalIndent(s.records[id], "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// decodeRecords reads a JSON object keyed by id, keeping key order. Records written
// without an "id" field take their key.
func decodeRecords(data []byte) (map[string]models.WeatherRecord, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	records := make(map[string]models.WeatherRecord)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected record id, got %v", tok)
		}
		var rec models.WeatherRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("record %s: %w", id, err)
		}
		if rec.ID == "" {
			rec.ID = id
		}
		if _, dup := records[id]; !dup {
			order = append(order, id)
		}
		records[id] = rec
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return records, order, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
