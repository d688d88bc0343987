package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonesrussell/newsgate/internal/domain"
)

// ErrRecordNotFound is returned by a Store that holds no record yet.
var ErrRecordNotFound = errors.New("budget cache record not found")

// Payload is a cached API response.
type Payload struct {
	Articles     []domain.Article `json:"articles"`
	TotalResults int              `json:"totalResults"`
	NextPage     string           `json:"nextPage,omitempty"`
}

// StoredEntry is a persisted Tier B entry.
type StoredEntry struct {
	Payload
	Category  domain.Category `json:"category"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Record is the durable Tier B document.
type Record struct {
	Date        string                 `json:"date"`
	CreditsUsed int                    `json:"creditsUsed"`
	HitCount    int64                  `json:"hitCount"`
	MissCount   int64                  `json:"missCount"`
	Entries     map[string]StoredEntry `json:"entries"`
}

// Store persists the Tier B record.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

// FileStore keeps the record as a JSON file, replaced atomically on save.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record. A missing file yields ErrRecordNotFound.
func (s *FileStore) Load(_ context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("read budget cache: %w", err)
	}

	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode budget cache: %w", err)
	}
	return &rec, nil
}

// Save writes the record to a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode budget cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace budget cache: %w", err)
	}
	return nil
}

// MemoryStore keeps the record in process. Used when no durable backend is
// configured.
type MemoryStore struct {
	rec *Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*Record, error) {
	if s.rec == nil {
		return nil, ErrRecordNotFound
	}
	data, err := json.Marshal(s.rec)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var cp Record
	if err = json.Unmarshal(data, &cp); err != nil {
		return err
	}
	s.rec = &cp
	return nil
}
