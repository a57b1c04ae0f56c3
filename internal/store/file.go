// internal/store/file.go
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Store is the persistence contract. Writes are never retried here.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// FileStore keeps the record in one CBOR file, replaced atomically.
type FileStore struct {
	path string
	enc  cbor.EncMode
	dec  cbor.DecMode
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: path required")
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("store: encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("store: decoder: %w", err)
	}
	return &FileStore{path: path, enc: enc, dec: dec}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the record. A missing, unreadable-as-CBOR or uninitialised
// store is treated as first boot: defaults are written and returned.
// Loaded durations are clamped.
func (s *FileStore) Load() (Record, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("store empty, writing defaults (path=%s)", s.path)
		return s.initialise()
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var r Record
	if err := s.dec.Unmarshal(b, &r); err != nil {
		log.Printf("store unreadable, writing defaults (path=%s err=%v)", s.path, err)
		return s.initialise()
	}
	if r.Uninitialised() {
		log.Printf("store uninitialised, writing defaults (path=%s)", s.path)
		return s.initialise()
	}
	return r.Normalize(), nil
}

func (s *FileStore) initialise() (Record, error) {
	r := Defaults()
	if err := s.Save(r); err != nil {
		return r, err
	}
	return r, nil
}

// Save writes r to a temporary file next to the target and renames it
// into place.
func (s *FileStore) Save(r Record) error {
	b, err := s.enc.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
