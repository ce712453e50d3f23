package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/api-sage/account-ledger-service/internal/domain"
)

// Store keeps the whole account snapshot in a single JSON document on disk.
// Save writes to a temp file and renames it over the original, so a crash
// mid-write never leaves a torn snapshot behind.
type Store struct {
	path string

	// Guards first-use initialization only: Load may be called concurrently
	// from read paths, and two loaders racing over a missing file must not
	// both write the empty snapshot.
	initMu sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load(ctx context.Context) (map[string]domain.Account, error) {
	snapshot, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		return s.initialize(ctx)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Store) read() (map[string]domain.Account, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot %q: %v", domain.ErrStorageUnavailable, s.path, err)
	}

	var snapshot map[string]domain.Account
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %q: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	if snapshot == nil {
		snapshot = map[string]domain.Account{}
	}

	return snapshot, nil
}

func (s *Store) initialize(ctx context.Context) (map[string]domain.Account, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	// Another loader may have initialized while we waited for the lock.
	snapshot, err := s.read()
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	empty := map[string]domain.Account{}
	if err := s.Save(ctx, empty); err != nil {
		return nil, err
	}
	return empty, nil
}

func (s *Store) Save(ctx context.Context, snapshot map[string]domain.Account) error {
	tmp := s.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create temp snapshot %q: %v", domain.ErrStorageUnavailable, tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: encode snapshot: %v", domain.ErrStorageUnavailable, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: sync snapshot: %v", domain.ErrStorageUnavailable, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close snapshot: %v", domain.ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace snapshot %q: %v", domain.ErrStorageUnavailable, s.path, err)
	}

	return nil
}

func (s *Store) GenerateAccountNumber(ctx context.Context) (string, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return "", err
	}

	for {
		number := domain.NewAccountNumber()
		if _, exists := snapshot[number]; !exists {
			return number, nil
		}
	}
}
