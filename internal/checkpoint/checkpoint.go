// Package checkpoint persists partial run state so an interrupted sync can
// resume without re-collecting finished categories.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"activitytracker-engine/internal/domain"
)

const Version = 1

type State struct {
	Version             int                     `json:"version"`
	Activities          []domain.ParsedActivity `json:"activities"`
	SeenIDs             []string                `json:"seenIds"`
	ProcessedCategories []string                `json:"processedCategories"`
	Timestamp           time.Time               `json:"timestamp"`
}

func New() *State {
	return &State{Version: Version, Activities: []domain.ParsedActivity{}, SeenIDs: []string{}, ProcessedCategories: []string{}}
}

func (s *State) Processed(category string) bool {
	for _, c := range s.ProcessedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// MarkProcessed records category once, keeping the list sorted.
func (s *State) MarkProcessed(category string) {
	if s.Processed(category) {
		return
	}
	s.ProcessedCategories = append(s.ProcessedCategories, category)
	sort.Strings(s.ProcessedCategories)
}

// FileStore keeps one State as JSON at Path. Writers take an exclusive
// lock on Path+".lock" so a concurrent run cannot interleave saves.
type FileStore struct {
	Path string
}

// Load returns the saved state, or a fresh one when no file exists.
func (fs FileStore) Load() (*State, error) {
	b, err := os.ReadFile(fs.Path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}

	st := New()
	if err := json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", fs.Path, err)
	}
	if st.Version != Version {
		return nil, fmt.Errorf("checkpoint %s: unsupported version %d", fs.Path, st.Version)
	}
	return st, nil
}

func (fs FileStore) Save(st *State) error {
	if st.Version == 0 {
		st.Version = Version
	}
	st.Timestamp = time.Now().UTC()

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fs.Path), 0o755); err != nil {
		return err
	}

	unlock, err := fs.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp := fs.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.Path)
}

// Discard removes the checkpoint after a successful run.
func (fs FileStore) Discard() error {
	if _, err := os.Stat(fs.Path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	unlock, err := fs.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(fs.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (fs FileStore) lock() (func(), error) {
	l := flock.New(fs.Path + ".lock")
	if err := l.Lock(); err != nil {
		return nil, fmt.Errorf("lock checkpoint: %w", err)
	}
	return func() { _ = l.Unlock() }, nil
}
