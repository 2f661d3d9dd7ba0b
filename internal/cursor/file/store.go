// Package file keeps the rotation cursor in a JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = "keyword_state.json"

// Store reads and writes the cursor file.
type Store struct {
	path string
}

// New returns a Store for path.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Read loads the cursor. A missing file yields scraper.ErrNoState.
func (s *Store) Read(_ context.Context) (scraper.KeywordState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return scraper.KeywordState{}, scraper.ErrNoState
		}
		return scraper.KeywordState{}, fmt.Errorf("read state file: %w", err)
	}
	return cursor.Decode(data)
}

// Write replaces the file atomically via a temp file and rename.
func (s *Store) Write(_ context.Context, state scraper.KeywordState) error {
	data, err := cursor.Encode(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".keyword_state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
