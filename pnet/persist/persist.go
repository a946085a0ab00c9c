// Package persist adapts the core's nonvolatile state (station name, IP
// suite, logbook snapshot) to plain files on disk, timestamped with
// strftime-style names for rotated snapshots.
package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Store is a directory of persisted device files.
type Store struct {
	dir string
}

// NewStore builds a persistence adapter rooted at dir, creating it if
// necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pnet/persist: mkdir %s: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// LoadFile reads name from the store, returning (nil, nil) if it does not
// exist yet ("nonvolatile settings are loaded" - absence is not
// an error on first boot).
func (s *Store) LoadFile(name string) ([]byte, error) {
	var data, err = os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pnet/persist: read %s: %w", name, err)
	}

	return data, nil
}

// SaveFile writes name atomically (write-temp, rename) so a crash never
// leaves a half-written configuration file.
func (s *Store) SaveFile(name string, data []byte) error {
	var final = filepath.Join(s.dir, name)
	var tmp = final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("pnet/persist: write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("pnet/persist: rename %s: %w", tmp, err)
	}

	return nil
}

// SaveFileIfModified writes name only if its content differs from what is
// already on disk, avoiding pointless flash wear on embedded targets.
func (s *Store) SaveFileIfModified(name string, data []byte) (bool, error) {
	var existing, err = s.LoadFile(name)
	if err != nil {
		return false, err
	}

	if bytes.Equal(existing, data) {
		return false, nil
	}

	return true, s.SaveFile(name, data)
}

// ClearFile removes name, ignoring a not-exists error.
func (s *Store) ClearFile(name string) error {
	var err = os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pnet/persist: remove %s: %w", name, err)
	}

	return nil
}

// SnapshotName formats a timestamped filename for a rotated snapshot
// (logbook dump, diagnosis snapshot) using date-stamped daily naming.
func SnapshotName(pattern string, t time.Time) (string, error) {
	var f, err = strftime.New(pattern)
	if err != nil {
		return "", fmt.Errorf("pnet/persist: bad strftime pattern %q: %w", pattern, err)
	}

	return f.FormatString(t), nil
}
