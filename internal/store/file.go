package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File is a Memory store that snapshots itself to a JSON file after every
// change. Good enough for a single bot process on one host.
type File struct {
	*Memory
	path string
}

var _ Store = (*File)(nil)

// OpenFile loads the store at path, starting empty when the file does not exist.
func OpenFile(path string) (*File, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}

	f := &File{Memory: newMemoryFromSnapshot(snap), path: path}
	f.Memory.persist = f.save
	return f, nil
}

func readSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{Settings: DefaultSettings()}, nil
		}
		return Snapshot{}, fmt.Errorf("read store: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal store: %w", err)
	}
	return snap, nil
}

// save writes the snapshot atomically (write tmp, then rename).
func (f *File) save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename store: %w", err)
	}
	return nil
}
