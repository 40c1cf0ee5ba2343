package stats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultFilePath is the canonical record location of the file backend.
	DefaultFilePath = "data/user_database.json"
	// DefaultLegacyFilePath is where older deployments kept the user list.
	DefaultLegacyFilePath = "user_data/users.json"
)

// FileBackend keeps the record as a JSON file on local disk.
type FileBackend struct {
	path       string
	legacyPath string
}

// NewFileBackend builds a file backend; empty paths fall back to the defaults.
func NewFileBackend(path, legacyPath string) *FileBackend {
	if strings.TrimSpace(path) == "" {
		path = DefaultFilePath
	}
	if strings.TrimSpace(legacyPath) == "" {
		legacyPath = DefaultLegacyFilePath
	}
	return &FileBackend{
		path:       filepath.Clean(path),
		legacyPath: filepath.Clean(legacyPath),
	}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Path returns the file used for loc.
func (b *FileBackend) Path(loc Location) string {
	if loc == LocationLegacy {
		return b.legacyPath
	}
	return b.path
}

// Read implements Backend. An empty file counts as absent.
func (b *FileBackend) Read(ctx context.Context, loc Location) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(b.Path(loc))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// Write implements Backend by writing a temp file next to the target and renaming it.
func (b *FileBackend) Write(ctx context.Context, loc Location, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(b.Path(loc), data, 0o755, 0o644)
}

// Delete implements Backend. Deleting a missing file is not an error.
func (b *FileBackend) Delete(ctx context.Context, loc Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(b.Path(loc)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeFileAtomic(path string, data []byte, dirPerm, filePerm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}
