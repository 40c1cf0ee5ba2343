// Package files lays out per-user working directories for downloaded photos
// and generated documents.
package files

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/m3rciful/pdfbot/core/logger"
)

const (
	// DefaultDir is the storage root used when none is configured.
	DefaultDir = "user_data"
	// DocumentName is the single output slot inside each user directory.
	DocumentName = "output.pdf"
)

// Storage resolves and manages user directories below a common root.
type Storage struct {
	root string
}

// NewStorage returns a Storage rooted at dir (DefaultDir when empty).
func NewStorage(dir string) *Storage {
	if dir == "" {
		dir = DefaultDir
	}
	return &Storage{root: dir}
}

// Root returns the storage root directory.
func (s *Storage) Root() string { return s.root }

// UserDir returns the directory for a user. The name is the md5 hex of the
// decimal user id so raw ids never appear on disk.
func (s *Storage) UserDir(userID int64) string {
	sum := md5.Sum([]byte(strconv.FormatInt(userID, 10)))
	return filepath.Join(s.root, hex.EncodeToString(sum[:]))
}

// EnsureUserDir creates the user directory if needed and returns it.
func (s *Storage) EnsureUserDir(userID int64) (string, error) {
	dir := s.UserDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user dir: %w", err)
	}
	return dir, nil
}

// NewImagePath returns a fresh, collision-free path for a downloaded photo.
func (s *Storage) NewImagePath(userID int64) (string, error) {
	dir, err := s.EnsureUserDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "image-"+uuid.NewString()+".jpg"), nil
}

// DocumentPath returns the output document slot for a user.
func (s *Storage) DocumentPath(userID int64) string {
	return filepath.Join(s.UserDir(userID), DocumentName)
}

// DeleteUserFiles removes every file in the user directory and reports how
// many were deleted. A missing directory is not an error.
func (s *Storage) DeleteUserFiles(ctx context.Context, userID int64) (int, error) {
	dir := s.UserDir(userID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list user dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	logger.Debug(ctx, "files", "files.clear",
		slog.String("status", logger.Status(errors.Join(errs...))),
		slog.String("path", dir),
		slog.Int("images", removed),
	)
	if len(errs) > 0 {
		return removed, fmt.Errorf("delete user files: %w", errors.Join(errs...))
	}
	return removed, nil
}
