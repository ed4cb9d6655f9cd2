// Package storage keeps uploaded receipt documents on the local filesystem,
// one folder per trip.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/application/port"
)

var unsafeFolderChars = regexp.MustCompile(`[^a-z0-9\-_]`)

// Store implements port.FileStorage and port.FolderManager under one root directory
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates the root directory if needed
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Save writes content to a temp file next to the target and renames it into place
func (s *Store) Save(ctx context.Context, rel string, content []byte) error {
	target, err := s.resolve(rel)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		s.logger.Error("Failed to write receipt file", zap.String("path", rel), zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("Receipt file saved", zap.String("path", rel), zap.Int("size", len(content)))
	return nil
}

// Read returns the content stored at rel
func (s *Store) Read(ctx context.Context, rel string) ([]byte, error) {
	target, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Exists reports whether a regular file is stored at rel
func (s *Store) Exists(ctx context.Context, rel string) (bool, error) {
	target, err := s.resolve(rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes the file at rel; a missing file is not an error
func (s *Store) Delete(ctx context.Context, rel string) error {
	target, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete receipt file", zap.String("path", rel), zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// EnsureFolder creates the trip folder, e.g. "trp-20251114-0001", and returns its name
func (s *Store) EnsureFolder(ctx context.Context, tripNumber string) (string, error) {
	folder := FolderName(tripNumber)
	if folder == "" {
		return "", fmt.Errorf("no usable folder name in %q", tripNumber)
	}
	if err := os.MkdirAll(filepath.Join(s.root, folder), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	return folder, nil
}

// RemoveFolder deletes the trip folder and everything in it
func (s *Store) RemoveFolder(ctx context.Context, tripNumber string) error {
	folder := FolderName(tripNumber)
	if folder == "" {
		return fmt.Errorf("no usable folder name in %q", tripNumber)
	}
	if err := os.RemoveAll(filepath.Join(s.root, folder)); err != nil {
		s.logger.Error("Failed to remove trip folder", zap.String("folder", folder), zap.Error(err))
		return fmt.Errorf("failed to remove folder: %w", err)
	}
	s.logger.Debug("Trip folder removed", zap.String("folder", folder))
	return nil
}

// resolve maps a slash-separated relative path into root and rejects escapes
func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if rel == "" || clean == "/" || clean != "/"+strings.TrimPrefix(rel, "/") {
		return "", fmt.Errorf("invalid file path %q", rel)
	}
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("file path must be relative: %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// FolderName lowercases a trip number and keeps letters, digits, hyphens and underscores
func FolderName(tripNumber string) string {
	name := strings.ToLower(strings.TrimSpace(tripNumber))
	return unsafeFolderChars.ReplaceAllString(name, "")
}

var (
	_ port.FileStorage   = (*Store)(nil)
	_ port.FolderManager = (*Store)(nil)
)
