// Package upload checks and stores files handed in by students.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for submission uploads.
var (
	ErrNoFile       = errors.New("no file selected")
	ErrFileType     = errors.New("file type not allowed")
	ErrFileTooLarge = errors.New("file too large")
)

// DefaultMaxBytes is the size limit used when Store.MaxBytes is zero.
const DefaultMaxBytes = 16 << 20

// AllowedExtensions lists the accepted submission extensions, without dots.
var AllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif",
	"py", "java", "c", "cpp", "js", "html", "css",
	"zip", "docx",
}

// Allowed reports whether filename ends in an accepted extension. Only the
// last extension counts, so "archive.tar.gz" is rejected.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return false
	}
	return slices.Contains(AllowedExtensions, strings.ToLower(ext))
}

// Store saves files under Dir with generated names.
type Store struct {
	Dir      string
	MaxBytes int64
}

// Saved describes a stored file.
type Saved struct {
	OriginalName string
	StoredName   string
	Path         string
	Size         int64
}

// Save copies src into the store. The stored name is a random UUID with the
// original extension, lower-cased.
func (s Store) Save(src io.Reader, filename string) (Saved, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if src == nil || name == "" || name == "." || name == string(filepath.Separator) {
		return Saved{}, ErrNoFile
	}
	if !Allowed(name) {
		return Saved{}, fmt.Errorf("%w: %s (allowed: %s)", ErrFileType, name, strings.Join(AllowedExtensions, ", "))
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create upload dir: %w", err)
	}

	stored := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	dest := filepath.Join(s.Dir, stored)

	dst, err := os.Create(dest)
	if err != nil {
		return Saved{}, fmt.Errorf("create file: %w", err)
	}

	// Read one byte past the limit to detect oversized input.
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	if err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, ErrFileTooLarge) {
			return Saved{}, err
		}
		return Saved{}, fmt.Errorf("write file: %w", err)
	}

	return Saved{
		OriginalName: name,
		StoredName:   stored,
		Path:         dest,
		Size:         n,
	}, nil
}
