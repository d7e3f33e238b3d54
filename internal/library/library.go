// Package library resolves opaque video references against a media
// directory. Ingestion is out of scope: references must already exist
// on disk.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// videoPattern matches the media files the library serves.
const videoPattern = "**/*.{mp4,mov,mkv,avi,webm}"

var (
	// ErrNotFound reports a reference that resolves to no media file.
	ErrNotFound = errors.New("video not found")

	// ErrInvalidRef reports a reference that escapes the media root.
	ErrInvalidRef = errors.New("invalid video reference")
)

// Video is one entry in the media library.
type Video struct {
	// Ref is the path relative to the media root, usable as a video
	// reference in queries.
	Ref string `json:"ref"`

	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Library is a read-only view over a media directory.
type Library struct {
	root string
}

// New creates a library rooted at dir.
func New(dir string) *Library {
	return &Library{root: dir}
}

// Root returns the media root directory.
func (l *Library) Root() string { return l.root }

// Resolve maps a reference (relative path, filename, or bare stem) to
// an absolute media path. References that escape the root are rejected.
func (l *Library) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}

	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}

	path := filepath.Join(l.root, clean)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path, nil
	}

	// Fall back to matching by filename or stem anywhere in the tree.
	videos, err := l.List()
	if err != nil {
		return "", err
	}
	for _, v := range videos {
		base := filepath.Base(v.Ref)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if ref == base || ref == stem {
			return v.Path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// List scans the media root for known video formats.
func (l *Library) List() ([]Video, error) {
	matches, err := doublestar.Glob(os.DirFS(l.root), videoPattern)
	if err != nil {
		return nil, fmt.Errorf("scan media dir: %w", err)
	}
	sort.Strings(matches)

	videos := make([]Video, 0, len(matches))
	for _, rel := range matches {
		path := filepath.Join(l.root, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		videos = append(videos, Video{
			Ref:  filepath.FromSlash(rel),
			Path: path,
			Size: info.Size(),
		})
	}
	return videos, nil
}
