// Package selection defines the set of image paths the user picked.
package selection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions lists the raster formats offered by the file dialogs.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// IsImage reports whether path has one of ImageExtensions (case-insensitive).
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Set is an ordered list of distinct image paths.
// A Set is replaced wholesale on every new selection.
type Set struct {
	paths []string
}

// NewSet creates a Set from paths, dropping empty strings and duplicates.
// The first occurrence of a path keeps its position.
func NewSet(paths []string) *Set {
	s := &Set{paths: make([]string, 0, len(paths))}
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		s.paths = append(s.paths, p)
	}
	return s
}

// Len returns the number of paths.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// IsEmpty returns true if the set has no paths.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Paths returns a copy of the paths in selection order.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s.paths))
	copy(cp, s.paths)
	return cp
}

// FilterImages keeps only paths with a supported image extension.
func FilterImages(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if IsImage(p) {
			out = append(out, p)
		}
	}
	return out
}

// FromDir lists the image files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func FromDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	paths := FilterImages(files)
	sort.Strings(paths)
	return paths, nil
}

// Expand resolves user-supplied paths into image files.
// Directories contribute their images via FromDir; other paths are kept
// when IsImage accepts them. Unreadable directories are skipped and
// reported in the joined error alongside the paths that did resolve.
func Expand(paths []string) ([]string, error) {
	var (
		out  []string
		errs []error
	)
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			files, err := FromDir(p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, files...)
			continue
		}
		// Missing files still reach the pipeline and fail there per image.
		if IsImage(p) {
			out = append(out, p)
		}
	}
	return out, errors.Join(errs...)
}
