// Package label defines the ordered class-label list that maps model outputs to names.
package label

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoLabels is returned when a label source contains no class names.
var ErrNoLabels = errors.New("label file contains no labels")

// Set is an ordered, immutable list of class names.
// Position i holds the name of model output i.
type Set struct {
	names []string
}

// New creates a Set from the given names. The slice is copied.
func New(names []string) *Set {
	cp := make([]string, len(names))
	copy(cp, names)
	return &Set{names: cp}
}

// Len returns the number of labels.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// At returns the label at index i.
// The second return value is false if i is out of range.
func (s *Set) At(i int) (string, bool) {
	if s == nil || i < 0 || i >= len(s.names) {
		return "", false
	}
	return s.names[i], true
}

// Names returns a copy of all labels in order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s.names))
	copy(cp, s.names)
	return cp
}

// Parse reads one label per line. Surrounding whitespace is trimmed and
// trailing blank lines are dropped; interior blank lines keep their slot so
// indices stay aligned with the model output.
func Parse(r io.Reader) (*Set, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	if len(names) == 0 {
		return nil, ErrNoLabels
	}

	return &Set{names: names}, nil
}

// Load reads a label file from disk.
func Load(path string) (*Set, error) {
	return LoadFromFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// LoadFromFS reads a label file from an embedded or real filesystem.
func LoadFromFS(fsys fs.FS, path string) (*Set, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file %s: %w", path, err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("label file %s: %w", path, err)
	}
	return set, nil
}
