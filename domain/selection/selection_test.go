package selection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"a.png", true},
		{"b.JPG", true},
		{"c.jpeg", true},
		{"/tmp/d.Bmp", true},
		{"e.gif", false},
		{"f.txt", false},
		{"noext", false},
		{"png", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsImage(tt.path); got != tt.expected {
				t.Errorf("IsImage(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet([]string{"a.png", "b.png", "", "a.png", "c.png"})

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	want := []string{"a.png", "b.png", "c.png"}
	got := s.Paths()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Paths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSet_Nil(t *testing.T) {
	var s *Set
	if !s.IsEmpty() {
		t.Error("nil set should be empty")
	}
	if s.Paths() != nil {
		t.Error("nil set Paths() should be nil")
	}
	if s.Len() != 0 {
		t.Errorf("nil set Len() = %d, want 0", s.Len())
	}
}

func TestSet_PathsIsCopy(t *testing.T) {
	s := NewSet([]string{"a.png"})
	p := s.Paths()
	p[0] = "mutated"
	if s.Paths()[0] != "a.png" {
		t.Error("Paths() should return a copy")
	}
}

func TestFilterImages(t *testing.T) {
	got := FilterImages([]string{"a.png", "notes.txt", "b.jpeg", "c"})
	if len(got) != 2 || got[0] != "a.png" || got[1] != "b.jpeg" {
		t.Errorf("FilterImages() = %v", got)
	}
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "readme.md", "c.BMP"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir() error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "c.BMP"),
	}
	if len(paths) != len(want) {
		t.Fatalf("FromDir() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	if _, err := FromDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("FromDir() of missing dir should fail")
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(t.TempDir(), "single.bmp")

	got, err := Expand([]string{single, dir, "", "readme.md", "missing.png"})
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}

	want := []string{single, filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png"), "missing.png"}
	if len(got) != len(want) {
		t.Fatalf("Expand() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExpand_NoImages(t *testing.T) {
	got, err := Expand([]string{"a.txt", t.TempDir()})
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expand() = %v, want empty", got)
	}
}
