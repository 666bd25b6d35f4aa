package label

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{
			name:  "simple",
			input: "cat\ndog\nbird\n",
			want:  []string{"cat", "dog", "bird"},
		},
		{
			name:  "windows line endings and padding",
			input: "  running \r\njumping\r\n",
			want:  []string{"running", "jumping"},
		},
		{
			name:  "trailing blank lines dropped",
			input: "a\nb\n\n\n",
			want:  []string{"a", "b"},
		},
		{
			name:  "interior blank line keeps its slot",
			input: "a\n\nc\n",
			want:  []string{"a", "", "c"},
		},
		{
			name:  "no trailing newline",
			input: "only",
			want:  []string{"only"},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrNoLabels,
		},
		{
			name:    "whitespace only",
			input:   "\n  \n\t\n",
			wantErr: ErrNoLabels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}

			got := set.Names()
			if len(got) != len(tt.want) {
				t.Fatalf("Len = %d, want %d (%q)", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("label[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSet_At(t *testing.T) {
	set := New([]string{"a", "b"})

	if name, ok := set.At(1); !ok || name != "b" {
		t.Errorf("At(1) = %q, %v; want b, true", name, ok)
	}
	for _, i := range []int{-1, 2, 100} {
		if _, ok := set.At(i); ok {
			t.Errorf("At(%d) should be out of range", i)
		}
	}

	var nilSet *Set
	if nilSet.Len() != 0 {
		t.Error("nil Set should have Len 0")
	}
	if _, ok := nilSet.At(0); ok {
		t.Error("nil Set At(0) should be out of range")
	}
}

func TestNew_CopiesInput(t *testing.T) {
	names := []string{"x", "y"}
	set := New(names)
	names[0] = "changed"

	if got, _ := set.At(0); got != "x" {
		t.Errorf("At(0) = %q, want x", got)
	}

	out := set.Names()
	out[1] = "mutated"
	if got, _ := set.At(1); got != "y" {
		t.Errorf("At(1) = %q, want y", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	if err := os.WriteFile(path, []byte("walking\nsitting\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Len = %d, want 2", set.Len())
	}

	if _, err := Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"model/labels.txt": {Data: []byte("one\ntwo\nthree\n")},
		"model/empty.txt":  {Data: []byte("")},
	}

	set, err := LoadFromFS(fsys, "model/labels.txt")
	if err != nil {
		t.Fatalf("LoadFromFS() error: %v", err)
	}
	if set.Len() != 3 {
		t.Errorf("Len = %d, want 3", set.Len())
	}

	if _, err := LoadFromFS(fsys, "model/empty.txt"); !errors.Is(err, ErrNoLabels) {
		t.Errorf("LoadFromFS(empty) error = %v, want ErrNoLabels", err)
	}
}
