package presentation

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"tilecls-go/core/state"
)

func newTestWindow(t *testing.T) *MainWindow {
	t.Helper()
	app := test.NewTempApp(t)
	w := NewMainWindow(&MainWindowConfig{App: app})
	t.Cleanup(w.Cleanup)
	return w
}

func TestDefaultMainWindowConfig(t *testing.T) {
	cfg := DefaultMainWindowConfig()

	if cfg.Title != "Image Classifier" {
		t.Errorf("Title = %v, want Image Classifier", cfg.Title)
	}
	if cfg.Size != fyne.NewSize(900, 700) {
		t.Errorf("Size = %v, want 900x700", cfg.Size)
	}
	if cfg.TileWidth != 220 {
		t.Errorf("TileWidth = %d, want 220", cfg.TileWidth)
	}
	if cfg.TileMinSize != fyne.NewSize(200, 150) {
		t.Errorf("TileMinSize = %v, want 200x150", cfg.TileMinSize)
	}
	if cfg.ButtonMinSize != fyne.NewSize(150, 40) {
		t.Errorf("ButtonMinSize = %v, want 150x40", cfg.ButtonMinSize)
	}
}

func TestMainWindow_InitialState(t *testing.T) {
	w := newTestWindow(t)

	if w.window.Title() != "Image Classifier" {
		t.Errorf("Title = %v", w.window.Title())
	}
	if w.selectBtn.Disabled() {
		t.Error("Select should be enabled")
	}
	if !w.predictBtn.Disabled() {
		t.Error("Predict should be disabled with nothing selected")
	}
	if !w.cancelBtn.Disabled() {
		t.Error("Cancel should be disabled with nothing running")
	}
	if !w.clearBtn.Disabled() {
		t.Error("Clear should be disabled with nothing selected")
	}
	if len(w.grid.Objects) != 0 {
		t.Errorf("grid has %d tiles, want 0", len(w.grid.Objects))
	}
	if !strings.Contains(w.status.Text, "one image") || !strings.Contains(w.status.Text, "drop several") {
		t.Errorf("status = %q, want the single-file dialog hint", w.status.Text)
	}
}

func TestMainWindow_ApplyState(t *testing.T) {
	w := newTestWindow(t)

	tests := []struct {
		state                                  state.WindowState
		selectOn, predictOn, cancelOn, clearOn bool
	}{
		{state.StateEmpty, true, false, false, false},
		{state.StateSelected, true, true, false, true},
		{state.StatePredicting, false, false, true, true},
		{state.StatePredicted, true, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			w.applyState(tt.state)
			if w.selectBtn.Disabled() == tt.selectOn {
				t.Errorf("select enabled = %v, want %v", !w.selectBtn.Disabled(), tt.selectOn)
			}
			if w.predictBtn.Disabled() == tt.predictOn {
				t.Errorf("predict enabled = %v, want %v", !w.predictBtn.Disabled(), tt.predictOn)
			}
			if w.cancelBtn.Disabled() == tt.cancelOn {
				t.Errorf("cancel enabled = %v, want %v", !w.cancelBtn.Disabled(), tt.cancelOn)
			}
			if w.clearBtn.Disabled() == tt.clearOn {
				t.Errorf("clear enabled = %v, want %v", !w.clearBtn.Disabled(), tt.clearOn)
			}
		})
	}
}

func TestMainWindow_SelectionAndResults(t *testing.T) {
	w := newTestWindow(t)
	paths := []string{"/nonexistent/a.png", "/nonexistent/b.png"}

	w.addTiles(paths)
	if len(w.tiles) != 2 || len(w.grid.Objects) != 2 {
		t.Fatalf("tiles = %d, grid = %d, want 2", len(w.tiles), len(w.grid.Objects))
	}
	if w.tiles[0].Text() != "a.png" {
		t.Errorf("caption = %v, want a.png", w.tiles[0].Text())
	}

	w.currentBatch = "batch-1"
	annotated := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	w.showResult("batch-1", 1, paths[1], "dog (85.00%)", annotated)

	if w.tiles[1].Text() != "dog (85.00%)" {
		t.Errorf("caption = %v, want dog (85.00%%)", w.tiles[1].Text())
	}
	if w.tiles[1].Image() == nil {
		t.Error("annotated image not shown")
	}
	if w.tiles[0].Text() != "a.png" {
		t.Errorf("tile 0 changed to %v", w.tiles[0].Text())
	}

	// Stale batches and mismatched paths are ignored.
	w.showResult("batch-0", 0, paths[0], "old", nil)
	w.showResult("batch-1", 0, paths[1], "wrong", nil)
	w.showResult("batch-1", 5, paths[0], "out of range", nil)
	if w.tiles[0].Text() != "a.png" {
		t.Errorf("tile 0 = %v, want unchanged", w.tiles[0].Text())
	}

	w.finishBatch("batch-1", 1, 0, true)
	if w.currentBatch != "" {
		t.Errorf("currentBatch = %v, want empty", w.currentBatch)
	}
	if w.status.Text != "Predicted 1 of 2 images (cancelled)" {
		t.Errorf("status = %q", w.status.Text)
	}

	w.clearTiles()
	if len(w.tiles) != 0 || len(w.grid.Objects) != 0 {
		t.Errorf("tiles = %d, grid = %d, want 0", len(w.tiles), len(w.grid.Objects))
	}
}

func TestMainWindow_FinishBatchWithFailures(t *testing.T) {
	w := newTestWindow(t)
	w.addTiles([]string{"/nonexistent/a.png", "/nonexistent/b.png", "/nonexistent/c.png"})
	w.currentBatch = "b"

	w.finishBatch("other", 3, 0, false)
	if w.currentBatch != "b" {
		t.Error("finish of another batch should be ignored")
	}

	w.finishBatch("b", 3, 1, false)
	if w.status.Text != "Predicted 3 of 3 images, 1 failed" {
		t.Errorf("status = %q", w.status.Text)
	}
}

func TestMainWindow_SelectionBumpsGeneration(t *testing.T) {
	w := newTestWindow(t)

	gen := w.generation
	w.addTiles([]string{"/nonexistent/a.png"})
	if w.generation == gen {
		t.Error("new selection should invalidate pending thumbnail loads")
	}
}

func TestMainWindow_LoadTileImages(t *testing.T) {
	w := newTestWindow(t)
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.png")
	f, err := os.Create(good)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tiles := w.addTiles([]string{broken, good})
	w.loadTileImages(w.generation, tiles)

	if got, want := tiles[0].Text(), "broken.png\n<Erro>"; got != want {
		t.Errorf("caption = %q, want %q", got, want)
	}
	if tiles[0].Image() != nil {
		t.Error("unreadable file should have no picture")
	}
	if tiles[1].Text() != "good.png" {
		t.Errorf("caption = %q, want good.png", tiles[1].Text())
	}
	if tiles[1].Image() == nil {
		t.Error("readable file should show its picture")
	}
}

func TestMainWindow_LoadTileImagesStale(t *testing.T) {
	w := newTestWindow(t)
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tiles := w.addTiles([]string{broken})
	gen := w.generation
	w.addTiles([]string{broken})

	w.loadTileImages(gen, tiles)
	if tiles[0].Text() != "broken.png" {
		t.Errorf("stale load changed caption to %q", tiles[0].Text())
	}
}
