package presentation

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"tilecls-go/application"
	"tilecls-go/core/state"
	"tilecls-go/domain/prediction"
	"tilecls-go/domain/selection"
	"tilecls-go/infrastructure/imaging"
)

// Fyne's file dialog opens a single file; folders and drag-and-drop select many.
const idleStatus = "Select one image or a whole folder, or drop several image files onto the window"

var modelUnavailableStatus = "Model unavailable, predictions will show " + prediction.ErrorClass

// MainWindow is the main application window.
type MainWindow struct {
	window fyne.Window
	bridge *UIEventBridge
	logger *slog.Logger

	// Geometry
	tileMinSize   fyne.Size
	buttonMinSize fyne.Size

	// UI components - Toolbar
	selectBtn  *widget.Button
	predictBtn *widget.Button
	cancelBtn  *widget.Button
	clearBtn   *widget.Button

	// UI components - Content
	grid   *fyne.Container
	status *widget.Label

	// Data, only touched on the UI goroutine
	tiles        []*ResultTile
	currentBatch string
	generation   int
	modelErrOnce sync.Once

	// Cleanup
	cleanupOnce sync.Once
}

// MainWindowConfig holds configuration for MainWindow.
type MainWindowConfig struct {
	App    fyne.App
	Bridge *UIEventBridge
	Logger *slog.Logger

	Title         string
	Size          fyne.Size
	TileWidth     int
	TileMinSize   fyne.Size
	ButtonMinSize fyne.Size
}

// DefaultMainWindowConfig returns the standard window geometry.
func DefaultMainWindowConfig() *MainWindowConfig {
	return &MainWindowConfig{
		Title:         "Image Classifier",
		Size:          fyne.NewSize(900, 700),
		TileWidth:     220,
		TileMinSize:   fyne.NewSize(200, 150),
		ButtonMinSize: fyne.NewSize(150, 40),
	}
}

// NewMainWindow creates a new main window.
func NewMainWindow(cfg *MainWindowConfig) *MainWindow {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	def := DefaultMainWindowConfig()
	if cfg.Title == "" {
		cfg.Title = def.Title
	}
	if cfg.Size.IsZero() {
		cfg.Size = def.Size
	}
	if cfg.TileWidth <= 0 {
		cfg.TileWidth = def.TileWidth
	}
	if cfg.TileMinSize.IsZero() {
		cfg.TileMinSize = def.TileMinSize
	}
	if cfg.ButtonMinSize.IsZero() {
		cfg.ButtonMinSize = def.ButtonMinSize
	}

	w := &MainWindow{
		window:        cfg.App.NewWindow(cfg.Title),
		bridge:        cfg.Bridge,
		logger:        cfg.Logger,
		tileMinSize:   cfg.TileMinSize,
		buttonMinSize: cfg.ButtonMinSize,
	}

	w.init(cfg.TileWidth)
	w.window.Resize(cfg.Size)
	w.setupEventCallbacks()
	w.syncFromBridge()

	w.window.SetOnDropped(w.handleDropped)
	w.window.SetOnClosed(func() {
		w.Cleanup()
		cfg.App.Quit()
	})

	return w
}

func (w *MainWindow) init(tileWidth int) {
	toolbar := w.createToolbar()

	w.grid = container.New(newTileGridLayout(tileWidth))
	scroll := container.NewVScroll(w.grid)

	w.status = widget.NewLabel(idleStatus)

	content := container.NewBorder(toolbar, w.status, nil, nil, scroll)
	w.window.SetContent(content)
	w.applyState(state.StateEmpty)
}

func (w *MainWindow) createToolbar() fyne.CanvasObject {
	w.selectBtn = widget.NewButtonWithIcon("Select Images", theme.FolderOpenIcon(), w.showSelectMenu)
	w.predictBtn = widget.NewButtonWithIcon("Predict", theme.MediaPlayIcon(), w.handlePredict)
	w.cancelBtn = widget.NewButtonWithIcon("Cancel", theme.MediaStopIcon(), w.handleCancel)
	w.clearBtn = widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), w.handleClear)

	sized := func(b *widget.Button) fyne.CanvasObject {
		return container.New(layout.NewGridWrapLayout(w.buttonMinSize), b)
	}

	// [Select Images] [Predict] [Cancel] [Clear], centered
	return container.NewHBox(
		layout.NewSpacer(),
		sized(w.selectBtn),
		sized(w.predictBtn),
		sized(w.cancelBtn),
		sized(w.clearBtn),
		layout.NewSpacer(),
	)
}

func (w *MainWindow) setupEventCallbacks() {
	if w.bridge == nil {
		return
	}

	w.bridge.SetCallbacks(&UICallbacks{
		OnSelectionChanged: func(paths []string) {
			fyne.Do(func() {
				w.showSelection(paths)
			})
		},
		OnSelectionCleared: func() {
			fyne.Do(w.clearTiles)
		},
		OnStateChanged: func(oldState, newState state.WindowState) {
			w.logger.Debug("Window state changed", "from", oldState, "to", newState)
			fyne.Do(func() {
				w.applyState(newState)
			})
		},
		OnModelUnavailable: func(err error) {
			fyne.Do(func() {
				w.showModelError(err)
			})
		},
		OnBatchStarted: func(batchID string, total int) {
			fyne.Do(func() {
				w.currentBatch = batchID
				w.status.SetText(fmt.Sprintf("Predicting %d images...", total))
			})
		},
		OnImagePredicted: func(batchID string, index int, path string, result prediction.Result) {
			// Downscale off the UI goroutine
			img := tileImage(result.Annotated, w.tileMinSize)
			fyne.Do(func() {
				w.showResult(batchID, index, path, result.Text(), img)
			})
		},
		OnBatchFinished: func(batchID string, processed, failed int, cancelled bool) {
			fyne.Do(func() {
				w.finishBatch(batchID, processed, failed, cancelled)
			})
		},
	})
}

// Button handlers

func (w *MainWindow) showSelectMenu() {
	menu := fyne.NewMenu("",
		fyne.NewMenuItem("One Image...", w.showFileDialog),
		fyne.NewMenuItem("All Images in Folder...", w.showFolderDialog),
	)
	c := w.window.Canvas()
	pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(w.selectBtn)
	widget.ShowPopUpMenuAtPosition(menu, c, pos.AddXY(0, w.selectBtn.Size().Height))
}

func (w *MainWindow) showFileDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		if reader == nil {
			return // cancelled
		}
		path := reader.URI().Path()
		reader.Close()
		w.selectPaths([]string{path})
	}, w.window)
	d.SetFilter(storage.NewExtensionFileFilter(selection.ImageExtensions))
	d.Show()
}

func (w *MainWindow) showFolderDialog() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		if uri == nil {
			return // cancelled
		}
		w.selectPaths([]string{uri.Path()})
	}, w.window)
}

func (w *MainWindow) handleDropped(_ fyne.Position, uris []fyne.URI) {
	paths := make([]string, 0, len(uris))
	for _, u := range uris {
		if u.Scheme() == "file" {
			paths = append(paths, u.Path())
		}
	}
	if len(paths) == 0 {
		return
	}
	w.selectPaths(paths)
}

func (w *MainWindow) selectPaths(paths []string) {
	err := w.bridge.SelectImages(paths...)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrNoImages):
		dialog.ShowInformation("No Images",
			"None of the selected files is a supported image (png, jpg, jpeg, bmp).",
			w.window)
	case errors.Is(err, application.ErrBatchRunning):
		dialog.ShowInformation("Prediction Running",
			"Wait for the current prediction to finish or clear it first.",
			w.window)
	default:
		w.logger.Error("Failed to select images", "error", err)
		dialog.ShowError(err, w.window)
	}
}

func (w *MainWindow) handlePredict() {
	if err := w.bridge.PredictAll(); err != nil && !errors.Is(err, application.ErrNoImages) {
		w.logger.Error("Failed to start prediction", "error", err)
		dialog.ShowError(err, w.window)
	}
}

func (w *MainWindow) handleCancel() {
	if err := w.bridge.CancelBatch(); err != nil {
		w.logger.Error("Failed to cancel prediction", "error", err)
	}
}

func (w *MainWindow) handleClear() {
	if err := w.bridge.ClearImages(); err != nil {
		w.logger.Error("Failed to clear images", "error", err)
	}
}

// UI updates, called on the UI goroutine

// showSelection replaces all tiles and loads their pictures in the background.
func (w *MainWindow) showSelection(paths []string) {
	tiles := w.addTiles(paths)
	go w.loadTileImages(w.generation, tiles)
}

// addTiles clears the grid and creates one caption-only tile per path.
func (w *MainWindow) addTiles(paths []string) []*ResultTile {
	w.clearTiles()

	tiles := make([]*ResultTile, len(paths))
	for i, p := range paths {
		tiles[i] = NewResultTile(p, w.tileMinSize)
		w.grid.Add(tiles[i])
	}
	w.tiles = tiles
	w.status.SetText(fmt.Sprintf("%d images selected", len(paths)))
	return tiles
}

// loadTileImages decodes each tile's file off the UI goroutine.
// Unreadable files get the error caption. A newer selection stops the load.
func (w *MainWindow) loadTileImages(gen int, tiles []*ResultTile) {
	for _, tile := range tiles {
		var thumb image.Image
		img, err := imaging.Decode(tile.Path())
		if err != nil {
			w.logger.Warn("Failed to load tile image", "path", tile.Path(), "error", err)
		} else {
			thumb = tileImage(img, w.tileMinSize)
		}

		stale := false
		fyne.DoAndWait(func() {
			if gen != w.generation {
				stale = true
				return
			}
			// A prediction may already have filled the tile.
			if tile.Image() != nil {
				return
			}
			if err != nil {
				tile.ShowLoadError()
				return
			}
			tile.SetImage(thumb)
		})
		if stale {
			return
		}
	}
}

func (w *MainWindow) clearTiles() {
	w.generation++
	w.currentBatch = ""
	w.tiles = nil
	w.grid.RemoveAll()
	w.grid.Refresh()
	w.status.SetText(idleStatus)
}

// showResult updates one tile from the current batch.
func (w *MainWindow) showResult(batchID string, index int, path, text string, img image.Image) {
	if batchID != w.currentBatch || index < 0 || index >= len(w.tiles) {
		return
	}
	tile := w.tiles[index]
	if tile.Path() != path {
		w.logger.Warn("Prediction does not match tile", "index", index, "path", path, "tile", tile.Path())
		return
	}
	tile.SetText(text)
	if img != nil {
		tile.SetImage(img)
	}
}

func (w *MainWindow) finishBatch(batchID string, processed, failed int, cancelled bool) {
	if batchID != w.currentBatch {
		return
	}
	w.currentBatch = ""

	msg := fmt.Sprintf("Predicted %d of %d images", processed, len(w.tiles))
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
	}
	if cancelled {
		msg += " (cancelled)"
	}
	w.status.SetText(msg)
}

// applyState enables the buttons allowed in s.
func (w *MainWindow) applyState(s state.WindowState) {
	setEnabled(w.selectBtn, s.CanSelect())
	setEnabled(w.predictBtn, s.CanPredict())
	setEnabled(w.cancelBtn, s.CanCancel())
	setEnabled(w.clearBtn, s.CanClear())
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

// syncFromBridge shows what the coordinator already holds, such as a
// selection made before the window existed.
func (w *MainWindow) syncFromBridge() {
	if w.bridge == nil {
		return
	}
	if paths := w.bridge.Selection(); len(paths) > 0 {
		w.showSelection(paths)
	}
	w.applyState(w.bridge.State())
	if !w.bridge.ModelAvailable() {
		w.status.SetText(modelUnavailableStatus)
	}
}

func (w *MainWindow) showModelError(err error) {
	w.modelErrOnce.Do(func() {
		w.status.SetText(modelUnavailableStatus)
		dialog.ShowError(fmt.Errorf("failed to load model: %w", err), w.window)
	})
}

// Show displays the window.
func (w *MainWindow) Show() {
	w.window.Show()
}

// ShowAndRun displays the window and runs the application event loop.
func (w *MainWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// SelectInitial selects paths given on the command line.
func (w *MainWindow) SelectInitial(paths []string) {
	if len(paths) == 0 {
		return
	}
	w.selectPaths(paths)
}

// Cleanup releases the bridge subscription.
func (w *MainWindow) Cleanup() {
	w.cleanupOnce.Do(func() {
		w.logger.Info("Cleaning up main window")
		if w.bridge != nil {
			if err := w.bridge.ClearImages(); err != nil {
				w.logger.Warn("Failed to clear on close", "error", err)
			}
			w.bridge.Close()
		}
	})
}
