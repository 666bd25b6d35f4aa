// Package main is the entry point for tilecls.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"tilecls-go/application"
	"tilecls-go/application/batch"
	"tilecls-go/core/eventbus"
	"tilecls-go/domain/label"
	"tilecls-go/domain/prediction"
	"tilecls-go/infrastructure/config"
	"tilecls-go/infrastructure/logging"
	"tilecls-go/infrastructure/model"
	"tilecls-go/infrastructure/repository"
	"tilecls-go/presentation"
)

// shutdownTimeout forces exit if cleanup hangs after the window closes.
const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	headless   bool
	topK       int
	history    bool
	batchID    string
	forget     string
	outDir     string
	paths      []string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("tilecls", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "path to the YAML config file")
	fs.BoolVar(&opts.headless, "headless", false, "classify the given paths without a window")
	fs.IntVar(&opts.topK, "topk", -1, "scores to print per image in headless mode (default from config)")
	fs.BoolVar(&opts.history, "history", false, "print the most recent predictions and exit")
	fs.StringVar(&opts.batchID, "batch", "", "with -history, print only the predictions of this batch")
	fs.StringVar(&opts.outDir, "out", "", "save annotated images to this folder in headless mode")
	fs.StringVar(&opts.forget, "forget", "", "delete the recorded predictions of a batch and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tilecls [flags] [image or folder ...]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.paths = fs.Args()
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return 1
	}
	if opts.topK < 0 {
		opts.topK = cfg.UI.TopK
	}

	// Initialize logging (dev: console only, prod: rotating file)
	logger, closeLog, err := logging.Setup(cfg.ToLoggingConfig())
	if err != nil {
		// Fallback to stderr if logging setup fails
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer closeLog()

	logger.Info("Starting tilecls", "config", opts.configPath, "backend", cfg.Model.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Initialize history
	history, closeHistory := openHistory(ctx, cfg, logger)
	defer closeHistory()

	switch {
	case opts.history:
		return printHistory(ctx, os.Stdout, history, opts.batchID, cfg.History.RecentLimit)
	case opts.forget != "":
		n, err := history.Forget(ctx, opts.forget)
		if err != nil {
			logger.Error("Failed to forget batch", "batch_id", opts.forget, "error", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "removed %d records\n", n)
		return 0
	}

	// Load labels and model; a missing model is reported, not fatal
	modelCfg := cfg.ToModelConfig(logger)
	labels, classifier, modelErr := loadModel(ctx, modelCfg)
	if modelErr != nil {
		logger.Error("Failed to load model", "dir", modelCfg.Dir, "error", modelErr)
	} else {
		defer classifier.Close()
	}

	pipeline := batch.NewPipeline(&batch.PipelineConfig{
		Classifier: classifier,
		Labels:     labels,
		Logger:     logger,
	})

	// Initialize event bus
	eventBus := eventbus.New(eventbus.DefaultBufferSize, logger)
	defer eventBus.Close()

	if opts.headless {
		runner := batch.NewRunner(&batch.RunnerConfig{
			Processor: pipeline,
			EventBus:  eventBus,
			History:   history,
			Logger:    logger,
		})
		return runHeadless(ctx, &headlessRun{
			Out:      os.Stdout,
			Runner:   runner,
			Labels:   labels,
			Progress: os.Stderr,
			EventBus: eventBus,
		}, opts)
	}

	runner := batch.NewRunner(&batch.RunnerConfig{
		Processor: pipeline,
		EventBus:  eventBus,
		History:   history,
		Logger:    logger,
	})

	// Initialize coordinator
	coordinator := application.NewCoordinator(&application.CoordinatorConfig{
		Runner:     runner,
		EventBus:   eventBus,
		ModelError: modelErr,
		Logger:     logger,
	})

	// Initialize UI event bridge
	bridge := presentation.NewUIEventBridge(&presentation.BridgeConfig{
		Coordinator: coordinator,
		EventBus:    eventBus,
		Logger:      logger,
	})
	defer bridge.Close()

	// Initialize Fyne app
	fyneApp := app.New()

	mainWindow := presentation.NewMainWindow(&presentation.MainWindowConfig{
		App:           fyneApp,
		Bridge:        bridge,
		Logger:        logger,
		Title:         cfg.UI.Title,
		Size:          fyne.NewSize(float32(cfg.UI.Width), float32(cfg.UI.Height)),
		TileWidth:     cfg.UI.TileWidth,
		TileMinSize:   fyne.NewSize(float32(cfg.UI.TileMinWidth), float32(cfg.UI.TileMinHeight)),
		ButtonMinSize: fyne.NewSize(float32(cfg.UI.ButtonMinWidth), float32(cfg.UI.ButtonMinHeight)),
	})
	defer mainWindow.Cleanup()

	// Report the model only once callbacks are in place
	coordinator.Start()
	defer coordinator.Stop()

	mainWindow.SelectInitial(opts.paths)

	// Show and run
	mainWindow.ShowAndRun()

	// Start shutdown timeout - force exit if cleanup hangs
	go func() {
		time.Sleep(shutdownTimeout)
		logger.Warn("Shutdown timeout, forcing exit")
		os.Exit(0)
	}()

	logger.Info("Application shutdown complete")
	return 0
}

// loadModel reads the label file and binds the configured backend.
// labels is never nil; classifier is nil whenever err is set.
func loadModel(ctx context.Context, cfg *model.Config) (*label.Set, model.Classifier, error) {
	labels, err := label.Load(cfg.LabelPath())
	if err != nil {
		return label.New(nil), nil, err
	}
	classifier, err := model.Load(ctx, cfg, labels)
	if err != nil {
		return labels, nil, err
	}
	return labels, classifier, nil
}

// openHistory connects to MongoDB when history is enabled. History is kept in
// memory when it is disabled or MongoDB cannot be reached.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*prediction.HistoryService, func()) {
	memory := func() (*prediction.HistoryService, func()) {
		return prediction.NewHistoryService(repository.NewMemoryPredictionRepository()), func() {}
	}
	if !cfg.History.Enabled {
		logger.Debug("Prediction history kept in memory")
		return memory()
	}

	mongoDB, err := repository.NewMongoDB(ctx, cfg.ToMongoDBConfig(), logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, prediction history kept in memory", "error", err)
		return memory()
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			logger.Warn("Failed to close MongoDB", "error", err)
		}
	}

	repo := repository.NewMongoPredictionRepository(mongoDB, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		logger.Warn("MongoDB indexes unavailable, prediction history kept in memory", "error", err)
		return memory()
	}
	return prediction.NewHistoryService(repo), closeFn
}
