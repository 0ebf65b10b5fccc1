// Storybook personalization backend.
//
// The server takes portrait uploads, fine-tunes an image model on them
// through a Replicate-compatible gateway, and regenerates storybook
// slides with the child as the main character. Run with a .env file or
// environment variables; see core.LoadConfig for the full list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storybook_backend/compositor"
	"storybook_backend/core"
	"storybook_backend/db"
	"storybook_backend/finetune"
	"storybook_backend/logging"
	"storybook_backend/pipeline"
	"storybook_backend/promptgen"
	"storybook_backend/replicate"
	"storybook_backend/slides"
	"storybook_backend/webui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Missing .env is fine in containerized deployments where the
	// environment is injected directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		FilePath:     core.GetEnvOrDefault("LOG_FILE", "logs/storybook.log"),
		FileLevel:    logging.ParseLevel(core.GetEnvOrDefault("LOG_LEVEL", "debug")),
		ConsoleLevel: logging.ParseLevel(core.GetEnvOrDefault("CONSOLE_LOG_LEVEL", "info")),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	cfg, err := core.LoadConfig()
	if err != nil {
		logger.Error("configuration invalid", zap.Error(err))
		if configErr, ok := err.(*core.ConfigError); ok && configErr.Action != "" {
			fmt.Fprintln(os.Stderr, configErr.Action)
		}
		return core.ExitCodeError
	}

	suite := core.NewValidationSuite(cfg).WithOutput(os.Stdout)
	if result := suite.Validate(); !result.Success {
		for _, e := range result.GetErrors() {
			logger.Error("startup validation failed", zap.Error(e))
		}
		return core.ExitCodeError
	}

	server, cleanup, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return core.ExitCodeError
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			return core.ExitCodeError
		}
		return core.ExitCodeSuccess
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
		if sig == syscall.SIGTERM {
			return core.ExitCodeSIGTERM
		}
		return core.ExitCodeSIGINT
	}
}

// buildServer wires the domain components from configuration. The
// returned cleanup closes the record store.
func buildServer(cfg *core.Config, logger *logging.Logger) (*webui.Server, func(), error) {
	cleanup := func() {}

	var store finetune.RecordStore
	switch cfg.RecordStore {
	case core.StoreSQLite:
		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return nil, cleanup, err
		}
		if err := db.Migrate(database, cfg.MigrationsPath); err != nil {
			database.Close()
			return nil, cleanup, err
		}
		store = db.NewSQLiteStore(database)
		cleanup = func() { database.Close() }
	case core.StoreMemory:
		store = db.NewMemoryStore()
	default:
		return nil, cleanup, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}

	gateway := replicate.NewClient(cfg.ReplicateAPIBase, cfg.ReplicateAPIToken,
		core.GetHTTPClient(cfg, cfg.GatewayTimeout))

	manager := finetune.NewManager(gateway, store, finetune.ManagerConfig{
		Owner:             cfg.ReplicateOwner,
		TrainerModel:      cfg.TrainerModel,
		TrainerVersion:    cfg.TrainerVersion,
		ModelVisibility:   cfg.ModelVisibility,
		ModelHardware:     cfg.ModelHardware,
		TriggerWordPrefix: cfg.TriggerWordPrefix,
	}, logger)
	poller := finetune.NewStatusPoller(manager, cfg.PollInterval)

	synth := promptgen.NewSynthesizer(
		promptgen.NewVisionClient(cfg.PromptAPIKey, cfg.PromptBaseURL,
			core.GetHTTPClient(cfg, cfg.PromptTimeout)),
		promptgen.Config{
			Model:   cfg.PromptModel,
			Inpaint: cfg.GenerationStrategy == core.StrategyInpaint,
		}, logger)

	hub := webui.NewHub(logger)
	slideStore := slides.NewStore()
	observer := webui.NewStoryObserver(hub, slideStore)

	sampling := pipeline.SamplingParams{
		Steps:          cfg.InferenceSteps,
		Guidance:       cfg.GuidanceScale,
		OutputFormat:   cfg.OutputFormat,
		OutputQuality:  cfg.OutputQuality,
		Megapixels:     cfg.Megapixels,
		PromptStrength: cfg.PromptStrength,
	}
	var strategy pipeline.Strategy
	if cfg.GenerationStrategy == core.StrategyInpaint {
		strategy = pipeline.NewInpaintingStrategy(gateway, synth, observer, pipeline.InpaintingConfig{
			SegmentationModel: cfg.SegmentationModel,
			Sampling:          sampling,
		}, logger)
	} else {
		strategy = pipeline.NewLegacyStrategy(gateway, synth, observer, pipeline.LegacyConfig{
			BackgroundRemovalModel: cfg.BackgroundRemovalModel,
			Sampling:               sampling,
		}, logger)
	}
	swapper := pipeline.NewFaceSwapper(gateway, cfg.FaceSwapModel)

	if path := core.GetEnvOrDefault("STORY_MANIFEST", ""); path != "" {
		manifest, err := slides.LoadManifestFile(path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("loading story manifest: %w", err)
		}
		slideStore.LoadStory(manifest)
		logger.Info("story loaded",
			zap.String("title", manifest.Title),
			zap.Int("slides", len(manifest.Slides)),
		)
	}

	fetcher := webui.NewHTTPImageFetcher(core.GetDefaultHTTPClient(cfg))
	server, err := webui.NewServer(webui.ServerConfig{
		Port:          cfg.Port,
		MaxUploadSize: cfg.MaxUploadSize,
		WebUIPassword: cfg.WebUIPassword,
		ComposeOpts: compositor.Options{
			WidthRatio:      cfg.CharacterWidthRatio,
			BottomRatio:     cfg.BottomPaddingRatio,
			HorizontalShift: cfg.HorizontalShiftRatio,
		},
		ExportQuality: cfg.OutputQuality,
	}, manager, poller, strategy, swapper, slideStore, hub, fetcher, logger)
	if err != nil {
		return nil, cleanup, err
	}
	return server, cleanup, nil
}
