// Package webui serves the storybook HTTP API: fine-tune management,
// per-slide generation, story upload/export, and a websocket progress
// stream.
package webui

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"storybook_backend/compositor"
	"storybook_backend/finetune"
	"storybook_backend/logging"
	"storybook_backend/pdfprocessor"
	"storybook_backend/pipeline"
	"storybook_backend/slides"
)

// ServerConfig carries the settings the server needs from core.Config.
type ServerConfig struct {
	Port          int
	MaxUploadSize int64
	// WebUIPassword enables auth when non-empty.
	WebUIPassword string
	ComposeOpts   compositor.Options
	// ExportQuality is the JPEG quality of exported PDF pages.
	ExportQuality int
}

// Server wires the HTTP surface to the domain components.
type Server struct {
	manager     *finetune.Manager
	poller      *finetune.StatusPoller
	strategy    pipeline.Strategy
	faceSwapper *pipeline.FaceSwapper
	slides      *slides.Store
	hub         *Hub
	exporter    *pdfprocessor.Exporter
	fetcher     ImageFetcher
	extractText func(path string) (*pdfprocessor.Document, error)
	logger      *logging.Logger

	maxUploadSize int64
	composeOpts   compositor.Options
	passwordHash  []byte

	// baseCtx outlives individual requests; poll loops started from a
	// request hang off it so they survive the request ending.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu          sync.Mutex
	portraitURL string

	httpServer *http.Server
}

// NewServer assembles the server. strategy selects the generation flow;
// fetcher may be nil, in which case a default HTTP fetcher is used.
func NewServer(
	cfg ServerConfig,
	manager *finetune.Manager,
	poller *finetune.StatusPoller,
	strategy pipeline.Strategy,
	faceSwapper *pipeline.FaceSwapper,
	slideStore *slides.Store,
	hub *Hub,
	fetcher ImageFetcher,
	logger *logging.Logger,
) (*Server, error) {
	passwordHash, err := HashPassword(cfg.WebUIPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing web UI password: %w", err)
	}
	if fetcher == nil {
		fetcher = NewHTTPImageFetcher(nil)
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 32 << 20
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		manager:       manager,
		poller:        poller,
		strategy:      strategy,
		faceSwapper:   faceSwapper,
		slides:        slideStore,
		hub:           hub,
		exporter:      pdfprocessor.NewExporter(cfg.ExportQuality),
		fetcher:       fetcher,
		extractText:   pdfprocessor.ExtractText,
		logger:        logger.Named("webui"),
		maxUploadSize: cfg.MaxUploadSize,
		composeOpts:   cfg.ComposeOpts,
		passwordHash:  passwordHash,
		baseCtx:       baseCtx,
		cancelBase:    cancel,
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// routes builds the full handler tree: API under auth, health and the
// websocket open.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/fine-tune", s.handleFineTune)
	api.HandleFunc("GET /api/fine-tune", s.handleFineTuneRecord)
	api.HandleFunc("GET /api/fine-tune/status", s.handleFineTuneStatus)
	api.HandleFunc("GET /api/fine-tune/records", s.handleFineTuneRecords)
	api.HandleFunc("POST /api/story-inference", s.handleStoryInference)
	api.HandleFunc("POST /api/face-swap", s.handleFaceSwap)
	api.HandleFunc("POST /api/story/upload", s.handleStoryUpload)
	api.HandleFunc("POST /api/story/portrait", s.handlePortrait)
	api.HandleFunc("GET /api/story/slides", s.handleSlides)
	api.HandleFunc("POST /api/story/select", s.handleSelectSlide)
	api.HandleFunc("GET /api/story/export", s.handleStoryExport)

	root := http.NewServeMux()
	root.Handle("/api/", withAuth(s.passwordHash, api))
	root.HandleFunc("GET /health", s.handleHealth)
	root.HandleFunc("GET /ws", s.hub.HandleWS)
	return withLogging(s.logger, root)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops background polling.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.cancelBase()
	s.poller.Stop()
	return err
}
