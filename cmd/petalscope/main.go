package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/petalscope/internal/config"
	"github.com/vbonduro/petalscope/internal/ingest"
	"github.com/vbonduro/petalscope/internal/logging"
	"github.com/vbonduro/petalscope/internal/preview/local"
	"github.com/vbonduro/petalscope/internal/session"
	"github.com/vbonduro/petalscope/internal/vision"
	claudevision "github.com/vbonduro/petalscope/internal/vision/claude"
	geminivision "github.com/vbonduro/petalscope/internal/vision/gemini"
	ollamavision "github.com/vbonduro/petalscope/internal/vision/ollama"
	openaivision "github.com/vbonduro/petalscope/internal/vision/openai"
	"github.com/vbonduro/petalscope/internal/web"
	"github.com/vbonduro/petalscope/internal/web/templates"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	previewDir, removeDir, err := previewDirectory(cfg.PreviewDir)
	if err != nil {
		return err
	}
	defer removeDir(logger)

	previews, err := local.NewStore(previewDir)
	if err != nil {
		return fmt.Errorf("failed to initialize preview store: %w", err)
	}

	backend := newBackend(cfg, logger)
	ctrl := session.NewController(
		ingest.NewIngestor(previews, logger),
		vision.NewClient(backend, cfg.InferenceTimeout, logger),
		logger,
	)
	server := web.NewServer(ctrl, previews, templates.FS, logger)
	httpServer := server.HTTPServer(cfg.ListenAddr, cfg.InferenceTimeout+30*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.ListenAddr, "backend", backend.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// previewDirectory returns dir, or a fresh temporary directory that the
// returned func removes when dir is empty.
func previewDirectory(dir string) (string, func(*slog.Logger), error) {
	if dir != "" {
		return dir, func(*slog.Logger) {}, nil
	}
	tmp, err := os.MkdirTemp("", "petalscope-previews-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return tmp, func(logger *slog.Logger) {
		if err := os.RemoveAll(tmp); err != nil {
			logger.Error("failed to remove preview directory", "path", tmp, "error", err)
		}
	}, nil
}

// newBackend selects the inference backend. A missing API key is not fatal:
// every analysis then fails with a service error and the UI offers a retry.
func newBackend(cfg *config.Config, logger *slog.Logger) vision.Backend {
	switch cfg.InferenceBackend {
	case config.BackendClaude:
		if cfg.ClaudeAPIKey == "" {
			logger.Warn("CLAUDE_API_KEY is not set; analyses will fail")
		}
		logger.Info("using Claude inference backend", "model", cfg.ClaudeModel)
		return claudevision.NewAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set; analyses will fail")
		}
		logger.Info("using OpenAI inference backend", "model", cfg.OpenAIModel)
		return openaivision.NewAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.BackendOllama:
		logger.Info("using Ollama inference backend", "model", cfg.OllamaModel)
		return ollamavision.NewAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY is not set; analyses will fail")
		}
		logger.Info("using Gemini inference backend", "model", cfg.GeminiModel)
		return geminivision.NewAnalyzer(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
