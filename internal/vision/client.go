package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/petalscope/internal/domain"
)

// ErrMissingAPIKey is returned by backends that have no credential configured.
var ErrMissingAPIKey = errors.New("api key is not configured")

// DefaultTimeout bounds a single inference call when none is configured.
const DefaultTimeout = 60 * time.Second

// Client turns one backend call into an AnalysisResult. It never retries.
type Client struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(backend Backend, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{backend: backend, timeout: timeout, logger: logger}
}

func (c *Client) Infer(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.backend.Generate(ctx, req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		kind := domain.KindOf(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = domain.ErrorKindNetwork
		}
		c.logger.Error("inference failed",
			"backend", c.backend.Name(),
			"kind", kind,
			"duration_ms", elapsed,
			"error", err,
		)
		return domain.Failure(kind)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("inference returned no text", "backend", c.backend.Name(), "duration_ms", elapsed)
		return domain.Empty(FallbackMessage)
	}

	c.logger.Info("inference complete",
		"backend", c.backend.Name(),
		"duration_ms", elapsed,
		"chars", len(text),
	)
	return domain.Success(text)
}

// BackendError classifies an error returned by a provider SDK or HTTP call.
// Transport failures and deadlines are network errors; anything the remote
// side answered with (auth, quota, bad status, malformed body) is a service
// error. Errors that already carry a kind are returned unchanged.
func BackendError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if domain.IsTransport(err) {
		return domain.NewNetworkError(fmt.Sprintf("%s request failed", backend), err)
	}
	return domain.NewServiceError(fmt.Sprintf("%s rejected the request", backend), err)
}

// MissingKeyError is what a backend returns from Generate when it was built
// without a credential.
func MissingKeyError(backend string) error {
	return domain.NewServiceError(fmt.Sprintf("%s credential missing", backend), ErrMissingAPIKey)
}
