package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/vision"
)

var (
	ErrNoImage            = errors.New("no image to analyze")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrInvalidTransition  = errors.New("action not allowed in current phase")
	ErrStaleAttempt       = errors.New("session changed while the attempt was running")
)

const (
	// FailureMessage is shown for every failed analysis regardless of cause.
	FailureMessage = "Something went wrong while reading your flower. Please try again."
	// ReadErrorMessage is shown when an uploaded file cannot be used.
	ReadErrorMessage = "We couldn't read that image. Please choose a different photo."
)

// ImageIngestor is the subset of ingest.Ingestor the controller requires.
type ImageIngestor interface {
	Ingest(ctx context.Context, r io.Reader, declaredType string) (domain.EncodedImage, error)
	Release(ctx context.Context, img domain.EncodedImage) error
}

// InferenceClient is the subset of vision.Client the controller requires.
type InferenceClient interface {
	Infer(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult
}

// state is the single session. image and result are nil when absent.
type state struct {
	phase   domain.Phase
	image   *domain.EncodedImage
	result  *domain.AnalysisResult
	attempt uint64
}

// Snapshot is a read-only copy of the session for presentation.
type Snapshot struct {
	Phase         domain.Phase
	MediaType     string
	PreviewHandle string
	Attempt       uint64
	Result        *domain.AnalysisResult
	// Message is the user-facing text for the current result, if any.
	Message string
}

func (s Snapshot) HasImage() bool {
	return s.PreviewHandle != ""
}

// Controller owns the session state machine. Transitions are serialized by
// mu, which is never held while ingesting or inferring; attempt is bumped by
// every transition that invalidates outstanding work and checked when that
// work resumes.
type Controller struct {
	mu        sync.Mutex
	st        state
	ingestor  ImageIngestor
	inference InferenceClient
	logger    *slog.Logger
}

func NewController(ingestor ImageIngestor, inference InferenceClient, logger *slog.Logger) *Controller {
	return &Controller{
		st:        state{phase: domain.PhaseNoImage},
		ingestor:  ingestor,
		inference: inference,
		logger:    logger,
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:   c.st.phase,
		Attempt: c.st.attempt,
	}
	if c.st.image != nil {
		snap.MediaType = c.st.image.MediaType
		snap.PreviewHandle = c.st.image.PreviewHandle
	}
	if c.st.result != nil {
		result := *c.st.result
		snap.Result = &result
		snap.Message = userMessage(result)
	}
	return snap
}

func userMessage(r domain.AnalysisResult) string {
	switch r.Outcome {
	case domain.OutcomeSuccess:
		return r.Text
	case domain.OutcomeEmpty:
		return r.FallbackMessage
	default:
		return FailureMessage
	}
}

// UploadImage ingests r and, on success, makes it the held image. Any prior
// image and result are discarded. On failure the session is unchanged and
// the read error is returned.
func (c *Controller) UploadImage(ctx context.Context, r io.Reader, declaredType string) (Snapshot, error) {
	c.mu.Lock()
	if c.st.phase == domain.PhaseAnalyzing {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrAnalysisInProgress
	}
	attempt := c.st.attempt
	c.mu.Unlock()

	img, err := c.ingestor.Ingest(ctx, r, declaredType)
	if err != nil {
		c.logger.Warn("image ingestion failed", "kind", domain.KindOf(err), "error", err)
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.st.attempt != attempt || c.st.phase == domain.PhaseAnalyzing {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Info("discarding image ingested for a superseded session", "attempt", attempt)
		c.release(ctx, &img)
		return snap, ErrStaleAttempt
	}
	prev := c.st.image
	c.st = state{
		phase:   domain.PhaseImageReady,
		image:   &img,
		attempt: c.st.attempt + 1,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.release(ctx, prev)
	c.logger.Info("image ready", "media_type", img.MediaType, "bytes", len(img.Data))
	return snap, nil
}

// StartAnalysis runs one inference attempt on the held image. It is valid
// from image-ready and failed; from any other phase it changes nothing.
func (c *Controller) StartAnalysis(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	switch c.st.phase {
	case domain.PhaseImageReady, domain.PhaseFailed:
	case domain.PhaseNoImage:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrNoImage
	case domain.PhaseAnalyzing:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrAnalysisInProgress
	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrInvalidTransition
	}
	if c.st.image == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Error("phase requires an image but none is held", "phase", snap.Phase)
		return snap, ErrNoImage
	}

	req := vision.Build(*c.st.image)
	c.st.attempt++
	attempt := c.st.attempt
	c.st.phase = domain.PhaseAnalyzing
	c.st.result = nil
	c.mu.Unlock()

	c.logger.Info("analysis started", "attempt", attempt)
	result := c.inference.Infer(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.attempt != attempt {
		c.logger.Info("discarding stale analysis result", "attempt", attempt, "current", c.st.attempt, "outcome", result.Outcome)
		return c.snapshotLocked(), ErrStaleAttempt
	}

	c.st.result = &result
	if result.Failed() {
		c.st.phase = domain.PhaseFailed
	} else {
		c.st.phase = domain.PhaseAnalyzed
	}
	c.logger.Info("analysis finished", "attempt", attempt, "outcome", result.Outcome, "phase", c.st.phase)
	return c.snapshotLocked(), nil
}

// Retry re-runs analysis on the same held image after a failure.
func (c *Controller) Retry(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.st.phase != domain.PhaseFailed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrInvalidTransition
	}
	c.mu.Unlock()
	return c.StartAnalysis(ctx)
}

// Reset clears the session from any phase. An analysis still in flight is
// left to finish; its outcome is discarded.
func (c *Controller) Reset(ctx context.Context) Snapshot {
	c.mu.Lock()
	prev := c.st.image
	from := c.st.phase
	c.st = state{
		phase:   domain.PhaseNoImage,
		attempt: c.st.attempt + 1,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.release(ctx, prev)
	c.logger.Info("session reset", "from", from)
	return snap
}

func (c *Controller) release(ctx context.Context, img *domain.EncodedImage) {
	if img == nil {
		return
	}
	if err := c.ingestor.Release(ctx, *img); err != nil {
		c.logger.Error("failed to release preview", "handle", img.PreviewHandle, "error", err)
	}
}
