package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/preview"
	"github.com/vbonduro/petalscope/internal/render"
	"github.com/vbonduro/petalscope/internal/session"
)

// sessionView is the template data for both the page and the fragment.
type sessionView struct {
	session.Snapshot
	Notice     string
	PreviewURL string
	Document   render.Document
	Title      string
	Analyzing  bool
	CanAnalyze bool
	CanRetry   bool
	CanReset   bool
}

func newSessionView(snap session.Snapshot, notice string) sessionView {
	v := sessionView{
		Snapshot:   snap,
		Notice:     notice,
		Analyzing:  snap.Phase == domain.PhaseAnalyzing,
		CanAnalyze: snap.Phase == domain.PhaseImageReady,
		CanRetry:   snap.Phase == domain.PhaseFailed,
		CanReset:   snap.Phase != domain.PhaseNoImage,
	}
	if snap.HasImage() {
		// The attempt changes whenever the image does, so it busts caches.
		v.PreviewURL = fmt.Sprintf("/preview?v=%d", snap.Attempt)
	}
	if snap.Phase == domain.PhaseAnalyzed {
		v.Document = render.Render(snap.Message)
		v.Title = v.Document.Title()
	}
	return v
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// respond writes the session fragment for htmx requests and the full page
// otherwise. htmx only swaps 2xx responses, so fragments always use 200 and
// carry the problem in Notice.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, snap session.Snapshot, notice string) {
	view := newSessionView(snap, notice)
	var err error
	if isHTMX(r) {
		err = s.renderPartial(w, view)
	} else {
		err = s.renderPage(w, status, view)
	}
	if err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.session.Snapshot(), "")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

type sessionJSON struct {
	Phase     domain.Phase     `json:"phase"`
	Attempt   uint64           `json:"attempt"`
	HasImage  bool             `json:"has_image"`
	MediaType string           `json:"media_type,omitempty"`
	Outcome   domain.Outcome   `json:"outcome,omitempty"`
	Reason    domain.ErrorKind `json:"reason,omitempty"`
	Message   string           `json:"message,omitempty"`
	Title     string           `json:"title,omitempty"`
}

func (s *Server) handleSessionJSON(w http.ResponseWriter, _ *http.Request) {
	snap := s.session.Snapshot()
	out := sessionJSON{
		Phase:     snap.Phase,
		Attempt:   snap.Attempt,
		HasImage:  snap.HasImage(),
		MediaType: snap.MediaType,
		Message:   snap.Message,
	}
	if snap.Result != nil {
		out.Outcome = snap.Result.Outcome
		out.Reason = snap.Result.Reason
		if snap.Result.Outcome == domain.OutcomeSuccess {
			out.Title = render.Render(snap.Result.Text).Title()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("encode session failed", "error", err)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if !snap.HasImage() {
		http.NotFound(w, r)
		return
	}

	reader, mediaType, err := s.previews.Open(r.Context(), snap.PreviewHandle)
	if err != nil {
		if !errors.Is(err, preview.ErrNotFound) {
			s.logger.Error("open preview failed", "handle", snap.PreviewHandle, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "preview reader", s.logger)

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write preview failed", "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
