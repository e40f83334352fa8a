package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/vbonduro/petalscope/internal/session"
)

func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	// Use a detached context so that the analysis runs to completion even if
	// the client navigates away and the request context is cancelled.
	snap, err := s.session.StartAnalysis(context.WithoutCancel(r.Context()))
	s.respondAnalysis(w, r, snap, err)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Retry(context.WithoutCancel(r.Context()))
	s.respondAnalysis(w, r, snap, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Reset(r.Context())
	s.respond(w, r, http.StatusOK, snap, "")
}

func (s *Server) respondAnalysis(w http.ResponseWriter, r *http.Request, snap session.Snapshot, err error) {
	switch {
	case err == nil:
		s.respond(w, r, http.StatusOK, snap, "")
	case errors.Is(err, session.ErrStaleAttempt):
		// The user reset or replaced the image meanwhile; show where they are now.
		s.respond(w, r, http.StatusOK, snap, "")
	case errors.Is(err, session.ErrNoImage):
		s.respond(w, r, http.StatusConflict, snap, noticeNoImage)
	case errors.Is(err, session.ErrAnalysisInProgress):
		s.respond(w, r, http.StatusConflict, snap, noticeAnalyzing)
	default:
		s.respond(w, r, http.StatusConflict, snap, noticeInvalid)
	}
}
