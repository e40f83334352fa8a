package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/petalscope/internal/domain"
	"github.com/vbonduro/petalscope/internal/session"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

const (
	noticeAnalyzing = "Your flower is still being read. Please wait for it to finish."
	noticeNoImage   = "Choose a photo of a flower first."
	noticeInvalid   = "That action isn't available right now."
	noticeChanged   = "The session changed while that was running. Please try again."
	noticeTooLarge  = "That photo is too large. Please choose one under 50 MB."
)

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respond(w, r, http.StatusRequestEntityTooLarge, s.session.Snapshot(), noticeTooLarge)
			return
		}
		s.logger.Warn("parse upload form failed", "error", err)
		s.respond(w, r, http.StatusBadRequest, s.session.Snapshot(), session.ReadErrorMessage)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Error("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		s.respond(w, r, http.StatusBadRequest, s.session.Snapshot(), session.ReadErrorMessage)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	snap, err := s.session.UploadImage(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		status, notice := uploadFailure(err)
		s.respond(w, r, status, snap, notice)
		return
	}
	s.respond(w, r, http.StatusOK, snap, "")
}

func uploadFailure(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrAnalysisInProgress):
		return http.StatusConflict, noticeAnalyzing
	case errors.Is(err, session.ErrStaleAttempt):
		return http.StatusConflict, noticeChanged
	case domain.KindOf(err) == domain.ErrorKindRead:
		return http.StatusUnprocessableEntity, session.ReadErrorMessage
	default:
		return http.StatusInternalServerError, session.ReadErrorMessage
	}
}
