package web

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/petalscope/internal/preview"
	"github.com/vbonduro/petalscope/internal/session"
)

type Server struct {
	session   *session.Controller
	previews  preview.Store
	templates fs.FS
	router    chi.Router
	logger    *slog.Logger
}

func NewServer(ctrl *session.Controller, previews preview.Store, tmpl fs.FS, logger *slog.Logger) *Server {
	s := &Server{
		session:   ctrl,
		previews:  previews,
		templates: tmpl,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	s.router.Use(securityHeaders)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/preview", s.handlePreview)
	s.router.Get("/api/session", s.handleSessionJSON)
	s.router.Post("/image", s.handleUploadImage)
	s.router.Post("/analysis", s.handleStartAnalysis)
	s.router.Post("/analysis/retry", s.handleRetry)
	s.router.Post("/reset", s.handleReset)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self'; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server for addr. writeTimeout must exceed the
// inference timeout because analysis requests block until the model answers.
func (s *Server) HTTPServer(addr string, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// renderPage executes the full page layout with data.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any) error {
	tmpl, err := template.ParseFS(s.templates,
		"base.html", "pages/index.html", "partials/session.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial executes only the session fragment, for htmx swaps.
func (s *Server) renderPartial(w http.ResponseWriter, data any) error {
	tmpl, err := template.ParseFS(s.templates, "partials/session.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "session", data)
}
