// Package server exposes the cleaning pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/loader"
	"github.com/KaramelBytes/edaloom-cli/internal/logger"
	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Config holds listener settings.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	// Report holds the defaults that query parameters override.
	Report analysis.Options
}

// Server routes HTTP requests to a shared Runner.
type Server struct {
	cfg    Config
	runner *runner.Runner
	router *chi.Mux
}

// New builds the router.
func New(cfg Config, r *runner.Runner) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	s := &Server{cfg: cfg, runner: r, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/v1/analyze", s.handleAnalyze)
	s.router.Method(http.MethodGet, "/metrics", s.runner.Metrics().Handler())
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts either a raw body or a multipart field "file".
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opt, err := reportOptions(s.cfg.Report, q.Get("show_removed"), q.Get("sample_rows"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	name, data, contentType, err := readUpload(r, s.cfg.MaxUploadBytes)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	format := q.Get("format")
	if format == "" {
		format = formatFromContentType(contentType)
	}
	ctx := context.WithValue(r.Context(), logger.RequestIDKey, middleware.GetReqID(r.Context()))
	out, err := s.runner.Execute(ctx, runner.Request{Name: name, Data: data, Format: format, Sheet: q.Get("sheet"), Report: &opt})
	if err != nil {
		switch {
		case errors.Is(err, loader.ErrUnsupportedFormat):
			writeError(w, http.StatusUnsupportedMediaType, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	body, err := out.Report.JSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func reportOptions(opt analysis.Options, showRemoved, sampleRows string) (analysis.Options, error) {
	if showRemoved != "" {
		v, err := strconv.ParseBool(showRemoved)
		if err != nil {
			return opt, fmt.Errorf("invalid show_removed %q", showRemoved)
		}
		opt.ShowRemoved = v
	}
	if sampleRows != "" {
		n, err := strconv.Atoi(sampleRows)
		if err != nil || n < 0 {
			return opt, fmt.Errorf("invalid sample_rows %q", sampleRows)
		}
		opt.SampleRows = n
	}
	return opt, nil
}

func readUpload(r *http.Request, limit int64) (name string, data []byte, contentType string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err = io.ReadAll(r.Body)
		if err != nil {
			return "", nil, "", err
		}
		name = r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		return name, data, mediaType, nil
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		return "", nil, "", err
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, "", fmt.Errorf("multipart field \"file\": %w", err)
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		return "", nil, "", err
	}
	ct, _, _ := mime.ParseMediaType(hdr.Header.Get("Content-Type"))
	return hdr.Filename, data, ct, nil
}

func formatFromContentType(ct string) string {
	switch ct {
	case "text/csv", "application/csv":
		return "csv"
	case "text/tab-separated-values":
		return "tsv"
	case "application/json":
		return "json"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLogger logs one line per request through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Get().Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}
