// Package server serves the viewer assets and the on-demand GRPS workbook.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Server struct {
	log       zerolog.Logger
	exporter  Exporter
	staticDir string

	// exportMu serializes exports; every run writes the same workbook path.
	exportMu sync.Mutex
}

func New(log zerolog.Logger, exporter Exporter, staticDir string) *Server {
	return &Server{log: log, exporter: exporter, staticDir: staticDir}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors)
	r.Use(noCacheData)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/export-grps-excel", s.exportWorkbook)
	r.Handle("/*", hideDotFiles(http.FileServer(http.Dir(s.staticDir))))
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("static", s.staticDir).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	s.log.Info().Msg("server stopped")
	return nil
}

func (s *Server) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	path, blob, err := s.runExport(r.Context())
	if err != nil {
		s.exportFailed(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(path)))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// runExport regenerates the workbook and reads it back while holding
// exportMu, so a concurrent request cannot overwrite it in between.
func (s *Server) runExport(ctx context.Context) (string, []byte, error) {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	path, err := s.exporter.Export(ctx)
	if err != nil {
		return "", nil, err
	}

	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("%s: %w", path, ErrWorkbookNotFound)
	}
	if err != nil {
		return "", nil, err
	}
	return path, blob, nil
}

func (s *Server) exportFailed(w http.ResponseWriter, r *http.Request, err error) {
	log := s.log.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()

	var exportErr *ExportError
	switch {
	case errors.As(err, &exportErr):
		log.Error().Err(err).Msg("export command failed")
		http.Error(w, "Error generating Excel: "+exportErr.Stderr, http.StatusInternalServerError)
	case errors.Is(err, ErrWorkbookNotFound):
		log.Warn().Err(err).Msg("workbook missing after export")
		http.Error(w, "Excel file not found", http.StatusNotFound)
	default:
		log.Error().Err(err).Msg("export failed")
		http.Error(w, "Server error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hideDotFiles answers 404 for any path with a dot-prefixed segment, so
// files such as .env next to the dataset are never served.
func hideDotFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(part, ".") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// noCacheData keeps browsers from holding a stale dataset.
func noCacheData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "data.json") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		next.ServeHTTP(w, r)
	})
}
