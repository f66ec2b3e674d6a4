// Package dashboard serves the issue dashboard over HTTP: an embedded page
// plus the JSON and CSV endpoints it fetches from.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/hurttlocker/issuelens/internal/views"
	"go.uber.org/zap"
)

//go:embed dashboard.html
var pageFS embed.FS

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// ServerConfig holds settings for the dashboard server.
type ServerConfig struct {
	Session *pipeline.Session
	// Views is optional; the saved-view endpoints answer 404 without it.
	Views  views.Store
	Addr   string
	Logger *zap.Logger
}

type server struct {
	session *pipeline.Session
	views   views.Store
	logger  *zap.Logger
}

// Handler returns the dashboard's routes.
func Handler(cfg ServerConfig) http.Handler {
	s := &server{session: cfg.Session, views: cfg.Views, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/clusters", s.handleClusters)
	mux.HandleFunc("/api/views", s.handleViews)
	mux.HandleFunc("/api/health", s.handleHealth)
	return logRequests(s.logger, mux)
}

// Serve runs the dashboard until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}
	return serveListener(ctx, ln, cfg)
}

func serveListener(ctx context.Context, ln net.Listener, cfg ServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	fmt.Printf("Issue dashboard: http://%s\n", ln.Addr())
	logger.Info("dashboard listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving dashboard: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down dashboard: %w", err)
	}
	logger.Info("dashboard stopped")
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
