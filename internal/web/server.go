package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
)

// NewServer creates and configures the HTTP server for the coursedesk JSON API.
// The advisor route is only mounted when invoker is non-nil.
func NewServer(sessions *session.Manager, invoker remote.Invoker, log *slog.Logger, version, bind string, port int) *http.Server {
	log = logging.OrDefault(log)
	h := &Handlers{
		sessions: sessions,
		invoker:  invoker,
		log:      log,
		version:  version,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(requestLog(log, routes(h))),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func routes(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleIndex)

	mux.HandleFunc("GET /history", h.HandleHistoryList)
	mux.HandleFunc("POST /history", h.HandleHistoryAdd)
	mux.HandleFunc("DELETE /history", h.HandleHistoryClear)
	mux.HandleFunc("DELETE /history/{type}/{id}", h.HandleHistoryRemove)

	mux.HandleFunc("GET /plan", h.HandlePlanShow)
	mux.HandleFunc("PUT /plan", h.HandlePlanSet)
	mux.HandleFunc("DELETE /plan", h.HandlePlanClear)
	mux.HandleFunc("POST /plan/parse", h.HandlePlanParse)
	mux.HandleFunc("POST /plan/toggle", h.HandlePlanToggle)
	mux.HandleFunc("POST /plan/{term}/courses", h.HandlePlanAddCourse)
	mux.HandleFunc("DELETE /plan/{term}/courses/{id}", h.HandlePlanRemoveCourse)

	mux.HandleFunc("GET /selection", h.HandleSelectionList)
	mux.HandleFunc("DELETE /selection", h.HandleSelectionClear)
	mux.HandleFunc("POST /selection/{category}/{id}", h.HandleSelectionToggle)

	mux.HandleFunc("POST /responses/render", h.HandleRender)

	if h.invoker != nil {
		mux.HandleFunc("POST /advisor/ask", h.HandleAdvisorAsk)
	}
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLog logs one line per request at debug level.
func requestLog(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("web: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *slog.Logger) error {
	log = logging.OrDefault(log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("coursedesk API running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
