package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"calnotify/internal/config"
	appLog "calnotify/internal/log"
	"calnotify/internal/message"
	"calnotify/internal/runner"
)

// Previewer builds the message an account would receive, without sending.
type Previewer interface {
	Preview(ctx context.Context, acc config.Account) (*message.Payload, error)
}

// Server exposes the status API of `serve` mode: health, the last run
// report and per-account previews.
type Server struct {
	cfg       *config.Config
	previewer Previewer
	router    *mux.Router

	// 마지막 실행 결과. cron 잡과 HTTP 핸들러가 동시에 접근한다.
	reportMu sync.RWMutex
	report   *runner.Report
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, p Previewer) *Server {
	s := &Server{
		cfg:       cfg,
		previewer: p,
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// SetReport stores the report of the most recent run.
func (s *Server) SetReport(rep runner.Report) {
	s.reportMu.Lock()
	s.report = &rep
	s.reportMu.Unlock()
}

// Start serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calnotify", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/preview/{account}", s.handlePreview).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReport returns the last run report, or 404 before the first run.
func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	s.reportMu.RLock()
	rep := s.report
	s.reportMu.RUnlock()

	if rep == nil {
		writeError(w, http.StatusNotFound, "no run has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handlePreview builds (but never posts) the message for one account.
//
// GET /api/preview/{account}
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["account"]

	acc, ok := s.cfg.Account(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account")
		return
	}

	p, err := s.previewer.Preview(r.Context(), acc)
	if err != nil {
		appLog.Error("preview failed", err, "account", acc.Name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
