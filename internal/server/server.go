// Package server exposes the service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/service"
)

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to the Repo Parser API!"

// Options configures a Server.
type Options struct {
	// AllowedOrigins is the CORS allow-list. Empty allows every origin.
	AllowedOrigins []string
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server is the HTTP front of a service.Service.
type Server struct {
	svc     *service.Service
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	handler http.Handler
	http    *http.Server
}

// FetchRepoRequest is the body of POST /fetch-repo.
type FetchRepoRequest struct {
	RepoURL string `json:"repo_url"`
}

// FetchRepoResponse is returned by POST /fetch-repo.
type FetchRepoResponse struct {
	RepoName string   `json:"repo_name"`
	Files    []string `json:"files"`
}

// RunResponse is the JSON document of one run, tagged with its ID.
type RunResponse struct {
	RunID string `json:"run_id"`
	*export.Document
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Server over svc.
func New(svc *service.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{svc: svc, opts: opts, logger: logger, now: time.Now}
	s.handler = s.routes()
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /fetch-repo", s.handleFetchRepo)
	mux.HandleFunc("GET /parse/{repo_name}", s.handleParse)
	mux.HandleFunc("GET /get_parsed_data", s.handleLast)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	if s.opts.MCP != nil {
		mux.Handle("/mcp", s.opts.MCP)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions, http.MethodDelete},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// Start listens on addr and serves in a background goroutine. The server is
// shut down when ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.http.Shutdown(context.Background())
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

func (s *Server) handleFetchRepo(w http.ResponseWriter, r *http.Request) {
	var req FetchRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	res, err := s.svc.Clone(r.Context(), req.RepoURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	files := res.Files
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, FetchRepoResponse{RepoName: res.RepoName, Files: files})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Parse(r.Context(), r.PathValue("repo_name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRun(w, run)
}

func (s *Server) handleLast(w http.ResponseWriter, _ *http.Request) {
	run, ok := s.svc.Last()
	if !ok {
		s.writeError(w, service.ErrNoRuns)
		return
	}
	s.writeRun(w, run)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, ok := s.svc.Get(id)
	if !ok {
		s.writeError(w, service.ErrRunNotFound)
		return
	}
	s.writeRun(w, run)
}

func (s *Server) writeRun(w http.ResponseWriter, run *service.Run) {
	writeJSON(w, http.StatusOK, RunResponse{
		RunID:    run.ID,
		Document: export.BuildDocument(run.Result, s.now()),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRepo):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRepoNotFound),
		errors.Is(err, service.ErrNoRuns),
		errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
