package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"task-tracker/pkg/task"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// WebDir holds the built web client. Empty disables static serving.
	WebDir string
	// Ping reports storage health for /health. Nil always reports healthy.
	Ping func(context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	tasks   *task.Service
	ping    func(context.Context) error
	log     *log.Logger
	mux     *http.ServeMux
	handler http.Handler
	webDir  string
}

// New creates a new Server.
func New(tasks *task.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	s := &Server{
		tasks:  tasks,
		ping:   opts.Ping,
		log:    opts.Logger,
		mux:    http.NewServeMux(),
		webDir: opts.WebDir,
	}
	s.routes()
	s.handler = chain(s.mux,
		withRequestID,
		withAccessLog(s.log),
		withRecover(s.log),
		withCORS,
	)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PUT /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)

	// System
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	// Per-method so they do not overlap the static "GET /" pattern.
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		s.mux.HandleFunc(m+" /api/", s.handleUnknownRoute)
	}

	// Static files (Gio WASM client)
	if s.webDir != "" {
		s.mux.Handle("GET /", spaHandler(s.webDir))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.log.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, task.Fail("Storage unavailable", err.Error()))
			return
		}
	}
	writeJSON(w, http.StatusOK, task.OK(map[string]string{"status": "ok"}, ""))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sum, err := s.tasks.Summary(r.Context())
	if err != nil {
		s.writeFailure(w, err, task.MsgListFailed)
		return
	}
	writeJSON(w, http.StatusOK, task.OK(sum, ""))
}

func (s *Server) handleUnknownRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, task.Fail("Route not found", r.Method+" "+r.URL.Path))
}

// writeFailure maps a service error onto a status code and envelope.
// faultMsg is the message used for storage faults.
func (s *Server) writeFailure(w http.ResponseWriter, err error, faultMsg string) {
	var ve *task.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, task.Fail(ve.Message, ""))
	case errors.Is(err, task.ErrNotFound):
		writeJSON(w, http.StatusNotFound, task.Fail(task.MsgNotFound, ""))
	default:
		writeJSON(w, http.StatusInternalServerError, task.Fail(faultMsg, err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("write json")
	}
}

// spaHandler serves files from dir and falls back to index.html for any
// path that does not name a file.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			files.ServeHTTP(w, r)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
