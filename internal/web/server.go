// Package web provides the authenticated HTTP interface of the irrigation
// daemon: a status page, a JSON snapshot, and the administrative actions.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sweeney/irrigation-controller/internal/admin"
	"github.com/sweeney/irrigation-controller/internal/auth"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// DefaultTimeout bounds how long a handler waits for the control loop.
const DefaultTimeout = 5 * time.Second

// Server serves the status page and admin actions over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	queue      *admin.Queue
	checker    *auth.Checker

	// Timeout bounds how long a handler waits for the loop to apply a request.
	Timeout time.Duration
}

// New creates a Server that reads state from tracker and submits mutations
// to queue. Every route requires credentials accepted by checker.
func New(addr string, tracker *status.Tracker, queue *admin.Queue, checker *auth.Checker) *Server {
	s := &Server{
		tracker: tracker,
		queue:   queue,
		checker: checker,
		Timeout: DefaultTimeout,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.requireAuth)

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)

	r.Post("/override/reset", s.handleResetOverride)
	r.Route("/pumps/{id}", func(r chi.Router) {
		r.Post("/toggle", s.handleToggleManual)
		r.Post("/schedule/toggle", s.handleToggleSchedule)
		r.Post("/schedule", s.handleReplaceSchedule)
	})
	return r
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on ln. It blocks until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
