package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/observe"
	"github.com/lazypower/nudge/internal/store"
)

// Scorer receives a rescore request after every write. *engine.ScoreQueue
// implements it.
type Scorer interface {
	Submit()
}

// Server is the nudge HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	scorer  Scorer
	obs     *observe.Observer
	origin  string
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server. scorer may be nil, in which case writes are not
// rescored.
func New(db *store.DB, eng *engine.Engine, scorer Scorer, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		scorer:  scorer,
		obs:     observe.Discard(),
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// SetObserver configures where request failures are logged.
func (s *Server) SetObserver(obs *observe.Observer) {
	s.obs = obs
}

// SetFrontendOrigin sets the extra origin allowed by CORS ("*" allows any).
func (s *Server) SetFrontendOrigin(origin string) {
	s.origin = origin
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/memories", s.handleListMemories)
		r.Post("/memories", s.handleUpsertMemory)
		r.Delete("/memories/{id}", s.handleDeleteMemory)
		r.Post("/memories/{id}/done", s.handleMarkDone)

		r.Post("/trigger-reminders", s.handleTriggerReminders)
		r.Post("/commands", s.handleCommand)
		r.Post("/webhook/whatsapp", s.handleWhatsApp)
	})

	s.router = r
}

// cors allows the configured frontend origin, "*" or any localhost origin.
// Requests without an Origin header get a wildcard.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case s.origin == "*" || origin == s.origin || strings.Contains(origin, "localhost"):
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"ts":      time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
