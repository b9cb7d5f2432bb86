// Package http exposes the workflow engine over a JSON REST API. One
// endpoint drives turns; the rest inspect and manage sessions. Session
// updates can additionally be followed over SSE.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucasmbraga/taxflow"
	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// Engine is the part of the workflow engine the HTTP surface needs.
type Engine interface {
	Execute(ctx context.Context, sessionID string, payload map[string]any) (*domain.State, error)
	Session(ctx context.Context, sessionID string) (*domain.State, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Gateway() ports.TaxGateway
}

// Server routes REST requests to the engine.
type Server struct {
	engine  Engine
	streams *StreamManager
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/turns", s.postTurn)
			r.Get("/events", s.subscribeEvents)
			r.Get("/slips/{slipID}/document", s.getSlipDocument)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// postTurn handles POST /v1/sessions/{sessionID}/turns.
func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.logger.Warn("turn: invalid request body", "err", err)
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	st, err := s.engine.Execute(r.Context(), sessionID, payload)
	if err != nil {
		s.logger.Error("turn failed", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("turn failed: %v", err))
		return
	}

	if raw, err := json.Marshal(st); err == nil {
		s.streams.Broadcast(st.SessionID, string(raw))
	}
	s.writeJSON(w, http.StatusOK, st)
}

// getSession handles GET /v1/sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	st, err := s.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("session load failed", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// deleteSession handles DELETE /v1/sessions/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.engine.Delete(r.Context(), sessionID); err != nil {
		s.logger.Error("session delete failed", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "session delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listSessions handles GET /v1/sessions.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.List(r.Context())
	if err != nil {
		s.logger.Error("session list failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "session list failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

// getSlipDocument handles GET /v1/sessions/{sessionID}/slips/{slipID}/document.
// The document is fetched from the upstream service on demand; the slip must
// belong to the session.
func (s *Server) getSlipDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slipID := chi.URLParam(r, "slipID")

	st, err := s.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("session load failed", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}

	found := false
	for _, slip := range st.Data.Slips {
		if slip.ID == slipID {
			found = true
			break
		}
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "slip not found in session")
		return
	}

	doc, err := s.engine.Gateway().DownloadSlipDocument(r.Context(), slipID)
	if err != nil || len(doc) == 0 {
		s.logger.Warn("slip document unavailable", "slip_id", slipID, "err", err)
		s.writeError(w, http.StatusBadGateway, "slip document unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slipID+".pdf"))
	w.Write(doc)
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// info handles GET /info.
func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "taxflow-http",
		"service": domain.Service,
		"version": strings.TrimSpace(taxflow.Version),
	})
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // session id -> set of channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Slow client, drop the snapshot. The next turn sends a fresh one.
		}
	}
}

// subscribeEvents handles GET /v1/sessions/{sessionID}/events (SSE). Each
// completed turn pushes the full session snapshot.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
