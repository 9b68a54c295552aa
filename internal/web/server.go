// Package web exposes the discussion workflow over HTTP. Sessions are started
// with a POST and observed live over Server-Sent Events; finished sessions are
// listed and exported from the session store.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/consilium-health/consilium/internal/council"
	"github.com/consilium-health/consilium/internal/export"
	"github.com/consilium-health/consilium/internal/state"
	"github.com/consilium-health/consilium/pkg/models"
)

// Runner starts a discussion and streams its events. Implemented by
// council.Orchestrator.
type Runner interface {
	RunStream(ctx context.Context, c models.Case) <-chan council.Event
}

// Server serves the web API.
type Server struct {
	runner   Runner
	db       *state.DB
	exporter *export.Exporter
	addr     string

	runs *runRegistry
	http *http.Server
}

// New creates a server. db and exporter may be nil; the related endpoints
// then report the feature as unavailable.
func New(addr string, runner Runner, db *state.DB, exporter *export.Exporter) *Server {
	s := &Server{
		runner:   runner,
		db:       db,
		exporter: exporter,
		addr:     addr,
		runs:     newRunRegistry(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExportSession)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: listening on %s", s.addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStartSession starts a new discussion in the background and returns
// the run id used to follow its event stream.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var c models.Case
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode case: %w", err))
		return
	}
	if c.PatientID == "" && c.Symptoms == "" {
		writeError(w, http.StatusBadRequest, errors.New("case must include a patient id or symptoms"))
		return
	}

	run := s.runs.start()
	go s.drive(run, c)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.id,
		"events": "/api/sessions/" + run.id + "/events",
	})
}

// drive consumes the orchestrator's event stream into the run record, then
// persists and exports the finished session.
func (s *Server) drive(run *run, c models.Case) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	for event := range s.runner.RunStream(ctx, c) {
		run.publish(event)
		if event.Type == council.EventSessionComplete && event.Session != nil {
			s.finish(event.Session)
		}
	}
	run.close()
}

func (s *Server) finish(session *models.Session) {
	if s.db != nil {
		if err := s.db.SaveSession(session); err != nil {
			log.Printf("web: save session %s: %v", session.ID, err)
		}
	}
	if s.exporter != nil {
		if _, err := s.exporter.WriteJSON(session); err != nil {
			log.Printf("web: export session %s: %v", session.ID, err)
		}
	}
}

// handleSessionEvents streams a run's events as Server-Sent Events. Replays
// events recorded so far, then follows the live stream until the run ends or
// the client disconnects.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown run id"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	history, live, unsubscribe := run.subscribe()
	defer unsubscribe()

	for _, event := range history {
		if err := writeSSE(w, event); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case event, ok := <-live:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("session store not configured"))
		return
	}
	sessions, err := s.db.ListSessions(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []state.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("session store not configured"))
		return
	}
	session, err := s.db.GetSession(r.PathValue("id"))
	if errors.Is(err, state.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("session store not configured"))
		return
	}
	session, err := s.db.GetSession(r.PathValue("id"))
	if errors.Is(err, state.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "mdt_session_"+session.ID+".json"))
		writeJSON(w, http.StatusOK, session)
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "mdt_session_"+session.ID+".txt"))
		fmt.Fprint(w, export.Transcript(session))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func writeSSE(w http.ResponseWriter, event council.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
