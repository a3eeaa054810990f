package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
)

// maxEventBytes bounds request bodies on the event endpoints.
const maxEventBytes = 1 << 20

// Handler runs processor invocations. *processor.Dispatcher satisfies it.
type Handler interface {
	OnMessage(ctx context.Context, ev processor.MessageEvent) (processor.Result, error)
	OnSchedule(ctx context.Context, ev processor.ScheduleEvent) (processor.Result, error)
	Tags() *tags.Tags
}

// Server accepts host events over HTTP and exposes health, stats and
// metrics endpoints.
type Server struct {
	handler Handler
	metrics http.Handler
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server. metrics may be nil.
func NewServer(h Handler, metrics http.Handler, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	s := &Server{
		handler: h,
		metrics: metrics,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/events/message", s.handleMessage)
	s.mux.HandleFunc("POST /api/v1/events/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.mux.Handle("GET /metrics", s.metrics)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var ev processor.MessageEvent
	if err := decodeBody(r, &ev, false); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ev.Channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	res, err := s.handler.OnMessage(r.Context(), ev)
	if err != nil {
		s.logger.Error("handle message event", "channel", ev.Channel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var ev processor.ScheduleEvent
	if err := decodeBody(r, &ev, true); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.handler.OnSchedule(r.Context(), ev)
	if err != nil {
		s.logger.Error("handle schedule event", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	t := s.handler.Tags()
	all, err := t.All(ctx)
	if err != nil {
		s.logger.Error("list tags", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": t.Scope(),
		"tags":     all,
	})
}

// decodeBody decodes a JSON request body into dest. An empty body is an
// error unless allowEmpty is set.
func decodeBody(r *http.Request, dest any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes)).Decode(dest)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
