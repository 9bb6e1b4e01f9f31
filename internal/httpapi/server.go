package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/railbot/internal/archive"
	"github.com/antoniostano/railbot/internal/config"
	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/protocol"
	"github.com/antoniostano/railbot/internal/session"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type Server struct {
	cfg      config.Config
	sessions *session.Store
	history  archive.Store
	metrics  *observability.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Store, history archive.Store, metrics *observability.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = observability.Discard()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		history:  history,
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// LivenessRouter serves the uptime monitor. It has exactly one route and
// never touches session state.
func (s *Server) LivenessRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleLiveness)
	return r
}

// OpsRouter serves metrics and read-only session views on the ops listener.
func (s *Server) OpsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Get("/v1/sessions/ws", s.handleSessionFeed)
	r.Get("/v1/history", s.handleHistory)
	return r
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.cfg.LivenessMessage))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	mode := "disabled"
	if s.history != nil {
		mode = s.history.Mode()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
		"history_mode":    mode,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	snap := protocol.NewSessionsSnapshot(s.sessions.List(), time.Now())
	respondJSON(w, http.StatusOK, snap.Sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, protocol.NewSessionView(sess))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "history store not configured")
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("history query failed", "err", err)
		respondError(w, http.StatusInternalServerError, "history_unavailable", "history query failed")
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleSessionFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.FeedClients.Inc()
		defer s.metrics.FeedClients.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	refresh := make(chan struct{}, 1)
	outbound := make(chan any, 16)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		interval := s.cfg.OpsFeedInterval
		if interval <= 0 {
			interval = 5 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		write := func(msg any) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				return false
			}
			return true
		}
		snapshot := func() bool {
			return write(protocol.NewSessionsSnapshot(s.sessions.List(), time.Now()))
		}

		if !snapshot() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !snapshot() {
					return
				}
			case <-refresh:
				if !snapshot() {
					return
				}
			case msg := <-outbound:
				if !write(msg) {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		if _, err := protocol.ParseClientMessage(data); err != nil {
			select {
			case outbound <- protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}:
			default:
				// Keep websocket writes single-threaded; drop if outbound queue is saturated.
			}
			continue
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	cancel()
	<-writerDone
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
