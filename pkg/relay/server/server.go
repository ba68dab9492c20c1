package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emceep/callrelay/pkg/eventdata"
	"github.com/emceep/callrelay/pkg/relay/agent"
	"github.com/emceep/callrelay/pkg/relay/config"
	"github.com/emceep/callrelay/pkg/relay/handlers"
	"github.com/emceep/callrelay/pkg/relay/lifecycle"
	"github.com/emceep/callrelay/pkg/relay/metrics"
	"github.com/emceep/callrelay/pkg/relay/mw"
	"github.com/emceep/callrelay/pkg/relay/sessions"
)

// Server wires the relay surface: the inbound call webhook, the call
// WebSocket endpoint, the event data API, health and metrics.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	agent     agent.Asker
	metrics   *metrics.Metrics
	lifecycle *lifecycle.Lifecycle
	sessions  *sessions.Registry
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		agent: agent.New(agent.Options{
			Endpoint: cfg.AgentURL,
			APIKey:   cfg.AgentAPIKey,
			Timeout:  cfg.AgentTimeout,
			Logger:   logger,
		}),
		metrics:   metrics.New("callrelay"),
		lifecycle: &lifecycle.Lifecycle{},
		sessions:  sessions.NewRegistry(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/health", handlers.HealthHandler{})
	s.mux.Handle("/voice", handlers.VoiceHandler{Config: s.cfg})
	s.mux.Handle("/websocket", handlers.RelayHandler{
		Config:    s.cfg,
		Agent:     s.agent,
		Logger:    s.logger,
		Lifecycle: s.lifecycle,
		Sessions:  s.sessions,
		Metrics:   s.metrics,
	})
	s.mux.Handle("/metrics", s.metrics.Handler())

	eventdata.Handler{
		Store: eventdata.NewStore(s.cfg.EventDataPath, s.logger),
	}.Register(s.mux)
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining makes the WebSocket endpoint refuse new call sessions.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WaitSessions blocks until every live call session has ended or ctx
// expires. It reports whether all sessions drained in time.
func (s *Server) WaitSessions(ctx context.Context) bool {
	return s.sessions.Wait(ctx)
}

// CancelSessions force-closes any call sessions still running.
func (s *Server) CancelSessions() int {
	return s.sessions.CancelAll()
}

// SessionCount reports the number of live call sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Count()
}
