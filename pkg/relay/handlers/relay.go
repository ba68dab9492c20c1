package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emceep/callrelay/pkg/relay/agent"
	"github.com/emceep/callrelay/pkg/relay/config"
	"github.com/emceep/callrelay/pkg/relay/lifecycle"
	"github.com/emceep/callrelay/pkg/relay/metrics"
	"github.com/emceep/callrelay/pkg/relay/mw"
	"github.com/emceep/callrelay/pkg/relay/session"
	"github.com/emceep/callrelay/pkg/relay/sessions"
)

// RelayHandler handles /websocket call sessions.
type RelayHandler struct {
	Config    config.Config
	Agent     agent.Asker
	Logger    *slog.Logger
	Lifecycle *lifecycle.Lifecycle
	Sessions  *sessions.Registry
	Metrics   *metrics.Metrics
}

func (h RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Lifecycle != nil && h.Lifecycle.IsDraining() {
		http.Error(w, "relay is draining", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.Config.MaxMessageBytes)
	}

	sessionID := uuid.NewString()

	asker := h.Agent
	if asker == nil {
		asker = agent.New(agent.Options{
			Endpoint: h.Config.AgentURL,
			APIKey:   h.Config.AgentAPIKey,
			Timeout:  h.Config.AgentTimeout,
			Logger:   h.Logger,
		})
	}

	s, err := session.New(session.Dependencies{
		Conn:      conn,
		Logger:    h.Logger,
		Agent:     asker,
		Metrics:   h.Metrics,
		SessionID: sessionID,
		Config: session.Config{
			WriteTimeout:  h.Config.WSWriteTimeout,
			PingInterval:  h.Config.WSPingInterval,
			TurnQueueSize: h.Config.TurnQueueSize,
		},
	})
	if err != nil {
		return
	}

	unregister := func() {}
	if h.Sessions != nil {
		unregister = h.Sessions.Register(sessionID, sessions.Handle{
			Cancel: s.Cancel,
		})
	}
	defer unregister()

	if h.Metrics != nil {
		h.Metrics.SessionOpened()
		defer h.Metrics.SessionClosed()
	}

	if err := s.Run(); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("call session ended with error",
				"session_id", sessionID,
				"request_id", requestIDFromContext(r.Context()),
				"error", err)
		}
	}
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := mw.RequestIDFrom(ctx); ok {
		return id
	}
	return ""
}
