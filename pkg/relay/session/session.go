// Package session implements the per-call state machine of the relay. Each
// open relay connection is owned by exactly one Session: a reader goroutine
// dispatches inbound frames, a turn worker performs agent calls off the read
// path, and a writer goroutine owns the connection for writes. The connection
// must never be blocked by an outstanding agent call, and an agent failure
// must never end the call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emceep/callrelay/pkg/relay/agent"
	"github.com/emceep/callrelay/pkg/relay/metrics"
	"github.com/emceep/callrelay/pkg/relay/protocol"
)

// Conn is the slice of *websocket.Conn the session needs. Tests substitute a
// fake.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Config struct {
	WriteTimeout  time.Duration
	PingInterval  time.Duration
	TurnQueueSize int
}

type Dependencies struct {
	Conn      Conn
	Logger    *slog.Logger
	Agent     agent.Asker
	Metrics   *metrics.Metrics
	SessionID string
	Config    Config
}

type Session struct {
	id      string
	conn    Conn
	logger  *slog.Logger
	agent   agent.Asker
	metrics *metrics.Metrics
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc

	// prompts is the FIFO turn queue: utterances are replied to in the
	// order they were accepted, and at most one agent call is outstanding
	// at a time.
	prompts  chan string
	outbound chan protocol.TextFrame

	turns         atomic.Int64
	awaitingReply atomic.Bool

	// Mutated only by the reader goroutine.
	callSID       string
	lastUtterance string

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, errors.New("session: connection is required")
	}
	if deps.Agent == nil {
		return nil, errors.New("session: agent client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.TurnQueueSize <= 0 {
		cfg.TurnQueueSize = 8
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       deps.SessionID,
		conn:     deps.Conn,
		logger:   logger.With("session_id", deps.SessionID),
		agent:    deps.Agent,
		metrics:  deps.Metrics,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		prompts:  make(chan string, cfg.TurnQueueSize),
		outbound: make(chan protocol.TextFrame, cfg.TurnQueueSize),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Turns reports how many utterances have been accepted so far.
func (s *Session) Turns() int64 { return s.turns.Load() }

// AwaitingReply reports whether an agent call is currently outstanding.
func (s *Session) AwaitingReply() bool { return s.awaitingReply.Load() }

// Cancel tears the session down from outside the reader goroutine, e.g. when
// the process drains on shutdown.
func (s *Session) Cancel() {
	s.cancel()
	s.closeConn()
}

// Run owns the connection until it closes. It returns after the writer and
// turn worker have stopped; the connection is closed exactly once.
func (s *Session) Run() error {
	defer s.cancel()
	defer s.closeConn()

	s.wg.Add(2)
	go s.writeLoop()
	go s.turnLoop()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("relay connection dropped", "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			s.dropFrame("malformed", "non-text frame", nil)
			continue
		}
		s.handleFrame(data)
	}

	s.cancel()
	s.closeConn()
	s.wg.Wait()
	s.logger.Info("session closed", "call_sid", s.callSID, "turns", s.turns.Load())
	return nil
}

// handleFrame is the message dispatcher: it parses one inbound frame and
// routes it by kind. No frame, however malformed, may end the call.
func (s *Session) handleFrame(data []byte) {
	decoded, err := protocol.DecodeInbound(data)
	if err != nil {
		s.dropFrame("malformed", "unparsable frame", err)
		return
	}

	switch msg := decoded.(type) {
	case protocol.SetupFrame:
		s.handleSetup(msg)
	case protocol.PromptFrame:
		s.handleUtterance(msg)
	case protocol.InterruptFrame:
		s.handleInterrupt(msg)
	case protocol.UnknownFrame:
		s.dropFrame("unknown", "unrecognized frame kind", nil, "kind", msg.Type)
	}
}

// handleSetup acknowledges the transport handshake. Informational only and
// idempotent: it never produces an outbound frame.
func (s *Session) handleSetup(msg protocol.SetupFrame) {
	if msg.CallSID != "" {
		s.callSID = msg.CallSID
	}
	s.logger.Info("call setup received",
		"call_sid", msg.CallSID,
		"from", msg.From,
		"to", msg.To,
	)
}

// handleUtterance accepts one transcribed utterance into the turn queue. The
// queue preserves accept order, so replies cannot be reordered across turns.
func (s *Session) handleUtterance(msg protocol.PromptFrame) {
	s.lastUtterance = msg.VoicePrompt

	select {
	case s.prompts <- msg.VoicePrompt:
		turn := s.turns.Add(1)
		s.logger.Info("utterance accepted", "turn", turn, "chars", len(msg.VoicePrompt))
	default:
		// The caller is far ahead of the agent. Dropping is preferable
		// to blocking the read loop.
		s.dropFrame("queue_full", "turn queue full, utterance dropped", nil)
	}
}

// handleInterrupt records that playback was cut short. Informational only:
// replies are emitted atomically after the agent call completes, so there is
// nothing in flight to cancel.
func (s *Session) handleInterrupt(msg protocol.InterruptFrame) {
	s.logger.Info("playback interrupted",
		"utterance_until_interrupt", msg.UtteranceUntilInterrupt,
		"duration_ms", msg.DurationUntilInterruptMS,
	)
}

func (s *Session) dropFrame(reason, message string, err error, args ...any) {
	logArgs := append([]any{"reason", reason}, args...)
	if err != nil {
		logArgs = append(logArgs, "error", err)
	}
	s.logger.Warn(message, logArgs...)
	s.metrics.FrameDropped(reason)
}

// turnLoop drains the prompt queue one utterance at a time. Exactly one agent
// call is outstanding per session; the reply (or fallback) for each accepted
// utterance is enqueued in accept order. A result arriving after teardown is
// discarded, never written to a closed connection.
func (s *Session) turnLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.prompts:
			s.awaitingReply.Store(true)
			start := time.Now()
			reply := s.agent.Ask(s.ctx, text)
			elapsed := time.Since(start)
			s.awaitingReply.Store(false)

			s.metrics.TurnCompleted(reply == agent.FallbackApology, elapsed)

			select {
			case s.outbound <- protocol.NewTextFrame(reply):
			case <-s.ctx.Done():
				s.logger.Info("discarding reply for closed session")
				return
			}
		}
	}
}

// writeLoop owns the connection for writes: reply frames and ping keepalives.
// On teardown it sends a close frame and closes the connection, which also
// unblocks the reader.
func (s *Session) writeLoop() {
	defer s.wg.Done()

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			s.closeConn()
			return
		case <-pingTicker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				s.logger.Warn("ping failed", "error", err)
				s.cancel()
				s.closeConn()
				return
			}
		case frame := <-s.outbound:
			payload, err := json.Marshal(frame)
			if err != nil {
				s.logger.Error("encode reply frame", "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("write reply frame", "error", err)
				s.cancel()
				s.closeConn()
				return
			}
			s.logger.Info("reply sent", "chars", len(frame.Token))
		}
	}
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
