// Package server provides the WebSocket chat server: one conversation session
// per connection, plus health, statistics and Prometheus endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/raphaelgruber/profilechat/internal/metrics"
	"github.com/raphaelgruber/profilechat/internal/protocol"
)

// maxFrameSize bounds a single client frame.
const maxFrameSize = 64 * 1024

// Deps holds the collaborators of the server.
type Deps struct {
	Engine            *conversation.Engine
	Exporter          *conversation.Exporter
	SystemInstruction string

	Collector *metrics.Collector
	// Prometheus and Gatherer are optional. Without a Gatherer /metrics
	// serves the default registry.
	Prometheus *metrics.Prometheus
	Gatherer   prometheus.Gatherer
}

// Server serves chat sessions over WebSocket.
type Server struct {
	deps     Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a new chat server.
func New(deps Deps, logger *slog.Logger) *Server {
	if deps.Collector == nil {
		deps.Collector = metrics.NewCollector()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.deps.Collector.Snapshot()); err != nil {
			s.logger.Warn("failed to encode stats", "error", err)
		}
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	return LoggingMiddleware(s.logger)(mux)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxFrameSize)

	session := conversation.NewSession(s.deps.Engine, s.deps.Exporter, s.deps.SystemInstruction)
	s.deps.Collector.SessionStarted()
	if s.deps.Prometheus != nil {
		s.deps.Prometheus.ActiveSessions.Inc()
		defer s.deps.Prometheus.ActiveSessions.Dec()
	}

	logger := s.logger.With("session", session.ID)
	logger.Info("session started", "remote", r.RemoteAddr)
	defer func() {
		logger.Info("session closed", "turns", session.Len())
	}()

	opts := s.deps.Engine.Options()
	hello := protocol.HelloMessage{
		BaseMessage: protocol.Base(protocol.TypeHello, session.ID),
		Model:       opts.ModelID,
		Provider:    opts.Provider,
		Greeting:    conversation.Greeting,
	}
	if err := ws.WriteJSON(hello); err != nil {
		logger.Warn("failed to send hello", "error", err)
		return
	}

	// Frames of one connection are served one at a time, so the session
	// never sees concurrent submissions.
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket error", "error", err)
			}
			return
		}

		reply := s.handleFrame(r.Context(), session, data)
		if err := ws.WriteJSON(reply); err != nil {
			logger.Warn("failed to write frame", "error", err)
			return
		}
	}
}

// handleFrame dispatches one client frame and returns the reply frame.
func (s *Server) handleFrame(ctx context.Context, session *conversation.Session, data []byte) any {
	start := time.Now()
	frameType, err := protocol.PeekType(data)
	if err != nil {
		logFrame(s.logger, session.ID, "", "", time.Since(start), err)
		return errorFrame(session.ID, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
	}

	var (
		reply any
		text  string
	)
	switch frameType {
	case protocol.TypeSubmit:
		var msg protocol.SubmitMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			reply = errorFrame(session.ID, protocol.ErrorCodeInvalidMessage, "invalid submit message")
			break
		}
		text = msg.Text
		if strings.TrimSpace(text) == "" {
			err = errors.New("empty message")
			reply = errorFrame(session.ID, protocol.ErrorCodeEmptyMessage, "text is required")
			break
		}
		turn := session.Submit(ctx, text)
		reply = protocol.TurnMessage{
			BaseMessage: protocol.Base(protocol.TypeTurn, session.ID),
			Turn:        turn,
			Count:       session.Len(),
		}

	case protocol.TypeReset:
		session.Reset()
		reply = protocol.Base(protocol.TypeResetOK, session.ID)

	case protocol.TypeExport:
		reply, err = s.export(session)

	default:
		err = fmt.Errorf("unknown message type: %s", frameType)
		reply = errorFrame(session.ID, protocol.ErrorCodeInvalidMessage, err.Error())
	}

	logFrame(s.logger, session.ID, frameType, text, time.Since(start), err)
	return reply
}

func (s *Server) export(session *conversation.Session) (any, error) {
	if !session.Started() {
		return errorFrame(session.ID, protocol.ErrorCodeNothingToSave, "no messages to save"), nil
	}

	start := time.Now()
	path, err := session.Export()
	s.deps.Collector.RecordTiming(metrics.OpExport, time.Since(start))
	if err != nil {
		return errorFrame(session.ID, protocol.ErrorCodeExportFailed, err.Error()), err
	}
	return protocol.ExportedMessage{
		BaseMessage: protocol.Base(protocol.TypeExported, session.ID),
		Path:        path,
	}, nil
}

func errorFrame(sessionID, code, message string) protocol.ErrorMessage {
	return protocol.ErrorMessage{
		BaseMessage: protocol.Base(protocol.TypeError, sessionID),
		Code:        code,
		Message:     message,
	}
}
