// Package gateway exposes the speaking hub over a websocket endpoint. The
// surrounding platform authenticates connections before they reach this
// service; the caller identity arrives as an opaque header and is passed
// through to the hub untouched.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siuteam/speaklab/internal/config"
	"github.com/siuteam/speaklab/internal/hub"
	"github.com/siuteam/speaklab/internal/speech"
)

const (
	callerIDHeader = "X-Caller-ID"
	callerIDQuery  = "caller_id"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// Outbound events queue here per connection; a learner that cannot
	// drain this many events is dropped rather than allowed to stall
	// publishers.
	sendQueueSize = 32
)

type Server struct {
	cfg        *config.Config
	hub        *hub.Hub
	engine     speech.Engine
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

func NewServer(cfg *config.Config, h *hub.Hub, engine speech.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    h,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the fronting proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("/ws/speaking", s.handleSpeaking)
	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run() error {
	slog.Info("gateway listening", "addr", s.cfg.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.engine.CheckHealth(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","speech_engine":"unreachable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleSpeaking(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get(callerIDHeader)
	if callerID == "" {
		callerID = r.URL.Query().Get(callerIDQuery)
	}
	if callerID == "" {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	slog.Info("connection opened", "caller_id", callerID, "remote_addr", r.RemoteAddr)

	c := &conn{
		callerID: callerID,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
	// Inbound frames carry base64 audio, which inflates the configured
	// chunk bound by 4/3 plus the JSON envelope.
	ws.SetReadLimit(int64(s.cfg.MaxChunkBytes)*2 + 4096)

	go c.writePump()
	s.readLoop(c)
}

// inboundMessage is one client request frame. Audio arrives base64-encoded
// and decodes into bytes via encoding/json.
type inboundMessage struct {
	Action       string `json:"action"`
	SessionID    string `json:"session_id"`
	LessonID     string `json:"lesson_id"`
	ExpectedText string `json:"expected_text"`
	Audio        []byte `json:"audio"`
	ContentType  string `json:"content_type"`
	Text         string `json:"text"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (s *Server) readLoop(c *conn) {
	defer func() {
		s.hub.HandleDisconnect(c)
		c.close()
		slog.Info("connection closed", "caller_id", c.callerID)
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err, "caller_id", c.callerID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Deliver(hub.ErrorEvent{Code: hub.CodeBadInput, Detail: "malformed request frame"})
			continue
		}
		// Each request runs on its own goroutine so a slow engine call
		// never blocks later frames from this connection.
		go s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *conn, msg inboundMessage) {
	ctx := context.Background()
	switch msg.Action {
	case "start_session":
		s.hub.StartSession(ctx, c, msg.LessonID, msg.ExpectedText)
	case "submit_chunk":
		s.hub.SubmitChunk(ctx, c, msg.SessionID, msg.Audio, msg.ContentType)
	case "end_session":
		s.hub.EndSession(ctx, c, msg.SessionID, msg.Audio, msg.ContentType, msg.ExpectedText)
	case "phonetic_feedback":
		s.hub.PhoneticFeedback(ctx, c, msg.Text)
	default:
		c.Deliver(hub.ErrorEvent{Code: hub.CodeBadInput, Detail: "unknown action"})
	}
}

// conn adapts one websocket connection to the hub's Client contract. Writes
// go through a buffered queue drained by a single writer goroutine.
type conn struct {
	callerID string
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closeOne sync.Once
}

func (c *conn) CallerID() string { return c.callerID }

func (c *conn) Deliver(event hub.Event) {
	payload, err := json.Marshal(outboundEnvelope{Event: event.EventName(), Data: event})
	if err != nil {
		slog.Error("failed to marshal outbound event", "error", err, "event", event.EventName())
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		slog.Warn("dropping event for slow connection", "caller_id", c.callerID, "event", event.EventName())
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *conn) close() {
	c.closeOne.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
