package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"mychess/internal/core"
	"mychess/internal/server/hub"
)

const (
	heartbeatInterval = 10 * time.Second
	writeTimeout      = 5 * time.Second
	sessionBuffer     = 64
)

var (
	errSessionClosed = errors.New("session closed")
	errSessionSlow   = errors.New("session outbox full")
)

// LiveUpgrade checks the join token before the websocket handshake
func (h *HTTPHandler) LiveUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := h.tokens.Validate(c.Query("token"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
			Error: "invalid or expired token",
			Code:  core.ErrCodeUnauthorized,
		})
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

// Live serves an upgraded connection until either side closes it
func (h *HTTPHandler) Live() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		claims, ok := conn.Locals(claimsKey).(Claims)
		if !ok {
			conn.Close()
			return
		}
		s := newSession(h.hub, claims, h.log)
		h.log.Info("live session opened", zap.String("room", claims.Room), zap.String("user", claims.Username))

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.writeLoop(conn)
		}()

		for {
			var f core.Frame
			if err := conn.ReadJSON(&f); err != nil {
				h.log.Debug("live read ended", zap.String("user", claims.Username), zap.Error(err))
				break
			}
			s.handle(f)
		}

		s.close()
		<-done
		for _, code := range h.hub.Leave(s) {
			h.hub.Notify(code, claims.Username+" disconnected")
		}
		h.log.Info("live session closed", zap.String("room", claims.Room), zap.String("user", claims.Username))
	})
}

// session is one player's realtime connection. Frames are handled on the
// read side; everything written goes through out.
type session struct {
	hub    *hub.Hub
	claims Claims
	log    *zap.Logger

	out chan []byte

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
}

func newSession(h *hub.Hub, claims Claims, log *zap.Logger) *session {
	return &session{
		hub:    h,
		claims: claims,
		log:    log,
		out:    make(chan []byte, sessionBuffer),
		quit:   make(chan struct{}),
	}
}

// Deliver queues a message frame without blocking the hub
func (s *session) Deliver(topic string, body json.RawMessage) error {
	data, err := json.Marshal(core.Frame{Type: core.FrameMessage, Topic: topic, Body: body})
	if err != nil {
		return err
	}
	return s.push(data)
}

func (s *session) push(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	select {
	case s.out <- data:
		return nil
	default:
		return errSessionSlow
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.quit)
	}
}

// reply sends body on topic to this session only
func (s *session) reply(topic string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Deliver(topic, body); err != nil {
		s.log.Debug("reply dropped", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *session) handle(f core.Frame) {
	switch f.Type {
	case core.FrameSubscribe:
		s.subscribe(f.Topic)
	case core.FrameUnsubscribe:
		if code, ok := core.RoomFromTopic(f.Topic); ok {
			s.hub.Unsubscribe(code, s)
		}
	case core.FrameSend:
		s.send(f.Topic, f.Body)
	case core.FrameHeartbeat:
		// any inbound frame keeps the peer live
	default:
		s.log.Debug("unknown frame", zap.String("type", string(f.Type)))
	}
}

// subscribe joins a room topic and sends the current snapshot so a
// reconnecting client catches up
func (s *session) subscribe(topic string) {
	code, ok := core.RoomFromTopic(topic)
	if !ok || code != s.claims.Room {
		s.reply(topic, "subscription refused: token was issued for another room")
		return
	}
	if err := s.hub.Subscribe(code, s); err != nil {
		s.reply(topic, err.Error())
		return
	}
	if snap, err := s.hub.Room(code); err == nil {
		s.reply(topic, snap)
	}
}

// send handles a move; a rejected one is answered with a notice and the
// authoritative snapshot so the sender can roll back
func (s *session) send(dest string, body json.RawMessage) {
	code, ok := core.RoomFromDestination(dest)
	if !ok || code != s.claims.Room {
		s.log.Debug("send to foreign destination", zap.String("dest", dest))
		return
	}
	topic := core.RoomTopic(code)

	var move core.Move
	if err := json.Unmarshal(body, &move); err != nil {
		s.reply(topic, fmt.Sprintf("move rejected: %v", err))
		return
	}
	if _, err := s.hub.SubmitMove(code, s.claims.Participant(), move); err != nil {
		s.log.Debug("move rejected", zap.String("room", code), zap.String("user", s.claims.Username), zap.Error(err))
		s.reply(topic, fmt.Sprintf("move rejected: %v", err))
		if snap, err := s.hub.Room(code); err == nil {
			s.reply(topic, snap)
		}
	}
}

// writeLoop drains out and emits heartbeats until the session closes
func (s *session) writeLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	heartbeat, _ := json.Marshal(core.Frame{Type: core.FrameHeartbeat})

	write := func(data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("live write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case data := <-s.out:
			if !write(data) {
				s.close()
				conn.Close()
				return
			}
		case <-ticker.C:
			if !write(heartbeat) {
				s.close()
				conn.Close()
				return
			}
		case <-s.quit:
			return
		}
	}
}
