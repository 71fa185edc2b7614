package ws

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/noteduco342/moim-backend/internal/live"
)

// Session is one WebSocket connection and the live subscriptions it holds.
type Session struct {
	ID           string
	UserID       string
	Conn         *websocket.Conn
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	pongTimeout time.Duration

	mu       sync.Mutex
	lastPong time.Time
	subs     map[string]*live.Subscription
}

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Send writes v as JSON. Frames over 512 bytes are gzipped when the client
// supports it and compression helps.
func (s *Session) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Push writes a registered message in its wire envelope.
func (s *Session) Push(msg Message) error {
	data, err := Serialize(msg)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Session) write(data []byte) error {
	frameType := websocket.TextMessage
	if s.SupportsGzip && len(data) > 512 {
		if compressed, err := compressData(data); err == nil && len(compressed) < len(data) {
			data = compressed
			frameType = websocket.BinaryMessage
		}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.Conn.WriteMessage(frameType, data)
}

// touch records client activity as proof the connection is alive and pushes
// the read deadline out. It runs on the read goroutine only.
func (s *Session) touch() error {
	now := time.Now()
	s.mu.Lock()
	s.lastPong = now
	s.mu.Unlock()
	return s.Conn.SetReadDeadline(now.Add(s.pongTimeout))
}

// Subscribed reports whether the session already follows topic.
func (s *Session) Subscribed(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[topic]
	return ok
}

// addSubscription records sub under topic. It returns false when the topic is
// already held and the caller must discard sub.
func (s *Session) addSubscription(topic string, sub *live.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[topic]; ok || s.ctx.Err() != nil {
		return false
	}
	s.subs[topic] = sub
	return true
}

// forget drops the record of an ended subscription without waiting on it.
func (s *Session) forget(topic string, sub *live.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[topic] == sub {
		delete(s.subs, topic)
	}
}

// unsubscribe ends the subscription on topic, if any.
func (s *Session) unsubscribe(topic string) bool {
	s.mu.Lock()
	sub, ok := s.subs[topic]
	delete(s.subs, topic)
	s.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
	return ok
}

func (s *Session) close() {
	s.cancel()
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*live.Subscription)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Hub tracks open sessions and keeps them alive with pings.
type Hub struct {
	sessions     map[string]*Session
	sessionsMux  sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewHub() *Hub {
	hub := &Hub{
		sessions:     make(map[string]*Session),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
		stop:         make(chan struct{}),
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a connection and starts its ping routine.
func (h *Hub) Register(userID string, conn *websocket.Conn, supportsGzip bool) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Conn:         conn,
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		pongTimeout:  h.pongTimeout,
		lastPong:     time.Now(),
		subs:         make(map[string]*live.Subscription),
	}

	conn.SetPongHandler(func(appData string) error {
		return session.touch()
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.sessionsMux.Lock()
	h.sessions[session.ID] = session
	count := len(h.sessions)
	h.sessionsMux.Unlock()

	go h.pingRoutine(session)

	log.Printf("ws session opened user=%s session=%s total=%d gzip=%v", userID, session.ID, count, supportsGzip)
	return session
}

// Unregister closes the session's subscriptions and forgets it. Calling it
// twice is harmless.
func (h *Hub) Unregister(session *Session) {
	h.sessionsMux.Lock()
	_, exists := h.sessions[session.ID]
	if exists {
		session.PingTicker.Stop()
		close(session.CloseChan)
		delete(h.sessions, session.ID)
	}
	count := len(h.sessions)
	h.sessionsMux.Unlock()

	if !exists {
		return
	}
	session.close()
	log.Printf("ws session closed user=%s session=%s total=%d", session.UserID, session.ID, count)
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.sessionsMux.RLock()
	defer h.sessionsMux.RUnlock()
	return len(h.sessions)
}

// Close stops the health checker and ends every session.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.sessionsMux.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessionsMux.RUnlock()
	for _, s := range sessions {
		h.Unregister(s)
	}
}

func (h *Hub) pingRoutine(session *Session) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ping routine recovered session=%s panic=%v", session.ID, r)
		}
	}()

	for {
		select {
		case <-session.CloseChan:
			return
		case <-session.PingTicker.C:
			if err := session.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("ping failed session=%s err=%v", session.ID, err)
				h.Unregister(session)
				return
			}
		}
	}
}

// connectionHealthChecker removes sessions that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		now := time.Now()
		dead := make([]*Session, 0)
		h.sessionsMux.RLock()
		for _, s := range h.sessions {
			s.mu.Lock()
			if now.Sub(s.lastPong) > h.pongTimeout {
				dead = append(dead, s)
			}
			s.mu.Unlock()
		}
		h.sessionsMux.RUnlock()

		for _, s := range dead {
			log.Printf("removing dead session=%s user=%s (no pong received)", s.ID, s.UserID)
			h.Unregister(s)
		}
	}
}

func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
