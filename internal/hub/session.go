package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/feed"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

// Session is one websocket feed subscriber. Reads and writes each run on
// their own pump goroutine; outbound frames go through a bounded send
// queue and a subscriber that cannot keep up loses frames rather than
// stalling the broadcast.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan feed.Envelope
	log  zerolog.Logger

	mu      sync.Mutex
	symbols map[string]struct{}
	closed  bool

	closeOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn, log zerolog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		hub:     h,
		conn:    conn,
		send:    make(chan feed.Envelope, sendBuffer),
		log:     log.With().Str("session_id", id).Logger(),
		symbols: make(map[string]struct{}),
	}
}

// start launches the read and write pumps.
func (s *Session) start() {
	go s.writePump()
	go s.readPump()
}

// subscriptions returns the session's current symbol set.
func (s *Session) subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// queue enqueues env for delivery, dropping it when the send buffer is
// full or the session is already closed. Late frames arrive from the
// broadcast loop and from in-flight initial fetches after disconnect, so
// the closed check and the send share the session mutex.
func (s *Session) queue(env feed.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- env:
	default:
		s.log.Warn().Str("event", env.Event).Msg("send queue full, dropping frame")
	}
}

// queueEvent marshals v and enqueues it under event.
func (s *Session) queueEvent(event string, v any) {
	env, err := feed.NewEnvelope(event, v)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("encode frame")
		return
	}
	s.queue(env)
}

// readPump consumes inbound directives until the connection breaks, then
// unregisters the session.
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("read pump closed")
			}
			return
		}

		var env feed.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.queueEvent(feed.EventError, feed.ErrorPayload{Error: "invalid frame"})
			continue
		}
		s.dispatch(env)
	}
}

// dispatch handles one inbound directive.
func (s *Session) dispatch(env feed.Envelope) {
	var req feed.SubscribeRequest
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.queueEvent(feed.EventError, feed.ErrorPayload{Error: "invalid payload"})
			return
		}
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	switch env.Event {
	case feed.EventSubscribe:
		if symbol == "" {
			s.queueEvent(feed.EventError, feed.ErrorPayload{Error: "symbol required"})
			return
		}
		s.mu.Lock()
		s.symbols[symbol] = struct{}{}
		s.mu.Unlock()

		s.queueEvent(feed.EventSubscribed, feed.SubscribeRequest{Symbol: symbol})
		// Initial snapshot is served async so a slow provider never blocks
		// the read pump.
		go s.sendInitial(symbol)

	case feed.EventUnsubscribe:
		s.mu.Lock()
		delete(s.symbols, symbol)
		s.mu.Unlock()

	default:
		// Unknown events are ignored so protocol additions stay
		// backward compatible.
		s.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

// sendInitial fetches and delivers the first snapshot after a subscribe.
func (s *Session) sendInitial(symbol string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := s.hub.provider.Get(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("initial snapshot failed")
		s.queueEvent(feed.EventError, feed.ErrorPayload{Error: err.Error()})
		return
	}
	s.queueEvent(feed.EventData, snap)
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. It owns the connection's lifecycle end: when the queue
// closes or a write fails, the socket goes down with it.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close unregisters the session and shuts the send queue down exactly
// once; the write pump closes the socket when it drains out. Marking the
// session closed under the mutex first means queue can never race the
// channel close: any send in flight holds the lock, and later calls see
// the flag and return.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.hub.unregister(s)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.send)
	})
}
