package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/feed"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// Transport is the push-channel contract the sync client drives. It mirrors
// the feed server's event protocol: connect/disconnect lifecycle, emit for
// outbound directives, and handler registration for lifecycle and named
// data events.
//
// Connect is asynchronous: it returns immediately and the outcome arrives
// via the OnConnect or OnConnectError handler. Handlers must be registered
// before the first Connect call.
type Transport interface {
	Connect()
	Disconnect()
	Emit(event string, payload any) error

	OnConnect(fn func())
	OnDisconnect(fn func(err error))
	OnConnectError(fn func(err error))
	OnEvent(event string, fn func(data json.RawMessage))
}

// WSOptions tunes the websocket transport.
//
// DialAttempts and DialRetryDelay are the transport-level reconnection cap
// and delay: a single logical Connect may retry the dial that many times
// before reporting a connect error. This sits underneath, and does not
// replace, the sync client's own reconnect state machine.
type WSOptions struct {
	HandshakeTimeout time.Duration
	DialAttempts     int
	DialRetryDelay   time.Duration
}

// WSTransport implements Transport over a gorilla websocket connection
// speaking the feed.Envelope protocol.
//
// Lifecycle callbacks fire only for the current connection generation:
// once Disconnect is called, late dial results and read-loop errors from
// the torn-down connection are swallowed instead of reaching the client.
type WSTransport struct {
	url  string
	opts WSOptions
	log  zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	gen  uint64

	onConnect      func()
	onDisconnect   func(error)
	onConnectError func(error)
	handlers       map[string]func(json.RawMessage)
}

// NewWSTransport creates a websocket transport for the given feed URL
// (e.g. "ws://host:8080/ws"). Zero option fields get sane defaults.
func NewWSTransport(url string, opts WSOptions) *WSTransport {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.DialAttempts <= 0 {
		opts.DialAttempts = 1
	}
	if opts.DialRetryDelay <= 0 {
		opts.DialRetryDelay = 500 * time.Millisecond
	}
	return &WSTransport{
		url:      url,
		opts:     opts,
		log:      logger.Component("ws_transport"),
		handlers: make(map[string]func(json.RawMessage)),
	}
}

// OnConnect registers the successful-open handler.
func (t *WSTransport) OnConnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnect = fn
}

// OnDisconnect registers the handler invoked when an established
// connection drops.
func (t *WSTransport) OnDisconnect(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnect = fn
}

// OnConnectError registers the handler invoked when a dial fails after
// exhausting the transport-level retries.
func (t *WSTransport) OnConnectError(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnectError = fn
}

// OnEvent registers a handler for a named feed event. Events without a
// handler are logged at debug level and dropped.
func (t *WSTransport) OnEvent(event string, fn func(data json.RawMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = fn
}

// Connect starts an asynchronous dial. The result is delivered via
// OnConnect / OnConnectError; a Disconnect issued while the dial is in
// flight cancels delivery.
func (t *WSTransport) Connect() {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.dial(gen)
}

func (t *WSTransport) dial(gen uint64) {
	dialer := websocket.Dialer{HandshakeTimeout: t.opts.HandshakeTimeout}

	var conn *websocket.Conn
	var err error
	for attempt := 1; attempt <= t.opts.DialAttempts; attempt++ {
		conn, _, err = dialer.Dial(t.url, nil)
		if err == nil {
			break
		}
		t.log.Debug().Err(err).Int("attempt", attempt).Str("url", t.url).Msg("dial failed")
		if attempt < t.opts.DialAttempts {
			time.Sleep(t.opts.DialRetryDelay)
		}
	}

	if err != nil {
		t.mu.Lock()
		stale := gen != t.gen
		cb := t.onConnectError
		t.mu.Unlock()
		if !stale && cb != nil {
			cb(fmt.Errorf("dial %s: %w", t.url, err))
		}
		return
	}

	t.mu.Lock()
	if gen != t.gen {
		// Disconnect raced the dial; drop the connection silently.
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.conn = conn
	cb := t.onConnect
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	t.readLoop(gen, conn)
}

func (t *WSTransport) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		var env feed.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.mu.Lock()
			live := gen == t.gen && t.conn == conn
			if live {
				t.conn = nil
			}
			cb := t.onDisconnect
			t.mu.Unlock()

			_ = conn.Close()
			if live && cb != nil {
				cb(err)
			}
			return
		}

		t.mu.Lock()
		handler := t.handlers[env.Event]
		t.mu.Unlock()

		if handler == nil {
			t.log.Debug().Str("event", env.Event).Msg("no handler for feed event")
			continue
		}
		handler(env.Data)
	}
}

// Emit sends an event envelope on the current connection. Returns an error
// if the transport is not connected or the write fails.
func (t *WSTransport) Emit(event string, payload any) error {
	env, err := feed.NewEnvelope(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("emit %s: transport not connected", event)
	}
	return t.conn.WriteJSON(env)
}

// Disconnect tears the current connection down and invalidates any
// in-flight dial. No callbacks fire for the torn-down generation.
func (t *WSTransport) Disconnect() {
	t.mu.Lock()
	t.gen++
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
}
