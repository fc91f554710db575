// Package client implements the live broker-summary sync client: a
// reconnecting subscription over a push transport, typed payload ingestion,
// and the caller-facing store that merges one-shot fetches with live
// updates.
package client

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/feed"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// ConnState is the connection state exposed to consumers to drive UI
// (e.g. a "Reconnecting…" banner).
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

// Config holds the client's reconnect policy. The delay before retry n
// (1-indexed) is BaseDelay * n; after MaxAttempts consecutive failures the
// client stays disconnected until an explicit subscribe or Reconnect call.
type Config struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

const streamBuffer = 16

// afterFunc is an indirection over time.AfterFunc so tests can capture
// scheduled reconnect delays and fire timers deterministically.
var afterFunc = time.AfterFunc

// Client maintains a single-symbol subscription to the broker-summary
// feed. It parses incoming payloads into typed snapshots, exposes
// connection-state and data streams, and reconnects with linear backoff
// after unexpected disconnects.
//
// One symbol is live at a time per instance; subscribing to a different
// symbol tears the previous session down completely first. All mutable
// state is guarded by mu because transport callbacks and API calls arrive
// on different goroutines.
type Client struct {
	cfg Config
	tr  Transport
	log zerolog.Logger

	mu       sync.Mutex
	symbol   string
	state    ConnState
	attempts int
	timer    *time.Timer
	session  uint64
	closed   bool

	// diagnostic counter for silently discarded payloads
	dropped atomic.Uint64

	snapshots chan models.BrokerSummarySnapshot
	states    chan ConnState
	errs      chan string
}

// New creates a sync client on top of the given transport and registers
// its lifecycle and event handlers. The client starts disconnected; call
// Subscribe to go live.
func New(tr Transport, cfg Config) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	c := &Client{
		cfg:       cfg,
		tr:        tr,
		log:       logger.Component("sync_client"),
		state:     StateDisconnected,
		snapshots: make(chan models.BrokerSummarySnapshot, streamBuffer),
		states:    make(chan ConnState, streamBuffer),
		errs:      make(chan string, streamBuffer),
	}

	tr.OnConnect(c.transportOpened)
	tr.OnDisconnect(c.transportClosed)
	tr.OnConnectError(c.transportClosed)
	tr.OnEvent(feed.EventData, c.ingestData)
	tr.OnEvent(feed.EventError, c.ingestError)
	tr.OnEvent(feed.EventSubscribed, c.ingestAck)

	return c
}

// Snapshots is the stream of valid live snapshots. When the consumer lags,
// the newest value wins (older buffered ones are discarded, never merged).
func (c *Client) Snapshots() <-chan models.BrokerSummarySnapshot { return c.snapshots }

// States is the stream of connection-state transitions.
func (c *Client) States() <-chan ConnState { return c.states }

// Errors is the stream of feed-reported error messages. An error never
// clears the last good snapshot.
func (c *Client) Errors() <-chan string { return c.errs }

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Symbol returns the symbol of the current (or last) subscription, or ""
// if none was ever requested.
func (c *Client) Symbol() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbol
}

// Dropped reports how many malformed live payloads have been silently
// discarded since the client was created.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Subscribe opens (or switches) the live subscription for a symbol.
//
// Idempotent while connected to the same symbol. For a different symbol
// the existing session is torn down completely (unsubscribe directive if
// connected, transport closed, pending reconnect timer cancelled, retry
// counter reset) before the new one is established.
func (c *Client) Subscribe(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		c.log.Warn().Msg("subscribe ignored: empty symbol")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if symbol == c.symbol && c.state == StateConnected {
		return
	}

	c.teardownLocked()
	c.symbol = symbol
	c.connectLocked()
}

// Disconnect ends the session explicitly. It sends an unsubscribe
// directive if connected, closes the transport, cancels any pending
// reconnect timer and clears retry state. This is the only transition
// that suppresses auto-reconnect; the last symbol is remembered for
// Reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.teardownLocked()
}

// Reconnect re-issues the subscription for the last-known symbol, if one
// exists. Typically wired to a manual "reconnect" action after the retry
// budget was exhausted.
func (c *Client) Reconnect() {
	c.mu.Lock()
	symbol := c.symbol
	c.mu.Unlock()
	if symbol == "" {
		return
	}
	c.Subscribe(symbol)
}

// Close tears everything down and releases the streams. No callbacks or
// channel sends happen after Close returns.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.closed = true
	c.mu.Unlock()

	close(c.snapshots)
	close(c.states)
	close(c.errs)
}

// teardownLocked dismantles the current session: pending timer cancelled,
// session generation bumped so late callbacks and timers become no-ops,
// unsubscribe sent when connected, transport closed, retry counter reset.
// Publishes the disconnected state if it changed.
func (c *Client) teardownLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.session++
	c.attempts = 0

	if c.state == StateDisconnected {
		return // nothing live to dismantle
	}
	if c.state == StateConnected && c.symbol != "" {
		if err := c.tr.Emit(feed.EventUnsubscribe, feed.SubscribeRequest{Symbol: c.symbol}); err != nil {
			c.log.Debug().Err(err).Str("symbol", c.symbol).Msg("unsubscribe directive failed")
		}
	}
	c.tr.Disconnect()
	c.setStateLocked(StateDisconnected)
}

func (c *Client) connectLocked() {
	c.setStateLocked(StateConnecting)
	c.tr.Connect()
}

// transportOpened handles a successful transport open: reset the retry
// counter and immediately send the subscribe directive for the current
// symbol.
func (c *Client) transportOpened() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateConnecting {
		return
	}

	c.attempts = 0
	c.setStateLocked(StateConnected)
	if err := c.tr.Emit(feed.EventSubscribe, feed.SubscribeRequest{Symbol: c.symbol}); err != nil {
		c.log.Warn().Err(err).Str("symbol", c.symbol).Msg("subscribe directive failed")
	}
}

// transportClosed handles both connect errors and drops of an established
// connection. Unexpected closes schedule a reconnect; explicit teardowns
// never reach here because teardownLocked bumps the session generation
// before closing the transport.
func (c *Client) transportClosed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.symbol == "" {
		return
	}
	if c.state == StateDisconnected || c.state == StateReconnecting {
		return
	}

	c.log.Info().Err(err).Str("symbol", c.symbol).Msg("transport closed")
	c.setStateLocked(StateDisconnected)
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked counts the failed attempt and either arms the
// next retry timer (delay = BaseDelay * failures) or, once MaxAttempts
// consecutive failures are reached, leaves the client disconnected until
// an explicit subscribe.
func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts >= c.cfg.MaxAttempts {
		c.log.Warn().
			Int("attempts", c.attempts).
			Str("symbol", c.symbol).
			Msg("reconnect attempts exhausted")
		return
	}

	delay := time.Duration(c.attempts) * c.cfg.BaseDelay
	c.setStateLocked(StateReconnecting)

	session := c.session
	c.timer = afterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.session != session || c.state != StateReconnecting {
			return
		}
		c.connectLocked()
	})
}

// ingestData is the sole path by which snapshot consumers receive updates.
// Malformed payloads are dropped silently: logged and counted, but never
// surfaced as a user-facing error and never allowed to touch previously
// delivered state.
func (c *Client) ingestData(data json.RawMessage) {
	snap, err := models.ParseSnapshot(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err != nil {
		c.dropped.Add(1)
		c.log.Debug().Err(err).Msg("malformed feed payload dropped")
		return
	}
	pushLatest(c.snapshots, *snap)
}

// ingestError surfaces a feed-reported error without altering snapshot
// state.
func (c *Client) ingestError(data json.RawMessage) {
	var payload feed.ErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = "feed error"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	pushLatest(c.errs, payload.Error)
}

func (c *Client) ingestAck(data json.RawMessage) {
	var ack feed.SubscribeRequest
	_ = json.Unmarshal(data, &ack)
	c.log.Debug().Str("symbol", ack.Symbol).Msg("subscription acknowledged")
}

func (c *Client) setStateLocked(s ConnState) {
	if c.state == s {
		return
	}
	c.log.Debug().Str("from", string(c.state)).Str("to", string(s)).Msg("state transition")
	c.state = s
	pushLatest(c.states, s)
}

// pushLatest delivers v without ever blocking a transport callback: when
// the buffer is full the oldest value is evicted, so a lagging consumer
// observes the most recent values (last-write-wins).
func pushLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
