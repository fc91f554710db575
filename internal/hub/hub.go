// Package hub fans broker-summary snapshots out to websocket feed
// subscribers: each session subscribes to symbols, and a periodic
// broadcast loop pushes fresh snapshots to everyone watching them.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/feed"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// Provider supplies the snapshots the hub broadcasts.
type Provider interface {
	Get(ctx context.Context, symbol string) (*models.BrokerSummarySnapshot, error)
}

// Hub tracks live feed sessions and runs the broadcast loop.
type Hub struct {
	provider Provider
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// New creates a hub broadcasting fresh snapshots every interval.
func New(provider Provider, interval time.Duration) *Hub {
	return &Hub{
		provider: provider,
		interval: interval,
		log:      logger.Component("feed_hub"),
		now:      time.Now,
		sessions: make(map[*Session]struct{}),
	}
}

// Register attaches an upgraded websocket connection as a new feed
// session and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) *Session {
	s := newSession(h, conn, h.log)

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.log.Info().Str("session_id", s.id).Int("sessions", count).Msg("session connected")
	s.start()
	return s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	count := len(h.sessions)
	h.mu.Unlock()

	h.log.Info().Str("session_id", s.id).Int("sessions", count).Msg("session disconnected")
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Run drives the broadcast loop until ctx is cancelled. Each tick fetches
// every distinct watched symbol once and fans the snapshot out to its
// subscribers; a failed fetch turns into an error frame for those
// subscribers instead of killing the loop.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info().Dur("interval", h.interval).Msg("broadcast loop started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("broadcast loop stopped")
			return ctx.Err()
		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

func (h *Hub) broadcast(ctx context.Context) {
	for symbol, sessions := range h.watchers() {
		snap, err := h.provider.Get(ctx, symbol)
		if err != nil {
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("broadcast fetch failed")
			env, envErr := feed.NewEnvelope(feed.EventError, feed.ErrorPayload{Error: err.Error()})
			if envErr != nil {
				continue
			}
			for _, s := range sessions {
				s.queue(env)
			}
			continue
		}

		// The cache may serve an older generation; stamp the frame so
		// consumers see when this push happened.
		fresh := *snap
		fresh.LastUpdated = h.now().UTC().Format(time.RFC3339)

		env, err := feed.NewEnvelope(feed.EventData, &fresh)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("encode broadcast frame")
			continue
		}
		for _, s := range sessions {
			s.queue(env)
		}
	}
}

// watchers groups live sessions by watched symbol so each symbol is
// fetched once per tick regardless of subscriber count.
func (h *Hub) watchers() map[string][]*Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string][]*Session)
	for s := range h.sessions {
		for _, symbol := range s.subscriptions() {
			out[symbol] = append(out[symbol], s)
		}
	}
	return out
}
