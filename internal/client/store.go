package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// Fetcher is the one-shot snapshot fetch contract used to cover the
// cold-start gap before the live channel delivers its first message. A
// result without a valid symbol, or an error, counts as failure; retrying
// is the caller's responsibility (e.g. pull-to-refresh), not automated
// here.
type Fetcher interface {
	FetchSummary(ctx context.Context, symbol string) (*models.BrokerSummarySnapshot, error)
}

// syncClient is the slice of *Client the store drives, narrowed so tests
// can substitute a fake.
type syncClient interface {
	Subscribe(symbol string)
	Disconnect()
	Reconnect()
	Close()
	Snapshots() <-chan models.BrokerSummarySnapshot
	States() <-chan ConnState
	Errors() <-chan string
}

// ViewState is the complete UI-facing state for one symbol: the latest
// snapshot (if any), the connection state, and a user-visible error
// message ("" when none). It is published as a whole on every change so a
// consumer never has to merge partial updates.
type ViewState struct {
	Symbol       string
	Snapshot     *models.BrokerSummarySnapshot
	Conn         ConnState
	ErrorMessage string
}

// Store is the caller-facing orchestration layer: it performs the one-shot
// fetch for an immediate snapshot, opens the live subscription for ongoing
// updates, and reconciles both into a single observable state stream.
//
// The store is owned by whatever screen or command needs it; Close ties
// its lifecycle to that owner.
type Store struct {
	fetcher Fetcher
	client  syncClient
	log     zerolog.Logger

	mu     sync.Mutex
	cur    ViewState
	closed bool

	updates chan ViewState
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewStore wires a store to its fetcher and sync client and starts the
// goroutine that pumps the client's streams into the view state.
func NewStore(fetcher Fetcher, cl syncClient) *Store {
	s := &Store{
		fetcher: fetcher,
		client:  cl,
		log:     logger.Component("summary_store"),
		cur:     ViewState{Conn: StateDisconnected},
		updates: make(chan ViewState, streamBuffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pump()
	return s
}

// Updates is the observable stream of view states. Like the client
// streams it is drained last-write-wins when the consumer lags.
func (s *Store) Updates() <-chan ViewState { return s.updates }

// Current returns a copy of the current view state.
func (s *Store) Current() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// LoadOrSubscribe requests data for a symbol: one-shot fetch first for an
// immediate snapshot, then the live subscription for ongoing updates.
//
// The two failure domains are independent: a fetch failure sets the
// error message but still opens the live subscription. A request for the
// symbol currently loaded is a no-op when a snapshot is already held; use
// Refresh to force a reload.
//
// Returns an error only for an empty symbol or a closed store; fetch
// failures degrade to view state, they are never propagated.
func (s *Store) LoadOrSubscribe(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("load: empty symbol")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("load %s: store closed", symbol)
	}
	if symbol == s.cur.Symbol && s.cur.Snapshot != nil {
		// Duplicate-request suppression.
		s.mu.Unlock()
		return nil
	}
	s.cur = ViewState{Symbol: symbol, Conn: s.cur.Conn}
	s.publishLocked()
	s.mu.Unlock()

	s.load(ctx, symbol)
	return nil
}

// Refresh re-runs the fetch-then-subscribe sequence for the currently
// loaded symbol, bypassing duplicate-request suppression.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("refresh: store closed")
	}
	symbol := s.cur.Symbol
	s.mu.Unlock()
	if symbol == "" {
		return fmt.Errorf("refresh: no symbol loaded")
	}

	s.load(ctx, symbol)
	return nil
}

// load performs the one-shot fetch and then opens the live subscription
// regardless of the fetch outcome.
func (s *Store) load(ctx context.Context, symbol string) {
	snap, err := s.fetcher.FetchSummary(ctx, symbol)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// A later request may have switched symbols while the fetch was in
	// flight; its result must not leak into the new symbol's state.
	if s.cur.Symbol == symbol {
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("one-shot fetch failed")
			s.cur.ErrorMessage = fmt.Sprintf("failed to load %s", symbol)
		} else {
			s.cur.Snapshot = snap
			s.cur.ErrorMessage = ""
		}
		s.publishLocked()
	}
	s.mu.Unlock()

	s.client.Subscribe(symbol)
}

// Disconnect ends the live subscription explicitly (auto-reconnect
// suppressed). The loaded snapshot stays visible.
func (s *Store) Disconnect() { s.client.Disconnect() }

// Reconnect re-issues the subscription for the last-known symbol.
func (s *Store) Reconnect() { s.client.Reconnect() }

// Close releases the store: the sync client is closed, the pump drained,
// and the updates stream closed. No callbacks fire afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.client.Close()
	s.wg.Wait()
	close(s.updates)
}

// pump reconciles the client's three streams into the single view state.
func (s *Store) pump() {
	defer s.wg.Done()

	snaps := s.client.Snapshots()
	states := s.client.States()
	errs := s.client.Errors()

	for {
		select {
		case <-s.done:
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			s.applySnapshot(snap)
		case st, ok := <-states:
			if !ok {
				return
			}
			s.applyConnState(st)
		case msg, ok := <-errs:
			if !ok {
				return
			}
			s.applyFeedError(msg)
		}
	}
}

// applySnapshot replaces the held snapshot wholesale and clears any fetch
// error: a live update unconditionally supersedes the one-shot result.
func (s *Store) applySnapshot(snap models.BrokerSummarySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.cur.Symbol != "" && snap.Symbol != s.cur.Symbol {
		s.log.Debug().Str("got", snap.Symbol).Str("want", s.cur.Symbol).Msg("stale snapshot ignored")
		return
	}
	s.cur.Snapshot = &snap
	s.cur.ErrorMessage = ""
	s.publishLocked()
}

func (s *Store) applyConnState(st ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cur.Conn = st
	s.publishLocked()
}

// applyFeedError records the error message; the last good snapshot stays
// visible (stale-but-valid beats empty).
func (s *Store) applyFeedError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cur.ErrorMessage = msg
	s.publishLocked()
}

func (s *Store) publishLocked() {
	pushLatest(s.updates, s.cur)
}
