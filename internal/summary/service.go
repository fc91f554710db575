package summary

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/logger"
)

const cacheKeyPrefix = "broker_summary:"

// Service serves broker-summary snapshots for a symbol.
type Service interface {
	// Get returns the current snapshot for symbol, from cache when fresh.
	Get(ctx context.Context, symbol string) (*models.BrokerSummarySnapshot, error)

	// Ping reports whether the service's backing stores are reachable.
	Ping(ctx context.Context) error
}

// service is the cache-aside implementation: cache hit wins, otherwise the
// vendor override file (when configured) and finally the generator, with
// the fresh result written back under the snapshot TTL.
type service struct {
	cache        Cache
	gen          *Generator
	overridePath string
	ttl          time.Duration
	log          zerolog.Logger
}

// NewService creates a snapshot service.
//
// Parameters:
//   - cache: snapshot cache (redis or in-process).
//   - gen: quote-derived snapshot generator, used on cache miss.
//   - overridePath: optional path to a vendor orderflow export; when the
//     file exists it takes priority over the generator.
//   - ttl: cache lifetime for generated snapshots.
func NewService(cache Cache, gen *Generator, overridePath string, ttl time.Duration) Service {
	return &service{
		cache:        cache,
		gen:          gen,
		overridePath: overridePath,
		ttl:          ttl,
		log:          logger.Component("summary_service"),
	}
}

func (s *service) Get(ctx context.Context, symbol string) (*models.BrokerSummarySnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := cacheKeyPrefix + symbol

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		// Cache trouble degrades to a fresh generate; the request still
		// gets served.
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache read failed")
	} else if ok {
		if snap, err := models.ParseSnapshot(raw); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("dropping corrupt cache entry")
		} else {
			return snap, nil
		}
	}

	snap := s.fresh(ctx, symbol)

	if raw, err := json.Marshal(snap); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
		}
	}
	return snap, nil
}

// fresh produces a snapshot bypassing the cache. The vendor override file
// is checked per request so dropping a new export into place takes effect
// without a restart.
func (s *service) fresh(ctx context.Context, symbol string) *models.BrokerSummarySnapshot {
	if s.overridePath != "" {
		if _, err := os.Stat(s.overridePath); err == nil {
			snap, err := LoadVendorExport(s.overridePath, symbol)
			if err == nil {
				s.log.Info().Str("symbol", symbol).Str("path", s.overridePath).Msg("serving vendor export")
				return snap
			}
			s.log.Warn().Err(err).Str("path", s.overridePath).Msg("vendor export unusable, generating instead")
		}
	}
	return s.gen.Generate(ctx, symbol)
}

func (s *service) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
