package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MarketMakerAction classifies the dominant flow direction in a broker
// summary: accumulation (BUYING), distribution (SELLING), or neither.
type MarketMakerAction string

const (
	ActionBuying  MarketMakerAction = "BUYING"
	ActionSelling MarketMakerAction = "SELLING"
	ActionNeutral MarketMakerAction = "NEUTRAL"
)

// NormalizeAction maps a raw action label to one of the three known
// values. Anything unrecognized (including empty) degrades to NEUTRAL so
// that a cosmetic field never causes a whole payload to be rejected.
func NormalizeAction(s string) MarketMakerAction {
	switch MarketMakerAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuying:
		return ActionBuying
	case ActionSelling:
		return ActionSelling
	default:
		return ActionNeutral
	}
}

// BrokerActivityEntry is one broker's contribution within a snapshot.
//
// Value is a pre-formatted magnitude label produced by the source
// (e.g. "12.3B"); unit and sign are baked in and the entry is displayed
// verbatim.
type BrokerActivityEntry struct {
	BrokerCode string `json:"broker" example:"YP"`
	Value      string `json:"value" example:"12.3B"`
	AvgPrice   int64  `json:"avg_price" example:"5025"`
	Volume     int64  `json:"volume" example:"1500000"`
}

// BrokerSummarySnapshot is one complete, self-consistent broker-summary
// record for a symbol at a point in time.
//
// Snapshots are replaced wholesale: consumers never merge fields from two
// snapshots, and TopBuyers/TopSellers keep the source's rank order
// (most significant first) without re-sorting.
//
// LastUpdated carries the source timestamp verbatim (ISO-8601 string,
// possibly without a zone); use UpdatedTime to interpret it.
type BrokerSummarySnapshot struct {
	Symbol            string                `json:"symbol" example:"BBCA"`
	MarketMakerAction MarketMakerAction     `json:"market_maker_action" example:"BUYING"`
	AvgPrice          int64                 `json:"avg_price" example:"5000"`
	DominantBroker    string                `json:"dominant_broker" example:"YP"`
	TopBuyers         []BrokerActivityEntry `json:"top_buyers"`
	TopSellers        []BrokerActivityEntry `json:"top_sellers"`
	LastUpdated       string                `json:"last_updated" example:"2025-01-02T15:04:05"`
}

// timestamp layouts accepted for LastUpdated, tried in order. The feed
// historically emitted naive ISO-8601 (no zone), so RFC 3339 variants come
// first and zone-less forms are interpreted as UTC.
var updatedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UpdatedTime parses LastUpdated into a time.Time.
//
// Returns:
//   - time.Time: the parsed timestamp (UTC when the source omitted a zone).
//   - error: if LastUpdated matches none of the accepted layouts.
func (s *BrokerSummarySnapshot) UpdatedTime() (time.Time, error) {
	raw := strings.TrimSpace(s.LastUpdated)
	for _, layout := range updatedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable last_updated %q", s.LastUpdated)
}

// Validate checks the identity and numeric invariants of a snapshot.
//
// A snapshot is all-or-nothing: a blank symbol or any negative price or
// volume rejects the whole payload so partially valid data can never reach
// a consumer. As a side effect the action label is normalized in place.
func (s *BrokerSummarySnapshot) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("snapshot missing symbol")
	}
	if s.AvgPrice < 0 {
		return fmt.Errorf("snapshot %s: negative avg_price %d", s.Symbol, s.AvgPrice)
	}
	for _, side := range [][]BrokerActivityEntry{s.TopBuyers, s.TopSellers} {
		for _, e := range side {
			if e.AvgPrice < 0 {
				return fmt.Errorf("snapshot %s: broker %s negative avg_price %d", s.Symbol, e.BrokerCode, e.AvgPrice)
			}
			if e.Volume < 0 {
				return fmt.Errorf("snapshot %s: broker %s negative volume %d", s.Symbol, e.BrokerCode, e.Volume)
			}
		}
	}
	s.MarketMakerAction = NormalizeAction(string(s.MarketMakerAction))
	return nil
}

// ParseSnapshot decodes and validates a raw feed payload.
//
// This is the single schema-validation boundary for live messages: the
// result is either a fully typed, validated snapshot or an error, never a
// partially typed value.
func ParseSnapshot(data []byte) (*BrokerSummarySnapshot, error) {
	var snap BrokerSummarySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
