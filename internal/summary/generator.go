package summary

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/logger"
	"github.com/adisurya/bandarpulse/internal/quote"
)

// brokerCodes are anonymized IDX broker identifiers used for generated
// distributions; real per-broker flow is proprietary upstream data.
var brokerCodes = []string{"YP", "PD", "AK", "BK", "KZ", "CC", "YU", "DR", "OD", "XC", "NI", "MG", "ZL"}

// rankWeights splits a side's value pool across its top five brokers; the
// top three hold the bulk of the accumulation.
var rankWeights = [5]float64{0.40, 0.25, 0.15, 0.12, 0.08}

const (
	fallbackPrice  = 5000
	fallbackVolume = 10_000_000

	// price-change thresholds for classifying the day's flow
	accumulationPct = 0.01
	distributionPct = -0.01
)

// indirections for deterministic tests
var (
	randIntN = rand.IntN
	randPerm = rand.Perm
)

// Generator derives a broker-summary snapshot from the day's real quote:
// price action and volume determine the flow classification and the value
// pool, which is then distributed over anonymized broker codes.
type Generator struct {
	quotes quote.Source
	log    zerolog.Logger
	now    func() time.Time
}

// NewGenerator creates a generator backed by the given quote source.
func NewGenerator(quotes quote.Source) *Generator {
	return &Generator{
		quotes: quotes,
		log:    logger.Component("summary_generator"),
		now:    time.Now,
	}
}

// Generate builds a snapshot for symbol. It never fails: a quote-source
// error degrades to a flat default quote (fetch-and-fallback), so the feed
// keeps serving.
func (g *Generator) Generate(ctx context.Context, symbol string) *models.BrokerSummarySnapshot {
	basePrice := int64(fallbackPrice)
	volume := int64(fallbackVolume)
	changePct := 0.0

	if d, err := g.quotes.Daily(ctx, symbol); err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("quote fetch failed, using defaults")
	} else {
		if d.Close > 0 {
			basePrice = d.Close
		}
		if d.Volume > 0 {
			volume = d.Volume
		}
		if d.PrevClose > 0 {
			changePct = float64(d.Close-d.PrevClose) / float64(d.PrevClose)
		}
	}

	action, dominance := classify(changePct)

	totalValue := float64(volume) * float64(basePrice)
	buyers := g.distribute(totalValue*dominance, basePrice, true)
	sellers := g.distribute(totalValue*(1-dominance), basePrice, false)

	dominant := sellers[0].BrokerCode
	if action == models.ActionBuying {
		dominant = buyers[0].BrokerCode
	}

	return &models.BrokerSummarySnapshot{
		Symbol:            symbol,
		MarketMakerAction: action,
		AvgPrice:          basePrice,
		DominantBroker:    dominant,
		TopBuyers:         buyers,
		TopSellers:        sellers,
		LastUpdated:       g.now().UTC().Format(time.RFC3339),
	}
}

// classify maps the day's price change to a flow classification and the
// buy-side share of traded value: a move past +1% reads as accumulation
// (buyers dominate 65% of value), past -1% as distribution.
func classify(changePct float64) (models.MarketMakerAction, float64) {
	switch {
	case changePct > accumulationPct:
		return models.ActionBuying, 0.65
	case changePct < distributionPct:
		return models.ActionSelling, 0.35
	default:
		return models.ActionNeutral, 0.50
	}
}

// distribute allocates a side's value pool across five distinct brokers in
// rank order. Buyer prices skew slightly above the market close (haka),
// seller prices slightly below (haki).
func (g *Generator) distribute(valuePool float64, basePrice int64, buyers bool) []models.BrokerActivityEntry {
	perm := randPerm(len(brokerCodes))

	entries := make([]models.BrokerActivityEntry, 0, len(rankWeights))
	for i, weight := range rankWeights {
		allocated := valuePool * weight

		offset := int64(randIntN(51))
		if !buyers {
			offset = -offset
		}
		avgPrice := basePrice + offset
		if avgPrice <= 0 {
			avgPrice = basePrice
		}

		entries = append(entries, models.BrokerActivityEntry{
			BrokerCode: brokerCodes[perm[i]],
			Value:      fmt.Sprintf("%.1fB", allocated/1e9),
			AvgPrice:   avgPrice,
			Volume:     int64(allocated / float64(avgPrice)),
		})
	}
	return entries
}
