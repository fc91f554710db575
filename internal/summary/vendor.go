package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adisurya/bandarpulse/internal/domain/models"
)

// vendorExport mirrors the orderflow export format produced by the
// upstream bandarmology endpoint. Only the fields we map are declared.
type vendorExport struct {
	Data struct {
		ClosingPrice float64 `json:"closing_price"`
		Analysis     struct {
			Status string `json:"status"`
		} `json:"analysis"`
		TopBuyers  []vendorBroker `json:"top_buyers"`
		TopSellers []vendorBroker `json:"top_sellers"`
	} `json:"data"`
}

type vendorBroker struct {
	BrokerCode string  `json:"broker_code"`
	Value      float64 `json:"value"`
	AvgPrice   float64 `json:"avg_price"`
	Volume     float64 `json:"volume"`
}

// ParseVendorExport converts a raw orderflow export into a snapshot for
// symbol. The vendor's free-form analysis status is folded into the three
// known actions: anything mentioning accumulation or big-player buying maps
// to BUYING, distribution to SELLING, everything else to NEUTRAL.
func ParseVendorExport(symbol string, raw []byte) (*models.BrokerSummarySnapshot, error) {
	var export vendorExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("decode vendor export: %w", err)
	}

	status := strings.ToUpper(export.Data.Analysis.Status)
	action := models.ActionNeutral
	switch {
	case strings.Contains(status, "ACCUM") || strings.Contains(status, "BIG"):
		action = models.ActionBuying
	case strings.Contains(status, "DISTRIB"):
		action = models.ActionSelling
	}

	buyers := mapVendorBrokers(export.Data.TopBuyers)
	sellers := mapVendorBrokers(export.Data.TopSellers)

	dominant := "N/A"
	switch {
	case action == models.ActionBuying && len(buyers) > 0:
		dominant = buyers[0].BrokerCode
	case len(sellers) > 0:
		dominant = sellers[0].BrokerCode
	}

	snap := &models.BrokerSummarySnapshot{
		Symbol:            symbol,
		MarketMakerAction: action,
		AvgPrice:          int64(export.Data.ClosingPrice),
		DominantBroker:    dominant,
		TopBuyers:         buyers,
		TopSellers:        sellers,
		LastUpdated:       time.Now().UTC().Format(time.RFC3339),
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// mapVendorBrokers keeps at most the top five entries in the vendor's rank
// order, converting raw rupiah values into the billions label the UI shows.
func mapVendorBrokers(raw []vendorBroker) []models.BrokerActivityEntry {
	if len(raw) > 5 {
		raw = raw[:5]
	}
	entries := make([]models.BrokerActivityEntry, 0, len(raw))
	for _, b := range raw {
		code := b.BrokerCode
		if code == "" {
			code = "XX"
		}
		entries = append(entries, models.BrokerActivityEntry{
			BrokerCode: code,
			Value:      fmt.Sprintf("%.1fB", b.Value/1e9),
			AvgPrice:   int64(b.AvgPrice),
			Volume:     int64(b.Volume),
		})
	}
	return entries
}

// LoadVendorExport reads an orderflow export file from disk.
func LoadVendorExport(path, symbol string) (*models.BrokerSummarySnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vendor export: %w", err)
	}
	return ParseVendorExport(symbol, raw)
}
