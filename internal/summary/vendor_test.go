package summary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adisurya/bandarpulse/internal/domain/models"
)

const sampleExport = `{
  "data": {
    "closing_price": 9550,
    "analysis": {"status": "Big Accumulation Detected"},
    "top_buyers": [
      {"broker_code": "YP", "value": 125300000000, "avg_price": 9560, "volume": 13106694},
      {"broker_code": "PD", "value": 80000000000, "avg_price": 9555, "volume": 8372579},
      {"broker_code": "", "value": 4000000000, "avg_price": 9540, "volume": 419287}
    ],
    "top_sellers": [
      {"broker_code": "KZ", "value": 90000000000, "avg_price": 9530, "volume": 9443861}
    ]
  }
}`

func TestParseVendorExport(t *testing.T) {
	snap, err := ParseVendorExport("BBCA", []byte(sampleExport))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if snap.MarketMakerAction != models.ActionBuying {
		t.Fatalf("expected BUYING for accumulation status, got %s", snap.MarketMakerAction)
	}
	if snap.AvgPrice != 9550 {
		t.Fatalf("expected closing price 9550, got %d", snap.AvgPrice)
	}
	if snap.DominantBroker != "YP" {
		t.Fatalf("expected top buyer YP dominant, got %s", snap.DominantBroker)
	}
	if snap.TopBuyers[0].Value != "125.3B" {
		t.Fatalf("expected billions label 125.3B, got %s", snap.TopBuyers[0].Value)
	}
	if snap.TopBuyers[2].BrokerCode != "XX" {
		t.Fatalf("missing broker code should default to XX, got %s", snap.TopBuyers[2].BrokerCode)
	}
	if snap.TopSellers[0].Volume != 9443861 {
		t.Fatalf("unexpected seller volume %d", snap.TopSellers[0].Volume)
	}
}

func TestParseVendorExport_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status string
		action models.MarketMakerAction
	}{
		{"accumulation", "heavy accumulation", models.ActionBuying},
		{"big player", "BIG PLAYER BUY", models.ActionBuying},
		{"distribution", "Distribution Phase", models.ActionSelling},
		{"unknown", "sideways", models.ActionNeutral},
		{"empty", "", models.ActionNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"data":{"closing_price":100,"analysis":{"status":"` + tt.status + `"},"top_buyers":[],"top_sellers":[]}}`)
			snap, err := ParseVendorExport("TLKM", raw)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if snap.MarketMakerAction != tt.action {
				t.Fatalf("status %q: expected %s, got %s", tt.status, tt.action, snap.MarketMakerAction)
			}
			if snap.DominantBroker != "N/A" {
				t.Fatalf("expected N/A dominant with no brokers, got %s", snap.DominantBroker)
			}
		})
	}
}

func TestParseVendorExport_CapsAtFiveBrokers(t *testing.T) {
	raw := []byte(`{"data":{"closing_price":100,"analysis":{"status":"accumulation"},"top_buyers":[
		{"broker_code":"B1","value":1e9},{"broker_code":"B2","value":1e9},{"broker_code":"B3","value":1e9},
		{"broker_code":"B4","value":1e9},{"broker_code":"B5","value":1e9},{"broker_code":"B6","value":1e9}
	],"top_sellers":[]}}`)

	snap, err := ParseVendorExport("ASII", raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(snap.TopBuyers) != 5 {
		t.Fatalf("expected 5 buyers after cap, got %d", len(snap.TopBuyers))
	}
}

func TestParseVendorExport_RejectsGarbage(t *testing.T) {
	if _, err := ParseVendorExport("BBCA", []byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadVendorExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orderflow.json")
	if err := os.WriteFile(path, []byte(sampleExport), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snap, err := LoadVendorExport(path, "BBCA")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.Symbol != "BBCA" {
		t.Fatalf("unexpected symbol %s", snap.Symbol)
	}

	if _, err := LoadVendorExport(filepath.Join(t.TempDir(), "missing.json"), "BBCA"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
