package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/feed"
	"github.com/adisurya/bandarpulse/internal/hub"
)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockSummaryService{resp: &models.BrokerSummarySnapshot{
		Symbol:            "TLKM",
		MarketMakerAction: models.ActionNeutral,
		AvgPrice:          3200,
		DominantBroker:    "PD",
		LastUpdated:       "2026-08-30T08:00:00Z",
	}}
	h := NewHandler(svc)
	feedHub := hub.New(svc, time.Hour)
	r := NewRouter(h, NewFeedHandler(feedHub))

	// Hit the summary route through the router created by NewRouter
	req := httptest.NewRequest(http.MethodGet, "/api/v1/broker-summary/TLKM", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Ensure RequestID middleware injected header
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	snap, err := models.ParseSnapshot(w.Body.Bytes())
	if err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if snap.Symbol != "TLKM" || snap.AvgPrice != 3200 {
		t.Fatalf("unexpected body: %+v", snap)
	}
}

func TestNewRouter_FeedRouteUpgrades(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockSummaryService{resp: &models.BrokerSummarySnapshot{
		Symbol:            "BBCA",
		MarketMakerAction: models.ActionBuying,
		AvgPrice:          9500,
		DominantBroker:    "YP",
		LastUpdated:       "2026-08-30T08:00:00Z",
	}}
	feedHub := hub.New(svc, time.Hour)
	r := NewRouter(NewHandler(svc), NewFeedHandler(feedHub))

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial feed route: %v", err)
	}
	defer conn.Close()

	env, err := feed.NewEnvelope(feed.EventSubscribe, feed.SubscribeRequest{Symbol: "BBCA"})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ack feed.Envelope
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Event != feed.EventSubscribed {
		t.Fatalf("expected subscribed ack, got %q", ack.Event)
	}
}
