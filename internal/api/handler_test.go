package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/adisurya/bandarpulse/internal/domain/models"
	"github.com/adisurya/bandarpulse/internal/summary"
)

type mockSummaryService struct {
	resp *models.BrokerSummarySnapshot
	err  error

	requested string
}

func (m *mockSummaryService) Get(_ context.Context, symbol string) (*models.BrokerSummarySnapshot, error) {
	m.requested = symbol
	return m.resp, m.err
}

func (m *mockSummaryService) Ping(context.Context) error { return nil }

var _ summary.Service = (*mockSummaryService)(nil)

func setupRouterWithMock(s summary.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/broker-summary/:symbol", h.GetBrokerSummary)
	return r
}

func TestGetBrokerSummary_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockSummaryService
		path   string
		status int
		assert func(t *testing.T, svc *mockSummaryService, body []byte)
	}{
		{
			name:   "blank symbol",
			svc:    &mockSummaryService{},
			path:   "/api/v1/broker-summary/%20",
			status: http.StatusBadRequest,
		},
		{
			name:   "provider error",
			svc:    &mockSummaryService{err: errors.New("quote source down")},
			path:   "/api/v1/broker-summary/BBCA",
			status: http.StatusInternalServerError,
		},
		{
			name: "success lowercases normalized",
			svc: &mockSummaryService{resp: &models.BrokerSummarySnapshot{
				Symbol:            "BBCA",
				MarketMakerAction: models.ActionBuying,
				AvgPrice:          9500,
				DominantBroker:    "YP",
				LastUpdated:       "2026-08-30T08:00:00Z",
			}},
			path:   "/api/v1/broker-summary/bbca",
			status: http.StatusOK,
			assert: func(t *testing.T, svc *mockSummaryService, body []byte) {
				if svc.requested != "BBCA" {
					t.Fatalf("expected service called with BBCA, got %q", svc.requested)
				}
				snap, err := models.ParseSnapshot(body)
				if err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if snap.Symbol != "BBCA" || snap.AvgPrice != 9500 || snap.DominantBroker != "YP" {
					t.Fatalf("unexpected body: %+v", snap)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMock(tc.svc)
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if tc.assert != nil {
				tc.assert(t, tc.svc, w.Body.Bytes())
			}
		})
	}
}
