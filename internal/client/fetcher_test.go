package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPFetcher_TableDriven(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"symbol":"BBCA","market_maker_action":"BUYING","avg_price":9500,"last_updated":"2025-01-02T10:00:00"}`,
		},
		{
			name:    "empty object is failure",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"message":"boom"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/broker-summary/BBCA" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			f := NewHTTPFetcher(srv.URL, 0)
			snap, err := f.FetchSummary(context.Background(), "BBCA")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", snap)
				}
			} else {
				if err != nil || snap.Symbol != "BBCA" {
					t.Fatalf("snap=%+v err=%v", snap, err)
				}
			}
		})
	}
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(srv.URL, 0)
	if _, err := f.FetchSummary(ctx, "BBCA"); err == nil {
		t.Fatalf("expected context error")
	}
}
