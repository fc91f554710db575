package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const chartBody = `{"chart":{"result":[{"indicators":{"quote":[{
	"close":[9450.0,null,9525.4],
	"volume":[1000,null,2500000]
}]}}],"error":null}}`

func TestYahooSource_Daily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/BBCA.JK") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	s := NewYahooSource(srv.URL, 0)
	d, err := s.Daily(context.Background(), "BBCA")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	// Nulls skipped, last close rounded, previous non-null close kept.
	if d.Close != 9525 || d.PrevClose != 9450 || d.Volume != 2500000 {
		t.Fatalf("unexpected daily %+v", d)
	}
}

func TestYahooSource_RetryWithoutSuffix(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, ".JK") {
			// Suffixed form unknown: empty result forces the bare retry.
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
			return
		}
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	s := NewYahooSource(srv.URL, 0)
	d, err := s.Daily(context.Background(), "COMPOSITE")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if d.Close != 9525 {
		t.Fatalf("unexpected close %d", d.Close)
	}
	if len(paths) != 2 {
		t.Fatalf("expected suffixed then bare request, got %v", paths)
	}
}

func TestYahooSource_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	s := NewYahooSource(srv.URL, 0)
	if _, err := s.Daily(context.Background(), "XXXX"); err == nil {
		t.Fatalf("expected error for API error response")
	}
}

func TestStaticSource(t *testing.T) {
	s := NewStaticSource(map[string]Daily{
		"BBCA": {Close: 9500, PrevClose: 9000, Volume: 100},
	})

	d, err := s.Daily(context.Background(), "BBCA")
	if err != nil || d.Close != 9500 {
		t.Fatalf("table entry: d=%+v err=%v", d, err)
	}

	d, err = s.Daily(context.Background(), "UNKNOWN")
	if err != nil || d.Close != 5000 || d.Volume != 10_000_000 {
		t.Fatalf("default entry: d=%+v err=%v", d, err)
	}
}
