package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adisurya/bandarpulse/internal/domain/models"
)

const maxFetchBody = 1 << 20 // snapshots are a few KB; anything near 1MB is garbage

// HTTPFetcher implements Fetcher against the REST one-shot endpoint
// (GET /api/v1/broker-summary/{symbol}).
type HTTPFetcher struct {
	baseURL string
	httpc   *http.Client
}

// NewHTTPFetcher creates a fetcher for the given API base URL
// (e.g. "http://localhost:8080"). A zero timeout defaults to 10s.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// FetchSummary performs the single request-response fetch. Any non-200
// status, decode failure, or payload without a valid symbol is reported as
// an error; there is no retry at this layer.
func (f *HTTPFetcher) FetchSummary(ctx context.Context, symbol string) (*models.BrokerSummarySnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/broker-summary/%s", f.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", symbol, resp.StatusCode)
	}

	snap, err := models.ParseSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return snap, nil
}
