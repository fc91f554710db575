package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adisurya/bandarpulse/internal/logger"
)

// YahooSource fetches daily quotes from the Yahoo Finance chart API.
//
// IDX symbols are listed with a ".JK" suffix on Yahoo; the suffixed form
// is tried first and the bare symbol is retried once for the rare
// instrument (indices, mostly) that does not carry it.
type YahooSource struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewYahooSource creates a source for the given API base URL
// (e.g. "https://query1.finance.yahoo.com"). A zero timeout defaults
// to 10s.
func NewYahooSource(baseURL string, timeout time.Duration) *YahooSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     logger.Component("yahoo_quotes"),
	}
}

// chartResponse covers the slice of the Yahoo chart payload we read.
// Close and volume arrays may contain nulls for halted sessions.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Daily fetches the most recent daily bar for a symbol.
func (s *YahooSource) Daily(ctx context.Context, symbol string) (*Daily, error) {
	d, err := s.fetch(ctx, symbol+".JK")
	if err == nil {
		return d, nil
	}
	s.log.Debug().Err(err).Str("symbol", symbol).Msg("retry without .JK suffix")
	return s.fetch(ctx, symbol)
}

func (s *YahooSource) fetch(ctx context.Context, ticker string) (*Daily, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=2d&interval=1d", s.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote %s: status %d", ticker, resp.StatusCode)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("quote %s: decode: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("quote %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("quote %s: empty result", ticker)
	}

	bars := chart.Chart.Result[0].Indicators.Quote[0]

	var closes []int64
	for _, c := range bars.Close {
		if c != nil {
			closes = append(closes, int64(math.Round(*c)))
		}
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("quote %s: no close prices", ticker)
	}

	d := &Daily{Close: closes[len(closes)-1], PrevClose: closes[len(closes)-1]}
	if len(closes) > 1 {
		d.PrevClose = closes[len(closes)-2]
	}
	for _, v := range bars.Volume {
		if v != nil {
			d.Volume = *v
		}
	}
	return d, nil
}
