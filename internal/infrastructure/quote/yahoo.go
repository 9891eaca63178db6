// Package quote fetches per-symbol reference prices from the Yahoo chart API.
// The position manager uses these instead of scan prices because an open
// position may no longer appear in the current scan.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"exploder/internal/application/port"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

type Yahoo struct {
	baseURL string
	client  *http.Client
}

func NewYahoo(baseURL string, timeout time.Duration) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Yahoo{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// LastPrice returns the most recent minute close of the day, falling back to
// the meta price when the minute series has gaps.
func (y *Yahoo) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1m", y.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote: %s returned status %d", symbol, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote: read body: %w", err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("quote: decode %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("quote: %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("quote: %s: empty result", symbol)
	}

	res := parsed.Chart.Result[0]
	if len(res.Indicators.Quote) > 0 {
		closes := res.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				return decimal.NewFromFloat(*closes[i]), nil
			}
		}
	}
	if res.Meta.RegularMarketPrice != nil && *res.Meta.RegularMarketPrice > 0 {
		return decimal.NewFromFloat(*res.Meta.RegularMarketPrice), nil
	}
	return decimal.Zero, fmt.Errorf("quote: %s: no usable price", symbol)
}

var _ port.QuoteSource = (*Yahoo)(nil)
