// Package screener fetches momentum candidates from Yahoo's predefined
// screener feeds. The upstream payload drifts between market sessions
// (pre/post/regular fields come and go); every field is optional here and the
// first present one wins in a fixed priority order.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Momentum filters: low-priced stocks with an outsized move on real volume.
const (
	maxPrice     = 20.0
	minPctChange = 5.0
	minVolume    = 1_000_000
)

// Ranking weights for the explode score.
const (
	pctWeight = 0.6
	volWeight = 40.0
)

var feedIDs = []string{"day_gainers", "most_actives"}

type Yahoo struct {
	baseURL string
	topN    int
	client  *http.Client
}

func NewYahoo(baseURL string, timeout time.Duration, topN int) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Yahoo{
		baseURL: baseURL,
		topN:    topN,
		client:  &http.Client{Timeout: timeout},
	}
}

type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []quote `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

type quote struct {
	Symbol string `json:"symbol"`

	PreMarketChangePercent     *float64 `json:"preMarketChangePercent"`
	PostMarketChangePercent    *float64 `json:"postMarketChangePercent"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`

	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PostMarketPrice    *float64 `json:"postMarketPrice"`
	PreMarketPrice     *float64 `json:"preMarketPrice"`

	RegularMarketVolume *int64 `json:"regularMarketVolume"`
	PostMarketVolume    *int64 `json:"postMarketVolume"`
	PreMarketVolume     *int64 `json:"preMarketVolume"`
}

// pct picks the percent-change for the current session, pre-market first so
// the scanner keeps working outside regular hours.
func (q *quote) pct() (float64, bool) {
	for _, v := range []*float64{q.PreMarketChangePercent, q.PostMarketChangePercent, q.RegularMarketChangePercent} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func (q *quote) price() (float64, bool) {
	for _, v := range []*float64{q.RegularMarketPrice, q.PostMarketPrice, q.PreMarketPrice} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func (q *quote) volume() int64 {
	for _, v := range []*int64{q.RegularMarketVolume, q.PostMarketVolume, q.PreMarketVolume} {
		if v != nil {
			return *v
		}
	}
	return 0
}

// Scan fetches all feeds, dedups by symbol, applies the momentum filters and
// returns the top N by explode score. Any upstream trouble degrades to an
// empty result; the caller only ever sees candidates.
func (y *Yahoo) Scan(ctx context.Context) []model.Candidate {
	seen := make(map[string]struct{})
	var quotes []quote
	for _, id := range feedIDs {
		qs, err := y.fetch(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("feed", id).Msg("screener feed failed")
			continue
		}
		for _, q := range qs {
			if q.Symbol == "" {
				continue
			}
			if _, dup := seen[q.Symbol]; dup {
				continue
			}
			seen[q.Symbol] = struct{}{}
			quotes = append(quotes, q)
		}
	}
	if len(quotes) == 0 {
		log.Warn().Msg("all screener feeds empty")
		return nil
	}

	var cands []model.Candidate
	var maxVol int64
	for _, q := range quotes {
		pct, okPct := q.pct()
		price, okPrice := q.price()
		if !okPct || !okPrice {
			continue
		}
		vol := q.volume()
		// session fields drift; a present-but-zero price is upstream garbage
		if price <= 0 || price >= maxPrice || pct <= minPctChange || vol <= minVolume {
			continue
		}
		if vol > maxVol {
			maxVol = vol
		}
		cands = append(cands, model.Candidate{
			Symbol:    q.Symbol,
			Price:     decimal.NewFromFloat(price),
			PctChange: pct,
			Volume:    vol,
		})
	}
	if len(cands) == 0 {
		log.Info().Msg("no tickers passed the momentum filters")
		return nil
	}

	for i := range cands {
		cands[i].ExplodeScore = cands[i].PctChange*pctWeight + volWeight*float64(cands[i].Volume)/float64(maxVol)
	}
	// Stable keeps feed order for equal scores.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].ExplodeScore > cands[j].ExplodeScore })
	if len(cands) > y.topN {
		cands = cands[:y.topN]
	}
	return cands
}

func (y *Yahoo) fetch(ctx context.Context, feedID string) ([]quote, error) {
	url := fmt.Sprintf("%s/v1/finance/screener/predefined/saved?count=100&scrIds=%s", y.baseURL, feedID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("screener: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screener: fetch %s: %w", feedID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener: %s returned status %d", feedID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("screener: read body: %w", err)
	}
	var parsed screenerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("screener: decode %s: %w", feedID, err)
	}
	if len(parsed.Finance.Result) == 0 {
		return nil, nil
	}
	return parsed.Finance.Result[0].Quotes, nil
}

var _ port.Scanner = (*Yahoo)(nil)
