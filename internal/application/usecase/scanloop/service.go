// Package scanloop is the orchestrating usecase: one scan cycle per tick,
// candidate routing, open-position evaluation, and the end-of-day summary on
// shutdown. Cycles are strictly sequential; nothing in here survives a cycle
// except what the stores persist.
package scanloop

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
	"exploder/internal/domain/service"
)

// priceFetchParallelism bounds the reference-price fan-out. Ordering only
// matters within a symbol, never across symbols.
const priceFetchParallelism = 4

type ServiceDeps struct {
	Scanner  port.Scanner
	Quotes   port.QuoteSource
	Store    port.PositionStore
	Signals  port.SignalLog
	Notifier port.Notifier
	Router   *service.Router
	Manager  *service.Manager
	Advisor  *service.Advisor

	Interval           time.Duration
	CapitalPerTradeUSD decimal.Decimal
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// Run drives the loop until ctx is cancelled. Cancellation is the only exit:
// the end-of-day summary is flushed before returning.
func (s *Service) Run(ctx context.Context) error {
	s.deps.Notifier.Send(ctx, startupMessage(s.deps.Interval))
	s.deps.Router.Seed(ctx, model.DateOf(time.Now()))

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.flushSummary()
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	now := time.Now()
	cycleID := uuid.NewString()
	lg := log.With().Str("cycle", cycleID[:8]).Logger()

	cands := s.deps.Scanner.Scan(ctx)
	if len(cands) == 0 {
		lg.Info().Msg("no candidates this cycle")
		return
	}
	lg.Info().Int("candidates", len(cands)).Msg("scan complete")

	var alerts []string
	for _, c := range cands {
		sample := model.SignalSample{
			Date:      model.DateOf(now),
			Ts:        now,
			Symbol:    c.Symbol,
			Price:     c.Price,
			PctChange: c.PctChange,
			Volume:    c.Volume,
			CycleID:   cycleID,
		}
		if err := s.deps.Signals.Append(ctx, sample); err != nil {
			lg.Warn().Err(err).Str("symbol", c.Symbol).Msg("signal append failed")
		}

		decision := s.deps.Router.Route(ctx, c, now)
		lg.Debug().
			Str("symbol", c.Symbol).
			Str("decision", decision.String()).
			Float64("pct", c.PctChange).
			Msg("candidate routed")
		if decision == service.Suppress {
			continue
		}
		alerts = append(alerts, formatCandidate(c, s.deps.CapitalPerTradeUSD))
	}

	if len(alerts) > 0 {
		s.deps.Notifier.Send(ctx, alertHeader(now)+strings.Join(alerts, "\n\n"))
	} else {
		lg.Info().Msg("no significant changes vs last alerts")
	}

	s.evaluatePositions(ctx, cands, lg)
}

// evaluatePositions runs the advisory and the transition rules over every
// open position, including ones registered earlier in this same cycle.
// Reference prices are fetched concurrently; rule evaluation stays sequential
// per symbol.
func (s *Service) evaluatePositions(ctx context.Context, cands []model.Candidate, lg zerolog.Logger) {
	open, err := s.deps.Store.ListOpen(ctx)
	if err != nil {
		lg.Warn().Err(err).Msg("listing open positions failed")
		return
	}
	if len(open) == 0 {
		return
	}

	bySym := make(map[string]*model.Candidate, len(cands))
	for i := range cands {
		bySym[cands[i].Symbol] = &cands[i]
	}

	prices := make([]decimal.Decimal, len(open))
	fetched := make([]bool, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceFetchParallelism)
	for i, pos := range open {
		g.Go(func() error {
			px, err := s.deps.Quotes.LastPrice(gctx, pos.Symbol)
			if err != nil {
				lg.Warn().Err(err).Str("symbol", pos.Symbol).Msg("reference price unavailable, skipping symbol")
				return nil
			}
			prices[i], fetched[i] = px, true
			return nil
		})
	}
	_ = g.Wait()

	for i, pos := range open {
		cand := bySym[pos.Symbol]
		s.deps.Advisor.Evaluate(ctx, pos, cand)

		if !fetched[i] {
			continue
		}
		action, err := s.deps.Manager.Manage(ctx, pos, prices[i], cand)
		if err != nil {
			lg.Error().Err(err).Str("symbol", pos.Symbol).Msg("position evaluation failed")
			continue
		}
		if action != service.ActionNone {
			lg.Info().
				Str("symbol", pos.Symbol).
				Str("action", action.String()).
				Str("price", prices[i].StringFixed(4)).
				Msg("position transition")
		}
	}
}

// flushSummary runs on shutdown; the loop context is already done, so the
// flush gets its own bounded one.
func (s *Service) flushSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	date := model.DateOf(time.Now())
	rows, err := s.deps.Signals.Summarize(ctx, date)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("daily summary failed")
	}
	s.deps.Notifier.Send(ctx, summaryMessage(rows))
	s.deps.Notifier.Send(ctx, "⏹️ Bot stopped.")
	log.Info().Str("date", date).Int("symbols", len(rows)).Msg("daily summary flushed")
}
