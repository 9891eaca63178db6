package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

// Decision is the per-candidate outcome of the alert suppression policy.
type Decision int

const (
	// Suppress: open position exists, or neither the delta nor the cooldown
	// condition is met. The candidate is still logged.
	Suppress Decision = iota
	// AlertNew: first alert for the symbol today; a virtual position is
	// registered.
	AlertNew
	// AlertUpdate: re-alert after a big enough percent jump or an elapsed
	// cooldown.
	AlertUpdate
)

func (d Decision) String() string {
	switch d {
	case AlertNew:
		return "new"
	case AlertUpdate:
		return "update"
	default:
		return "suppress"
	}
}

// Router applies the alert suppression policy and registers virtual positions
// for new signals. It keeps the last-alert table in memory, seeded from the
// signal log at startup so restarts keep the day's cooldowns.
type Router struct {
	store     port.PositionStore
	signals   port.SignalLog
	risk      model.RiskParams
	minChange float64
	cooldown  time.Duration

	lastAlert map[string]model.LastAlert
}

func NewRouter(store port.PositionStore, signals port.SignalLog, risk model.RiskParams, minChangePct float64, cooldown time.Duration) *Router {
	return &Router{
		store:     store,
		signals:   signals,
		risk:      risk,
		minChange: minChangePct,
		cooldown:  cooldown,
		lastAlert: make(map[string]model.LastAlert),
	}
}

// Seed loads the day's last alert per symbol from the signal log. A failed
// load starts with an empty table; the cost is at most one extra alert per
// symbol.
func (r *Router) Seed(ctx context.Context, date string) {
	m, err := r.signals.LastAlerts(ctx, date)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("seed last alerts failed, starting empty")
		return
	}
	r.lastAlert = m
	log.Info().Int("symbols", len(m)).Str("date", date).Msg("last-alert table seeded")
}

// Route decides alert-vs-suppress for one candidate and, for a new signal,
// registers the virtual position. Appending the candidate to the signal log
// is the caller's job and happens regardless of the decision.
func (r *Router) Route(ctx context.Context, c model.Candidate, now time.Time) Decision {
	// A zero entry price would poison every level and drawdown computed from
	// the position later.
	if !c.Price.IsPositive() {
		log.Warn().Str("symbol", c.Symbol).Str("price", c.Price.String()).Msg("non-positive candidate price, ignoring")
		return Suppress
	}

	pos, err := r.store.Get(ctx, c.Symbol)
	if err != nil {
		// Treat an unreadable store like an empty one; worst case is a
		// duplicate alert, not a lost cycle.
		log.Warn().Err(err).Str("symbol", c.Symbol).Msg("position lookup failed")
		pos = nil
	}
	if pos.IsOpen() {
		return Suppress
	}

	la, seen := r.lastAlert[c.Symbol]
	if !seen {
		// Register before touching the baseline: a failed write suppresses
		// the alert and leaves the symbol unseen, so the next cycle retries.
		if err := r.register(ctx, c, now); err != nil {
			log.Error().Err(err).Str("symbol", c.Symbol).Msg("register position failed")
			return Suppress
		}
		r.lastAlert[c.Symbol] = model.LastAlert{Pct: c.PctChange, Price: c.Price, Ts: now}
		return AlertNew
	}

	delta := c.PctChange - la.Pct
	elapsed := now.Sub(la.Ts)
	if delta >= r.minChange || elapsed >= r.cooldown {
		r.lastAlert[c.Symbol] = model.LastAlert{Pct: c.PctChange, Price: c.Price, Ts: now}
		return AlertUpdate
	}
	return Suppress
}

// register opens a virtual position for the symbol at the candidate price.
// Idempotent: an existing OPEN row is left exactly as it is.
func (r *Router) register(ctx context.Context, c model.Candidate, now time.Time) error {
	existing, err := r.store.Get(ctx, c.Symbol)
	if err != nil {
		return err
	}
	if existing.IsOpen() {
		return nil
	}

	lv := ComputeLevels(c.Price, r.risk)
	return r.store.Upsert(ctx, &model.Position{
		Symbol:       c.Symbol,
		Status:       model.StatusOpen,
		CreatedTs:    now,
		UpdatedTs:    now,
		EntryPrice:   round4(c.Price),
		AvgPrice:     round4(c.Price),
		QtyUSD:       r.risk.CapitalPerTradeUSD,
		AddsDone:     0,
		Stop:         lv.Stop,
		TP1:          lv.TP1,
		TP2:          lv.TP2,
		PartialTaken: false,
	})
}
