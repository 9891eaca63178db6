package service

import (
	"context"
	"fmt"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

// Advisory bands, percent gain from entry.
const (
	adviseTakeProfitPct = 5.0
	adviseAvgLowPct     = -5.0
	adviseAvgHighPct    = -3.0
	adviseWeakPct       = -6.0

	relVolSustained = 0.8
	relVolWeak      = 0.5
)

// Advisor emits qualitative per-position suggestions every cycle. It is pure
// commentary: it reads the scan snapshot, never the reference price, and never
// mutates trading state.
type Advisor struct {
	notifier port.Notifier
}

func NewAdvisor(notifier port.Notifier) *Advisor {
	return &Advisor{notifier: notifier}
}

// Evaluate computes the percent gain from entry using the cycle's scan
// candidate. A symbol that fell out of the scan reads as flat price and zero
// volume, which lands in the weakness band.
func (a *Advisor) Evaluate(ctx context.Context, pos *model.Position, cand *model.Candidate) {
	if !pos.IsOpen() {
		return
	}

	price := pos.EntryPrice
	relVol := 0.0
	if cand != nil {
		price = cand.Price
		if cand.Volume > 0 {
			// No per-symbol volume baseline is tracked; any observed volume
			// counts as sustained.
			relVol = 1.0
		}
	}
	pct, _ := DrawdownPct(pos.EntryPrice, price).Float64()

	var msg string
	switch {
	case pct >= adviseTakeProfitPct:
		msg = fmt.Sprintf("✅ %s +%.2f%% — consider a partial take-profit or closing.", pos.Symbol, pct)
	case pct >= adviseAvgLowPct && pct <= adviseAvgHighPct && relVol >= relVolSustained:
		msg = fmt.Sprintf("⚖️ %s %.2f%% — volume holding. Consider averaging in.", pos.Symbol, pct)
	case pct < adviseWeakPct || relVol < relVolWeak:
		msg = fmt.Sprintf("❌ %s %.2f%% — weakness confirmed. Suggestion: close the position.", pos.Symbol, pct)
	}
	if msg != "" {
		a.notifier.Send(ctx, msg)
	}
}
