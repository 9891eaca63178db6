package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

// momentumConfirmPct gates cost averaging: the symbol must still print more
// than this percent change in the current scan to justify adding. Matches the
// scanner's momentum filter.
const momentumConfirmPct = 5.0

// Action is what the manager did to a position this cycle.
type Action int

const (
	ActionNone Action = iota
	ActionStop
	ActionTakeProfit
	ActionPartial
	ActionAdd
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionTakeProfit:
		return "tp2"
	case ActionPartial:
		return "tp1-partial"
	case ActionAdd:
		return "add"
	default:
		return "none"
	}
}

// Manager runs the per-cycle state machine over one open position. Rules are
// evaluated in strict priority order and at most one fires per cycle:
// stop-loss, final take-profit, partial take-profit, add-on-dip.
type Manager struct {
	store    port.PositionStore
	notifier port.Notifier
	risk     model.RiskParams
}

func NewManager(store port.PositionStore, notifier port.Notifier, risk model.RiskParams) *Manager {
	return &Manager{store: store, notifier: notifier, risk: risk}
}

// Manage applies the transition rules to an open position given the freshly
// fetched reference price and the cycle's scan candidate for the symbol (nil
// when it fell out of the scan). Closed positions are left untouched.
func (m *Manager) Manage(ctx context.Context, pos *model.Position, price decimal.Decimal, cand *model.Candidate) (Action, error) {
	if !pos.IsOpen() {
		return ActionNone, nil
	}

	// 1. Stop-loss. Wins over everything else, including a simultaneously
	// satisfied take-profit on a stale level set.
	if price.Cmp(pos.Stop) <= 0 {
		if err := m.store.ClosePosition(ctx, pos.Symbol, model.CloseReasonStop); err != nil {
			return ActionNone, err
		}
		m.notifier.Send(ctx, fmt.Sprintf("🔴 STOP — %s  Px:%s ≤ Stop:%s  (−%s%%)",
			pos.Symbol, price.StringFixed(2), pos.Stop.StringFixed(2), m.risk.StopLossPct.String()))
		return ActionStop, nil
	}

	// 2. Final take-profit.
	if price.Cmp(pos.TP2) >= 0 {
		if err := m.store.ClosePosition(ctx, pos.Symbol, model.CloseReasonTP2); err != nil {
			return ActionNone, err
		}
		m.notifier.Send(ctx, fmt.Sprintf("🟢 TAKE PROFIT — %s  Px:%s ≥ TP2:%s  (+%s%%)",
			pos.Symbol, price.StringFixed(2), pos.TP2.StringFixed(2), m.risk.TP2Pct.String()))
		return ActionTakeProfit, nil
	}

	// 3. Partial take-profit: one-shot flag, stop moves to break-even.
	if !pos.PartialTaken && price.Cmp(pos.TP1) >= 0 {
		taken := true
		be := round4(pos.AvgPrice)
		err := m.store.UpdateFields(ctx, pos.Symbol, model.PositionPatch{
			PartialTaken: &taken,
			Stop:         &be,
		})
		if err != nil {
			return ActionNone, err
		}
		m.notifier.Send(ctx, fmt.Sprintf("🟢 TP1 — %s partial 50%% at %s. Stop raised to break-even %s.",
			pos.Symbol, price.StringFixed(2), be.StringFixed(2)))
		return ActionPartial, nil
	}

	// 4. Add-on-dip. Requires headroom on the add counter, momentum
	// confirmation from the current scan (absent candidate = not confirmed)
	// and a drawdown inside the configured band.
	if pos.AddsDone >= m.risk.MaxAdds {
		return ActionNone, nil
	}
	if cand == nil || cand.PctChange <= momentumConfirmPct {
		return ActionNone, nil
	}
	dd := DrawdownPct(pos.EntryPrice, price)
	if dd.Cmp(m.risk.AddZoneLowPct) < 0 || dd.Cmp(m.risk.AddZoneHighPct) > 0 {
		return ActionNone, nil
	}

	newAvg, newQty := BlendAverage(pos.AvgPrice, pos.QtyUSD, price, m.risk.AddOnUSD)
	lv := ComputeLevels(newAvg, m.risk)
	adds := pos.AddsDone + 1
	err := m.store.UpdateFields(ctx, pos.Symbol, model.PositionPatch{
		AvgPrice: &newAvg,
		QtyUSD:   &newQty,
		AddsDone: &adds,
		Stop:     &lv.Stop,
		TP1:      &lv.TP1,
		TP2:      &lv.TP2,
	})
	if err != nil {
		return ActionNone, err
	}
	m.notifier.Send(ctx, fmt.Sprintf("➕ ADD — %s +$%s at %s. New avg:%s Stop:%s",
		pos.Symbol, m.risk.AddOnUSD.String(), price.StringFixed(2), newAvg.StringFixed(2), lv.Stop.StringFixed(2)))
	return ActionAdd, nil
}
