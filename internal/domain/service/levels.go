package service

import (
	"github.com/shopspring/decimal"

	"exploder/internal/domain/model"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// round4 is the precision positions are persisted with.
func round4(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

// Levels are the three price thresholds derived from an average entry price.
type Levels struct {
	Stop decimal.Decimal
	TP1  decimal.Decimal
	TP2  decimal.Decimal
}

// ComputeLevels derives stop/tp1/tp2 from an average price and the configured
// percentages. With positive percentages the ordering stop < avg < tp1 < tp2
// holds by construction.
func ComputeLevels(avg decimal.Decimal, r model.RiskParams) Levels {
	return Levels{
		Stop: round4(avg.Mul(one.Sub(r.StopLossPct.Div(hundred)))),
		TP1:  round4(avg.Mul(one.Add(r.TP1Pct.Div(hundred)))),
		TP2:  round4(avg.Mul(one.Add(r.TP2Pct.Div(hundred)))),
	}
}

// BlendAverage returns the notional-weighted average after adding addUSD of
// exposure at fill price.
func BlendAverage(avg, qtyUSD, fill, addUSD decimal.Decimal) (newAvg, newQty decimal.Decimal) {
	newQty = qtyUSD.Add(addUSD)
	newAvg = round4(avg.Mul(qtyUSD).Add(fill.Mul(addUSD)).Div(newQty))
	return newAvg, newQty
}

// DrawdownPct is the signed percent move from the entry price.
func DrawdownPct(entry, price decimal.Decimal) decimal.Decimal {
	return price.Sub(entry).Div(entry).Mul(hundred)
}
