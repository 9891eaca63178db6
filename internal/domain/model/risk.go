package model

import "github.com/shopspring/decimal"

// RiskParams are the configured risk percentages and sizing for virtual
// positions. Percentages are whole numbers (8 means 8%); the add zone bounds
// are negative drawdown percentages (e.g. -6 to -3).
type RiskParams struct {
	CapitalPerTradeUSD decimal.Decimal
	StopLossPct        decimal.Decimal
	TP1Pct             decimal.Decimal
	TP2Pct             decimal.Decimal
	AddOnUSD           decimal.Decimal
	MaxAdds            int
	AddZoneLowPct      decimal.Decimal
	AddZoneHighPct     decimal.Decimal
}
