package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is one row of a scan cycle. It lives only for the cycle that
// produced it; nothing persists it except the signal log.
type Candidate struct {
	Symbol       string
	Price        decimal.Decimal
	PctChange    float64
	Volume       int64
	ExplodeScore float64
}

// SignalSample is the append-only log record written for every candidate of
// every cycle, alerted or not.
type SignalSample struct {
	Date      string // YYYY-MM-DD, local time
	Ts        time.Time
	Symbol    string
	Price     decimal.Decimal
	PctChange float64
	Volume    int64
	CycleID   string
}

// LastAlert is the per-symbol cooldown state reconstructed from the signal log.
type LastAlert struct {
	Pct   float64
	Price decimal.Decimal
	Ts    time.Time
}

// SymbolDaySummary is one row of the end-of-day ranking.
type SymbolDaySummary struct {
	Symbol    string
	MaxPct    float64
	Alerts    int
	FirstTime time.Time
	LastTime  time.Time
}

// DateOf formats a timestamp as the signal-log day key.
func DateOf(t time.Time) string { return t.Format("2006-01-02") }
