package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Position status values. Closed positions keep their row as a tombstone with
// the close reason baked into the status, e.g. "CLOSED:STOP".
const (
	StatusOpen         = "OPEN"
	closedStatusPrefix = "CLOSED:"

	CloseReasonStop   = "STOP"
	CloseReasonTP2    = "TP2"
	CloseReasonManual = "MANUAL"
)

// ClosedStatus builds the status string for a close reason.
func ClosedStatus(reason string) string { return closedStatusPrefix + reason }

// Position is one virtual trade per symbol. EntryPrice is fixed at
// registration; AvgPrice, QtyUSD and the stop/tp levels move only through
// add-on fills.
type Position struct {
	Symbol       string
	Status       string
	CreatedTs    time.Time
	UpdatedTs    time.Time
	EntryPrice   decimal.Decimal
	AvgPrice     decimal.Decimal
	QtyUSD       decimal.Decimal
	AddsDone     int
	Stop         decimal.Decimal
	TP1          decimal.Decimal
	TP2          decimal.Decimal
	PartialTaken bool
	Notes        string
}

func (p *Position) IsOpen() bool {
	return p != nil && strings.HasPrefix(p.Status, StatusOpen)
}

// PositionPatch is a partial update: nil fields are left untouched by the
// store. updated_ts is always bumped on apply.
type PositionPatch struct {
	Status       *string
	AvgPrice     *decimal.Decimal
	QtyUSD       *decimal.Decimal
	AddsDone     *int
	Stop         *decimal.Decimal
	TP1          *decimal.Decimal
	TP2          *decimal.Decimal
	PartialTaken *bool
	Notes        *string
}

// IsEmpty reports whether the patch would change nothing.
func (p PositionPatch) IsEmpty() bool {
	return p.Status == nil && p.AvgPrice == nil && p.QtyUSD == nil &&
		p.AddsDone == nil && p.Stop == nil && p.TP1 == nil && p.TP2 == nil &&
		p.PartialTaken == nil && p.Notes == nil
}
