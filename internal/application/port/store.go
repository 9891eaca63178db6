package port

import (
	"context"

	"exploder/internal/domain/model"
)

// PositionStore is the keyed-by-symbol position table. Rows are never
// deleted; closing marks the row CLOSED:<reason> and a later registration
// for the same symbol overwrites the tombstone.
type PositionStore interface {
	// Get returns nil, nil when the symbol has no row.
	Get(ctx context.Context, symbol string) (*model.Position, error)
	// Upsert writes the full row, keyed by symbol.
	Upsert(ctx context.Context, pos *model.Position) error
	// UpdateFields applies a partial update; a missing symbol is a no-op.
	UpdateFields(ctx context.Context, symbol string, patch model.PositionPatch) error
	// ClosePosition sets status to CLOSED:<reason>; a missing symbol is a no-op.
	ClosePosition(ctx context.Context, symbol, reason string) error
	ListOpen(ctx context.Context) ([]*model.Position, error)
}

// SignalAppender is the write half of the signal log, split out so mirrors
// (redis stream, etc.) can receive appends without serving queries.
type SignalAppender interface {
	Append(ctx context.Context, sample model.SignalSample) error
}

// SignalLog is the append-only time-series of scan samples.
type SignalLog interface {
	SignalAppender
	// LastAlerts returns the most recent sample per symbol for a day.
	LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error)
	// Summarize ranks a day's symbols by max observed percent change.
	Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error)
}
