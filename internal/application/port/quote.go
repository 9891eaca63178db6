package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteSource fetches the reference price for a single symbol. Unlike the
// scanner it surfaces errors: the caller skips that symbol for the cycle.
type QuoteSource interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
