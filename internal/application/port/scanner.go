package port

import (
	"context"

	"exploder/internal/domain/model"
)

// Scanner produces the ranked momentum candidates for one cycle. Upstream
// failures are absorbed: a broken or empty feed yields an empty slice, never
// an error.
type Scanner interface {
	Scan(ctx context.Context) []model.Candidate
}
