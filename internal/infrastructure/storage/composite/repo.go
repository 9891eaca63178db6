// Package composite fans out signal appends to a primary log plus optional
// mirrors. Only the primary's error propagates: a flaky mirror must never
// cost a cycle its history.
package composite

import (
	"context"

	"github.com/rs/zerolog/log"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

type SignalLog struct {
	primary port.SignalLog
	mirrors []port.SignalAppender
}

func NewSignalLog(primary port.SignalLog, mirrors ...port.SignalAppender) *SignalLog {
	// nil mirrors are allowed; filter in constructor
	out := make([]port.SignalAppender, 0, len(mirrors))
	for _, m := range mirrors {
		if m != nil {
			out = append(out, m)
		}
	}
	return &SignalLog{primary: primary, mirrors: out}
}

func (s *SignalLog) Append(ctx context.Context, sample model.SignalSample) error {
	err := s.primary.Append(ctx, sample)
	for _, m := range s.mirrors {
		if merr := m.Append(ctx, sample); merr != nil {
			log.Warn().Err(merr).Str("symbol", sample.Symbol).Msg("signal mirror append failed")
		}
	}
	return err
}

func (s *SignalLog) LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error) {
	return s.primary.LastAlerts(ctx, date)
}

func (s *SignalLog) Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error) {
	return s.primary.Summarize(ctx, date)
}

var _ port.SignalLog = (*SignalLog)(nil)
