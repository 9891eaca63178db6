package service

import (
	"context"
	"sort"
	"time"

	"exploder/internal/domain/model"
)

// memStore is an in-memory PositionStore + SignalLog for the domain tests.
type memStore struct {
	positions map[string]*model.Position
	samples   []model.SignalSample

	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[string]*model.Position)}
}

func (m *memStore) Get(ctx context.Context, symbol string) (*model.Position, error) {
	p, ok := m.positions[symbol]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Upsert(ctx context.Context, p *model.Position) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *p
	m.positions[p.Symbol] = &cp
	return nil
}

func (m *memStore) UpdateFields(ctx context.Context, symbol string, patch model.PositionPatch) error {
	p, ok := m.positions[symbol]
	if !ok {
		return nil
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.AvgPrice != nil {
		p.AvgPrice = *patch.AvgPrice
	}
	if patch.QtyUSD != nil {
		p.QtyUSD = *patch.QtyUSD
	}
	if patch.AddsDone != nil {
		p.AddsDone = *patch.AddsDone
	}
	if patch.Stop != nil {
		p.Stop = *patch.Stop
	}
	if patch.TP1 != nil {
		p.TP1 = *patch.TP1
	}
	if patch.TP2 != nil {
		p.TP2 = *patch.TP2
	}
	if patch.PartialTaken != nil {
		p.PartialTaken = *patch.PartialTaken
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	p.UpdatedTs = time.Now()
	return nil
}

func (m *memStore) ClosePosition(ctx context.Context, symbol, reason string) error {
	if p, ok := m.positions[symbol]; ok {
		p.Status = model.ClosedStatus(reason)
		p.UpdatedTs = time.Now()
	}
	return nil
}

func (m *memStore) ListOpen(ctx context.Context) ([]*model.Position, error) {
	var out []*model.Position
	for _, p := range m.positions {
		if p.IsOpen() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *memStore) Append(ctx context.Context, s model.SignalSample) error {
	m.samples = append(m.samples, s)
	return nil
}

func (m *memStore) LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error) {
	out := make(map[string]model.LastAlert)
	for _, s := range m.samples {
		if s.Date != date {
			continue
		}
		out[s.Symbol] = model.LastAlert{Pct: s.PctChange, Price: s.Price, Ts: s.Ts}
	}
	return out, nil
}

func (m *memStore) Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error) {
	agg := make(map[string]*model.SymbolDaySummary)
	for _, s := range m.samples {
		if s.Date != date {
			continue
		}
		cur, ok := agg[s.Symbol]
		if !ok {
			agg[s.Symbol] = &model.SymbolDaySummary{
				Symbol: s.Symbol, MaxPct: s.PctChange, Alerts: 1,
				FirstTime: s.Ts, LastTime: s.Ts,
			}
			continue
		}
		cur.Alerts++
		if s.PctChange > cur.MaxPct {
			cur.MaxPct = s.PctChange
		}
		cur.LastTime = s.Ts
	}
	var out []model.SymbolDaySummary
	for _, v := range agg {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaxPct > out[j].MaxPct })
	return out, nil
}

// recordingNotifier captures everything sent through the Notifier port.
type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Send(ctx context.Context, text string) {
	r.messages = append(r.messages, text)
}
