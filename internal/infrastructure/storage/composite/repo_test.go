package composite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploder/internal/domain/model"
)

type fakeLog struct {
	samples []model.SignalSample
	err     error
}

func (f *fakeLog) Append(ctx context.Context, s model.SignalSample) error {
	if f.err != nil {
		return f.err
	}
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeLog) LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error) {
	return map[string]model.LastAlert{"HTZ": {Pct: 7.5}}, f.err
}

func (f *fakeLog) Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error) {
	return []model.SymbolDaySummary{{Symbol: "HTZ"}}, f.err
}

func sample() model.SignalSample {
	return model.SignalSample{
		Date: "2026-08-31", Ts: time.Now(), Symbol: "HTZ",
		Price: decimal.NewFromInt(10), PctChange: 7.5, Volume: 2_000_000,
	}
}

func TestAppendFansOut(t *testing.T) {
	primary, mirror := &fakeLog{}, &fakeLog{}
	log := NewSignalLog(primary, mirror)

	require.NoError(t, log.Append(context.Background(), sample()))
	assert.Len(t, primary.samples, 1)
	assert.Len(t, mirror.samples, 1)
}

func TestMirrorFailureIsSwallowed(t *testing.T) {
	primary := &fakeLog{}
	mirror := &fakeLog{err: errors.New("connection refused")}

	err := NewSignalLog(primary, mirror).Append(context.Background(), sample())
	require.NoError(t, err)
	assert.Len(t, primary.samples, 1)
}

func TestPrimaryFailurePropagates(t *testing.T) {
	primary := &fakeLog{err: errors.New("disk full")}
	mirror := &fakeLog{}

	err := NewSignalLog(primary, mirror).Append(context.Background(), sample())
	require.Error(t, err)
	// the mirror still gets the sample
	assert.Len(t, mirror.samples, 1)
}

func TestNilMirrorsAreDropped(t *testing.T) {
	primary := &fakeLog{}
	log := NewSignalLog(primary, nil, nil)
	require.NoError(t, log.Append(context.Background(), sample()))
	assert.Len(t, primary.samples, 1)
}

func TestReadsGoToPrimary(t *testing.T) {
	log := NewSignalLog(&fakeLog{}, &fakeLog{})

	la, err := log.LastAlerts(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.Contains(t, la, "HTZ")

	rows, err := log.Summarize(context.Background(), "2026-08-31")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
