package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploder/internal/domain/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openPosition(symbol string) *model.Position {
	return &model.Position{
		Symbol:     symbol,
		Status:     model.StatusOpen,
		EntryPrice: d("10"),
		AvgPrice:   d("10"),
		QtyUSD:     d("100"),
		Stop:       d("9.2"),
		TP1:        d("11"),
		TP2:        d("12"),
	}
}

func newTestManager(store *memStore) (*Manager, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewManager(store, n, testRisk()), n
}

func TestManagerStopLoss(t *testing.T) {
	store := newMemStore()
	mgr, n := newTestManager(store)
	pos := openPosition("HTZ")
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("9.2"), nil)
	require.NoError(t, err)
	assert.Equal(t, ActionStop, action)

	got, _ := store.Get(context.Background(), "HTZ")
	assert.Equal(t, "CLOSED:STOP", got.Status)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "STOP")
}

func TestManagerStopWinsOverEverything(t *testing.T) {
	// Stale levels where stop and tp2 are both crossed at once: the stop
	// must win because it is checked first.
	store := newMemStore()
	mgr, _ := newTestManager(store)
	pos := openPosition("XELA")
	pos.Stop = d("10")
	pos.TP2 = d("9.5")
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("9.6"), &model.Candidate{
		Symbol: "XELA", Price: d("9.6"), PctChange: 9, Volume: 2_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionStop, action)

	got, _ := store.Get(context.Background(), "XELA")
	assert.Equal(t, "CLOSED:STOP", got.Status)
}

func TestManagerFinalTakeProfit(t *testing.T) {
	store := newMemStore()
	mgr, n := newTestManager(store)
	pos := openPosition("GME")
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("12.5"), nil)
	require.NoError(t, err)
	assert.Equal(t, ActionTakeProfit, action)

	got, _ := store.Get(context.Background(), "GME")
	assert.Equal(t, "CLOSED:TP2", got.Status)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "TAKE PROFIT")
}

func TestManagerPartialTakeProfitRaisesStopToBreakEven(t *testing.T) {
	store := newMemStore()
	mgr, _ := newTestManager(store)
	pos := openPosition("AMC")
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("11.1"), nil)
	require.NoError(t, err)
	assert.Equal(t, ActionPartial, action)

	got, _ := store.Get(context.Background(), "AMC")
	assert.True(t, got.PartialTaken)
	assert.True(t, got.Stop.Equal(got.AvgPrice), "stop %s != avg %s", got.Stop, got.AvgPrice)
	assert.Equal(t, model.StatusOpen, got.Status)
}

func TestManagerPartialFiresOnce(t *testing.T) {
	store := newMemStore()
	mgr, n := newTestManager(store)
	pos := openPosition("AMC")
	pos.PartialTaken = true
	pos.Stop = d("10")
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("11.1"), nil)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Empty(t, n.messages)
}

func TestManagerAddOnDip(t *testing.T) {
	store := newMemStore()
	mgr, n := newTestManager(store)
	pos := openPosition("SNDL")
	require.NoError(t, store.Upsert(context.Background(), pos))

	// drawdown -4.5%, momentum confirmed
	cand := &model.Candidate{Symbol: "SNDL", Price: d("9.55"), PctChange: 6.5, Volume: 3_000_000}
	action, err := mgr.Manage(context.Background(), pos, d("9.55"), cand)
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, action)

	got, _ := store.Get(context.Background(), "SNDL")
	assert.True(t, got.QtyUSD.Equal(d("150")), "qty = %s", got.QtyUSD)
	// (10*100 + 9.55*50) / 150 = 9.85
	assert.True(t, got.AvgPrice.Equal(d("9.85")), "avg = %s", got.AvgPrice)
	assert.Equal(t, 1, got.AddsDone)
	assert.True(t, got.Stop.Equal(d("9.062")), "stop = %s", got.Stop)
	assert.True(t, got.TP1.Equal(d("10.835")), "tp1 = %s", got.TP1)
	assert.True(t, got.TP2.Equal(d("11.82")), "tp2 = %s", got.TP2)
	// entry price untouched by averaging
	assert.True(t, got.EntryPrice.Equal(d("10")))
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "ADD")
}

func TestManagerAddBounds(t *testing.T) {
	inBand := d("9.55")
	strong := &model.Candidate{Symbol: "SNDL", Price: inBand, PctChange: 6.5, Volume: 3_000_000}

	tests := []struct {
		name  string
		setup func(p *model.Position)
		price decimal.Decimal
		cand  *model.Candidate
	}{
		{"max adds reached", func(p *model.Position) { p.AddsDone = 1 }, inBand, strong},
		{"no candidate this cycle", func(p *model.Position) {}, inBand, nil},
		{"momentum faded", func(p *model.Position) {}, inBand,
			&model.Candidate{Symbol: "SNDL", Price: inBand, PctChange: 4, Volume: 3_000_000}},
		{"drawdown below band", func(p *model.Position) {}, d("9.3"), strong},
		{"drawdown above band", func(p *model.Position) {}, d("9.75"), strong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			mgr, _ := newTestManager(store)
			pos := openPosition("SNDL")
			tt.setup(pos)
			require.NoError(t, store.Upsert(context.Background(), pos))

			action, err := mgr.Manage(context.Background(), pos, tt.price, tt.cand)
			require.NoError(t, err)
			assert.Equal(t, ActionNone, action)

			got, _ := store.Get(context.Background(), "SNDL")
			assert.True(t, got.QtyUSD.Equal(d("100")), "qty mutated: %s", got.QtyUSD)
		})
	}
}

func TestManagerAddsNeverExceedMax(t *testing.T) {
	store := newMemStore()
	mgr, _ := newTestManager(store)
	pos := openPosition("SNDL")
	require.NoError(t, store.Upsert(context.Background(), pos))

	cand := &model.Candidate{Symbol: "SNDL", Price: d("9.55"), PctChange: 6.5, Volume: 3_000_000}
	for i := 0; i < 5; i++ {
		got, _ := store.Get(context.Background(), "SNDL")
		// keep the drawdown inside the band relative to the fixed entry
		_, err := mgr.Manage(context.Background(), got, d("9.55"), cand)
		require.NoError(t, err)
	}
	got, _ := store.Get(context.Background(), "SNDL")
	assert.LessOrEqual(t, got.AddsDone, testRisk().MaxAdds)
}

func TestManagerIgnoresClosedPositions(t *testing.T) {
	store := newMemStore()
	mgr, n := newTestManager(store)
	pos := openPosition("HTZ")
	pos.Status = model.ClosedStatus(model.CloseReasonStop)
	require.NoError(t, store.Upsert(context.Background(), pos))

	action, err := mgr.Manage(context.Background(), pos, d("1"), nil)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Empty(t, n.messages)

	got, _ := store.Get(context.Background(), "HTZ")
	assert.Equal(t, "CLOSED:STOP", got.Status)
}

func TestManagerBreakEvenFloorSurvivesCycles(t *testing.T) {
	store := newMemStore()
	mgr, _ := newTestManager(store)
	pos := openPosition("BB")
	require.NoError(t, store.Upsert(context.Background(), pos))

	// tp1 crossing sets the floor
	_, err := mgr.Manage(context.Background(), pos, d("11.2"), nil)
	require.NoError(t, err)

	// later cycles between stop and tp1 leave it alone
	got, _ := store.Get(context.Background(), "BB")
	_, err = mgr.Manage(context.Background(), got, d("10.5"), nil)
	require.NoError(t, err)

	got, _ = store.Get(context.Background(), "BB")
	assert.True(t, got.PartialTaken)
	assert.True(t, got.Stop.LessThanOrEqual(got.AvgPrice),
		"break-even floor violated: stop %s > avg %s", got.Stop, got.AvgPrice)
	assert.True(t, got.Stop.Equal(got.AvgPrice))
}
