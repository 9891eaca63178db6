package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploder/internal/domain/model"
)

func advisorCandidate(price string, volume int64) *model.Candidate {
	return &model.Candidate{
		Symbol: "HTZ",
		Price:  decimal.RequireFromString(price),
		Volume: volume,
	}
}

func TestAdvisorBands(t *testing.T) {
	tests := []struct {
		name string
		cand *model.Candidate
		want string
	}{
		{
			name: "gain past five percent suggests taking profit",
			cand: advisorCandidate("10.60", 2_000_000),
			want: "✅ HTZ +6.00% — consider a partial take-profit or closing.",
		},
		{
			name: "dip with sustained volume suggests averaging",
			cand: advisorCandidate("9.60", 2_000_000),
			want: "⚖️ HTZ -4.00% — volume holding. Consider averaging in.",
		},
		{
			name: "deep dip is weakness",
			cand: advisorCandidate("9.30", 2_000_000),
			want: "❌ HTZ -7.00% — weakness confirmed. Suggestion: close the position.",
		},
		{
			name: "dip without volume is weakness, not an averaging call",
			cand: advisorCandidate("9.60", 0),
			want: "❌ HTZ -4.00% — weakness confirmed. Suggestion: close the position.",
		},
		{
			name: "gone from the scan reads as weakness",
			cand: nil,
			want: "❌ HTZ 0.00% — weakness confirmed. Suggestion: close the position.",
		},
		{
			name: "small move with volume stays quiet",
			cand: advisorCandidate("10.10", 2_000_000),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			pos := openPosition("HTZ")
			NewAdvisor(n).Evaluate(context.Background(), pos, tt.cand)

			if tt.want == "" {
				assert.Empty(t, n.messages)
				return
			}
			require.Len(t, n.messages, 1)
			assert.Equal(t, tt.want, n.messages[0])
		})
	}
}

func TestAdvisorSkipsClosedPositions(t *testing.T) {
	n := &recordingNotifier{}
	pos := openPosition("HTZ")
	pos.Status = model.ClosedStatus(model.CloseReasonStop)

	NewAdvisor(n).Evaluate(context.Background(), pos, advisorCandidate("9.0", 2_000_000))
	assert.Empty(t, n.messages)
}

func TestAdvisorNeverTouchesTheStore(t *testing.T) {
	store := newMemStore()
	pos := openPosition("HTZ")
	require.NoError(t, store.Upsert(context.Background(), pos))
	before, _ := store.Get(context.Background(), pos.Symbol)

	NewAdvisor(&recordingNotifier{}).Evaluate(context.Background(), pos, advisorCandidate("9.30", 2_000_000))

	after, _ := store.Get(context.Background(), pos.Symbol)
	assert.Equal(t, before, after)
}
