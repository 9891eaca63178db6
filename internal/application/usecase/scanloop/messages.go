package scanloop

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"exploder/internal/domain/model"
)

func startupMessage(interval time.Duration) string {
	return fmt.Sprintf("🟢 Stock Exploder started — scanning every %d min ⚡", int(interval.Minutes()))
}

func alertHeader(now time.Time) string {
	return fmt.Sprintf("🚀 [%s] Low-price momentum candidates:\n", now.Format("15:04:05"))
}

// formatCandidate renders one alert block with a fixed-capital share
// suggestion (at least one share, so tiny budgets still produce a number).
func formatCandidate(c model.Candidate, capitalUSD decimal.Decimal) string {
	shares := capitalUSD.Div(c.Price).IntPart()
	if shares < 1 {
		shares = 1
	}
	totalCost := c.Price.Mul(decimal.NewFromInt(shares)).Round(2)
	return fmt.Sprintf(
		"💎 %s\n📈 Change: +%.2f%%\n💰 Price: $%s\n📊 Volume: %s\n🎯 Suggested shares: %d (~$%s)",
		c.Symbol, c.PctChange, c.Price.StringFixed(2),
		humanize.Comma(c.Volume), shares, totalCost.StringFixed(2))
}

func summaryMessage(rows []model.SymbolDaySummary) string {
	if len(rows) == 0 {
		return "📊 EOD — nothing to summarize today."
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s: max %.1f%% | alerts %d", r.Symbol, r.MaxPct, r.Alerts))
	}
	return "📊 EOD — daily summary (max % change observed):\n" + strings.Join(lines, "\n")
}
