// Package redis mirrors appended signal samples into a Redis stream and a
// pub/sub channel so external consumers (dashboards, downstream bots) can tail
// the scan in real time. It is write-only; queries stay on the primary log.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

type SignalMirror struct {
	rdb     *redis.Client
	stream  string
	channel string
}

func NewSignalMirror(rdb *redis.Client, prefix string) *SignalMirror {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "exploder"
	}
	return &SignalMirror{
		rdb:     rdb,
		stream:  prefix + ":signals",
		channel: prefix + ":signals:pub",
	}
}

func (m *SignalMirror) Append(ctx context.Context, s model.SignalSample) error {
	// 1) Stream: XADD <stream> * date symbol price pct volume cycle_id
	_, err := m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		Values: map[string]any{
			"date":       s.Date,
			"ts_ms":      s.Ts.UnixMilli(),
			"symbol":     s.Symbol,
			"price":      s.Price.String(),
			"pct_change": s.PctChange,
			"volume":     s.Volume,
			"cycle_id":   s.CycleID,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	msg := fmt.Sprintf(`{"ts_ms":%d,"symbol":"%s","price":"%s","pct_change":%.4f,"volume":%d}`,
		s.Ts.UnixMilli(), s.Symbol, s.Price.String(), s.PctChange, s.Volume)
	return m.rdb.Publish(ctx, m.channel, msg).Err()
}

var _ port.SignalAppender = (*SignalMirror)(nil)
