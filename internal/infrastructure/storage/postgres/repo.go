// Package postgres is the optional storage backend for deployments that
// already run Postgres. Same contracts as the sqlite repo.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS positions (
  symbol TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  created_ts BIGINT NOT NULL,
  updated_ts BIGINT NOT NULL,
  entry_price NUMERIC NOT NULL,
  avg_price NUMERIC NOT NULL,
  qty_usd NUMERIC NOT NULL,
  adds_done INT NOT NULL DEFAULT 0,
  stop NUMERIC NOT NULL,
  tp1 NUMERIC NOT NULL,
  tp2 NUMERIC NOT NULL,
  partial_taken BOOLEAN NOT NULL DEFAULT FALSE,
  notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);

CREATE TABLE IF NOT EXISTS signals (
  id BIGSERIAL PRIMARY KEY,
  date TEXT NOT NULL,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  price NUMERIC NOT NULL,
  pct_change DOUBLE PRECISION NOT NULL,
  volume BIGINT NOT NULL,
  cycle_id TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_date_symbol ON signals(date, symbol);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
`)
	return err
}

const positionColumns = `symbol, status, created_ts, updated_ts, entry_price::text, avg_price::text,
       qty_usd::text, adds_done, stop::text, tp1::text, tp2::text, partial_taken, notes`

func (r *Repo) Get(ctx context.Context, symbol string) (*model.Position, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE symbol = $1`, symbol)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return pos, err
}

func (r *Repo) Upsert(ctx context.Context, p *model.Position) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions(symbol, status, created_ts, updated_ts, entry_price, avg_price,
		                      qty_usd, adds_done, stop, tp1, tp2, partial_taken, notes)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT(symbol) DO UPDATE SET
		status=excluded.status, created_ts=excluded.created_ts, updated_ts=excluded.updated_ts,
		entry_price=excluded.entry_price, avg_price=excluded.avg_price, qty_usd=excluded.qty_usd,
		adds_done=excluded.adds_done, stop=excluded.stop, tp1=excluded.tp1, tp2=excluded.tp2,
		partial_taken=excluded.partial_taken, notes=excluded.notes
	`, p.Symbol, p.Status, p.CreatedTs.UnixMilli(), p.UpdatedTs.UnixMilli(),
		p.EntryPrice.String(), p.AvgPrice.String(), p.QtyUSD.String(), p.AddsDone,
		p.Stop.String(), p.TP1.String(), p.TP2.String(), p.PartialTaken, p.Notes)
	return err
}

func (r *Repo) UpdateFields(ctx context.Context, symbol string, patch model.PositionPatch) error {
	sets, args := patchSets(patch)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, time.Now().UnixMilli())
	sets = append(sets, fmt.Sprintf("updated_ts = $%d", len(args)))
	args = append(args, symbol)
	q := fmt.Sprintf(`UPDATE positions SET %s WHERE symbol = $%d`, strings.Join(sets, ", "), len(args))
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *Repo) ClosePosition(ctx context.Context, symbol, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE positions SET status = $1, updated_ts = $2 WHERE symbol = $3`,
		model.ClosedStatus(reason), time.Now().UnixMilli(), symbol)
	return err
}

func (r *Repo) ListOpen(ctx context.Context) ([]*model.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE status LIKE 'OPEN%' ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

func (r *Repo) Append(ctx context.Context, s model.SignalSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signals(date, ts_ms, symbol, price, pct_change, volume, cycle_id, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.Date, s.Ts.UnixMilli(), s.Symbol, s.Price.String(), s.PctChange, s.Volume,
		s.CycleID, time.Now().UnixMilli())
	return err
}

func (r *Repo) LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, price::text, pct_change, ts_ms FROM signals
		WHERE id IN (SELECT MAX(id) FROM signals WHERE date = $1 GROUP BY symbol)
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.LastAlert)
	for rows.Next() {
		var symbol, price string
		var pct float64
		var ts int64
		if err := rows.Scan(&symbol, &price, &pct, &ts); err != nil {
			return nil, err
		}
		px, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("postgres: bad price %q for %s: %w", price, symbol, err)
		}
		out[symbol] = model.LastAlert{Pct: pct, Price: px, Ts: time.UnixMilli(ts)}
	}
	return out, rows.Err()
}

func (r *Repo) Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, MAX(pct_change), COUNT(*), MIN(ts_ms), MAX(ts_ms)
		FROM signals WHERE date = $1
		GROUP BY symbol
		ORDER BY MAX(pct_change) DESC, COUNT(*) DESC
		LIMIT 15
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SymbolDaySummary
	for rows.Next() {
		var s model.SymbolDaySummary
		var first, last int64
		if err := rows.Scan(&s.Symbol, &s.MaxPct, &s.Alerts, &first, &last); err != nil {
			return nil, err
		}
		s.FirstTime = time.UnixMilli(first)
		s.LastTime = time.UnixMilli(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

func patchSets(patch model.PositionPatch) (sets []string, args []any) {
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.AvgPrice != nil {
		add("avg_price", patch.AvgPrice.String())
	}
	if patch.QtyUSD != nil {
		add("qty_usd", patch.QtyUSD.String())
	}
	if patch.AddsDone != nil {
		add("adds_done", *patch.AddsDone)
	}
	if patch.Stop != nil {
		add("stop", patch.Stop.String())
	}
	if patch.TP1 != nil {
		add("tp1", patch.TP1.String())
	}
	if patch.TP2 != nil {
		add("tp2", patch.TP2.String())
	}
	if patch.PartialTaken != nil {
		add("partial_taken", *patch.PartialTaken)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	return sets, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*model.Position, error) {
	var p model.Position
	var created, updated int64
	var entry, avg, qty, stop, tp1, tp2 string
	err := row.Scan(&p.Symbol, &p.Status, &created, &updated, &entry, &avg,
		&qty, &p.AddsDone, &stop, &tp1, &tp2, &p.PartialTaken, &p.Notes)
	if err != nil {
		return nil, err
	}
	p.CreatedTs = time.UnixMilli(created)
	p.UpdatedTs = time.UnixMilli(updated)
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.EntryPrice, entry}, {&p.AvgPrice, avg}, {&p.QtyUSD, qty},
		{&p.Stop, stop}, {&p.TP1, tp1}, {&p.TP2, tp2},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("postgres: bad decimal %q for %s: %w", f.src, p.Symbol, err)
		}
		*f.dst = d
	}
	return &p, nil
}

var (
	_ port.PositionStore = (*Repo)(nil)
	_ port.SignalLog     = (*Repo)(nil)
)
