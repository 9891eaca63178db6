// Package sqlite is the default storage backend: the position table and the
// append-only signal log in a single file database. A missing file self-heals
// through migrate-on-open, which is exactly the "treat as empty table"
// contract the rest of the system relies on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"exploder/internal/application/port"
	"exploder/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  created_ts INTEGER NOT NULL,
  updated_ts INTEGER NOT NULL,
  entry_price TEXT NOT NULL,
  avg_price TEXT NOT NULL,
  qty_usd TEXT NOT NULL,
  adds_done INTEGER NOT NULL DEFAULT 0,
  stop TEXT NOT NULL,
  tp1 TEXT NOT NULL,
  tp2 TEXT NOT NULL,
  partial_taken INTEGER NOT NULL DEFAULT 0,
  notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);

CREATE TABLE IF NOT EXISTS signals (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  price TEXT NOT NULL,
  pct_change REAL NOT NULL,
  volume INTEGER NOT NULL,
  cycle_id TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_date_symbol ON signals(date, symbol);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
`)
	return err
}

const positionColumns = `symbol, status, created_ts, updated_ts, entry_price, avg_price,
       qty_usd, adds_done, stop, tp1, tp2, partial_taken, notes`

func (r *Repo) Get(ctx context.Context, symbol string) (*model.Position, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE symbol = ?`, symbol)
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
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		status=excluded.status, created_ts=excluded.created_ts, updated_ts=excluded.updated_ts,
		entry_price=excluded.entry_price, avg_price=excluded.avg_price, qty_usd=excluded.qty_usd,
		adds_done=excluded.adds_done, stop=excluded.stop, tp1=excluded.tp1, tp2=excluded.tp2,
		partial_taken=excluded.partial_taken, notes=excluded.notes
	`, p.Symbol, p.Status, p.CreatedTs.UnixMilli(), p.UpdatedTs.UnixMilli(),
		p.EntryPrice.String(), p.AvgPrice.String(), p.QtyUSD.String(), p.AddsDone,
		p.Stop.String(), p.TP1.String(), p.TP2.String(), boolToInt(p.PartialTaken), p.Notes)
	return err
}

func (r *Repo) UpdateFields(ctx context.Context, symbol string, patch model.PositionPatch) error {
	sets, args := patchSets(patch)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_ts = ?")
	args = append(args, time.Now().UnixMilli(), symbol)
	q := fmt.Sprintf(`UPDATE positions SET %s WHERE symbol = ?`, strings.Join(sets, ", "))
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *Repo) ClosePosition(ctx context.Context, symbol, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE positions SET status = ?, updated_ts = ? WHERE symbol = ?`,
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
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Date, s.Ts.UnixMilli(), s.Symbol, s.Price.String(), s.PctChange, s.Volume,
		s.CycleID, time.Now().UnixMilli())
	return err
}

func (r *Repo) LastAlerts(ctx context.Context, date string) (map[string]model.LastAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, price, pct_change, ts_ms FROM signals
		WHERE id IN (SELECT MAX(id) FROM signals WHERE date = ? GROUP BY symbol)
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
			return nil, fmt.Errorf("sqlite: bad price %q for %s: %w", price, symbol, err)
		}
		out[symbol] = model.LastAlert{Pct: pct, Price: px, Ts: time.UnixMilli(ts)}
	}
	return out, rows.Err()
}

func (r *Repo) Summarize(ctx context.Context, date string) ([]model.SymbolDaySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, MAX(pct_change), COUNT(*), MIN(ts_ms), MAX(ts_ms)
		FROM signals WHERE date = ?
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
	if patch.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, *patch.Status)
	}
	if patch.AvgPrice != nil {
		sets, args = append(sets, "avg_price = ?"), append(args, patch.AvgPrice.String())
	}
	if patch.QtyUSD != nil {
		sets, args = append(sets, "qty_usd = ?"), append(args, patch.QtyUSD.String())
	}
	if patch.AddsDone != nil {
		sets, args = append(sets, "adds_done = ?"), append(args, *patch.AddsDone)
	}
	if patch.Stop != nil {
		sets, args = append(sets, "stop = ?"), append(args, patch.Stop.String())
	}
	if patch.TP1 != nil {
		sets, args = append(sets, "tp1 = ?"), append(args, patch.TP1.String())
	}
	if patch.TP2 != nil {
		sets, args = append(sets, "tp2 = ?"), append(args, patch.TP2.String())
	}
	if patch.PartialTaken != nil {
		sets, args = append(sets, "partial_taken = ?"), append(args, boolToInt(*patch.PartialTaken))
	}
	if patch.Notes != nil {
		sets, args = append(sets, "notes = ?"), append(args, *patch.Notes)
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
	var partial int
	err := row.Scan(&p.Symbol, &p.Status, &created, &updated, &entry, &avg,
		&qty, &p.AddsDone, &stop, &tp1, &tp2, &partial, &p.Notes)
	if err != nil {
		return nil, err
	}
	p.CreatedTs = time.UnixMilli(created)
	p.UpdatedTs = time.UnixMilli(updated)
	p.PartialTaken = partial != 0
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.EntryPrice, entry}, {&p.AvgPrice, avg}, {&p.QtyUSD, qty},
		{&p.Stop, stop}, {&p.TP1, tp1}, {&p.TP2, tp2},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad decimal %q for %s: %w", f.src, p.Symbol, err)
		}
		*f.dst = d
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ port.PositionStore = (*Repo)(nil)
	_ port.SignalLog     = (*Repo)(nil)
)
