// Package sqlite persists candle history and backtest runs in a local
// SQLite database. One process owns the write side; WAL mode keeps
// concurrent readers cheap.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fxbot/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath with WAL mode and the
// schema applied.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; readers ride the WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite: opened database", slog.String("path", dbPath))
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL,
			PRIMARY KEY (symbol, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			config     TEXT    NOT NULL,
			result     TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// RunWriter drains candleCh into batched transactions. Flushes every
// defaultBatchSize candles or defaultFlushDelay, whichever comes
// first. Blocks until ctx is cancelled or the channel closes.
func (s *Store) RunWriter(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.insertBatch(batch); err != nil {
			slog.Error("sqlite: batch insert failed", slog.String("err", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case c, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, c)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (s *Store) insertBatch(candles []model.Candle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.Timeframe, c.Time.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertCandles writes candles synchronously in one transaction.
func (s *Store) InsertCandles(candles []model.Candle) error {
	return s.insertBatch(candles)
}

// ReadCandles returns candles for symbol/timeframe within [from, to],
// ordered by timestamp ascending as the simulator requires.
func (s *Store) ReadCandles(symbol, timeframe string, from, to time.Time) ([]model.Candle, error) {
	rows, err := s.db.Query(`
		SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, timeframe, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		var volume sql.NullFloat64
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.Time = time.Unix(tsUnix, 0).UTC()
		c.Volume = volume.Float64
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LastTimestamp returns the newest stored candle timestamp for
// symbol/timeframe, or zero when none exist.
func (s *Store) LastTimestamp(symbol, timeframe string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveBacktestRun records a completed run. Config and result are
// stored as JSON documents; old runs are pruned to the newest 50.
func (s *Store) SaveBacktestRun(config, result any) error {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal backtest config: %w", err)
	}
	resJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal backtest result: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO backtest_runs (config, result) VALUES (?, ?)`,
		string(cfgJSON), string(resJSON),
	); err != nil {
		return fmt.Errorf("sqlite insert backtest run: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM backtest_runs
		WHERE id NOT IN (SELECT id FROM backtest_runs ORDER BY created_at DESC LIMIT 50)
	`); err != nil {
		slog.Warn("sqlite: prune backtest runs failed", slog.String("err", err.Error()))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
