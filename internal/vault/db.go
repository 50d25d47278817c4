package vault

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * 40 * time.Millisecond
	if delay > 300*time.Millisecond {
		delay = 300 * time.Millisecond
	}
	return delay
}

func (v *Vault) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	slog.Debug("sql exec", "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		res, err := v.db.ExecContext(ctx, query, args...)
		if err == nil || !isSQLiteBusy(err) {
			return res, err
		}
		slog.Debug("sql exec busy", "query", query, "attempt", attempt+1, "err", err)
		if attempt >= 1 || v.busyTimeout <= 0 || time.Since(start) >= v.busyTimeout {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		time.Sleep(retryDelay(attempt))
	}
}

func (v *Vault) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	slog.Debug("sql query", "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		rows, err := v.db.QueryContext(ctx, query, args...)
		if err == nil || !isSQLiteBusy(err) {
			return rows, err
		}
		slog.Debug("sql query busy", "query", query, "attempt", attempt+1, "err", err)
		if attempt >= 1 || v.busyTimeout <= 0 || time.Since(start) >= v.busyTimeout {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		time.Sleep(retryDelay(attempt))
	}
}

func (v *Vault) queryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	slog.Debug("sql query row", "query", query, "args", args)
	return v.db.QueryRowContext(ctx, query, args...)
}

func (v *Vault) beginTx(ctx context.Context, name string) (*sql.Tx, time.Time, error) {
	start := time.Now()
	slog.Debug("sql tx begin", "op", name)
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("sql tx begin failed", "op", name, "err", err)
		return nil, start, err
	}
	return tx, start, nil
}

func (v *Vault) commitTx(tx *sql.Tx, name string, start time.Time) error {
	err := tx.Commit()
	slog.Debug("sql tx commit", "op", name, "duration_ms", time.Since(start).Milliseconds(), "err", err)
	return err
}

func (v *Vault) rollbackTx(tx *sql.Tx, name string, start time.Time) {
	err := tx.Rollback()
	if err != nil && err != sql.ErrTxDone {
		slog.Warn("sql tx rollback failed", "op", name, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		return
	}
	slog.Debug("sql tx rollback", "op", name, "duration_ms", time.Since(start).Milliseconds(), "err", err)
}
