// Package store persists formatted interval metrics in SQLite so repeated
// summaries survive restarts.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lucasjlepore/fit-intervals/metric"
	"github.com/lucasjlepore/fit-intervals/summary"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const queryTimeout = 5 * time.Second

// MetricCache is a summary.Cache backed by SQLite.
type MetricCache struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ summary.Cache = (*MetricCache)(nil)

// Open creates or upgrades the database at path.
func Open(path string, logger *zap.Logger) (*MetricCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := migrateUp(path); err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	logger.Info("metric cache opened", zap.String("path", path))
	return &MetricCache{db: db, logger: logger}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// migrateUp runs on its own connection because closing the migrator
// closes the database handle.
func migrateUp(path string) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		db.Close()
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (c *MetricCache) Get(key summary.CacheKey) (metric.Result, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res := metric.Result{Symbol: key.Symbol}
	err := c.db.QueryRowContext(ctx, `
		SELECT name, value, unit, approximate
		FROM interval_metrics
		WHERE interval_id = ? AND span = ? AND symbol = ? AND units = ? AND language = ? AND zones = ?`,
		key.IntervalID, key.Span, string(key.Symbol), int(key.Units), key.Language, key.Zones,
	).Scan(&res.Name, &res.Value, &res.Unit, &res.Approximate)
	if errors.Is(err, sql.ErrNoRows) {
		return metric.Result{}, false, nil
	}
	if err != nil {
		return metric.Result{}, false, fmt.Errorf("query cached metric %s: %w", key.Symbol, err)
	}
	return res, true, nil
}

func (c *MetricCache) Put(key summary.CacheKey, res metric.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO interval_metrics
			(interval_id, span, symbol, units, language, zones, name, value, unit, approximate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (interval_id, span, symbol, units, language, zones) DO UPDATE SET
			name = excluded.name,
			value = excluded.value,
			unit = excluded.unit,
			approximate = excluded.approximate,
			updated_at = excluded.updated_at`,
		key.IntervalID, key.Span, string(key.Symbol), int(key.Units), key.Language, key.Zones,
		res.Name, res.Value, res.Unit, res.Approximate, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store metric %s: %w", key.Symbol, err)
	}
	return nil
}

// Reset deletes every cached result.
func (c *MetricCache) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := c.db.ExecContext(ctx, `DELETE FROM interval_metrics`)
	if err != nil {
		return fmt.Errorf("reset metric cache: %w", err)
	}
	n, _ := res.RowsAffected()
	c.logger.Debug("metric cache reset", zap.Int64("rows", n))
	return nil
}

// Len counts cached results.
func (c *MetricCache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM interval_metrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached metrics: %w", err)
	}
	return n, nil
}

func (c *MetricCache) Close() error {
	return c.db.Close()
}
