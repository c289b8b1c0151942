package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/commonGo"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/config"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const minCleanupInterval = time.Minute

var log = logger.GetOrCreate("aggregation/storage")

// ErrMetricNotFound signals that the requested metric is not stored
var ErrMetricNotFound = errors.New("metric not found")

// ErrInvalidNumAggregation signals a non-positive number of retained values per metric
var ErrInvalidNumAggregation = errors.New("invalid number of aggregated values")

// ArgsSQLiteStorage is the DTO used to create a new sqlite storage
type ArgsSQLiteStorage struct {
	DBPath         string
	NumAggregation int
	Retention      config.RetentionConfig
}

// sqliteStorage is the sqlite implementation for the telemetry storage
type sqliteStorage struct {
	db             *sql.DB
	numAggregation int
	retention      config.RetentionConfig
	cleaner        *commonGo.PeriodicTask
}

// NewSQLiteStorage creates the database, schema, and starts the retention cleaner
func NewSQLiteStorage(args ArgsSQLiteStorage) (*sqliteStorage, error) {
	if args.NumAggregation <= 0 {
		return nil, ErrInvalidNumAggregation
	}

	err := prepareDirectories(args.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", args.DBPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if args.DBPath == ":memory:" {
		// every connection of an in-memory database opens a distinct database
		db.SetMaxOpenConns(1)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &sqliteStorage{
		db:             db,
		numAggregation: args.NumAggregation,
		retention:      args.Retention,
	}

	s.cleaner, err = commonGo.NewPeriodicTask("retention cleaner", cleanupInterval(args.Retention), s.runCleanup)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.cleaner.Start(context.Background())

	return s, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

// cleanupInterval returns max(shortest retention/10, 1 minute)
func cleanupInterval(retention config.RetentionConfig) time.Duration {
	shortest := uint32(0)
	for _, value := range []uint32{retention.MetricsInSeconds, retention.ErrorsInSeconds, retention.AlertsInSeconds} {
		if value > 0 && (shortest == 0 || value < shortest) {
			shortest = value
		}
	}

	interval := time.Duration(shortest/10) * time.Second
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	return interval
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS metrics (
		name            TEXT    NOT NULL PRIMARY KEY,
		agent           TEXT    NOT NULL,
		unit            TEXT    NOT NULL,
		num_aggregation INTEGER NOT NULL DEFAULT 1,
		display_order   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS panel_configs (
		name            TEXT    NOT NULL PRIMARY KEY,
		display_order   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS metrics_values (
		metric_name TEXT    NOT NULL REFERENCES metrics(name) ON DELETE CASCADE,
		value       REAL    NOT NULL,
		recorded_at INTEGER NOT NULL,
		UNIQUE (metric_name, recorded_at)
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_values_recorded_at ON metrics_values(recorded_at);

	CREATE TABLE IF NOT EXISTS errors (
		agent            TEXT    NOT NULL,
		id               TEXT    NOT NULL,
		type             TEXT    NOT NULL,
		severity         TEXT    NOT NULL,
		occurrences      INTEGER NOT NULL,
		first_seen       INTEGER NOT NULL,
		last_seen        INTEGER NOT NULL,
		resolved         INTEGER NOT NULL DEFAULT 0,
		resolution_notes TEXT    NOT NULL DEFAULT '',
		resolved_by      TEXT    NOT NULL DEFAULT '',
		resolved_at      INTEGER NOT NULL DEFAULT 0,
		record           TEXT    NOT NULL,
		PRIMARY KEY (agent, id)
	);

	CREATE INDEX IF NOT EXISTS idx_errors_last_seen ON errors(last_seen);

	CREATE TABLE IF NOT EXISTS alerts (
		id        TEXT    NOT NULL PRIMARY KEY,
		agent     TEXT    NOT NULL,
		severity  TEXT    NOT NULL,
		timestamp INTEGER NOT NULL,
		record    TEXT    NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *sqliteStorage) runCleanup(ctx context.Context) {
	log.Debug("running retention cleanup")

	err := s.cleanRetained(ctx, time.Now())
	if err != nil {
		log.Warn("failed to cleanup retained data", "error", err)
	}
}

// cleanRetained deletes, per table, the rows older than the table retention. A zero retention keeps everything.
func (s *sqliteStorage) cleanRetained(ctx context.Context, now time.Time) error {
	statements := []struct {
		query     string
		retention uint32
	}{
		{query: "DELETE FROM metrics_values WHERE recorded_at < ?", retention: s.retention.MetricsInSeconds},
		{query: "DELETE FROM errors WHERE last_seen < ?", retention: s.retention.ErrorsInSeconds},
		{query: "DELETE FROM alerts WHERE timestamp < ?", retention: s.retention.AlertsInSeconds},
	}

	for _, statement := range statements {
		if statement.retention == 0 {
			continue
		}

		cutoff := now.Add(-time.Duration(statement.retention) * time.Second).UnixMilli()
		_, err := s.db.ExecContext(ctx, statement.query, cutoff)
		if err != nil {
			return err
		}
	}

	return nil
}

// Close stops the retention cleaner and closes the database
func (s *sqliteStorage) Close() error {
	s.cleaner.Stop()
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
