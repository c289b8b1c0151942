package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// MetricName returns the stored name of an agent sample
func MetricName(agent string, sampleName string) string {
	return agent + "." + sampleName
}

// SaveSamples upserts the metric definitions, inserts the values and prunes old entries based on the number of
// aggregated values. A sample already stored for the same metric and timestamp is ignored.
// Returns the number of newly stored values.
func (s *sqliteStorage) SaveSamples(ctx context.Context, agent string, samples []agentCommon.MetricSample) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	numStored := 0
	touched := make(map[string]struct{})
	for _, sample := range samples {
		name := MetricName(agent, sample.Name)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO metrics (name, agent, unit, num_aggregation)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				unit=excluded.unit,
				num_aggregation=excluded.num_aggregation
		`, name, agent, string(sample.Unit), s.numAggregation)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert metric definition: %w", err)
		}

		var result sql.Result
		result, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO metrics_values (metric_name, value, recorded_at)
			VALUES (?, ?, ?)
		`, name, sample.Value, sample.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("failed to insert metric value: %w", err)
		}

		numStored += rowsAffected(result)
		touched[name] = struct{}{}
	}

	for name := range touched {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM metrics_values
			WHERE metric_name = ?
			  AND rowid NOT IN (
				  SELECT rowid FROM metrics_values
				  WHERE metric_name = ?
				  ORDER BY recorded_at DESC
				  LIMIT ?
			  )
		`, name, name, s.numAggregation)
		if err != nil {
			return 0, fmt.Errorf("failed to trim metric aggregation window: %w", err)
		}
	}

	return numStored, tx.Commit()
}

func rowsAffected(result sql.Result) int {
	affected, err := result.RowsAffected()
	if err != nil {
		return 0
	}

	return int(affected)
}

// GetLatestMetrics fetches the most recent value for each metric. Metrics without values are skipped.
func (s *sqliteStorage) GetLatestMetrics(ctx context.Context) ([]common.MetricHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.name, m.agent, m.unit, m.num_aggregation, m.display_order, v.value, v.recorded_at
		FROM metrics m
		JOIN (
			SELECT metric_name, value, recorded_at,
				ROW_NUMBER() OVER(PARTITION BY metric_name ORDER BY recorded_at DESC) as rn
			FROM metrics_values
		) v ON m.name = v.metric_name AND v.rn = 1
		ORDER BY m.display_order, m.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]common.MetricHistory, 0)
	for rows.Next() {
		var h common.MetricHistory
		var value common.MetricValue

		err = rows.Scan(&h.Name, &h.Agent, &h.Unit, &h.NumAggregation, &h.DisplayOrder, &value.Value, &value.RecordedAt)
		if err != nil {
			return nil, err
		}

		h.History = []common.MetricValue{value}
		results = append(results, h)
	}

	return results, rows.Err()
}

// GetMetricHistory returns the metric definition and its retained values in ascending time order
func (s *sqliteStorage) GetMetricHistory(ctx context.Context, name string) (*common.MetricHistory, error) {
	var h common.MetricHistory

	err := s.db.QueryRowContext(ctx, "SELECT name, agent, unit, num_aggregation, display_order FROM metrics WHERE name = ?", name).
		Scan(&h.Name, &h.Agent, &h.Unit, &h.NumAggregation, &h.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT value, recorded_at
		FROM metrics_values
		WHERE metric_name = ?
		ORDER BY recorded_at
	`, name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	h.History = make([]common.MetricValue, 0)
	for rows.Next() {
		var value common.MetricValue
		err = rows.Scan(&value.Value, &value.RecordedAt)
		if err != nil {
			return nil, err
		}

		h.History = append(h.History, value)
	}

	return &h, rows.Err()
}

// DeleteMetric deletes a metric and all its values
func (s *sqliteStorage) DeleteMetric(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM metrics WHERE name = ?", name)
	return err
}

// UpdateMetricOrder updates the display order of a specific metric
func (s *sqliteStorage) UpdateMetricOrder(ctx context.Context, name string, order int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE metrics SET display_order = ? WHERE name = ?", order, name)
	return err
}

// UpdatePanelOrder updates the display order of a specific panel (agent)
func (s *sqliteStorage) UpdatePanelOrder(ctx context.Context, name string, order int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO panel_configs (name, display_order)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET display_order=excluded.display_order
	`, name, order)
	return err
}

// GetPanelsConfigs returns the display configurations for all panels
func (s *sqliteStorage) GetPanelsConfigs(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, display_order FROM panel_configs")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	res := make(map[string]int)
	for rows.Next() {
		var name string
		var order int
		err = rows.Scan(&name, &order)
		if err != nil {
			return nil, err
		}
		res[name] = order
	}

	return res, rows.Err()
}
