package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// SaveAlerts stores the alerts of an agent. Alerts are keyed by id, an already stored alert is ignored.
// Returns the newly stored alerts.
func (s *sqliteStorage) SaveAlerts(ctx context.Context, agent string, alerts []agentCommon.AlertEvent) ([]common.StoredAlert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]common.StoredAlert, 0, len(alerts))
	for _, alert := range alerts {
		if len(alert.ID) == 0 {
			continue
		}

		payload, errMarshal := json.Marshal(alert)
		if errMarshal != nil {
			return nil, fmt.Errorf("failed to encode alert %s: %w", alert.ID, errMarshal)
		}

		result, errExec := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO alerts (id, agent, severity, timestamp, record)
			VALUES (?, ?, ?, ?, ?)
		`, alert.ID, agent, string(alert.Severity), alert.Timestamp, string(payload))
		if errExec != nil {
			return nil, fmt.Errorf("failed to insert alert %s: %w", alert.ID, errExec)
		}

		if rowsAffected(result) > 0 {
			stored = append(stored, common.StoredAlert{Agent: agent, AlertEvent: alert})
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// GetAlerts returns the stored alerts matching the query, newest first
func (s *sqliteStorage) GetAlerts(ctx context.Context, query common.AlertQuery) ([]common.StoredAlert, error) {
	conditions := []string{"timestamp >= ?"}
	params := []interface{}{query.Since}
	if len(query.Agent) > 0 {
		conditions = append(conditions, "agent = ?")
		params = append(params, query.Agent)
	}
	params = append(params, queryLimit(query.Limit))

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent, record FROM alerts
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY timestamp DESC LIMIT ?
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]common.StoredAlert, 0)
	for rows.Next() {
		var alert common.StoredAlert
		var payload string

		err = rows.Scan(&alert.Agent, &payload)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal([]byte(payload), &alert.AlertEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored alert: %w", err)
		}
		results = append(results, alert)
	}

	return results, rows.Err()
}
