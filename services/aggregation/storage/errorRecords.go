package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const (
	maxTopErrors      = 10
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// SaveErrors upserts the error records of an agent. An already stored record is replaced when the reported
// LastSeen is newer, or when with the same LastSeen the agent resolved or reopened it, or resolved it later.
// Returns the number of inserted or updated records.
func (s *sqliteStorage) SaveErrors(ctx context.Context, agent string, records []agentCommon.ErrorRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	numStored := 0
	for _, record := range records {
		if len(record.ID) == 0 {
			continue
		}

		payload, errMarshal := json.Marshal(record)
		if errMarshal != nil {
			return 0, fmt.Errorf("failed to encode error record %s: %w", record.ID, errMarshal)
		}

		result, errExec := tx.ExecContext(ctx, `
			INSERT INTO errors (agent, id, type, severity, occurrences, first_seen, last_seen, resolved,
				resolution_notes, resolved_by, resolved_at, record)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(agent, id) DO UPDATE SET
				type=excluded.type,
				severity=excluded.severity,
				occurrences=excluded.occurrences,
				last_seen=excluded.last_seen,
				resolved=excluded.resolved,
				resolution_notes=excluded.resolution_notes,
				resolved_by=excluded.resolved_by,
				resolved_at=excluded.resolved_at,
				record=excluded.record
			WHERE excluded.last_seen > errors.last_seen
				OR (excluded.last_seen = errors.last_seen AND excluded.resolved != errors.resolved)
				OR (excluded.last_seen = errors.last_seen AND excluded.resolved AND excluded.resolved_at > errors.resolved_at)
		`, agent, record.ID, string(record.Type), string(record.Severity), record.Occurrences, record.FirstSeen,
			record.LastSeen, record.Resolved, record.Context.ResolutionNotes, record.Context.ResolvedBy,
			record.Context.ResolvedAt, string(payload))
		if errExec != nil {
			return 0, fmt.Errorf("failed to upsert error record %s: %w", record.ID, errExec)
		}

		numStored += rowsAffected(result)
	}

	return numStored, tx.Commit()
}

// GetErrors returns the stored error records matching the query, most recently seen first
func (s *sqliteStorage) GetErrors(ctx context.Context, query common.ErrorQuery) ([]common.StoredError, error) {
	conditions := make([]string, 0)
	params := make([]interface{}, 0)
	if len(query.Agent) > 0 {
		conditions = append(conditions, "agent = ?")
		params = append(params, query.Agent)
	}
	if len(query.Type) > 0 {
		conditions = append(conditions, "type = ?")
		params = append(params, query.Type)
	}
	if len(query.Severity) > 0 {
		conditions = append(conditions, "severity = ?")
		params = append(params, query.Severity)
	}
	if query.Resolved != nil {
		conditions = append(conditions, "resolved = ?")
		params = append(params, *query.Resolved)
	}

	statement := "SELECT agent, resolved, resolution_notes, resolved_by, resolved_at, record FROM errors"
	if len(conditions) > 0 {
		statement += " WHERE " + strings.Join(conditions, " AND ")
	}
	statement += " ORDER BY last_seen DESC LIMIT ?"
	params = append(params, queryLimit(query.Limit))

	return s.queryErrors(ctx, statement, params...)
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}

	return limit
}

func (s *sqliteStorage) queryErrors(ctx context.Context, statement string, params ...interface{}) ([]common.StoredError, error) {
	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]common.StoredError, 0)
	for rows.Next() {
		var stored common.StoredError
		var resolution common.Resolution
		var payload string

		err = rows.Scan(&stored.Agent, &resolution.Resolved, &resolution.Notes, &resolution.ResolvedBy, &resolution.ResolvedAt, &payload)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal([]byte(payload), &stored.ErrorRecord)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored error record: %w", err)
		}

		stored.Resolved = resolution.Resolved
		stored.Context.ResolutionNotes = resolution.Notes
		stored.Context.ResolvedBy = resolution.ResolvedBy
		stored.Context.ResolvedAt = resolution.ResolvedAt
		results = append(results, stored)
	}

	return results, rows.Err()
}

// SetResolution resolves or reopens all the stored records with the provided id.
// Returns false if no record matches the id.
func (s *sqliteStorage) SetResolution(ctx context.Context, id string, resolution common.Resolution) (bool, error) {
	if !resolution.Resolved {
		resolution = common.Resolution{}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE errors SET resolved = ?, resolution_notes = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ?
	`, resolution.Resolved, resolution.Notes, resolution.ResolvedBy, resolution.ResolvedAt, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result) > 0, nil
}

// GetErrorSummary aggregates the records seen since the provided timestamp (epoch milliseconds)
func (s *sqliteStorage) GetErrorSummary(ctx context.Context, since int64) (*common.ErrorSummary, error) {
	records, err := s.queryErrors(ctx, `
		SELECT agent, resolved, resolution_notes, resolved_by, resolved_at, record
		FROM errors
		WHERE last_seen >= ?
		ORDER BY occurrences DESC, last_seen DESC
	`, since)
	if err != nil {
		return nil, err
	}

	summary := &common.ErrorSummary{
		UniqueErrors:     len(records),
		ErrorsByType:     make(map[string]int),
		ErrorsBySeverity: make(map[string]int),
		ErrorsByAgent:    make(map[string]int),
		TopErrors:        make([]common.StoredError, 0, maxTopErrors),
	}
	for _, record := range records {
		summary.TotalErrors += record.Occurrences
		summary.ErrorsByType[string(record.Type)] += record.Occurrences
		summary.ErrorsBySeverity[string(record.Severity)] += record.Occurrences
		summary.ErrorsByAgent[record.Agent] += record.Occurrences
		if record.Resolved {
			summary.ResolvedErrors++
		}
		if record.Severity == agentCommon.SeverityCritical {
			summary.CriticalErrors++
		}
	}

	if len(records) > maxTopErrors {
		records = records[:maxTopErrors]
	}
	summary.TopErrors = append(summary.TopErrors, records...)

	return summary, nil
}
