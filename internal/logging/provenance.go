package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the fixed-width UTC timestamp stored in created_at columns.
// Unlike RFC3339Nano it keeps trailing zeros, so text order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db Execer, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (attempt_id, text_hash, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.AttemptID,
		nullIfEmpty(entry.TextHash),
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogGateRecord serializes rec and logs it as the entry's signals payload.
func LogGateRecord(db Execer, triggerType, textHash string, rec GateRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal gate record: %w", err)
	}
	return LogDecision(db, ProvenanceEntry{
		AttemptID:   rec.AttemptID,
		TextHash:    textHash,
		TriggerType: triggerType,
		SignalsJSON: string(payload),
		Decision:    rec.Decision(),
		Reason:      rec.Reason,
	})
}

// #endregion log-decision

// #region load-records
// LoadGateRecords returns the gate records logged in provenance_log in log
// (insertion) order. Rows without a signals payload are skipped.
func LoadGateRecords(db *sql.DB) ([]GateRecord, error) {
	rows, err := db.Query(
		`SELECT signals_json FROM provenance_log
		 WHERE signals_json IS NOT NULL
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []GateRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		var rec GateRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal gate record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion load-records

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
