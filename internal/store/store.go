package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	attempt_id        TEXT PRIMARY KEY,
	lane              TEXT NOT NULL,
	text_hash         TEXT NOT NULL,
	similarity_risk   REAL NOT NULL,
	diversify_enabled INTEGER NOT NULL,
	pass              INTEGER NOT NULL,
	failures          TEXT NOT NULL,
	melodrama_score   REAL NOT NULL,
	nuance_score      REAL NOT NULL,
	metrics_json      TEXT,
	profile_json      TEXT,
	created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id    TEXT NOT NULL,
	text_hash     TEXT,
	trigger_type  TEXT NOT NULL,
	signals_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (attempt_id) REFERENCES attempts(attempt_id)
);
`

// #endregion schema

// #region store-struct
// Store persists gate attempts in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region record-attempt
// RecordAttempt inserts an attempt. A missing ID or timestamp is filled in.
func (s *Store) RecordAttempt(rec AttemptRecord) (AttemptRecord, error) {
	return insertAttempt(s.db, rec)
}

// RecordAttemptWithProvenance inserts an attempt and its provenance row in one
// transaction, so an attempt is never stored without its replayable record.
func (s *Store) RecordAttemptWithProvenance(rec AttemptRecord, triggerType string, gr logging.GateRecord) (AttemptRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rec, err = insertAttempt(tx, rec)
	if err != nil {
		return AttemptRecord{}, err
	}
	gr.AttemptID = rec.AttemptID
	if err := logging.LogGateRecord(tx, triggerType, rec.TextHash, gr); err != nil {
		return AttemptRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return AttemptRecord{}, fmt.Errorf("commit attempt: %w", err)
	}
	return rec, nil
}

func insertAttempt(db logging.Execer, rec AttemptRecord) (AttemptRecord, error) {
	if rec.AttemptID == "" {
		rec.AttemptID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Failures == nil {
		rec.Failures = []string{}
	}

	failJSON, err := json.Marshal(rec.Failures)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("marshal failures: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO attempts (attempt_id, lane, text_hash, similarity_risk, diversify_enabled, pass,
		   failures, melodrama_score, nuance_score, metrics_json, profile_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AttemptID, rec.Lane, rec.TextHash, rec.SimilarityRisk, rec.DiversifyEnabled, rec.Pass,
		string(failJSON), rec.MelodramaScore, rec.NuanceScore,
		nullable(rec.MetricsJSON), nullable(rec.ProfileJSON),
		rec.CreatedAt.UTC().Format(logging.TimeLayout),
	)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("insert attempt: %w", err)
	}
	return rec, nil
}

// #endregion record-attempt

// #region get-attempt
const attemptColumns = `a.attempt_id, a.lane, a.text_hash, a.similarity_risk, a.diversify_enabled, a.pass,
	a.failures, a.melodrama_score, a.nuance_score, a.metrics_json, a.profile_json, a.created_at`

// GetAttempt retrieves a single attempt by ID.
func (s *Store) GetAttempt(id string) (AttemptRecord, error) {
	row := s.db.QueryRow(`SELECT `+attemptColumns+` FROM attempts a WHERE a.attempt_id = ?`, id)
	rec, err := scanAttempt(row)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("get attempt %s: %w", id, err)
	}
	return rec, nil
}

// GetAttemptWithProvenance retrieves an attempt joined with its latest provenance row.
func (s *Store) GetAttemptWithProvenance(id string) (AttemptWithProvenance, error) {
	row := s.db.QueryRow(withProvenanceQuery+` WHERE a.attempt_id = ?`, id)
	ap, err := scanAttemptWithProvenance(row)
	if err != nil {
		return AttemptWithProvenance{}, fmt.Errorf("get attempt %s: %w", id, err)
	}
	return ap, nil
}

// #endregion get-attempt

// #region list-attempts
// ListAttempts returns the most recent attempts, newest first.
func (s *Store) ListAttempts(limit int) ([]AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+attemptColumns+` FROM attempts a ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListAttemptsWithProvenance is ListAttempts joined with provenance rows.
func (s *Store) ListAttemptsWithProvenance(limit int) ([]AttemptWithProvenance, error) {
	rows, err := s.db.Query(withProvenanceQuery+` ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptWithProvenance
	for rows.Next() {
		ap, err := scanAttemptWithProvenance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

// CountByOutcome returns how many recorded attempts passed and failed.
func (s *Store) CountByOutcome() (pass, fail int, err error) {
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(pass), 0), COALESCE(SUM(1 - pass), 0) FROM attempts`,
	).Scan(&pass, &fail)
	if err != nil {
		return 0, 0, fmt.Errorf("count attempts: %w", err)
	}
	return pass, fail, nil
}

// #endregion list-attempts

// #region scan
const withProvenanceQuery = `SELECT ` + attemptColumns + `,
	p.trigger_type, p.decision, p.reason, p.signals_json
	FROM attempts a
	LEFT JOIN provenance_log p ON p.id = (
		SELECT MAX(id) FROM provenance_log WHERE attempt_id = a.attempt_id
	)`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (AttemptRecord, error) {
	var rec AttemptRecord
	var failJSON, createdStr string
	var metricsJSON, profileJSON sql.NullString

	err := sc.Scan(
		&rec.AttemptID, &rec.Lane, &rec.TextHash, &rec.SimilarityRisk, &rec.DiversifyEnabled, &rec.Pass,
		&failJSON, &rec.MelodramaScore, &rec.NuanceScore, &metricsJSON, &profileJSON, &createdStr,
	)
	if err != nil {
		return AttemptRecord{}, err
	}
	return finishAttempt(rec, failJSON, createdStr, metricsJSON, profileJSON)
}

func scanAttemptWithProvenance(sc scanner) (AttemptWithProvenance, error) {
	var ap AttemptWithProvenance
	var failJSON, createdStr string
	var metricsJSON, profileJSON sql.NullString
	var trigger, decision, reason, signals sql.NullString

	rec := &ap.AttemptRecord
	err := sc.Scan(
		&rec.AttemptID, &rec.Lane, &rec.TextHash, &rec.SimilarityRisk, &rec.DiversifyEnabled, &rec.Pass,
		&failJSON, &rec.MelodramaScore, &rec.NuanceScore, &metricsJSON, &profileJSON, &createdStr,
		&trigger, &decision, &reason, &signals,
	)
	if err != nil {
		return AttemptWithProvenance{}, err
	}
	finished, err := finishAttempt(*rec, failJSON, createdStr, metricsJSON, profileJSON)
	if err != nil {
		return AttemptWithProvenance{}, err
	}
	ap.AttemptRecord = finished
	ap.TriggerType = trigger.String
	ap.Decision = decision.String
	ap.Reason = reason.String
	ap.SignalsJSON = signals.String
	return ap, nil
}

func finishAttempt(rec AttemptRecord, failJSON, createdStr string, metricsJSON, profileJSON sql.NullString) (AttemptRecord, error) {
	if err := json.Unmarshal([]byte(failJSON), &rec.Failures); err != nil {
		return AttemptRecord{}, fmt.Errorf("unmarshal failures: %w", err)
	}
	if rec.Failures == nil {
		rec.Failures = []string{}
	}
	created, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = created
	rec.MetricsJSON = metricsJSON.String
	rec.ProfileJSON = profileJSON.String
	return rec, nil
}

// #endregion scan

// #region helpers
// HashText returns the hex SHA-256 of text, used to correlate attempts without storing text twice.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
