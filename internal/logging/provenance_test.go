package logging

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id   TEXT NOT NULL,
		text_hash    TEXT,
		trigger_type TEXT NOT NULL,
		signals_json TEXT,
		decision     TEXT NOT NULL,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func sampleRecord(id string, pass bool) GateRecord {
	failures := []string{}
	reason := "all checks passed"
	if !pass {
		failures = []string{"QUIET_BEATS_MISSING"}
		reason = "gate failed: 1 checks: 0 quiet beats, need 2"
	}
	return GateRecord{
		AttemptID:        id,
		Lane:             profile.LaneSeries,
		Text:             "She pauses at the door.",
		SimilarityRisk:   0.3,
		DiversifyEnabled: true,
		Profile:          profile.DefaultEngineProfile(profile.LaneSeries),
		Metrics:          scoring.RulesetMetrics{QuietBeatsCount: 1},
		Pass:             pass,
		Failures:         failures,
		MelodramaScore:   0,
		NuanceScore:      0.2,
		Reason:           reason,
	}
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		AttemptID:   "a1",
		TextHash:    "abc123",
		TriggerType: "pipeline",
		SignalsJSON: `{"pass":true}`,
		Decision:    "pass",
		Reason:      "all checks passed",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM provenance_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var attemptID, decision string
	db.QueryRow("SELECT attempt_id, decision FROM provenance_log").Scan(&attemptID, &decision)
	if attemptID != "a1" {
		t.Errorf("expected attempt_id 'a1', got %q", attemptID)
	}
	if decision != "pass" {
		t.Errorf("expected decision 'pass', got %q", decision)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogDecision(db, ProvenanceEntry{AttemptID: "a2", TriggerType: "cli", Decision: "fail"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogDecision(db, ProvenanceEntry{AttemptID: "a3", TriggerType: "rpc", Decision: "fail"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var textHash, signalsJSON, reason sql.NullString
	db.QueryRow("SELECT text_hash, signals_json, reason FROM provenance_log").Scan(
		&textHash, &signalsJSON, &reason,
	)
	if textHash.Valid {
		t.Error("expected NULL text_hash for empty string")
	}
	if signalsJSON.Valid {
		t.Error("expected NULL signals_json for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	err := LogDecision(db, ProvenanceEntry{AttemptID: "a4", TriggerType: "cli", Decision: "pass"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region gate-record-tests
func TestLogGateRecord_RoundTrip(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	first := sampleRecord("a1", true)
	second := sampleRecord("a2", false)
	for _, rec := range []GateRecord{first, second} {
		if err := LogGateRecord(db, "pipeline", "hash-"+rec.AttemptID, rec); err != nil {
			t.Fatalf("LogGateRecord: %v", err)
		}
	}
	// Rows without a payload are ignored on load.
	if err := LogDecision(db, ProvenanceEntry{AttemptID: "a3", TriggerType: "cli", Decision: "pass"}); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	got, err := LoadGateRecords(db)
	if err != nil {
		t.Fatalf("LoadGateRecords: %v", err)
	}
	if diff := cmp.Diff([]GateRecord{first, second}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	var decision, hash string
	db.QueryRow("SELECT decision, text_hash FROM provenance_log WHERE attempt_id = 'a2'").Scan(&decision, &hash)
	if decision != "fail" || hash != "hash-a2" {
		t.Fatalf("unexpected row decision=%q hash=%q", decision, hash)
	}
}

func TestLoadGateRecords_SubsecondOrder(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	for i, at := range []time.Time{base.Add(100 * time.Millisecond), base.Add(120 * time.Millisecond)} {
		rec := sampleRecord([]string{"first", "second"}[i], true)
		payload, err := json.Marshal(rec)
		if err != nil {
			t.Fatal(err)
		}
		err = LogDecision(db, ProvenanceEntry{
			AttemptID: rec.AttemptID, TriggerType: "pipeline", SignalsJSON: string(payload),
			Decision: rec.Decision(), CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := LoadGateRecords(db)
	if err != nil {
		t.Fatalf("LoadGateRecords: %v", err)
	}
	if len(got) != 2 || got[0].AttemptID != "first" || got[1].AttemptID != "second" {
		t.Fatalf("expected first then second, got %+v", got)
	}

	var stamps []string
	rows, err := db.Query("SELECT created_at FROM provenance_log ORDER BY created_at")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		rows.Scan(&s)
		stamps = append(stamps, s)
	}
	want := []string{"2026-03-01T12:00:05.100000000Z", "2026-03-01T12:00:05.120000000Z"}
	if diff := cmp.Diff(want, stamps); diff != "" {
		t.Fatalf("created_at text order mismatch (-want +got):\n%s", diff)
	}
}

func TestLogGateRecord_InTransaction(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := LogGateRecord(tx, "pipeline", "h", sampleRecord("tx-1", true)); err != nil {
		t.Fatalf("LogGateRecord in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	got, err := LoadGateRecords(db)
	if err != nil {
		t.Fatalf("LoadGateRecords: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rolled back record should not be loaded, got %d", len(got))
	}
}

func TestGateRecordDecision(t *testing.T) {
	if (GateRecord{Pass: true}).Decision() != "pass" {
		t.Error("expected pass")
	}
	if (GateRecord{}).Decision() != "fail" {
		t.Error("expected fail")
	}
}

// #endregion gate-record-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests

// #region logger-tests
func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error", "dpanic"} {
		logger, err := NewLogger(level)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", level, err)
		}
		_ = logger.Sync()
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	if _, err := NewLogger("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// #endregion logger-tests
