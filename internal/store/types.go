package store

import "time"

// #region attempt-record
// AttemptRecord is one gate verdict as persisted in the attempts table.
// Only the text hash is stored; the text itself lives in the provenance payload.
type AttemptRecord struct {
	AttemptID        string
	Lane             string
	TextHash         string
	SimilarityRisk   float64
	DiversifyEnabled bool
	Pass             bool
	Failures         []string
	MelodramaScore   float64
	NuanceScore      float64
	MetricsJSON      string
	ProfileJSON      string // audit snapshot of the profile evaluated against
	CreatedAt        time.Time
}

// #endregion attempt-record

// #region attempt-with-provenance
// AttemptWithProvenance pairs an attempt with its provenance row fields.
// Provenance fields are empty when no row was logged.
type AttemptWithProvenance struct {
	AttemptRecord
	TriggerType string
	Decision    string
	Reason      string
	SignalsJSON string
}

// #endregion attempt-with-provenance
