package logging

import (
	"time"

	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	AttemptID   string
	TextHash    string
	TriggerType string // "pipeline" | "rpc" | "cli" | "replay"
	SignalsJSON string
	Decision    string // "pass" | "fail"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region gate-record
// GateRecord captures the complete gate evaluation inputs for a single text.
// Serialized as JSON into provenance_log.signals_json for deterministic replay.
type GateRecord struct {
	AttemptID string       `json:"attempt_id"`
	Lane      profile.Lane `json:"lane"`
	Text      string       `json:"text"`

	// Gate inputs besides the text
	SimilarityRisk   float64               `json:"similarity_risk"`
	DiversifyEnabled bool                  `json:"diversify_enabled"`
	Profile          profile.EngineProfile `json:"profile"`

	// Exact metrics as scored at runtime
	Metrics scoring.RulesetMetrics `json:"metrics"`

	// Gate output
	Pass           bool     `json:"pass"`
	Failures       []string `json:"failures"`
	MelodramaScore float64  `json:"melodrama_score"`
	NuanceScore    float64  `json:"nuance_score"`
	Reason         string   `json:"reason"`
}

// Decision maps the gate outcome onto the provenance decision column.
func (r GateRecord) Decision() string {
	if r.Pass {
		return "pass"
	}
	return "fail"
}

// #endregion gate-record
