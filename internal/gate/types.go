package gate

import "github.com/danielpatrickdp/ruleset-engine/internal/scoring"

// #region failure-type
// Failure enumerates the reasons a candidate text is rejected.
type Failure string

const (
	FailureMelodrama            Failure = "MELODRAMA"
	FailureOvercomplexity       Failure = "OVERCOMPLEXITY"
	FailureTemplateSimilarity   Failure = "TEMPLATE_SIMILARITY"
	FailureStakesTooBigTooEarly Failure = "STAKES_TOO_BIG_TOO_EARLY"
	FailureTwistOveruse         Failure = "TWIST_OVERUSE"
	FailureSubtextMissing       Failure = "SUBTEXT_MISSING"
	FailureQuietBeatsMissing    Failure = "QUIET_BEATS_MISSING"
	FailureMeaningShiftMissing  Failure = "MEANING_SHIFT_MISSING"
	FailureForbiddenMove        Failure = "FORBIDDEN_MOVE_PRESENT"
)

// Failures returns every failure code in evaluation order.
func Failures() []Failure {
	return []Failure{
		FailureMelodrama,
		FailureOvercomplexity,
		FailureTemplateSimilarity,
		FailureStakesTooBigTooEarly,
		FailureTwistOveruse,
		FailureSubtextMissing,
		FailureQuietBeatsMissing,
		FailureMeaningShiftMissing,
		FailureForbiddenMove,
	}
}

// #endregion failure-type

// #region check
// Check records one gate condition as evaluated, pass or fail.
type Check struct {
	Code   Failure `json:"code"`
	Value  float64 `json:"value"`
	Limit  float64 `json:"limit"`
	Pass   bool    `json:"pass"`
	Reason string  `json:"reason,omitempty"` // set only on failure
}

// #endregion check

// #region attempt
// Attempt is the gate's verdict on one candidate text.
type Attempt struct {
	Pass           bool                   `json:"pass"`
	Failures       []Failure              `json:"failures"`
	MelodramaScore float64                `json:"melodrama_score"`
	NuanceScore    float64                `json:"nuance_score"`
	Metrics        scoring.RulesetMetrics `json:"metrics"`
	Checks         []Check                `json:"checks"`
	ForbiddenHits  []string               `json:"forbidden_hits"`
}

// #endregion attempt
