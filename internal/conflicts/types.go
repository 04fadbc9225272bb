package conflicts

// #region severity
// Severity grades how risky a divergence from lane norms is.
type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityHard Severity = "hard"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityWarn || s == SeverityHard
}

func (s Severity) String() string { return string(s) }

// #endregion severity

// #region suggested-action
// SuggestedAction is a resolution a reviewer can pick for a conflict.
type SuggestedAction string

const (
	ActionHonorComps     SuggestedAction = "honor_comps"
	ActionHonorOverrides SuggestedAction = "honor_overrides"
	ActionBlend          SuggestedAction = "blend"
)

// Valid reports whether a is in the fixed action vocabulary.
func (a SuggestedAction) Valid() bool {
	switch a {
	case ActionHonorComps, ActionHonorOverrides, ActionBlend:
		return true
	}
	return false
}

func (a SuggestedAction) String() string { return string(a) }

// #endregion suggested-action

// #region rule-conflict
// RuleConflict flags a place where a derived profile drifted from its lane defaults.
// Values are string-encoded for display.
type RuleConflict struct {
	ID               string            `json:"id"`
	Severity         Severity          `json:"severity"`
	Dimension        string            `json:"dimension"`
	Message          string            `json:"message"`
	InferredValue    string            `json:"inferred_value"`
	ExpectedValue    string            `json:"expected_value"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}

// #endregion rule-conflict
