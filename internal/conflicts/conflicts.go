package conflicts

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
)

// epsilon absorbs float noise from derived nudges (0.6-0.05 is not exactly 0.55).
const epsilon = 1e-9

// #region detect
// DetectConflicts compares p against its lane defaults and reports risky drift.
// The checks always run in the same order; the result is never nil.
func DetectConflicts(p profile.EngineProfile) []RuleConflict {
	def := profile.DefaultEngineProfile(p.Lane)
	out := []RuleConflict{}

	// 1. Twist budget pushed past restraint
	if p.Budgets.TwistCap > def.Budgets.TwistCap+1 {
		out = append(out, RuleConflict{
			ID:            "twist_vs_restraint",
			Severity:      SeverityWarn,
			Dimension:     string(profile.DimTwistBudget),
			Message:       fmt.Sprintf("comps raise the twist cap to %d; lane default is %d", p.Budgets.TwistCap, def.Budgets.TwistCap),
			InferredValue: strconv.Itoa(p.Budgets.TwistCap),
			ExpectedValue: strconv.Itoa(def.Budgets.TwistCap),
			SuggestedActions: []SuggestedAction{
				ActionHonorOverrides, ActionBlend,
			},
		})
	}

	// 2. Global stakes allowed too early
	if def.StakesLadder.NoGlobalBeforePct-p.StakesLadder.NoGlobalBeforePct > 0.05+epsilon {
		out = append(out, RuleConflict{
			ID:            "early_global_stakes",
			Severity:      SeverityWarn,
			Dimension:     string(profile.DimStakesLadder),
			Message:       "global stakes would enter noticeably earlier than the lane allows",
			InferredValue: formatPct(p.StakesLadder.NoGlobalBeforePct),
			ExpectedValue: formatPct(def.StakesLadder.NoGlobalBeforePct),
			SuggestedActions: []SuggestedAction{
				ActionHonorOverrides, ActionBlend,
			},
		})
	}

	// 3. Default forbidden moves that went missing
	for _, move := range def.ForbiddenMoves {
		if slices.Contains(p.ForbiddenMoves, move) {
			continue
		}
		out = append(out, RuleConflict{
			ID:               "missing_forbidden_" + move,
			Severity:         SeverityHard,
			Dimension:        "forbidden_moves",
			Message:          fmt.Sprintf("lane forbids %q but the profile no longer does", move),
			InferredValue:    "allowed",
			ExpectedValue:    "forbidden",
			SuggestedActions: []SuggestedAction{ActionHonorOverrides},
		})
	}

	// 4. Core cast larger than the lane's complexity ceiling
	if float64(p.Budgets.CoreCharacterCap) > def.GateThresholds.ComplexityCoreCharsMax {
		out = append(out, RuleConflict{
			ID:            "char_overcomplexity",
			Severity:      SeverityWarn,
			Dimension:     "budgets",
			Message:       "core character cap exceeds the lane's complexity threshold",
			InferredValue: strconv.Itoa(p.Budgets.CoreCharacterCap),
			ExpectedValue: formatFloat(def.GateThresholds.ComplexityCoreCharsMax),
			SuggestedActions: []SuggestedAction{
				ActionHonorOverrides, ActionBlend,
			},
		})
	}

	// 5. Melodrama threshold loosened
	if p.GateThresholds.MelodramaMax-def.GateThresholds.MelodramaMax > 0.1+epsilon {
		out = append(out, RuleConflict{
			ID:            "melodrama_permissive",
			Severity:      SeverityWarn,
			Dimension:     "gate_thresholds",
			Message:       "melodrama threshold is well above the lane default",
			InferredValue: formatFloat(p.GateThresholds.MelodramaMax),
			ExpectedValue: formatFloat(def.GateThresholds.MelodramaMax),
			SuggestedActions: []SuggestedAction{
				ActionHonorComps, ActionHonorOverrides, ActionBlend,
			},
		})
	}

	return out
}

// HasHard reports whether any conflict is hard severity.
func HasHard(cs []RuleConflict) bool {
	for _, c := range cs {
		if c.Severity == SeverityHard {
			return true
		}
	}
	return false
}

// #endregion detect

// #region helpers
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// #endregion helpers
