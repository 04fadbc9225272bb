package scoring

import (
	"math"
	"regexp"
	"strings"
)

// #region melodrama
// ComputeRulesetMelodramaScore weighs sensationalism signals into [0, 1].
func ComputeRulesetMelodramaScore(m RulesetMetrics) float64 {
	score := 0.2*capped(m.AbsoluteWordsRate/10) +
		0.2*capped(m.TwistKeywordRate/8) +
		0.15*capped(float64(m.ConspiracyMarkers)/5) +
		0.2*capped(float64(m.ShockEventsEarly)/3) +
		0.1*capped(float64(m.SpeechLengthProxy)/4) +
		0.15*capped(float64(m.NamedFactions)/8)
	return clamp(score)
}

// #endregion melodrama

// #region nuance
// ComputeRulesetNuanceScore rewards restraint signals into [0, 1].
func ComputeRulesetNuanceScore(m RulesetMetrics) float64 {
	var score float64
	score += 0.25 * capped(float64(m.SubtextSceneCount)/3)
	score += 0.2 * capped(float64(m.QuietBeatsCount)/2)
	if m.MeaningShiftCount > 0 {
		score += 0.2
	}
	if m.AntagonistLegitimacy {
		score += 0.15
	}
	score += 0.1 * capped(float64(m.CostOfActionMarkers)/2)

	// inverse-melodrama bonus
	score += 0.1 * (1 - capped((m.TwistKeywordRate+float64(m.ConspiracyMarkers))/10))
	return clamp(score)
}

// #endregion nuance

// #region forbidden-moves
// DetectForbiddenMoves returns the moves whose names appear in text.
// Matching ignores case and treats "_" as an optional underscore or space,
// so "secret_organization" matches "Secret Organization" and "secretorganization".
func DetectForbiddenMoves(text string, forbidden []string) []string {
	hits := []string{}
	seen := make(map[string]bool, len(forbidden))
	for _, move := range forbidden {
		if move == "" || seen[move] {
			continue
		}
		seen[move] = true
		if movePattern(move).MatchString(text) {
			hits = append(hits, move)
		}
	}
	return hits
}

func movePattern(move string) *regexp.Regexp {
	body := strings.ReplaceAll(regexp.QuoteMeta(move), "_", "[_ ]?")
	return regexp.MustCompile(`(?i)\b` + body + `\b`)
}

// #endregion forbidden-moves

// #region helpers
// capped limits a normalized sub-score to at most 1.
func capped(v float64) float64 {
	return math.Min(1, v)
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
