package replay

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/ruleset-engine/internal/gate"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// #region types
// Interaction is a single recorded candidate text for replay.
type Interaction struct {
	TurnID           string
	Text             string
	SimilarityRisk   float64
	DiversifyEnabled bool
	Profile          profile.EngineProfile

	// nil means the expectation is not checked
	ExpectPass     *bool
	ExpectFailures []gate.Failure
}

// ReplayResult captures the outcome of re-running one interaction.
type ReplayResult struct {
	TurnID  string
	Attempt gate.Attempt
	Match   bool
	Diff    string // empty when Match
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	Passes     int
	Fails      int
	Mismatches int
}

// #endregion types

// #region replay
// Replay scores and gates every interaction in order and compares each
// verdict against its expectations. Operates entirely in-memory.
func Replay(interactions []Interaction) []ReplayResult {
	results := make([]ReplayResult, 0, len(interactions))
	for _, inter := range interactions {
		metrics := scoring.ComputeRulesetMetrics(inter.Text)
		attempt := gate.RunRulesetGate(metrics, inter.Text, inter.Profile, inter.SimilarityRisk, inter.DiversifyEnabled)

		diff := compare(inter, attempt)
		results = append(results, ReplayResult{
			TurnID:  inter.TurnID,
			Attempt: attempt,
			Match:   diff == "",
			Diff:    diff,
		})
	}
	return results
}

func compare(inter Interaction, attempt gate.Attempt) string {
	if inter.ExpectPass != nil && *inter.ExpectPass != attempt.Pass {
		return fmt.Sprintf("expected pass=%v, got pass=%v (%v)", *inter.ExpectPass, attempt.Pass, attempt.Failures)
	}
	if inter.ExpectFailures != nil && !slices.Equal(inter.ExpectFailures, attempt.Failures) {
		return fmt.Sprintf("expected failures %v, got %v", inter.ExpectFailures, attempt.Failures)
	}
	return ""
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTurns: len(results)}
	for _, r := range results {
		if r.Attempt.Pass {
			s.Passes++
		} else {
			s.Fails++
		}
		if !r.Match {
			s.Mismatches++
		}
	}
	return s
}

// #endregion replay
