package gate

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// earlyShockLimit is the number of front-loaded shock events tolerated.
const earlyShockLimit = 2

// #region gate
// RunRulesetGate evaluates scored text against a profile's thresholds.
// Every condition is checked, in a fixed order, so the caller sees the full
// failure set. text is only scanned for forbidden moves.
func RunRulesetGate(
	metrics scoring.RulesetMetrics,
	text string,
	p profile.EngineProfile,
	similarityRisk float64,
	diversifyEnabled bool,
) Attempt {
	th := p.GateThresholds
	melodrama := scoring.ComputeRulesetMelodramaScore(metrics)
	nuance := scoring.ComputeRulesetNuanceScore(metrics)

	checks := make([]Check, 0, len(Failures()))
	record := func(code Failure, value, limit float64, failed bool, reason string) {
		c := Check{Code: code, Value: value, Limit: limit, Pass: !failed}
		if failed {
			c.Reason = reason
		}
		checks = append(checks, c)
	}

	// 1. Melodrama
	record(FailureMelodrama, melodrama, th.MelodramaMax,
		melodrama > th.MelodramaMax,
		fmt.Sprintf("melodrama score %.4f exceeds %.4f", melodrama, th.MelodramaMax))

	// 2. Overcomplexity: threads, factions, or character churn
	threads, factions := float64(metrics.PlotThreadCount), float64(metrics.NamedFactions)
	switch {
	case threads > 2*th.ComplexityThreadsMax:
		record(FailureOvercomplexity, threads, 2*th.ComplexityThreadsMax, true,
			fmt.Sprintf("%d plot threads exceed %g", metrics.PlotThreadCount, 2*th.ComplexityThreadsMax))
	case factions > 2*th.ComplexityFactionsMax:
		record(FailureOvercomplexity, factions, 2*th.ComplexityFactionsMax, true,
			fmt.Sprintf("%d named factions exceed %g", metrics.NamedFactions, 2*th.ComplexityFactionsMax))
	case metrics.NewCharacterDensity > th.ComplexityCoreCharsMax:
		record(FailureOvercomplexity, metrics.NewCharacterDensity, th.ComplexityCoreCharsMax, true,
			fmt.Sprintf("new character density %.2f/1k words exceeds %g", metrics.NewCharacterDensity, th.ComplexityCoreCharsMax))
	default:
		record(FailureOvercomplexity, threads, 2*th.ComplexityThreadsMax, false, "")
	}

	// 3. Template similarity, only when diversification is on
	record(FailureTemplateSimilarity, similarityRisk, th.SimilarityMax,
		diversifyEnabled && similarityRisk > th.SimilarityMax,
		fmt.Sprintf("similarity risk %.4f exceeds %.4f", similarityRisk, th.SimilarityMax))

	// 4. Stakes front-loaded
	record(FailureStakesTooBigTooEarly, float64(metrics.ShockEventsEarly), earlyShockLimit,
		metrics.ShockEventsEarly > earlyShockLimit,
		fmt.Sprintf("%d shock events in the opening fifth", metrics.ShockEventsEarly))

	// 5. Twist overuse
	twistLimit := float64(p.Budgets.TwistCap+1) * 3
	record(FailureTwistOveruse, metrics.TwistKeywordRate, twistLimit,
		metrics.TwistKeywordRate > twistLimit,
		fmt.Sprintf("twist keyword rate %.2f/1k words exceeds %g", metrics.TwistKeywordRate, twistLimit))

	// 6-8. Minimum craft counts
	pp := p.PacingProfile
	record(FailureSubtextMissing, float64(metrics.SubtextSceneCount), float64(pp.SubtextScenesMin),
		metrics.SubtextSceneCount < pp.SubtextScenesMin,
		fmt.Sprintf("%d subtext scenes, need %d", metrics.SubtextSceneCount, pp.SubtextScenesMin))
	record(FailureQuietBeatsMissing, float64(metrics.QuietBeatsCount), float64(pp.QuietBeatsMin),
		metrics.QuietBeatsCount < pp.QuietBeatsMin,
		fmt.Sprintf("%d quiet beats, need %d", metrics.QuietBeatsCount, pp.QuietBeatsMin))
	record(FailureMeaningShiftMissing, float64(metrics.MeaningShiftCount), float64(pp.MeaningShiftsMinPerAct),
		metrics.MeaningShiftCount < pp.MeaningShiftsMinPerAct,
		fmt.Sprintf("%d meaning shifts, need %d", metrics.MeaningShiftCount, pp.MeaningShiftsMinPerAct))

	// 9. Forbidden moves
	hits := scoring.DetectForbiddenMoves(text, p.ForbiddenMoves)
	record(FailureForbiddenMove, float64(len(hits)), 0,
		len(hits) > 0,
		fmt.Sprintf("forbidden moves present: %s", strings.Join(hits, ", ")))

	failures := []Failure{}
	for _, c := range checks {
		if !c.Pass {
			failures = append(failures, c.Code)
		}
	}

	return Attempt{
		Pass:           len(failures) == 0,
		Failures:       failures,
		MelodramaScore: melodrama,
		NuanceScore:    nuance,
		Metrics:        metrics,
		Checks:         checks,
		ForbiddenHits:  hits,
	}
}

// #endregion gate

// #region helpers
// Reason joins the reasons of every failed check.
func (a Attempt) Reason() string {
	if a.Pass {
		return "all checks passed"
	}
	reasons := make([]string, 0, len(a.Failures))
	for _, c := range a.Checks {
		if !c.Pass {
			reasons = append(reasons, c.Reason)
		}
	}
	return fmt.Sprintf("gate failed: %d checks: %s", len(reasons), strings.Join(reasons, "; "))
}

// Has reports whether f is among the attempt's failures.
func (a Attempt) Has(f Failure) bool {
	for _, got := range a.Failures {
		if got == f {
			return true
		}
	}
	return false
}

// #endregion helpers
