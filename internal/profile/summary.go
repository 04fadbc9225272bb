package profile

import (
	"fmt"
	"strings"
)

// #region summary
// GenerateRulesSummary renders p as deterministic human-readable text.
func GenerateRulesSummary(p EngineProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ruleset %s (lane: %s)\n", p.Version, p.Lane)
	fmt.Fprintf(&b, "Engine: %s / %s / %s\n", p.Engine.StoryEngine, p.Engine.CausalGrammar, p.Engine.ConflictMode)

	bg := p.Budgets
	fmt.Fprintf(&b, "Budgets: drama=%d twists=%d big_reveals=%d threads=%d core_chars=%d factions=%d coincidences=%d\n",
		bg.DramaBudget, bg.TwistCap, bg.BigRevealCap, bg.PlotThreadCap, bg.CoreCharacterCap, bg.FactionCap, bg.CoincidenceCap)

	pp := p.PacingProfile
	fmt.Fprintf(&b, "Pacing: beats/min %s-%s (target %s), quiet beats >= %d, subtext scenes >= %d, meaning shifts/act >= %d\n",
		num(pp.BeatsPerMinute.Min), num(pp.BeatsPerMinute.Max), num(pp.BeatsPerMinute.Target),
		pp.QuietBeatsMin, pp.SubtextScenesMin, pp.MeaningShiftsMinPerAct)

	sl := p.StakesLadder
	fmt.Fprintf(&b, "Stakes: early [%s], no global stakes before %d%%, late [%s]\n",
		strings.Join(sl.EarlyAllowed, ", "), int(sl.NoGlobalBeforePct*100+0.5), strings.Join(sl.LateAllowed, ", "))

	fmt.Fprintf(&b, "Melodrama max: %s\n", num(p.GateThresholds.MelodramaMax))

	if len(p.Comps.Influencers) == 0 {
		b.WriteString("Comps: none\n")
	} else {
		b.WriteString("Comps:\n")
		for _, c := range p.Comps.Influencers {
			year := ""
			if c.Year > 0 {
				year = fmt.Sprintf(" (%d)", c.Year)
			}
			dims := make([]string, len(c.Dimensions))
			for i, d := range c.Dimensions {
				dims[i] = string(d)
			}
			fmt.Fprintf(&b, "  - %s%s [%s] weight %s: %s\n", c.Title, year, c.Format, num(c.Weight), strings.Join(dims, ", "))
		}
	}

	fmt.Fprintf(&b, "Forbidden: %s", strings.Join(p.ForbiddenMoves, ", "))
	return b.String()
}

// num formats a float without trailing zeros.
func num(v float64) string {
	return fmt.Sprintf("%g", v)
}

// #endregion summary
