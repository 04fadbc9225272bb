package profile

import (
	"math"
	"slices"
)

// #region derive
// DeriveEngineProfile blends a lane's defaults with weighted influencer comps.
// Every nudge is bounded and monotonic; forbidden moves are only ever added.
func DeriveEngineProfile(lane Lane, influencers []CompsInfluencer) EngineProfile {
	p := DefaultEngineProfile(lane)
	if len(influencers) == 0 {
		return p
	}

	// 1. Comps bookkeeping
	p.Comps.Influencers = make([]CompsEntry, 0, len(influencers))
	for _, inf := range influencers {
		p.Comps.Influencers = append(p.Comps.Influencers, CompsEntry{
			Title:      inf.Title,
			Year:       inf.Year,
			Format:     inf.Format,
			Weight:     inf.Weight,
			Dimensions: cloneSlice(inf.Dimensions),
		})
		p.Comps.Tags = appendUnique(p.Comps.Tags, inf.EmulateTags...)
		p.ForbiddenMoves = appendUnique(p.ForbiddenMoves, inf.AvoidTags...)
	}

	// 2. Weighted influence vector
	dimWeight := make(map[InfluenceDimension]float64, len(Dimensions()))
	var totalWeight float64
	for _, inf := range influencers {
		w := inf.Weight
		if w <= 0 {
			continue
		}
		totalWeight += w
		for _, d := range inf.Dimensions {
			dimWeight[d] += w
		}
	}
	if totalWeight == 0 {
		return p
	}

	// 3. Bounded nudges
	for _, d := range Dimensions() {
		strength := math.Min(1, dimWeight[d]/totalWeight)
		if strength <= 0 {
			continue
		}
		applyNudge(&p, d, strength)
	}
	return p
}

// applyNudge shifts one dimension of p by strength in [0, 1].
func applyNudge(p *EngineProfile, d InfluenceDimension, strength float64) {
	switch d {
	case DimPacing:
		bpm := &p.PacingProfile.BeatsPerMinute
		bpm.Target = math.Min(bpm.Max, bpm.Target+math.Round(strength*1))
	case DimStakesLadder:
		if strength > 0.5 {
			p.StakesLadder.EarlyAllowed = appendUnique(p.StakesLadder.EarlyAllowed, "social")
		}
		p.StakesLadder.NoGlobalBeforePct = math.Max(MinNoGlobalBeforePct, p.StakesLadder.NoGlobalBeforePct-strength*0.05)
	case DimTwistBudget:
		if strength > 0.6 {
			p.Budgets.TwistCap = min(MaxTwistCap, p.Budgets.TwistCap+1)
		}
	case DimDialogueStyle:
		p.DialogueRules.SubtextRatioTarget = math.Min(MaxSubtextRatio, p.DialogueRules.SubtextRatioTarget+strength*0.1)
	case DimAntagonismModel:
		p.AntagonismModel.LegitimacyRequired = true
	case DimTextureRealism:
		// weighted but carries no numeric nudge
	}
}

// #endregion derive

// #region helpers
// appendUnique appends each non-empty value not already in dst, keeping first-seen order.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

// #endregion helpers
