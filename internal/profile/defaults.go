package profile

// #region bounds
// Bounds that derivation never crosses.
const (
	ProfileVersion       = "ruleset-v1"
	MaxTwistCap          = 3
	MinNoGlobalBeforePct = 0.15
	MaxSubtextRatio      = 0.8
)

// #endregion bounds

// #region default-tables
// Value templates. Never hand these out directly; copy on read.
var (
	defaultForbiddenMoves = []string{
		"secret_organization",
		"chosen_one",
		"amnesia_reveal",
		"evil_twin",
		"it_was_all_a_dream",
		"villain_monologue",
		"last_second_rescue",
		"deus_ex_machina",
	}

	defaultSignatureDevices = []string{
		"dramatic_irony",
		"object_callback",
		"silent_reaction",
		"reversal_of_expectation",
	}

	documentaryExtraForbidden = []string{
		"fabricated_quote",
		"staged_reenactment_as_fact",
	}

	defaultEarlyStakes = []string{"personal", "relational"}
	defaultLateStakes  = []string{"personal", "relational", "social", "institutional"}
)

// #endregion default-tables

// #region default-profile
// DefaultEngineProfile returns the baseline profile for a lane.
// Unknown lane values fall back to feature_film. Every call returns
// an independent value.
func DefaultEngineProfile(lane Lane) EngineProfile {
	p := baseProfile()
	switch lane {
	case LaneVerticalDrama:
		applyVerticalDrama(&p)
	case LaneSeries:
		applySeries(&p)
	case LaneDocumentary:
		applyDocumentary(&p)
	}
	return p
}

// baseProfile is the feature_film baseline.
func baseProfile() EngineProfile {
	return EngineProfile{
		Version: ProfileVersion,
		Lane:    LaneFeatureFilm,
		Comps: Comps{
			Influencers: []CompsEntry{},
			Tags:        []string{},
		},
		Engine: Engine{
			StoryEngine:   "pressure_cooker",
			CausalGrammar: "because_therefore",
			ConflictMode:  "interpersonal",
		},
		PacingProfile: PacingProfile{
			BeatsPerMinute:         Range{Min: 1, Target: 2, Max: 3},
			CliffhangerRate:        Rate{Target: 0.1, Max: 0.2},
			QuietBeatsMin:          2,
			SubtextScenesMin:       2,
			MeaningShiftsMinPerAct: 1,
		},
		StakesLadder: StakesLadder{
			EarlyAllowed:      cloneSlice(defaultEarlyStakes),
			NoGlobalBeforePct: 0.6,
			LateAllowed:       cloneSlice(defaultLateStakes),
			Notes:             "personal stakes first; world-level stakes only once the audience cares",
		},
		Budgets: Budgets{
			DramaBudget:      3,
			TwistCap:         1,
			BigRevealCap:     1,
			PlotThreadCap:    3,
			CoreCharacterCap: 5,
			FactionCap:       2,
			CoincidenceCap:   1,
		},
		DialogueRules: DialogueRules{
			SubtextRatioTarget:   0.6,
			MonologueMaxLines:    8,
			NoSpeeches:           true,
			AbsoluteWordsPenalty: true,
		},
		TextureRules: TextureRules{
			Realism:               "grounded",
			SpecificityRequired:   true,
			AllowGenreHeightening: false,
		},
		AntagonismModel: AntagonismModel{
			Type:               "personal",
			LegitimacyRequired: true,
			NoCartoonVillainy:  true,
		},
		ForbiddenMoves:   cloneSlice(defaultForbiddenMoves),
		SignatureDevices: cloneSlice(defaultSignatureDevices),
		GateThresholds: GateThresholds{
			MelodramaMax:           0.35,
			SimilarityMax:          0.7,
			ComplexityThreadsMax:   3,
			ComplexityFactionsMax:  2,
			ComplexityCoreCharsMax: 6,
		},
	}
}

// #endregion default-profile

// #region lane-overrides
func applyVerticalDrama(p *EngineProfile) {
	p.Lane = LaneVerticalDrama
	p.Engine.StoryEngine = "hook_and_hold"
	p.Engine.ConflictMode = "confrontational"
	p.PacingProfile.BeatsPerMinute = Range{Min: 2, Target: 4, Max: 5}
	p.PacingProfile.CliffhangerRate = Rate{Target: 0.8, Max: 1.0}
	p.PacingProfile.QuietBeatsMin = 1
	p.StakesLadder.EarlyAllowed = append(p.StakesLadder.EarlyAllowed, "social")
	p.StakesLadder.NoGlobalBeforePct = 0.4
	p.StakesLadder.Notes = "social stakes may open an episode; keep global stakes for the back half"
	p.Budgets.DramaBudget = 6
	p.Budgets.TwistCap = 2
	p.Budgets.BigRevealCap = 2
	p.Budgets.CoreCharacterCap = 6
	p.Budgets.CoincidenceCap = 2
	p.DialogueRules.SubtextRatioTarget = 0.4
	p.TextureRules.Realism = "heightened"
	p.TextureRules.AllowGenreHeightening = true
	p.AntagonismModel.LegitimacyRequired = false
	p.GateThresholds.MelodramaMax = 0.55
}

func applySeries(p *EngineProfile) {
	p.Lane = LaneSeries
	p.Engine.StoryEngine = "ensemble_engine"
	p.PacingProfile.BeatsPerMinute = Range{Min: 1, Target: 2, Max: 4}
	p.PacingProfile.CliffhangerRate = Rate{Target: 0.5, Max: 0.7}
	p.StakesLadder.NoGlobalBeforePct = 0.5
	p.StakesLadder.Notes = "escalate across episodes; global stakes belong to the season's second half"
	p.Budgets.DramaBudget = 4
	p.Budgets.BigRevealCap = 2
	p.Budgets.PlotThreadCap = 5
	p.Budgets.CoreCharacterCap = 8
	p.Budgets.FactionCap = 3
	p.GateThresholds.MelodramaMax = 0.4
	p.GateThresholds.ComplexityThreadsMax = 5
	p.GateThresholds.ComplexityFactionsMax = 3
	p.GateThresholds.ComplexityCoreCharsMax = 8
}

func applyDocumentary(p *EngineProfile) {
	p.Lane = LaneDocumentary
	p.Engine.StoryEngine = "inquiry"
	p.Engine.CausalGrammar = "evidence_chain"
	p.Engine.ConflictMode = "systemic"
	p.PacingProfile.BeatsPerMinute = Range{Min: 0.5, Target: 1, Max: 2}
	p.PacingProfile.CliffhangerRate = Rate{Target: 0, Max: 0.1}
	p.PacingProfile.SubtextScenesMin = 1
	p.StakesLadder.EarlyAllowed = []string{"personal"}
	p.StakesLadder.NoGlobalBeforePct = 0.7
	p.StakesLadder.Notes = "ground every claim in a person before widening the lens"
	p.Budgets.DramaBudget = 1
	p.Budgets.TwistCap = 0
	p.Budgets.BigRevealCap = 0
	p.Budgets.PlotThreadCap = 2
	p.Budgets.CoreCharacterCap = 4
	p.Budgets.FactionCap = 1
	p.Budgets.CoincidenceCap = 0
	p.DialogueRules.SubtextRatioTarget = 0.5
	p.TextureRules.Realism = "observational"
	p.AntagonismModel.Type = "systemic"
	p.ForbiddenMoves = append(p.ForbiddenMoves, documentaryExtraForbidden...)
	p.GateThresholds.MelodramaMax = 0.15
	p.GateThresholds.ComplexityThreadsMax = 2
}

// #endregion lane-overrides
