package scoring

// #region ruleset-metrics
// RulesetMetrics holds frequency-based craft signals extracted from one text.
// Rates and density are per 1000 words; everything else is a raw count.
type RulesetMetrics struct {
	AbsoluteWordsRate    float64 `json:"absolute_words_rate"`
	TwistKeywordRate     float64 `json:"twist_keyword_rate"`
	ConspiracyMarkers    int     `json:"conspiracy_markers"`
	ShockEventsEarly     int     `json:"shock_events_early"`
	SpeechLengthProxy    int     `json:"speech_length_proxy"`
	NewCharacterDensity  float64 `json:"new_character_density"`
	AntagonistLegitimacy bool    `json:"antagonist_legitimacy"`
	NamedFactions        int     `json:"named_factions"`
	PlotThreadCount      int     `json:"plot_thread_count"`
	SubtextSceneCount    int     `json:"subtext_scene_count"`
	QuietBeatsCount      int     `json:"quiet_beats_count"`
	MeaningShiftCount    int     `json:"meaning_shift_count"`
	CostOfActionMarkers  int     `json:"cost_of_action_markers"`
}

// #endregion ruleset-metrics

// #region tuning
const (
	// earlyFraction is the leading share of the text where shocks count as front-loaded.
	earlyFraction = 0.2
	// longSpeechChars is the quoted-span length treated as a monologue.
	longSpeechChars = 150
)

// #endregion tuning
