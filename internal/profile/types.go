package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// #region lane
// Lane selects the baseline creative constraints for a production type.
type Lane string

const (
	LaneFeatureFilm   Lane = "feature_film"
	LaneVerticalDrama Lane = "vertical_drama"
	LaneSeries        Lane = "series"
	LaneDocumentary   Lane = "documentary"
)

// ErrUnknownLane is returned when a lane tag is not one of the four lanes.
var ErrUnknownLane = errors.New("unknown lane")

// Lanes returns every lane in declaration order.
func Lanes() []Lane {
	return []Lane{LaneFeatureFilm, LaneVerticalDrama, LaneSeries, LaneDocumentary}
}

// ParseLane maps a tag to a Lane. The empty tag means feature_film.
func ParseLane(s string) (Lane, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if tag == "" {
		return LaneFeatureFilm, nil
	}
	l := Lane(tag)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLane, s)
	}
	return l, nil
}

// Valid reports whether l is one of the declared lanes.
func (l Lane) Valid() bool {
	return slices.Contains(Lanes(), l)
}

func (l Lane) String() string { return string(l) }

// UnmarshalText validates lane tags on JSON/YAML decode.
func (l *Lane) UnmarshalText(b []byte) error {
	parsed, err := ParseLane(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// #endregion lane

// #region influence-dimension
// InfluenceDimension names the part of a profile an influencer nudges.
type InfluenceDimension string

const (
	DimPacing          InfluenceDimension = "pacing"
	DimStakesLadder    InfluenceDimension = "stakes_ladder"
	DimDialogueStyle   InfluenceDimension = "dialogue_style"
	DimTwistBudget     InfluenceDimension = "twist_budget"
	DimTextureRealism  InfluenceDimension = "texture_realism"
	DimAntagonismModel InfluenceDimension = "antagonism_model"
)

// ErrUnknownDimension is returned for a dimension outside the six known values.
var ErrUnknownDimension = errors.New("unknown influence dimension")

// Dimensions returns the six influence dimensions in a fixed order.
func Dimensions() []InfluenceDimension {
	return []InfluenceDimension{
		DimPacing, DimStakesLadder, DimDialogueStyle,
		DimTwistBudget, DimTextureRealism, DimAntagonismModel,
	}
}

// ParseInfluenceDimension validates a dimension tag.
func ParseInfluenceDimension(s string) (InfluenceDimension, error) {
	d := InfluenceDimension(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Dimensions(), d) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}

// UnmarshalText validates dimension tags on JSON/YAML decode.
func (d *InfluenceDimension) UnmarshalText(b []byte) error {
	parsed, err := ParseInfluenceDimension(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// #endregion influence-dimension

// #region comps
// CompsInfluencer is a reference title whose weight nudges a lane's defaults.
type CompsInfluencer struct {
	Title       string               `json:"title" yaml:"title"`
	Year        int                  `json:"year,omitempty" yaml:"year,omitempty"`
	Format      string               `json:"format" yaml:"format"`
	Weight      float64              `json:"weight" yaml:"weight"`
	Dimensions  []InfluenceDimension `json:"dimensions" yaml:"dimensions"`
	EmulateTags []string             `json:"emulate_tags,omitempty" yaml:"emulate_tags,omitempty"`
	AvoidTags   []string             `json:"avoid_tags,omitempty" yaml:"avoid_tags,omitempty"`
}

// CompsEntry is the reduced influencer record kept on a derived profile.
// Tags are aggregated separately into Comps.Tags and ForbiddenMoves.
type CompsEntry struct {
	Title      string               `json:"title" yaml:"title"`
	Year       int                  `json:"year,omitempty" yaml:"year,omitempty"`
	Format     string               `json:"format" yaml:"format"`
	Weight     float64              `json:"weight" yaml:"weight"`
	Dimensions []InfluenceDimension `json:"dimensions" yaml:"dimensions"`
}

// Comps holds the influencers and emulate tags a profile was derived from.
type Comps struct {
	Influencers []CompsEntry `json:"influencers" yaml:"influencers"`
	Tags        []string     `json:"tags" yaml:"tags"`
}

// #endregion comps

// #region engine-profile
// EngineProfile is the full set of creative constraints for one generation session.
// Profiles are built fresh per request and treated as read-only afterwards.
type EngineProfile struct {
	Version          string          `json:"version" yaml:"version"`
	Lane             Lane            `json:"lane" yaml:"lane"`
	Comps            Comps           `json:"comps" yaml:"comps"`
	Engine           Engine          `json:"engine" yaml:"engine"`
	PacingProfile    PacingProfile   `json:"pacing_profile" yaml:"pacing_profile"`
	StakesLadder     StakesLadder    `json:"stakes_ladder" yaml:"stakes_ladder"`
	Budgets          Budgets         `json:"budgets" yaml:"budgets"`
	DialogueRules    DialogueRules   `json:"dialogue_rules" yaml:"dialogue_rules"`
	TextureRules     TextureRules    `json:"texture_rules" yaml:"texture_rules"`
	AntagonismModel  AntagonismModel `json:"antagonism_model" yaml:"antagonism_model"`
	ForbiddenMoves   []string        `json:"forbidden_moves" yaml:"forbidden_moves"`
	SignatureDevices []string        `json:"signature_devices" yaml:"signature_devices"`
	GateThresholds   GateThresholds  `json:"gate_thresholds" yaml:"gate_thresholds"`
}

// Engine tags the narrative machinery of a lane.
type Engine struct {
	StoryEngine   string `json:"story_engine" yaml:"story_engine"`
	CausalGrammar string `json:"causal_grammar" yaml:"causal_grammar"`
	ConflictMode  string `json:"conflict_mode" yaml:"conflict_mode"`
}

// Range is a min/target/max triple.
type Range struct {
	Min    float64 `json:"min" yaml:"min"`
	Target float64 `json:"target" yaml:"target"`
	Max    float64 `json:"max" yaml:"max"`
}

// Rate is a target with a ceiling.
type Rate struct {
	Target float64 `json:"target" yaml:"target"`
	Max    float64 `json:"max" yaml:"max"`
}

type PacingProfile struct {
	BeatsPerMinute         Range `json:"beats_per_minute" yaml:"beats_per_minute"`
	CliffhangerRate        Rate  `json:"cliffhanger_rate" yaml:"cliffhanger_rate"`
	QuietBeatsMin          int   `json:"quiet_beats_min" yaml:"quiet_beats_min"`
	SubtextScenesMin       int   `json:"subtext_scenes_min" yaml:"subtext_scenes_min"`
	MeaningShiftsMinPerAct int   `json:"meaning_shifts_min_per_act" yaml:"meaning_shifts_min_per_act"`
}

// StakesLadder governs when global stakes may enter, as a fraction of runtime.
type StakesLadder struct {
	EarlyAllowed      []string `json:"early_allowed" yaml:"early_allowed"`
	NoGlobalBeforePct float64  `json:"no_global_before_pct" yaml:"no_global_before_pct"`
	LateAllowed       []string `json:"late_allowed" yaml:"late_allowed"`
	Notes             string   `json:"notes" yaml:"notes"`
}

type Budgets struct {
	DramaBudget      int `json:"drama_budget" yaml:"drama_budget"`
	TwistCap         int `json:"twist_cap" yaml:"twist_cap"`
	BigRevealCap     int `json:"big_reveal_cap" yaml:"big_reveal_cap"`
	PlotThreadCap    int `json:"plot_thread_cap" yaml:"plot_thread_cap"`
	CoreCharacterCap int `json:"core_character_cap" yaml:"core_character_cap"`
	FactionCap       int `json:"faction_cap" yaml:"faction_cap"`
	CoincidenceCap   int `json:"coincidence_cap" yaml:"coincidence_cap"`
}

type DialogueRules struct {
	SubtextRatioTarget   float64 `json:"subtext_ratio_target" yaml:"subtext_ratio_target"`
	MonologueMaxLines    int     `json:"monologue_max_lines" yaml:"monologue_max_lines"`
	NoSpeeches           bool    `json:"no_speeches" yaml:"no_speeches"`
	AbsoluteWordsPenalty bool    `json:"absolute_words_penalty" yaml:"absolute_words_penalty"`
}

type TextureRules struct {
	Realism               string `json:"realism" yaml:"realism"`
	SpecificityRequired   bool   `json:"specificity_required" yaml:"specificity_required"`
	AllowGenreHeightening bool   `json:"allow_genre_heightening" yaml:"allow_genre_heightening"`
}

type AntagonismModel struct {
	Type               string `json:"type" yaml:"type"`
	LegitimacyRequired bool   `json:"legitimacy_required" yaml:"legitimacy_required"`
	NoCartoonVillainy  bool   `json:"no_cartoon_villainy" yaml:"no_cartoon_villainy"`
}

// GateThresholds are the limits the gate evaluates scored text against.
type GateThresholds struct {
	MelodramaMax           float64 `json:"melodrama_max" yaml:"melodrama_max"`
	SimilarityMax          float64 `json:"similarity_max" yaml:"similarity_max"`
	ComplexityThreadsMax   float64 `json:"complexity_threads_max" yaml:"complexity_threads_max"`
	ComplexityFactionsMax  float64 `json:"complexity_factions_max" yaml:"complexity_factions_max"`
	ComplexityCoreCharsMax float64 `json:"complexity_core_chars_max" yaml:"complexity_core_chars_max"`
}

// #endregion engine-profile

// #region clone
// Clone returns a deep copy of p that shares no slices with it.
func (p EngineProfile) Clone() EngineProfile {
	out := p
	out.Comps.Influencers = make([]CompsEntry, len(p.Comps.Influencers))
	for i, e := range p.Comps.Influencers {
		e.Dimensions = cloneSlice(e.Dimensions)
		out.Comps.Influencers[i] = e
	}
	out.Comps.Tags = cloneSlice(p.Comps.Tags)
	out.StakesLadder.EarlyAllowed = cloneSlice(p.StakesLadder.EarlyAllowed)
	out.StakesLadder.LateAllowed = cloneSlice(p.StakesLadder.LateAllowed)
	out.ForbiddenMoves = cloneSlice(p.ForbiddenMoves)
	out.SignatureDevices = cloneSlice(p.SignatureDevices)
	return out
}

// cloneSlice copies s, returning an empty non-nil slice for nil input.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// #endregion clone
