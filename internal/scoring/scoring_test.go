package scoring

import (
	"math"
	"slices"
	"strings"
	"testing"
)

const (
	restrainedScene = "Mara sits at the kitchen table in silence. Her brother asks about the farm, and she changes the subject. " +
		"The kettle clicks. Neither of them moves. She looks away when he mentions their father. " +
		"Later, alone on the porch, she realizes the letter was meant for someone else. She folds it and puts it back."

	melodramaticScene = "Blood on the floor. A scream. Then the explosion. Everyone is dead and nothing will ever be the same. " +
		"It turns out the Iron Guild and the Silver Order were behind the conspiracy all along, pulling the strings. " +
		"Meanwhile the twist: her brother betrayed them. Elsewhere, a secret organization watches."

	costlyScene = "The commissioner has a point, Dana admits. It cost him his pension to testify. She gives up the apartment."
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// #region metrics-tests
func TestComputeRulesetMetrics_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		m := ComputeRulesetMetrics(text)
		if m != (RulesetMetrics{}) {
			t.Fatalf("expected zero metrics for %q, got %+v", text, m)
		}
		if m.AntagonistLegitimacy {
			t.Fatal("expected antagonist_legitimacy false")
		}
	}
}

func TestComputeRulesetMetrics_RestrainedScene(t *testing.T) {
	m := ComputeRulesetMetrics(restrainedScene)

	if m.SubtextSceneCount != 2 {
		t.Errorf("expected 2 subtext markers, got %d", m.SubtextSceneCount)
	}
	if m.QuietBeatsCount != 2 {
		t.Errorf("expected 2 quiet beats, got %d", m.QuietBeatsCount)
	}
	if m.MeaningShiftCount != 1 {
		t.Errorf("expected 1 meaning shift, got %d", m.MeaningShiftCount)
	}
	if m.AbsoluteWordsRate != 0 || m.TwistKeywordRate != 0 || m.ShockEventsEarly != 0 {
		t.Errorf("expected no sensational signals, got %+v", m)
	}
}

func TestComputeRulesetMetrics_MelodramaticScene(t *testing.T) {
	m := ComputeRulesetMetrics(melodramaticScene)

	// 50 words: 2 absolute words, 4 twist keywords
	if !approx(m.AbsoluteWordsRate, 40) {
		t.Errorf("expected absolute rate 40, got %f", m.AbsoluteWordsRate)
	}
	if !approx(m.TwistKeywordRate, 80) {
		t.Errorf("expected twist rate 80, got %f", m.TwistKeywordRate)
	}
	if m.ConspiracyMarkers != 3 {
		t.Errorf("expected 3 conspiracy markers, got %d", m.ConspiracyMarkers)
	}
	if m.ShockEventsEarly != 3 {
		t.Errorf("expected 3 early shocks, got %d", m.ShockEventsEarly)
	}
	if m.NamedFactions != 2 {
		t.Errorf("expected 2 named factions, got %d", m.NamedFactions)
	}
	if m.PlotThreadCount != 2 {
		t.Errorf("expected 2 plot threads, got %d", m.PlotThreadCount)
	}
}

func TestComputeRulesetMetrics_ShocksOnlyCountedEarly(t *testing.T) {
	calm := strings.Repeat("The morning passes slowly over the quiet valley. ", 20)
	late := calm + "Then a gunshot, a scream, blood on the snow."
	m := ComputeRulesetMetrics(late)
	if m.ShockEventsEarly != 0 {
		t.Fatalf("late shocks should not count, got %d", m.ShockEventsEarly)
	}

	early := "A gunshot, a scream, blood on the snow. " + calm
	m = ComputeRulesetMetrics(early)
	if m.ShockEventsEarly != 3 {
		t.Fatalf("expected 3 early shocks, got %d", m.ShockEventsEarly)
	}
}

func TestComputeRulesetMetrics_SpeechLengthProxy(t *testing.T) {
	long := `"` + strings.Repeat("I have waited years for this moment ", 6) + `"`
	short := `"Fine," she says.`
	curly := "“" + strings.Repeat("you never once asked what it cost ", 6) + "”"

	m := ComputeRulesetMetrics(short + " " + long + " " + curly)
	if m.SpeechLengthProxy != 2 {
		t.Fatalf("expected 2 long speeches, got %d", m.SpeechLengthProxy)
	}
}

func TestComputeRulesetMetrics_NewCharacterDensity(t *testing.T) {
	text := "Meet Jonah, the night clerk. Later a woman named Ilse arrives. DETECTIVE ROSS (40s) enters. " +
		strings.Repeat("word ", 85)
	// 15 leading words + 85 filler = 100 words, 3 introductions
	m := ComputeRulesetMetrics(text)
	if !approx(m.NewCharacterDensity, 30) {
		t.Fatalf("expected density 30 per 1000 words, got %f", m.NewCharacterDensity)
	}
}

func TestComputeRulesetMetrics_LegitimacyAndCost(t *testing.T) {
	m := ComputeRulesetMetrics(costlyScene)
	if !m.AntagonistLegitimacy {
		t.Error("expected antagonist legitimacy")
	}
	if m.CostOfActionMarkers != 2 {
		t.Errorf("expected 2 cost markers, got %d", m.CostOfActionMarkers)
	}
}

func TestLeadingPortion_Multibyte(t *testing.T) {
	got := leadingPortion("ééééééééééabcdefghij", 0.5)
	if got != "éééééééééé" {
		t.Fatalf("expected first 10 characters, got %q", got)
	}
	if leadingPortion("abc", 0) != "" {
		t.Fatal("zero fraction should be empty")
	}
	if leadingPortion("abc", 1) != "abc" {
		t.Fatal("full fraction should be whole text")
	}
}

// #endregion metrics-tests

// #region score-tests
func TestMelodramaScore_Zero(t *testing.T) {
	if s := ComputeRulesetMelodramaScore(RulesetMetrics{}); s != 0 {
		t.Fatalf("expected 0, got %f", s)
	}
}

func TestMelodramaScore_Saturates(t *testing.T) {
	m := RulesetMetrics{
		AbsoluteWordsRate: 100, TwistKeywordRate: 100, ConspiracyMarkers: 50,
		ShockEventsEarly: 30, SpeechLengthProxy: 40, NamedFactions: 80,
	}
	if s := ComputeRulesetMelodramaScore(m); !approx(s, 1) {
		t.Fatalf("expected saturated score 1, got %f", s)
	}
}

func TestMelodramaScore_Weights(t *testing.T) {
	m := RulesetMetrics{AbsoluteWordsRate: 5, ShockEventsEarly: 3}
	// 0.2*0.5 + 0.2*1
	if s := ComputeRulesetMelodramaScore(m); !approx(s, 0.3) {
		t.Fatalf("expected 0.3, got %f", s)
	}
}

func TestMelodramaScore_Scenes(t *testing.T) {
	if s := ComputeRulesetMelodramaScore(ComputeRulesetMetrics(restrainedScene)); s != 0 {
		t.Errorf("restrained scene: expected 0, got %f", s)
	}
	if s := ComputeRulesetMelodramaScore(ComputeRulesetMetrics(melodramaticScene)); !approx(s, 0.7275) {
		t.Errorf("melodramatic scene: expected 0.7275, got %f", s)
	}
}

func TestNuanceScore_EmptyGetsInverseBonusOnly(t *testing.T) {
	if s := ComputeRulesetNuanceScore(RulesetMetrics{}); !approx(s, 0.1) {
		t.Fatalf("expected 0.1, got %f", s)
	}
}

func TestNuanceScore_Max(t *testing.T) {
	m := RulesetMetrics{
		SubtextSceneCount: 3, QuietBeatsCount: 2, MeaningShiftCount: 1,
		AntagonistLegitimacy: true, CostOfActionMarkers: 2,
	}
	if s := ComputeRulesetNuanceScore(m); !approx(s, 1) {
		t.Fatalf("expected 1, got %f", s)
	}
}

func TestNuanceScore_Scenes(t *testing.T) {
	if s := ComputeRulesetNuanceScore(ComputeRulesetMetrics(restrainedScene)); !approx(s, 0.25*2.0/3.0+0.2+0.2+0.1) {
		t.Errorf("restrained scene: got %f", s)
	}
	if s := ComputeRulesetNuanceScore(ComputeRulesetMetrics(costlyScene)); !approx(s, 0.35) {
		t.Errorf("costly scene: expected 0.35, got %f", s)
	}
	if s := ComputeRulesetNuanceScore(ComputeRulesetMetrics(melodramaticScene)); s != 0 {
		t.Errorf("melodramatic scene: expected 0, got %f", s)
	}
}

// #endregion score-tests

// #region forbidden-tests
func TestDetectForbiddenMoves_UnderscoreForm(t *testing.T) {
	got := DetectForbiddenMoves("There was a secret organization pulling strings", []string{"secret_organization"})
	if !slices.Equal(got, []string{"secret_organization"}) {
		t.Fatalf("expected match, got %v", got)
	}
}

func TestDetectForbiddenMoves_CaseAndSpacing(t *testing.T) {
	for _, text := range []string{
		"Secret Organization",
		"the SECRET_ORGANIZATION files",
		"a secretorganization",
	} {
		got := DetectForbiddenMoves(text, []string{"secret_organization"})
		if len(got) != 1 {
			t.Errorf("%q: expected match, got %v", text, got)
		}
	}
}

func TestDetectForbiddenMoves_Subset(t *testing.T) {
	forbidden := []string{"chosen_one", "evil_twin", "amnesia_reveal", "evil_twin", ""}
	got := DetectForbiddenMoves("She was the chosen one, and her evil twin knew it.", forbidden)
	if !slices.Equal(got, []string{"chosen_one", "evil_twin"}) {
		t.Fatalf("expected [chosen_one evil_twin], got %v", got)
	}
}

func TestDetectForbiddenMoves_WordBoundary(t *testing.T) {
	got := DetectForbiddenMoves("the evil twinkle in his eye", []string{"evil_twin"})
	if len(got) != 0 {
		t.Fatalf("expected no match across word boundary, got %v", got)
	}
}

func TestDetectForbiddenMoves_MetacharactersEscaped(t *testing.T) {
	got := DetectForbiddenMoves("a plain sentence", []string{"a.b", "(unclosed"})
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestDetectForbiddenMoves_EmptyInputs(t *testing.T) {
	if got := DetectForbiddenMoves("anything", nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if got := DetectForbiddenMoves("", []string{"chosen_one"}); len(got) != 0 {
		t.Fatalf("expected no matches on empty text, got %v", got)
	}
}

// #endregion forbidden-tests
