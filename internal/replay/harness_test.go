package replay

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/ruleset-engine/internal/gate"
	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

const quietText = "Mara sits at the kitchen table in silence. Her brother asks about the farm, and she changes the subject. " +
	"The kettle clicks. Neither of them moves. She looks away when he mentions their father. " +
	"Later, alone on the porch, she realizes the letter was meant for someone else. She folds it and puts it back."

func boolPtr(b bool) *bool { return &b }

// #region replay-tests
func TestReplay_Mismatch(t *testing.T) {
	inter := Interaction{
		TurnID:     "t1",
		Text:       quietText,
		Profile:    profile.DefaultEngineProfile(profile.LaneFeatureFilm),
		ExpectPass: boolPtr(false),
	}
	results := Replay([]Interaction{inter})
	if results[0].Match {
		t.Fatal("expected mismatch when a passing text is expected to fail")
	}
	if !strings.Contains(results[0].Diff, "expected pass=false") {
		t.Fatalf("unexpected diff %q", results[0].Diff)
	}
	if s := Summarize(results); s.Mismatches != 1 || s.Passes != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestReplay_FailureSetMismatch(t *testing.T) {
	inter := Interaction{
		TurnID:         "t1",
		Text:           "",
		Profile:        profile.DefaultEngineProfile(profile.LaneFeatureFilm),
		ExpectFailures: []gate.Failure{gate.FailureSubtextMissing},
	}
	r := Replay([]Interaction{inter})[0]
	if r.Match {
		t.Fatal("expected failure-set mismatch")
	}
	if !strings.Contains(r.Diff, "expected failures") {
		t.Fatalf("unexpected diff %q", r.Diff)
	}
}

func TestReplay_Empty(t *testing.T) {
	results := Replay(nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if s := Summarize(results); s != (ReplaySummary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

// #endregion replay-tests

// #region gate-record-tests
func TestFromGateRecord_ReplaysRecordedVerdict(t *testing.T) {
	p := profile.DefaultEngineProfile(profile.LaneSeries)
	text := quietText + " It turns out the twist was there all along."
	attempt := gate.RunRulesetGate(scoring.ComputeRulesetMetrics(text), text, p, 0.8, true)

	failures := make([]string, len(attempt.Failures))
	for i, f := range attempt.Failures {
		failures[i] = string(f)
	}
	rec := logging.GateRecord{
		AttemptID:        "a-42",
		Lane:             p.Lane,
		Text:             text,
		SimilarityRisk:   0.8,
		DiversifyEnabled: true,
		Profile:          p,
		Metrics:          attempt.Metrics,
		Pass:             attempt.Pass,
		Failures:         failures,
	}

	inter := FromGateRecord(rec)
	if inter.TurnID != "a-42" || inter.ExpectPass == nil || *inter.ExpectPass != attempt.Pass {
		t.Fatalf("unexpected interaction %+v", inter)
	}
	r := Replay([]Interaction{inter})[0]
	if !r.Match {
		t.Fatalf("recorded verdict should replay identically: %s", r.Diff)
	}
	if !r.Attempt.Has(gate.FailureTemplateSimilarity) {
		t.Fatalf("expected TEMPLATE_SIMILARITY with risk 0.8 > 0.7, got %v", r.Attempt.Failures)
	}
}

func TestFromGateRecord_DetectsDrift(t *testing.T) {
	p := profile.DefaultEngineProfile(profile.LaneFeatureFilm)
	rec := logging.GateRecord{
		AttemptID: "a-7",
		Lane:      p.Lane,
		Text:      quietText,
		Profile:   p,
		Pass:      false,
		Failures:  []string{"MELODRAMA"},
	}
	r := Replay([]Interaction{FromGateRecord(rec)})[0]
	if r.Match {
		t.Fatal("expected drift to be reported")
	}
}

// #endregion gate-record-tests
