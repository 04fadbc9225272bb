package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/danielpatrickdp/ruleset-engine/internal/gate"
	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
	"github.com/danielpatrickdp/ruleset-engine/internal/verdict"
)

const (
	restrainedScene = "Mara sits at the kitchen table in silence. Her brother asks about the farm, and she changes the subject. " +
		"The kettle clicks. Neither of them moves. She looks away when he mentions their father. " +
		"Later, alone on the porch, she realizes the letter was meant for someone else. She folds it and puts it back."

	melodramaticScene = "Blood on the floor. A scream. Then the explosion. Everyone is dead and nothing will ever be the same. " +
		"It turns out the Iron Guild and the Silver Order were behind the conspiracy all along, pulling the strings. " +
		"Meanwhile the twist: her brother betrayed them. Elsewhere, a secret organization watches."
)

// Evaluate spawns nothing that outlives a call.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region fakes
type fakePublisher struct {
	mu   sync.Mutex
	msgs []verdict.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg verdict.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return "1-0", nil
}

func memStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion fakes

func TestEvaluatePassingTextRecordsAndPublishes(t *testing.T) {
	s := memStore(t)
	pub := &fakePublisher{}
	p := New(Options{Store: s, Publisher: pub, Logger: zaptest.NewLogger(t)})

	res, err := p.Evaluate(context.Background(), Request{
		Lane:             profile.LaneFeatureFilm,
		Text:             restrainedScene,
		SimilarityRisk:   0.2,
		DiversifyEnabled: true,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Attempt.Pass {
		t.Fatalf("expected pass, got %v", res.Attempt.Failures)
	}
	if res.AttemptID == "" {
		t.Fatal("expected attempt ID")
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("expected no conflicts for defaults, got %v", res.Conflicts)
	}
	if !strings.HasPrefix(res.Summary, "Ruleset ruleset-v1 (lane: feature_film)") {
		t.Fatalf("unexpected summary: %s", res.Summary)
	}

	rec, err := s.GetAttemptWithProvenance(res.AttemptID)
	if err != nil {
		t.Fatalf("GetAttemptWithProvenance: %v", err)
	}
	if !rec.Pass || rec.Lane != "feature_film" || rec.TextHash != store.HashText(restrainedScene) {
		t.Fatalf("unexpected stored attempt: %+v", rec.AttemptRecord)
	}
	if rec.Decision != "pass" || rec.TriggerType != "pipeline" {
		t.Fatalf("unexpected provenance: decision=%q trigger=%q", rec.Decision, rec.TriggerType)
	}

	records, err := logging.LoadGateRecords(s.DB())
	if err != nil {
		t.Fatalf("LoadGateRecords: %v", err)
	}
	if len(records) != 1 || records[0].Text != restrainedScene {
		t.Fatalf("expected gate record with text, got %+v", records)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 published verdict, got %d", len(pub.msgs))
	}
	want := verdict.Message{
		AttemptID:      res.AttemptID,
		Lane:           "feature_film",
		Pass:           true,
		Failures:       []string{},
		MelodramaScore: res.Attempt.MelodramaScore,
		NuanceScore:    res.Attempt.NuanceScore,
	}
	if diff := cmp.Diff(want, pub.msgs[0]); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateFailingText(t *testing.T) {
	p := New(Options{Logger: zaptest.NewLogger(t)})

	res, err := p.Evaluate(context.Background(), Request{Text: melodramaticScene})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Attempt.Pass {
		t.Fatal("expected fail")
	}
	if res.Profile.Lane != profile.LaneFeatureFilm {
		t.Fatalf("empty lane should resolve to feature_film, got %s", res.Profile.Lane)
	}
	if !res.Attempt.Has(gate.FailureForbiddenMove) || !res.Attempt.Has(gate.FailureMelodrama) {
		t.Fatalf("expected forbidden move and melodrama failures, got %v", res.Attempt.Failures)
	}
}

func TestEvaluateDerivesFromInfluencers(t *testing.T) {
	p := New(Options{})
	res, err := p.Evaluate(context.Background(), Request{
		Lane: profile.LaneFeatureFilm,
		Influencers: []profile.CompsInfluencer{
			{Title: "Knives Out", Weight: 1, Dimensions: []profile.InfluenceDimension{profile.DimTwistBudget}, AvoidTags: []string{"cliffhanger_every_scene"}},
		},
		Text: restrainedScene,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Profile.Budgets.TwistCap != 2 {
		t.Fatalf("expected twist cap 2, got %d", res.Profile.Budgets.TwistCap)
	}
	last := res.Profile.ForbiddenMoves[len(res.Profile.ForbiddenMoves)-1]
	if last != "cliffhanger_every_scene" {
		t.Fatalf("expected avoid tag appended, got %s", last)
	}
}

func TestEvaluateExplicitProfile(t *testing.T) {
	prof := profile.DefaultEngineProfile(profile.LaneDocumentary)
	prof.Budgets.TwistCap = 3
	p := New(Options{})

	res, err := p.Evaluate(context.Background(), Request{Lane: "ignored", Profile: &prof, Text: restrainedScene})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Profile.Lane != profile.LaneDocumentary {
		t.Fatalf("expected explicit profile, got lane %s", res.Profile.Lane)
	}
	found := false
	for _, c := range res.Conflicts {
		if c.ID == "twist_vs_restraint" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected twist_vs_restraint conflict, got %v", res.Conflicts)
	}

	res.Profile.ForbiddenMoves[0] = "mutated"
	if prof.ForbiddenMoves[0] == "mutated" {
		t.Fatal("result profile must not alias the request profile")
	}
}

func TestEvaluateUnknownLane(t *testing.T) {
	p := New(Options{})
	_, err := p.Evaluate(context.Background(), Request{Lane: "sitcom", Text: "x"})
	if !errors.Is(err, profile.ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}
}

func TestEvaluateTextTooLarge(t *testing.T) {
	p := New(Options{MaxTextBytes: 10})
	_, err := p.Evaluate(context.Background(), Request{Text: strings.Repeat("a", 11)})
	if !errors.Is(err, ErrTextTooLarge) {
		t.Fatalf("expected ErrTextTooLarge, got %v", err)
	}
	if _, err := p.Evaluate(context.Background(), Request{Text: strings.Repeat("a", 10)}); err != nil {
		t.Fatalf("text at the cap should be accepted: %v", err)
	}
}

func TestEvaluatePublishErrorKeepsVerdict(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	p := New(Options{Publisher: pub, Logger: zaptest.NewLogger(t)})

	res, err := p.Evaluate(context.Background(), Request{Text: restrainedScene})
	if err == nil || !strings.Contains(err.Error(), "redis down") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if res.AttemptID == "" || !res.Attempt.Pass {
		t.Fatalf("expected populated verdict alongside error, got %+v", res)
	}
}

func TestEvaluateProvenanceFailureLeavesNoAttempt(t *testing.T) {
	s := memStore(t)
	if _, err := s.DB().Exec("DROP TABLE provenance_log"); err != nil {
		t.Fatalf("drop provenance_log: %v", err)
	}
	p := New(Options{Store: s, Logger: zaptest.NewLogger(t)})

	res, err := p.Evaluate(context.Background(), Request{Text: restrainedScene})
	if err == nil {
		t.Fatal("expected provenance error")
	}
	if res.AttemptID == "" || !res.Attempt.Pass {
		t.Fatalf("expected populated verdict alongside error, got %+v", res)
	}
	if _, err := s.GetAttempt(res.AttemptID); err == nil {
		t.Fatal("attempt row should be rolled back with its provenance")
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	s := memStore(t)
	pub := &fakePublisher{}
	p := New(Options{Store: s, Publisher: pub})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := restrainedScene
			if i%2 == 1 {
				text = melodramaticScene
			}
			if _, err := p.Evaluate(context.Background(), Request{Text: text}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Evaluate: %v", err)
	}

	pass, fail, err := s.CountByOutcome()
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if pass != 4 || fail != 4 {
		t.Fatalf("expected 4/4, got %d/%d", pass, fail)
	}
	if len(pub.msgs) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(pub.msgs))
	}
}
