package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/ruleset-engine/internal/conflicts"
	"github.com/danielpatrickdp/ruleset-engine/internal/gate"
	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
	"github.com/danielpatrickdp/ruleset-engine/internal/verdict"
)

// DefaultMaxTextBytes is used when Options.MaxTextBytes is unset.
const DefaultMaxTextBytes = 4 << 20

// ErrTextTooLarge is returned for candidate text over the configured cap.
var ErrTextTooLarge = errors.New("text too large")

// #region types
// Options wires optional collaborators into a Pipeline. Nil Store, Publisher
// or Logger disables that step.
type Options struct {
	Store        *store.Store
	Publisher    verdict.Publisher
	Logger       *zap.Logger
	MaxTextBytes int
	TriggerType  string // provenance trigger, default "pipeline"
}

// Request is one candidate text to evaluate. A non-nil Profile is used as-is;
// otherwise the profile is derived from Lane and Influencers.
type Request struct {
	Lane             profile.Lane
	Influencers      []profile.CompsInfluencer
	Profile          *profile.EngineProfile
	Text             string
	SimilarityRisk   float64
	DiversifyEnabled bool
}

// Result is the full evaluation of one Request.
type Result struct {
	AttemptID string                  `json:"attempt_id"`
	Profile   profile.EngineProfile   `json:"profile"`
	Conflicts []conflicts.RuleConflict `json:"conflicts"`
	Attempt   gate.Attempt            `json:"attempt"`
	Summary   string                  `json:"summary"`
}

// Pipeline runs derive, conflict detection, scoring and the gate, then
// records and publishes the verdict. Safe for concurrent use.
type Pipeline struct {
	store     *store.Store
	publisher verdict.Publisher
	logger    *zap.Logger
	maxBytes  int
	trigger   string
}

// #endregion types

// New builds a Pipeline from opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		store:     opts.Store,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		maxBytes:  opts.MaxTextBytes,
		trigger:   opts.TriggerType,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.maxBytes <= 0 {
		p.maxBytes = DefaultMaxTextBytes
	}
	if p.trigger == "" {
		p.trigger = "pipeline"
	}
	return p
}

// #region evaluate
// Evaluate runs one request end to end. Persistence and publish errors are
// returned alongside a populated Result, since the verdict itself is valid.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) (Result, error) {
	if len(req.Text) > p.maxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTextTooLarge, len(req.Text), p.maxBytes)
	}
	if req.Profile == nil && req.Lane != "" && !req.Lane.Valid() {
		return Result{}, fmt.Errorf("%w: %q", profile.ErrUnknownLane, req.Lane)
	}

	prof := ResolveProfile(req)
	found := conflicts.DetectConflicts(prof)
	metrics := scoring.ComputeRulesetMetrics(req.Text)
	attempt := gate.RunRulesetGate(metrics, req.Text, prof, req.SimilarityRisk, req.DiversifyEnabled)

	res := Result{
		AttemptID: uuid.New().String(),
		Profile:   prof,
		Conflicts: found,
		Attempt:   attempt,
		Summary:   profile.GenerateRulesSummary(prof),
	}

	var errs []error
	if p.store != nil {
		if err := p.record(req, res); err != nil {
			errs = append(errs, err)
		}
	}
	if p.publisher != nil {
		if _, err := p.publisher.Publish(ctx, MessageFor(res)); err != nil {
			errs = append(errs, err)
		}
	}

	p.logger.Info("gate verdict",
		zap.String("attempt_id", res.AttemptID),
		zap.String("lane", string(prof.Lane)),
		zap.Bool("pass", attempt.Pass),
		zap.Strings("failures", failureStrings(attempt.Failures)),
		zap.Float64("melodrama", attempt.MelodramaScore),
		zap.Float64("nuance", attempt.NuanceScore),
		zap.Int("conflicts", len(found)),
		zap.Bool("hard_conflict", conflicts.HasHard(found)),
	)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.logger.Warn("verdict side effects failed", zap.String("attempt_id", res.AttemptID), zap.Error(err))
		return res, fmt.Errorf("evaluate %s: %w", res.AttemptID, err)
	}
	return res, nil
}

// ResolveProfile returns req.Profile when set, otherwise derives one.
func ResolveProfile(req Request) profile.EngineProfile {
	if req.Profile != nil {
		return req.Profile.Clone()
	}
	return profile.DeriveEngineProfile(req.Lane, req.Influencers)
}

// #endregion evaluate

// #region persistence
func (p *Pipeline) record(req Request, res Result) error {
	metricsJSON, err := json.Marshal(res.Attempt.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	profileJSON, err := json.Marshal(res.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	textHash := store.HashText(req.Text)
	failures := failureStrings(res.Attempt.Failures)
	_, err = p.store.RecordAttemptWithProvenance(store.AttemptRecord{
		AttemptID:        res.AttemptID,
		Lane:             string(res.Profile.Lane),
		TextHash:         textHash,
		SimilarityRisk:   req.SimilarityRisk,
		DiversifyEnabled: req.DiversifyEnabled,
		Pass:             res.Attempt.Pass,
		Failures:         failures,
		MelodramaScore:   res.Attempt.MelodramaScore,
		NuanceScore:      res.Attempt.NuanceScore,
		MetricsJSON:      string(metricsJSON),
		ProfileJSON:      string(profileJSON),
		CreatedAt:        time.Now().UTC(),
	}, p.trigger, GateRecordFor(req, res))
	return err
}

// GateRecordFor builds the replayable provenance payload for a result.
func GateRecordFor(req Request, res Result) logging.GateRecord {
	return logging.GateRecord{
		AttemptID:        res.AttemptID,
		Lane:             res.Profile.Lane,
		Text:             req.Text,
		SimilarityRisk:   req.SimilarityRisk,
		DiversifyEnabled: req.DiversifyEnabled,
		Profile:          res.Profile,
		Metrics:          res.Attempt.Metrics,
		Pass:             res.Attempt.Pass,
		Failures:         failureStrings(res.Attempt.Failures),
		MelodramaScore:   res.Attempt.MelodramaScore,
		NuanceScore:      res.Attempt.NuanceScore,
		Reason:           res.Attempt.Reason(),
	}
}

// MessageFor builds the verdict stream message for a result.
func MessageFor(res Result) verdict.Message {
	return verdict.Message{
		AttemptID:      res.AttemptID,
		Lane:           string(res.Profile.Lane),
		Pass:           res.Attempt.Pass,
		Failures:       failureStrings(res.Attempt.Failures),
		MelodramaScore: res.Attempt.MelodramaScore,
		NuanceScore:    res.Attempt.NuanceScore,
	}
}

func failureStrings(fs []gate.Failure) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// #endregion persistence
