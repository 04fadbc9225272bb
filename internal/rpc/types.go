package rpc

import (
	"github.com/danielpatrickdp/ruleset-engine/internal/conflicts"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// Wire shapes carried inside structpb.Struct payloads. Field names follow
// the JSON tags of the core types.

// #region requests
// ProfileRequest selects a profile: an explicit one, or lane plus influencers.
type ProfileRequest struct {
	Lane        string                    `json:"lane,omitempty"`
	Influencers []profile.CompsInfluencer `json:"influencers,omitempty"`
	Profile     *profile.EngineProfile    `json:"profile,omitempty"`
}

// ScoreRequest asks for metrics on text, with forbidden moves checked
// against the profile the embedded request resolves to.
type ScoreRequest struct {
	ProfileRequest
	Text string `json:"text"`
}

// EvaluateRequest runs the full pipeline. A nil DiversifyEnabled uses the
// server default.
type EvaluateRequest struct {
	ProfileRequest
	Text             string  `json:"text"`
	SimilarityRisk   float64 `json:"similarity_risk"`
	DiversifyEnabled *bool   `json:"diversify_enabled,omitempty"`
}

// #endregion requests

// #region responses
type ScoreResponse struct {
	Metrics        scoring.RulesetMetrics `json:"metrics"`
	MelodramaScore float64                `json:"melodrama_score"`
	NuanceScore    float64                `json:"nuance_score"`
	ForbiddenHits  []string               `json:"forbidden_hits"`
}

type ConflictsResponse struct {
	Conflicts []conflicts.RuleConflict `json:"conflicts"`
	HasHard   bool                     `json:"has_hard"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

// #endregion responses
