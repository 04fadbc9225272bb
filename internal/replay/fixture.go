package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/ruleset-engine/internal/gate"
	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
)

// #region fixture-types

// Fixture is the top-level structure of a replay fixture file.
type Fixture struct {
	Description      string                    `json:"description" yaml:"description"`
	Lane             profile.Lane              `json:"lane" yaml:"lane"`
	Influencers      []profile.CompsInfluencer `json:"influencers,omitempty" yaml:"influencers,omitempty"`
	Profile          *profile.EngineProfile    `json:"profile,omitempty" yaml:"profile,omitempty"`
	DiversifyEnabled bool                      `json:"diversify_enabled" yaml:"diversify_enabled"`
	Interactions     []FixtureInteraction      `json:"interactions" yaml:"interactions"`
}

// FixtureInteraction is one candidate text with its expected verdict.
// Omitted expectations are not checked.
type FixtureInteraction struct {
	TurnID         string   `json:"turn_id" yaml:"turn_id"`
	Text           string   `json:"text" yaml:"text"`
	SimilarityRisk float64  `json:"similarity_risk" yaml:"similarity_risk"`
	ExpectPass     *bool    `json:"expect_pass,omitempty" yaml:"expect_pass,omitempty"`
	ExpectFailures []string `json:"expect_failures,omitempty" yaml:"expect_failures,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file, YAML for .yaml/.yml and JSON otherwise.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ResolveProfile returns the fixture's explicit profile, or derives one from
// its lane and influencers.
func (f *Fixture) ResolveProfile() profile.EngineProfile {
	if f.Profile != nil {
		return f.Profile.Clone()
	}
	return profile.DeriveEngineProfile(f.Lane, f.Influencers)
}

// ToInteractions converts every fixture interaction against one resolved profile.
func (f *Fixture) ToInteractions() []Interaction {
	p := f.ResolveProfile()
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		out[i] = f.Interactions[i].ToInteraction(p, f.DiversifyEnabled)
	}
	return out
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction(p profile.EngineProfile, diversify bool) Interaction {
	inter := Interaction{
		TurnID:           fi.TurnID,
		Text:             fi.Text,
		SimilarityRisk:   fi.SimilarityRisk,
		DiversifyEnabled: diversify,
		Profile:          p,
		ExpectPass:       fi.ExpectPass,
	}
	if fi.ExpectFailures != nil {
		inter.ExpectFailures = toFailures(fi.ExpectFailures)
	}
	return inter
}

// FromGateRecord rebuilds an interaction from a logged verdict, expecting
// the verdict that was recorded.
func FromGateRecord(rec logging.GateRecord) Interaction {
	pass := rec.Pass
	return Interaction{
		TurnID:           rec.AttemptID,
		Text:             rec.Text,
		SimilarityRisk:   rec.SimilarityRisk,
		DiversifyEnabled: rec.DiversifyEnabled,
		Profile:          rec.Profile,
		ExpectPass:       &pass,
		ExpectFailures:   toFailures(rec.Failures),
	}
}

func toFailures(codes []string) []gate.Failure {
	out := make([]gate.Failure, len(codes))
	for i, c := range codes {
		out[i] = gate.Failure(c)
	}
	return out
}

// #endregion fixture-loader

// #region fixture-export

// BuildFixture turns logged verdicts into a fixture pinned to the first
// record's profile and diversify setting. Records evaluated under a different
// profile or setting cannot share the fixture and are counted as skipped.
func BuildFixture(records []logging.GateRecord) (Fixture, int, error) {
	if len(records) == 0 {
		return Fixture{}, 0, fmt.Errorf("build fixture: no gate records")
	}
	first := records[0]
	base, err := json.Marshal(first.Profile)
	if err != nil {
		return Fixture{}, 0, fmt.Errorf("build fixture: marshal profile: %w", err)
	}

	prof := first.Profile.Clone()
	f := Fixture{
		Lane:             first.Profile.Lane,
		Profile:          &prof,
		DiversifyEnabled: first.DiversifyEnabled,
		Interactions:     make([]FixtureInteraction, 0, len(records)),
	}
	skipped := 0
	for _, rec := range records {
		same, err := json.Marshal(rec.Profile)
		if err != nil || string(same) != string(base) || rec.DiversifyEnabled != first.DiversifyEnabled {
			skipped++
			continue
		}
		pass := rec.Pass
		failures := rec.Failures
		if failures == nil {
			failures = []string{}
		}
		f.Interactions = append(f.Interactions, FixtureInteraction{
			TurnID:         rec.AttemptID,
			Text:           rec.Text,
			SimilarityRisk: rec.SimilarityRisk,
			ExpectPass:     &pass,
			ExpectFailures: failures,
		})
	}
	f.Description = fmt.Sprintf("Exported session: %d %s attempts", len(f.Interactions), f.Lane)
	return f, skipped, nil
}

// WriteFixture saves f as YAML for .yaml/.yml and indented JSON otherwise.
func WriteFixture(f Fixture, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
