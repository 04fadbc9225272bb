package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/ruleset-engine/internal/config"
	"github.com/danielpatrickdp/ruleset-engine/internal/conflicts"
	"github.com/danielpatrickdp/ruleset-engine/internal/pipeline"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
	"github.com/danielpatrickdp/ruleset-engine/internal/verdict"
)

var (
	textPath   string
	similarity float64
	diversify  bool
	dbPath     string
	redisURL   string
)

// #region profile-commands
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the default profile for --lane",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lane, err := profile.ParseLane(laneFlag)
		if err != nil {
			return err
		}
		return printJSON(cmd, profile.DefaultEngineProfile(lane))
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a profile from --lane and --comps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfile()
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Report rule conflicts in a profile",
	Long:  "conflicts exits 1 when any hard conflict is found.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfile()
		if err != nil {
			return err
		}
		found := conflicts.DetectConflicts(p)
		if err := printJSON(cmd, found); err != nil {
			return err
		}
		if conflicts.HasHard(found) {
			return exitCode(1)
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the human-readable rules summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfile()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), profile.GenerateRulesSummary(p))
		return err
	},
}

// #endregion profile-commands

// #region text-commands
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute metrics and scores for --text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, textPath)
		if err != nil {
			return err
		}
		p, err := resolveProfile()
		if err != nil {
			return err
		}
		m := scoring.ComputeRulesetMetrics(text)
		return printJSON(cmd, struct {
			Metrics        scoring.RulesetMetrics `json:"metrics"`
			MelodramaScore float64                `json:"melodrama_score"`
			NuanceScore    float64                `json:"nuance_score"`
			ForbiddenHits  []string               `json:"forbidden_hits"`
		}{
			Metrics:        m,
			MelodramaScore: scoring.ComputeRulesetMelodramaScore(m),
			NuanceScore:    scoring.ComputeRulesetNuanceScore(m),
			ForbiddenHits:  scoring.DetectForbiddenMoves(text, p.ForbiddenMoves),
		})
	},
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run the full gate on --text",
	Long: `gate derives the profile, scores the text and applies every gate check.
With --db the attempt is recorded; with --redis the verdict is published.
Exits 1 when the text fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, textPath)
		if err != nil {
			return err
		}
		p, err := resolveProfile()
		if err != nil {
			return err
		}

		opts := pipeline.Options{Logger: logger, MaxTextBytes: config.DefaultMaxTextBytes, TriggerType: "cli"}
		if dbPath != "" {
			s, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()
			opts.Store = s
		}
		if redisURL != "" {
			client, err := verdict.ConnectRedis(redisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			opts.Publisher = verdict.NewRedisPublisher(client, verdict.DefaultStream)
		}

		res, err := pipeline.New(opts).Evaluate(cmd.Context(), pipeline.Request{
			Profile:          &p,
			Text:             text,
			SimilarityRisk:   similarity,
			DiversifyEnabled: diversify,
		})
		if err != nil && res.AttemptID == "" {
			return err
		}
		if err != nil {
			logger.Warn("verdict not fully recorded", zap.Error(err))
		}
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		if !res.Attempt.Pass {
			return exitCode(1)
		}
		return nil
	},
}

// #endregion text-commands

func init() {
	for _, c := range []*cobra.Command{scoreCmd, gateCmd} {
		c.Flags().StringVarP(&textPath, "text", "t", "", `candidate text file, or "-" for stdin`)
	}
	gateCmd.Flags().Float64Var(&similarity, "similarity", 0, "template similarity risk in [0, 1]")
	gateCmd.Flags().BoolVar(&diversify, "diversify", true, "apply the template similarity check")
	gateCmd.Flags().StringVar(&dbPath, "db", "", "record the attempt in this SQLite database")
	gateCmd.Flags().StringVar(&redisURL, "redis", "", "publish the verdict to this Redis URL")
}
