package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
)

var (
	logger   *zap.Logger
	logLevel string

	laneFlag    string
	compsPath   string
	profilePath string

	rootCmd = &cobra.Command{
		Use:   "ruleset",
		Short: "Build, check and apply creative rulesets for story generation",
		Long: `ruleset builds an engine profile for a production lane, nudges it with
reference titles, reports rule conflicts, and scores candidate text
against the profile's gate.

All commands print JSON on stdout. gate exits 1 when the text fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.NewLogger(logLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&laneFlag, "lane", "l", string(profile.LaneFeatureFilm),
		"production lane: "+strings.Join(laneNames(), ", "))
	rootCmd.PersistentFlags().StringVarP(&compsPath, "comps", "c", "", "YAML or JSON list of reference titles")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "use a saved profile instead of deriving one")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(gateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

// exitCode ends the process with a status and no message.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit %d", int(c)) }

// #region inputs
func laneNames() []string {
	lanes := profile.Lanes()
	names := make([]string, len(lanes))
	for i, l := range lanes {
		names[i] = string(l)
	}
	return names
}

// resolveProfile loads --profile when given, otherwise derives one from
// --lane and --comps.
func resolveProfile() (profile.EngineProfile, error) {
	if profilePath != "" {
		var p profile.EngineProfile
		if err := decodeFile(profilePath, &p); err != nil {
			return profile.EngineProfile{}, err
		}
		if !p.Lane.Valid() {
			return profile.EngineProfile{}, fmt.Errorf("profile %s: %w: %q", profilePath, profile.ErrUnknownLane, p.Lane)
		}
		return p, nil
	}

	lane, err := profile.ParseLane(laneFlag)
	if err != nil {
		return profile.EngineProfile{}, err
	}
	influencers, err := loadComps()
	if err != nil {
		return profile.EngineProfile{}, err
	}
	logger.Debug("deriving profile", zap.String("lane", string(lane)), zap.Int("influencers", len(influencers)))
	return profile.DeriveEngineProfile(lane, influencers), nil
}

func loadComps() ([]profile.CompsInfluencer, error) {
	if compsPath == "" {
		return nil, nil
	}
	var influencers []profile.CompsInfluencer
	if err := decodeFile(compsPath, &influencers); err != nil {
		return nil, err
	}
	return influencers, nil
}

// decodeFile reads YAML or JSON, picked by extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readText reads candidate text from a file, or stdin for "-".
func readText(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--text is required")
	}
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// #endregion inputs

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
