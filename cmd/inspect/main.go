package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
	"github.com/danielpatrickdp/ruleset-engine/internal/verdict"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ruleset.db")
	last := flag.Int("last", 20, "show N most recent attempts")
	id := flag.String("id", "", "show single attempt detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	verdicts := flag.Int64("verdicts", 0, "show N most recent verdicts from the Redis stream instead of the db")
	redisURL := flag.String("redis", "", "Redis URL for --verdicts")
	stream := flag.String("stream", verdict.DefaultStream, "verdict stream name for --verdicts")
	flag.Parse()

	if *verdicts > 0 {
		if *redisURL == "" {
			fmt.Fprintln(os.Stderr, "usage: inspect --verdicts N --redis redis://host:6379/0 [--stream name] [--json]")
			os.Exit(2)
		}
		if err := runVerdictMode(*redisURL, *stream, *verdicts, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ruleset.db [--last N] [--id attempt] [--json]")
		os.Exit(2)
	}

	s, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if *id != "" {
		err = runDetailMode(s, *id, *jsonOut)
	} else {
		err = runListMode(s, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	AttemptID string   `json:"attempt_id"`
	Lane      string   `json:"lane"`
	Pass      bool     `json:"pass"`
	Melodrama float64  `json:"melodrama_score"`
	Nuance    float64  `json:"nuance_score"`
	Failures  []string `json:"failures"`
	Trigger   string   `json:"trigger,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func runListMode(s *store.Store, last int, jsonOut bool) error {
	attempts, err := s.ListAttemptsWithProvenance(last)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(os.Stderr, "no attempts found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(attempts))
	for i, a := range attempts {
		rows[len(attempts)-1-i] = listRow{
			AttemptID: a.AttemptID,
			Lane:      a.Lane,
			Pass:      a.Pass,
			Melodrama: a.MelodramaScore,
			Nuance:    a.NuanceScore,
			Failures:  a.Failures,
			Trigger:   a.TriggerType,
			CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-15s  %-5s  %9s  %6s  %-20s  %s\n",
		"Attempt", "Lane", "Pass", "Melodrama", "Nuance", "Time", "Failures")
	fmt.Printf("%-10s+-%-15s+-%-5s+-%9s+-%6s+-%-20s+-%s\n",
		"----------", "---------------", "-----", "---------", "------", "--------------------", "--------")
	for _, r := range rows {
		failures := "-"
		if len(r.Failures) > 0 {
			failures = strings.Join(r.Failures, ",")
		}
		fmt.Printf("%-10s  %-15s  %-5v  %9.4f  %6.4f  %-20s  %s\n",
			shortID(r.AttemptID), r.Lane, r.Pass, r.Melodrama, r.Nuance, r.CreatedAt, failures)
	}

	pass, fail, err := s.CountByOutcome()
	if err != nil {
		return err
	}
	fmt.Printf("\nAll attempts: %d pass, %d fail\n", pass, fail)
	return nil
}

// #endregion list-mode

// #region verdict-mode

func runVerdictMode(redisURL, stream string, count int64, jsonOut bool) error {
	client, err := verdict.ConnectRedis(redisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msgs, err := verdict.NewRedisPublisher(client, stream).Recent(ctx, count)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(os.Stderr, "no verdicts found")
		return nil
	}
	if jsonOut {
		return printJSON(msgs)
	}

	fmt.Printf("%-10s  %-15s  %-5s  %9s  %6s  %s\n",
		"Attempt", "Lane", "Pass", "Melodrama", "Nuance", "Failures")
	for _, m := range msgs {
		failures := "-"
		if len(m.Failures) > 0 {
			failures = strings.Join(m.Failures, ",")
		}
		fmt.Printf("%-10s  %-15s  %-5v  %9.4f  %6.4f  %s\n",
			shortID(m.AttemptID), m.Lane, m.Pass, m.MelodramaScore, m.NuanceScore, failures)
	}
	return nil
}

// #endregion verdict-mode

// #region detail-mode

type detailOutput struct {
	AttemptID        string                  `json:"attempt_id"`
	Lane             string                  `json:"lane"`
	CreatedAt        string                  `json:"created_at"`
	TextHash         string                  `json:"text_hash"`
	SimilarityRisk   float64                 `json:"similarity_risk"`
	DiversifyEnabled bool                    `json:"diversify_enabled"`
	Pass             bool                    `json:"pass"`
	Failures         []string                `json:"failures"`
	MelodramaScore   float64                 `json:"melodrama_score"`
	NuanceScore      float64                 `json:"nuance_score"`
	Trigger          string                  `json:"trigger,omitempty"`
	Reason           string                  `json:"reason,omitempty"`
	Metrics          *scoring.RulesetMetrics `json:"metrics,omitempty"`
	TextPreview      string                  `json:"text_preview,omitempty"`
}

func runDetailMode(s *store.Store, id string, jsonOut bool) error {
	a, err := s.GetAttemptWithProvenance(id)
	if err != nil {
		return err
	}

	out := detailOutput{
		AttemptID:        a.AttemptID,
		Lane:             a.Lane,
		CreatedAt:        a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		TextHash:         a.TextHash,
		SimilarityRisk:   a.SimilarityRisk,
		DiversifyEnabled: a.DiversifyEnabled,
		Pass:             a.Pass,
		Failures:         a.Failures,
		MelodramaScore:   a.MelodramaScore,
		NuanceScore:      a.NuanceScore,
		Trigger:          a.TriggerType,
		Reason:           a.Reason,
	}
	if a.MetricsJSON != "" {
		var m scoring.RulesetMetrics
		if err := json.Unmarshal([]byte(a.MetricsJSON), &m); err == nil {
			out.Metrics = &m
		}
	}
	if gr := parseGateRecord(a.SignalsJSON); gr != nil {
		out.TextPreview = preview(gr.Text, 160)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Attempt:    %s\n", out.AttemptID)
	fmt.Printf("Lane:       %s\n", out.Lane)
	fmt.Printf("Created:    %s\n", out.CreatedAt)
	fmt.Printf("Text hash:  %s\n", out.TextHash)
	fmt.Printf("Similarity: %.4f (diversify %v)\n", out.SimilarityRisk, out.DiversifyEnabled)
	fmt.Printf("Pass:       %v\n", out.Pass)
	fmt.Printf("Melodrama:  %.4f\n", out.MelodramaScore)
	fmt.Printf("Nuance:     %.4f\n", out.NuanceScore)
	if out.Reason != "" {
		fmt.Printf("Reason:     %s\n", out.Reason)
	}

	if out.Metrics != nil {
		m := out.Metrics
		fmt.Printf("\nMetrics:\n")
		fmt.Printf("  absolute words /1k   %.2f\n", m.AbsoluteWordsRate)
		fmt.Printf("  twist keywords /1k   %.2f\n", m.TwistKeywordRate)
		fmt.Printf("  conspiracy markers   %d\n", m.ConspiracyMarkers)
		fmt.Printf("  early shocks         %d\n", m.ShockEventsEarly)
		fmt.Printf("  long speeches        %d\n", m.SpeechLengthProxy)
		fmt.Printf("  new characters /1k   %.2f\n", m.NewCharacterDensity)
		fmt.Printf("  named factions       %d\n", m.NamedFactions)
		fmt.Printf("  plot threads         %d\n", m.PlotThreadCount)
		fmt.Printf("  subtext scenes       %d\n", m.SubtextSceneCount)
		fmt.Printf("  quiet beats          %d\n", m.QuietBeatsCount)
		fmt.Printf("  meaning shifts       %d\n", m.MeaningShiftCount)
		fmt.Printf("  cost of action       %d\n", m.CostOfActionMarkers)
		fmt.Printf("  antagonist legit     %v\n", m.AntagonistLegitimacy)
	}
	if out.TextPreview != "" {
		fmt.Printf("\nText:\n  %s\n", out.TextPreview)
	}
	return nil
}

// #endregion detail-mode

// #region output

func parseGateRecord(signalsJSON string) *logging.GateRecord {
	if signalsJSON == "" {
		return nil
	}
	var gr logging.GateRecord
	if err := json.Unmarshal([]byte(signalsJSON), &gr); err == nil && gr.AttemptID != "" {
		return &gr
	}
	return nil
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
