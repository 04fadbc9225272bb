package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/replay"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ruleset.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON or YAML (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/ruleset.db")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.{json,yaml}")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runDBMode(dbPath string) int {
	s, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer s.Close()

	records, err := logging.LoadGateRecords(s.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load gate records: %v\n", err)
		return 2
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no gate records found in provenance_log")
		return 2
	}

	interactions := make([]replay.Interaction, len(records))
	for i, rec := range records {
		interactions[i] = replay.FromGateRecord(rec)
	}
	return printComparison(interactions, replay.Replay(interactions))
}

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}
	interactions := f.ToInteractions()
	return printComparison(interactions, replay.Replay(interactions))
}

// #endregion modes

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 1 if any replayed verdict diverges from its expectation.
func printComparison(interactions []replay.Interaction, results []replay.ReplayResult) int {
	fmt.Printf("%-14s| %-10s| %-10s| %-6s| %s\n", "Turn", "Expected", "Replayed", "Match", "Failures")
	fmt.Printf("%-14s+%-11s+%-11s+%-7s+%s\n",
		"--------------", "-----------", "-----------", "-------", "--------------------")

	for i, r := range results {
		match := "OK"
		if !r.Match {
			match = "DIFF"
		}
		fmt.Printf("%-14s| %-10s| %-10s| %-6s| %s\n",
			shortID(r.TurnID), expectedLabel(interactions[i]), verdictLabel(r.Attempt.Pass), match, failureList(r))
		if !r.Match {
			fmt.Printf("%-14s  %s\n", "", r.Diff)
		}
	}

	sum := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d pass, %d fail, %d match, %d diverge\n",
		sum.TotalTurns, sum.Passes, sum.Fails, sum.TotalTurns-sum.Mismatches, sum.Mismatches)

	if sum.Mismatches > 0 {
		return 1
	}
	return 0
}

func expectedLabel(inter replay.Interaction) string {
	if inter.ExpectPass == nil {
		return "-"
	}
	return verdictLabel(*inter.ExpectPass)
}

func verdictLabel(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}

func failureList(r replay.ReplayResult) string {
	if len(r.Attempt.Failures) == 0 {
		return "-"
	}
	parts := make([]string, len(r.Attempt.Failures))
	for i, f := range r.Attempt.Failures {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
