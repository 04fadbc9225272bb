package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/replay"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ruleset.db")
	last := flag.Int("last", 4, "number of most recent gate records to export")
	outPath := flag.String("out", "", "output fixture path (.json, .yaml or .yml)")
	flag.Parse()

	if *dbPath == "" || *outPath == "" || *last <= 0 {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/ruleset.db --out path/to/fixture.yaml [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath string, last int, outPath string) error {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	records, err := logging.LoadGateRecords(s.DB())
	if err != nil {
		return fmt.Errorf("load gate records: %w", err)
	}
	if len(records) > last {
		records = records[len(records)-last:]
	}

	fixture, skipped, err := replay.BuildFixture(records)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d records evaluated under a different profile\n", skipped)
	}

	if err := replay.WriteFixture(fixture, outPath); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d interactions)\n", outPath, len(fixture.Interactions))
	return nil
}

// #endregion export
