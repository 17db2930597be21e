package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ledgertools/capgains"
)

// calcCmd holds the flags for the 'calc' subcommand.
type calcCmd struct{}

func (*calcCmd) Name() string     { return "calc" }
func (*calcCmd) Synopsis() string { return "recompute lots and gains from the journal" }
func (*calcCmd) Usage() string {
	return `cg calc

  Replays the whole journal against an empty lot ledger, applies wash-sale
  adjustments, and stores the resulting open lots and realized gains. The
  computation is deterministic: the same journal always yields the same
  results.

`
}

func (c *calcCmd) SetFlags(f *flag.FlagSet) {}

func (c *calcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	registry, journal, err := loadState(ctx, a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	ledger, gains := capgains.Compute(a.engine, registry, journal, a.log)
	if err := a.store.ReplaceResults(ctx, ledger.Snapshot(), gains); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving results: %v\n", err)
		return subcommands.ExitFailure
	}

	lots := 0
	for range ledger.AllLots() {
		lots++
	}
	fmt.Printf("Computed %d open lots and %d realized gains from %d transactions\n",
		lots, len(gains), journal.Len())
	return subcommands.ExitSuccess
}

// loadState reads the registry and journal from the store.
func loadState(ctx context.Context, a *app) (*capgains.Registry, *capgains.Journal, error) {
	registry, err := a.store.LoadRegistry(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading registry: %w", err)
	}
	journal, err := a.store.LoadJournal(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading journal: %w", err)
	}
	return registry, journal, nil
}
