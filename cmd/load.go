package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ledgertools/capgains"
)

// loadCmd holds the flags for the 'load' subcommand.
type loadCmd struct {
	transactionsFile string
	positionsFile    string
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load transactions or opening positions from CSV files" }
func (*loadCmd) Usage() string {
	return `cg load [-t <transactions.csv>] [-p <positions.csv>]

  Loads normalized transactions or opening positions from CSV interchange
  files into the journal. Opening positions become transfer-in records so the
  original open date and cost basis survive recomputation.

Usage Examples:
# Seed the journal with last year's closing positions, then load this year.
$ cg load -p closing2025.csv -t trades2026.csv

`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.transactionsFile, "t", "", "CSV file of normalized transactions")
	f.StringVar(&c.positionsFile, "p", "", "CSV file of opening positions")
}

func (c *loadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.transactionsFile == "" && c.positionsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -t or -p is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	registry, err := a.store.LoadRegistry(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		return subcommands.ExitFailure
	}
	journal, err := a.store.LoadJournal(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading journal: %v\n", err)
		return subcommands.ExitFailure
	}
	before := journal.Len()

	if c.positionsFile != "" {
		if err := c.loadPositions(registry, journal); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading positions %q: %v\n", c.positionsFile, err)
			return subcommands.ExitFailure
		}
	}
	if c.transactionsFile != "" {
		file, err := os.Open(c.transactionsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", c.transactionsFile, err)
			return subcommands.ExitFailure
		}
		err = capgains.ImportTransactions(file, registry, journal)
		file.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading transactions %q: %v\n", c.transactionsFile, err)
			return subcommands.ExitFailure
		}
	}

	loaded := journal.Tail(before)
	if err := a.store.SaveRegistry(ctx, registry); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving registry: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.store.AppendTransactions(ctx, loaded); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving transactions: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully loaded %d transactions\n", len(loaded))
	return subcommands.ExitSuccess
}

// loadPositions reads an opening-positions file and appends each lot to the
// journal as a transfer in, preserving original open date and cost basis.
func (c *loadCmd) loadPositions(registry *capgains.Registry, journal *capgains.Journal) error {
	file, err := os.Open(c.positionsFile)
	if err != nil {
		return err
	}
	defer file.Close()

	staging := capgains.NewLedger()
	if err := capgains.ImportPositions(file, registry, staging); err != nil {
		return err
	}
	for _, lot := range staging.Snapshot() {
		journal.Append(capgains.NewTransferIn(
			lot.OpenDate, journal.NextSeq(),
			lot.Account, lot.Security,
			lot.Units, lot.Cost, lot.OriginalOpenDate,
			"opening-balance",
		))
	}
	return nil
}
