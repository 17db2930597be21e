package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ledgertools/capgains"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	currency string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import OFX/QFX investment statements" }
func (*importCmd) Usage() string {
	return `cg import [-c <currency>] <statement.ofx> [...]

  Parses broker OFX/QFX downloads, declares the securities and accounts they
  carry, and appends the recognized investment transactions to the journal.

Usage Examples:
# Import two monthly statements.
$ cg import jan.ofx feb.ofx

`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Currency of amounts without an explicit one (defaults to the configured currency)")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one statement file is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	currency := c.currency
	if currency == "" {
		currency = a.cfg.Currency
	}

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
	for _, name := range f.Args() {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		skipped, err := capgains.ImportOFX(file, registry, journal, currency)
		file.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		if skipped > 0 {
			a.log.Info().Str("file", name).Int("skipped", skipped).
				Msg("statement transactions without lot consequence skipped")
		}
	}

	imported := journal.Tail(before)
	if err := a.store.SaveRegistry(ctx, registry); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving registry: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.store.AppendTransactions(ctx, imported); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving transactions: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully imported %d transactions from %d files\n", len(imported), f.NArg())
	return subcommands.ExitSuccess
}
