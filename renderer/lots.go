package renderer

import (
	"fmt"
	"strings"

	"github.com/ledgertools/capgains"
)

// LotsMarkdown renders the open lot ledger as a markdown report, one table
// row per lot in stable ledger order.
func LotsMarkdown(registry *capgains.Registry, lots []capgains.Lot) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Open Lots\n\n")
	if len(lots) == 0 {
		fmt.Fprint(&b, "No open positions.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Lot | Security | Account | Opened | Holding Since | Units | Cost | Unit Cost | Deferred |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|:---|---:|---:|---:|---:|")

	cost := zero()
	for i := range lots {
		lot := &lots[i]
		deferred := "-"
		if !lot.WashDeferred.IsZero() {
			deferred = lot.WashDeferred.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			lot.ID,
			tickerOf(registry, lot.Security),
			lot.Account,
			lot.OpenDate,
			lot.OriginalOpenDate,
			lot.Units,
			lot.Cost,
			lot.UnitCost().Round(),
			deferred,
		)
		cost = cost.Add(lot.Cost)
	}
	fmt.Fprintf(&b, "| **Total** | | | | | | **%s** | | |\n", cost)

	return b.String()
}
