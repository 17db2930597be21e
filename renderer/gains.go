// Package renderer renders computed results as markdown reports.
package renderer

import (
	"fmt"
	"strings"

	"github.com/ledgertools/capgains"
)

// GainsMarkdown renders realized gains as a markdown report, one section per
// holding-period term, with wash-sale disallowances broken out.
func GainsMarkdown(registry *capgains.Registry, gains []capgains.Gain) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Realized Capital Gains\n\n")
	if len(gains) == 0 {
		fmt.Fprint(&b, "No realized gains.\n")
		return b.String()
	}

	for _, term := range []capgains.Term{capgains.Short, capgains.Long} {
		var rows []capgains.Gain
		for _, gn := range gains {
			if gn.Term == term {
				rows = append(rows, gn)
			}
		}
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s-Term\n\n", titleTerm(term))
		fmt.Fprintln(&b, "| Security | Account | Opened | Sold | Units | Proceeds | Basis | Gain | Disallowed | Deductible |")
		fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|---:|---:|---:|---:|---:|")

		proceeds, basis, deductible := zero(), zero(), zero()
		for _, gn := range rows {
			disallowed := "-"
			if gn.WashSaleDisallowed {
				disallowed = gn.Disallowed.String()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				tickerOf(registry, gn.Security),
				gn.Account,
				gn.LotOpenDate,
				gn.SaleDate,
				gn.Units,
				gn.Proceeds,
				gn.Basis,
				gn.Realized.SignedString(),
				disallowed,
				gn.Deductible().SignedString(),
			)
			proceeds = proceeds.Add(gn.Proceeds)
			basis = basis.Add(gn.Basis)
			deductible = deductible.Add(gn.Deductible())
		}
		fmt.Fprintf(&b, "| **Total** | | | | | **%s** | **%s** | | | **%s** |\n\n",
			proceeds, basis, deductible.SignedString())
	}

	return b.String()
}

func titleTerm(t capgains.Term) string {
	if t == capgains.Long {
		return "Long"
	}
	return "Short"
}

func zero() capgains.Money { return capgains.M(0, "") }

// tickerOf resolves a display name for a security, falling back to the raw
// identity when the registry has no ticker.
func tickerOf(registry *capgains.Registry, id capgains.SecurityID) string {
	if sec := registry.Security(id); sec != nil && sec.Ticker() != "" {
		return sec.Ticker()
	}
	return id.String()
}
