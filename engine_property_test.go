package capgains

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
)

// Property: allocation is exact. For any positive total in cents and any
// positive weights, the allocated parts sum exactly to the total and every
// part is at minor-unit precision.
func TestProperty_AllocateConservesTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("parts sum exactly to the total", prop.ForAll(
		func(totalCents int64, weights []int64) bool {
			total := M(totalCents, "USD").Div(Q(100))
			qs := make([]Quantity, len(weights))
			for i, w := range weights {
				qs[i] = Q(w)
			}

			parts := allocate(total, qs)
			sum := M(0, "USD")
			for _, p := range parts {
				if !p.Round().Equal(p) {
					return false // sub-cent residue leaked out
				}
				sum = sum.Add(p)
			}
			return sum.Equal(total)
		},
		gen.Int64Range(1, 10_000_000),
		gen.SliceOfN(5, gen.Int64Range(1, 1000)),
	))

	properties.TestingRun(t)
}

// Property: a sale conserves money. Proceeds split across the emitted gains
// sum to the sale amount, and basis consumed plus basis remaining equals the
// basis before the sale.
func TestProperty_SellConservesProceedsAndBasis(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("proceeds and basis are conserved", prop.ForAll(
		func(units1, units2, soldPct int64, cost1, cost2, saleCents int64) bool {
			registry := NewRegistry()
			registry.DeclareAccount(testAcct)
			registry.Declare(appleID, "AAPL", "")
			e := NewEngine(DefaultConfig(), registry, NewLedger(), zerolog.Nop())

			if _, err := e.Apply(NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(units1), M(cost1, "USD").Div(Q(100)))); err != nil {
				return false
			}
			if _, err := e.Apply(NewBuy(day("2025-02-10"), 2, testAcct, appleID, Q(units2), M(cost2, "USD").Div(Q(100)))); err != nil {
				return false
			}
			totalCost := M(cost1+cost2, "USD").Div(Q(100))

			sold := Q((units1 + units2) * soldPct / 100)
			if sold.IsZero() {
				return true
			}
			saleAmount := M(saleCents, "USD").Div(Q(100))
			gains, err := e.Apply(NewSell(day("2025-03-10"), 3, testAcct, appleID, sold, saleAmount))
			if err != nil {
				return false
			}

			proceeds := M(0, "USD")
			basisConsumed := M(0, "USD")
			for _, gn := range gains {
				proceeds = proceeds.Add(gn.Proceeds)
				basisConsumed = basisConsumed.Add(gn.Basis)
			}
			if !proceeds.Equal(saleAmount) {
				return false
			}

			basisRemaining := M(0, "USD")
			for _, lot := range e.Ledger().open(testAcct, appleID) {
				basisRemaining = basisRemaining.Add(lot.Cost)
			}
			return basisConsumed.Add(basisRemaining).Equal(totalCost)
		},
		gen.Int64Range(1, 500),
		gen.Int64Range(1, 500),
		gen.Int64Range(1, 100),
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 2_000_000),
	))

	properties.TestingRun(t)
}
