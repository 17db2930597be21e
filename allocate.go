package capgains

import "github.com/shopspring/decimal"

// allocate splits total into len(weights) parts proportional to the weights,
// each rounded to the currency's minor unit, using largest-remainder
// apportionment so the parts sum exactly to total.
//
// Weights must be positive and total must already be at minor-unit precision
// (amounts always are once ingested). Called with the per-lot unit counts of
// a sale to apportion proceeds, and with replacement takes to apportion a
// disallowed loss.
func allocate(total Money, weights []Quantity) []Money {
	if len(weights) == 0 {
		return nil
	}
	if len(weights) == 1 {
		return []Money{total}
	}

	var sum Quantity
	for _, w := range weights {
		sum = sum.Add(w)
	}

	fraction := int32(total.currency().Fraction)
	scale := decimal.New(1, fraction) // 10^fraction, major units -> minor units
	totalMinor := total.Decimal().Mul(scale)

	// Floor each exact share to minor units, remembering the remainder.
	type share struct {
		floor     decimal.Decimal
		remainder decimal.Decimal
		index     int
	}
	shares := make([]share, len(weights))
	allocatedMinor := decimal.Zero
	for i, w := range weights {
		exact := totalMinor.Mul(w.Decimal()).Div(sum.Decimal())
		floor := exact.Floor()
		shares[i] = share{floor: floor, remainder: exact.Sub(floor), index: i}
		allocatedMinor = allocatedMinor.Add(floor)
	}

	// Hand the leftover minor units to the largest remainders, ties going to
	// the earlier lot so the result is deterministic.
	leftover := int(totalMinor.Sub(allocatedMinor).IntPart())
	order := make([]*share, len(shares))
	for i := range shares {
		order[i] = &shares[i]
	}
	for ; leftover > 0; leftover-- {
		best := 0
		for i := 1; i < len(order); i++ {
			if order[i].remainder.GreaterThan(order[best].remainder) {
				best = i
			}
		}
		order[best].floor = order[best].floor.Add(decimal.New(1, 0))
		order[best].remainder = decimal.Zero
	}

	out := make([]Money, len(weights))
	for i, s := range shares {
		out[i] = M(s.floor.Div(scale), total.Currency())
	}
	return out
}

// proRataShare returns part/whole of amount, rounded to the currency's minor
// unit. Used for the basis share of a partially closed lot; the remainder
// stays on the lot so no basis is created or destroyed.
func proRataShare(amount Money, part, whole Quantity) Money {
	exact := amount.Decimal().Mul(part.Decimal()).Div(whole.Decimal())
	return M(exact, amount.Currency()).Round()
}
