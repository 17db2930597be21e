package capgains

import (
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WashSaleProcessor runs after matching, scanning realized losses for
// replacement purchases inside the wash-sale window and deferring the
// disallowed portion onto the replacement lots.
//
// Losses are handled in sale-date order, earliest first, so two losses
// competing for the same replacement shares resolve deterministically. A
// purchase's shares absorb at most one disallowed loss.
type WashSaleProcessor struct {
	cfg Config
	log zerolog.Logger
}

// NewWashSaleProcessor returns a processor using the window and thresholds of
// cfg.
func NewWashSaleProcessor(cfg Config, log zerolog.Logger) *WashSaleProcessor {
	return &WashSaleProcessor{cfg: cfg, log: log}
}

// replacement tracks one candidate purchase and how many of its units are
// still free to absorb a disallowed loss.
type replacement struct {
	seq   int64
	date  Date
	units Quantity
}

// ScanAndAdjust inspects every loss in gains, marks the disallowed portion,
// and moves it onto replacement lots in the ledger. Gains closed out of
// already-adjusted replacement lots are revised in place, at most once.
//
// The same account's wash sales never cross account boundaries, and
// substantial identity is strict: only the identical security id matches.
func (p *WashSaleProcessor) ScanAndAdjust(gains []Gain, ledger *Ledger, txs []Transaction) {
	candidates := p.collectReplacements(txs)

	// Scan order: sale date ascending, emission order breaking ties. Loss
	// status is decided at scan time so a gain turned into a loss by an
	// earlier revision still gets the treatment.
	order := make([]int, len(gains))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case gains[a].SaleDate.Before(gains[b].SaleDate):
			return -1
		case gains[b].SaleDate.Before(gains[a].SaleDate):
			return 1
		default:
			return a - b
		}
	})

	for _, i := range order {
		gn := &gains[i]
		if !gn.IsLoss() || gn.Units.IsZero() || gn.WashSaleDisallowed {
			continue
		}
		p.adjustLoss(gn, gains, ledger, candidates[positionKey{gn.Account, gn.Security}])
	}
}

// collectReplacements indexes the purchases of each position by date. Both
// explicit buys and transfers in are replacement candidates; a transfer in is
// a position increase like any other for wash-sale purposes.
func (p *WashSaleProcessor) collectReplacements(txs []Transaction) map[positionKey][]*replacement {
	out := make(map[positionKey][]*replacement)
	for _, tx := range txs {
		var units Quantity
		switch v := tx.(type) {
		case Buy:
			units = v.Units
		case TransferIn:
			units = v.Units
		default:
			continue
		}
		k := positionKey{tx.Account(), tx.Security()}
		out[k] = append(out[k], &replacement{seq: tx.Seq(), date: tx.When(), units: units})
	}
	for _, reps := range out {
		slices.SortStableFunc(reps, func(a, b *replacement) int {
			switch {
			case a.date.Before(b.date):
				return -1
			case b.date.Before(a.date):
				return 1
			default:
				return int(a.seq - b.seq)
			}
		})
	}
	return out
}

// adjustLoss applies the wash-sale rule to one loss. reps is the position's
// purchase index; entries consumed here stay consumed for later losses.
func (p *WashSaleProcessor) adjustLoss(gn *Gain, gains []Gain, ledger *Ledger, reps []*replacement) {
	from := gn.SaleDate.Add(-p.cfg.WashSaleWindowDays)
	to := gn.SaleDate.Add(p.cfg.WashSaleWindowDays)

	// Take replacement units earliest purchase first, skipping the purchase
	// that opened the lot being sold.
	type take struct {
		rep   *replacement
		units Quantity
	}
	var takes []take
	remaining := gn.Units
	for _, rep := range reps {
		if remaining.IsZero() {
			break
		}
		if rep.date.Before(from) || to.Before(rep.date) {
			continue
		}
		if rep.seq == gn.lotOpenSeq || rep.units.IsZero() {
			continue
		}
		t := rep.units.Min(remaining)
		takes = append(takes, take{rep: rep, units: t})
		remaining = remaining.Sub(t)
	}
	if len(takes) == 0 {
		return
	}

	washedUnits := gn.Units.Sub(remaining)
	loss := gn.Realized.Neg()
	var disallowed Money
	if washedUnits.Equal(gn.Units) {
		disallowed = loss
	} else {
		disallowed = proRataShare(loss, washedUnits, gn.Units)
	}

	weights := make([]Quantity, len(takes))
	for i, t := range takes {
		weights[i] = t.units
	}
	shares := allocate(disallowed, weights)

	applied := M(decimal.Zero, disallowed.Currency())
	for i, t := range takes {
		share := shares[i]
		t.rep.units = t.rep.units.Sub(t.units)

		if lot := ledger.findByOpenSeq(gn.Account, gn.Security, t.rep.seq); lot != nil {
			// Deferral lands on the still-open replacement lot: basis up,
			// holding period stretched back to the washed lot's start.
			lot.Cost = lot.Cost.Add(share)
			lot.WashDeferred = lot.WashDeferred.Add(share)
			lot.OriginalOpenDate = lot.OriginalOpenDate.Earlier(gn.LotOpenDate)
			applied = applied.Add(share)
			continue
		}

		if down := earliestDownstream(gains, gn, t.rep.seq); down != nil {
			// Replacement lot already closed: its realized gain absorbs the
			// deferral retroactively.
			down.Basis = down.Basis.Add(share)
			down.Realized = down.Realized.Sub(share)
			applied = applied.Add(share)
			continue
		}

		p.log.Warn().
			Str("account", gn.Account.String()).
			Str("security", gn.Security.String()).
			Int64("replacementSeq", t.rep.seq).
			Str("share", share.String()).
			Msg("wash-sale replacement lot not found, deferral dropped")
	}

	if applied.IsZero() {
		return
	}
	if !applied.Equal(disallowed) {
		disallowed = applied
	}
	gn.WashSaleDisallowed = true
	gn.Disallowed = disallowed
}

// earliestDownstream finds the earliest-dated gain closed out of the lot that
// the transaction with the given sequence opened, excluding the loss being
// adjusted itself.
func earliestDownstream(gains []Gain, loss *Gain, openSeq int64) *Gain {
	var found *Gain
	for i := range gains {
		gn := &gains[i]
		if gn == loss || gn.lotOpenSeq != openSeq {
			continue
		}
		if gn.Account != loss.Account || gn.Security != loss.Security {
			continue
		}
		if found == nil || gn.SaleDate.Before(found.SaleDate) {
			found = gn
		}
	}
	return found
}
