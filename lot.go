package capgains

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Lot is an undivided slice of a position opened at one instant.
//
// Cost is the total basis for the lot, not per-unit, and already includes any
// wash-sale deferral recorded in WashDeferred. OriginalOpenDate is the
// holding-period start: it equals OpenDate until a wash-sale carry-forward
// moves it earlier.
type Lot struct {
	ID               string     `json:"id"`
	Account          AccountID  `json:"account"`
	Security         SecurityID `json:"security"`
	OpenDate         Date       `json:"openDate"`
	OriginalOpenDate Date       `json:"originalOpenDate"`
	Units            Quantity   `json:"units"`
	Cost             Money      `json:"cost"`
	WashDeferred     Money      `json:"washDeferred"` // basis added by absorbing a disallowed loss

	openSeq int64 // sequence number of the opening transaction, 0 for synthetic lots
	order   int64 // ledger insertion order, FIFO tie-break
}

// OpenSeq returns the ingestion sequence number of the transaction that
// opened this lot, or 0 for synthetic lots loaded from a positions file.
func (l *Lot) OpenSeq() int64 { return l.openSeq }

// UnitCost returns the per-unit basis of the lot.
func (l *Lot) UnitCost() Money { return l.Cost.Div(l.Units) }

type positionKey struct {
	acct AccountID
	sec  SecurityID
}

func (k positionKey) String() string { return k.acct.String() + "/" + k.sec.String() }

// Ledger is the per-(account, security) collection of open lots.
//
// The Ledger is owned and mutated exclusively by the matching engine; the
// wash-sale processor only rewrites Cost, WashDeferred and OriginalOpenDate
// on specific replacement lots. A lot whose units reach zero is removed,
// never retained as a placeholder.
type Ledger struct {
	lots   map[positionKey][]*Lot
	nextID int64
}

// NewLedger returns an empty lot ledger.
func NewLedger() *Ledger {
	return &Ledger{lots: make(map[positionKey][]*Lot)}
}

// Open appends a new lot to the position. openSeq is the sequence number of
// the opening transaction (0 for synthetic lots).
func (g *Ledger) Open(acct AccountID, sec SecurityID, openDate, originalOpenDate Date, units Quantity, cost Money, openSeq int64) *Lot {
	g.nextID++
	lot := &Lot{
		ID:               fmt.Sprintf("L%06d", g.nextID),
		Account:          acct,
		Security:         sec,
		OpenDate:         openDate,
		OriginalOpenDate: originalOpenDate,
		Units:            units,
		Cost:             cost,
		openSeq:          openSeq,
		order:            g.nextID,
	}
	k := positionKey{acct, sec}
	g.lots[k] = append(g.lots[k], lot)
	return lot
}

// open returns the open lots of a position in insertion order.
func (g *Ledger) open(acct AccountID, sec SecurityID) []*Lot {
	return g.lots[positionKey{acct, sec}]
}

// Position returns the total open units for (account, security).
func (g *Ledger) Position(acct AccountID, sec SecurityID) Quantity {
	var total Quantity
	for _, lot := range g.open(acct, sec) {
		total = total.Add(lot.Units)
	}
	return total
}

// Find returns the open lot with the given ID within a position, or nil.
func (g *Ledger) Find(acct AccountID, sec SecurityID, lotID string) *Lot {
	for _, lot := range g.open(acct, sec) {
		if lot.ID == lotID {
			return lot
		}
	}
	return nil
}

// findByOpenSeq returns the open lot opened by the transaction with the given
// sequence number, or nil if that lot was fully closed since.
func (g *Ledger) findByOpenSeq(acct AccountID, sec SecurityID, seq int64) *Lot {
	for _, lot := range g.open(acct, sec) {
		if lot.openSeq == seq {
			return lot
		}
	}
	return nil
}

// remove drops a lot from its position. Called when units reach zero.
func (g *Ledger) remove(lot *Lot) {
	k := positionKey{lot.Account, lot.Security}
	g.lots[k] = slices.DeleteFunc(g.lots[k], func(l *Lot) bool { return l == lot })
	if len(g.lots[k]) == 0 {
		delete(g.lots, k)
	}
}

// fifo returns the open lots of a position ordered for consumption: by
// holding-period start, ties broken by ledger insertion order.
func (g *Ledger) fifo(acct AccountID, sec SecurityID) []*Lot {
	lots := slices.Clone(g.open(acct, sec))
	slices.SortStableFunc(lots, func(a, b *Lot) int {
		switch {
		case a.OriginalOpenDate.Before(b.OriginalOpenDate):
			return -1
		case b.OriginalOpenDate.Before(a.OriginalOpenDate):
			return 1
		default:
			return int(a.order - b.order)
		}
	})
	return lots
}

// AllLots iterates over every open lot in stable (position, insertion) order.
func (g *Ledger) AllLots() iter.Seq[*Lot] {
	return func(yield func(*Lot) bool) {
		keys := slices.Collect(maps.Keys(g.lots))
		slices.SortFunc(keys, func(a, b positionKey) int {
			return strings.Compare(a.String(), b.String())
		})
		for _, k := range keys {
			for _, lot := range g.lots[k] {
				if !yield(lot) {
					return
				}
			}
		}
	}
}

// Snapshot returns a deep copy of all open lots, in stable order. Safe to
// hand to reporting without exposing the ledger to mutation.
func (g *Ledger) Snapshot() []Lot {
	var out []Lot
	for lot := range g.AllLots() {
		out = append(out, *lot)
	}
	return out
}
