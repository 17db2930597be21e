package capgains

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Engine consumes a time-ordered stream of normalized transactions, mutates
// the lot ledger and emits Gain records for each closing event.
//
// The engine is single-threaded and deterministic: one account's history at a
// time, strict chronological order, no shared mutable state. Re-running it on
// the same transaction list from an empty ledger reproduces the same Gains
// and Lots exactly.
type Engine struct {
	cfg      Config
	registry *Registry
	ledger   *Ledger
	gains    []Gain
	lastSeen map[positionKey]Date
	log      zerolog.Logger
}

// NewEngine creates an engine operating on the given registry and ledger.
func NewEngine(cfg Config, registry *Registry, ledger *Ledger, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		lastSeen: make(map[positionKey]Date),
		log:      log,
	}
}

// Ledger returns the lot ledger the engine mutates.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Gains returns every gain emitted so far, in emission order.
func (e *Engine) Gains() []Gain { return e.gains }

// Apply processes one transaction. It either fully applies or fully fails:
// on error the ledger is unchanged for that transaction. The returned slice
// holds the gains emitted by this transaction, if any.
func (e *Engine) Apply(tx Transaction) ([]Gain, error) {
	if err := e.check(tx); err != nil {
		return nil, err
	}

	before := len(e.gains)
	var err error
	switch v := tx.(type) {
	case Buy:
		err = e.applyBuy(v)
	case Sell:
		err = e.applySell(v)
	case Split:
		err = e.applySplit(v)
	case Spinoff:
		err = e.applySpinoff(v)
	case ReturnOfCapital:
		err = e.applyReturnOfCapital(v)
	case TransferIn:
		err = e.applyTransferIn(v)
	case TransferOut:
		err = e.applyTransferOut(v)
	default:
		err = &DataError{Account: tx.Account(), Security: tx.Security(), Date: tx.When(), Seq: tx.Seq(),
			Reason: "unsupported transaction type"}
	}
	if err != nil {
		return nil, err
	}

	k := positionKey{tx.Account(), tx.Security()}
	e.lastSeen[k] = tx.When()
	return e.gains[before:], nil
}

// Run applies every transaction in order, stopping at the first fatal error.
func (e *Engine) Run(txs []Transaction) error {
	for _, tx := range txs {
		if _, err := e.Apply(tx); err != nil {
			return err
		}
	}
	return nil
}

// check validates shared invariants before any mutation: known references
// and the per-position chronological ordering contract.
func (e *Engine) check(tx Transaction) error {
	type validator interface{ validate() *DataError }
	if v, ok := tx.(validator); ok {
		if derr := v.validate(); derr != nil {
			return derr
		}
	}
	if e.registry.Security(tx.Security()) == nil {
		return &UnknownReferenceError{Account: tx.Account(), Security: tx.Security(), Date: tx.When(), Seq: tx.Seq(),
			Ref: tx.Security().String()}
	}
	if !e.registry.HasAccount(tx.Account()) {
		return &UnknownReferenceError{Account: tx.Account(), Security: tx.Security(), Date: tx.When(), Seq: tx.Seq(),
			Ref: tx.Account().String()}
	}
	k := positionKey{tx.Account(), tx.Security()}
	if last, ok := e.lastSeen[k]; ok && tx.When().Before(last) {
		return &OrderingError{Account: tx.Account(), Security: tx.Security(), Prev: last, Got: tx.When(), Seq: tx.Seq()}
	}
	return nil
}

func (e *Engine) applyBuy(tx Buy) error {
	e.ledger.Open(tx.Acct, tx.Sec, tx.Date, tx.Date, tx.Units, tx.Amount, tx.Sequence)
	return nil
}

// consumption is one lot's contribution to a sale.
type consumption struct {
	lot   *Lot
	units Quantity
}

func (e *Engine) applySell(tx Sell) error {
	open := e.ledger.Position(tx.Acct, tx.Sec)
	if open.LessThan(tx.Units) {
		return &InsufficientPositionError{Account: tx.Acct, Security: tx.Sec, Date: tx.Date, Seq: tx.Sequence,
			Requested: tx.Units, Open: open}
	}

	order := e.ledger.fifo(tx.Acct, tx.Sec)
	if tx.LotRef != "" || e.cfg.Policy == SpecificID {
		if tx.LotRef == "" {
			return tx.dataError("specific-id policy requires a lot reference on the sale")
		}
		named := e.ledger.Find(tx.Acct, tx.Sec, tx.LotRef)
		if named == nil {
			return &UnknownReferenceError{Account: tx.Acct, Security: tx.Sec, Date: tx.Date, Seq: tx.Sequence, Ref: tx.LotRef}
		}
		// The referenced lot goes first; the remainder falls back to FIFO.
		rest := make([]*Lot, 0, len(order))
		for _, lot := range order {
			if lot != named {
				rest = append(rest, lot)
			}
		}
		order = append([]*Lot{named}, rest...)
	}

	// Plan the consumption before touching the ledger.
	var consumed []consumption
	remaining := tx.Units
	for _, lot := range order {
		if remaining.IsZero() {
			break
		}
		take := lot.Units.Min(remaining)
		consumed = append(consumed, consumption{lot: lot, units: take})
		remaining = remaining.Sub(take)
	}

	// Apportion proceeds across the consumed lots so they sum exactly to the
	// sale amount.
	weights := make([]Quantity, len(consumed))
	for i, c := range consumed {
		weights[i] = c.units
	}
	proceeds := allocate(tx.Amount, weights)

	for i, c := range consumed {
		lot := c.lot
		var basis Money
		if c.units.Equal(lot.Units) {
			basis = lot.Cost
		} else {
			basis = proRataShare(lot.Cost, c.units, lot.Units)
		}

		e.gains = append(e.gains, Gain{
			Account:     tx.Acct,
			Security:    tx.Sec,
			LotID:       lot.ID,
			LotOpenDate: lot.OriginalOpenDate,
			SaleDate:    tx.Date,
			Units:       c.units,
			Proceeds:    proceeds[i],
			Basis:       basis,
			Realized:    proceeds[i].Sub(basis),
			Term:        e.term(lot.OriginalOpenDate, tx.Date),
			lotOpenSeq:  lot.openSeq,
		})

		lot.Units = lot.Units.Sub(c.units)
		lot.Cost = lot.Cost.Sub(basis)
		if lot.Units.IsZero() {
			e.ledger.remove(lot)
		}
	}
	return nil
}

// term classifies the holding period: long iff strictly more than the
// threshold number of days.
func (e *Engine) term(openDate, saleDate Date) Term {
	if openDate.DaysUntil(saleDate) > e.cfg.LongTermThresholdDays {
		return Long
	}
	return Short
}

func (e *Engine) applySplit(tx Split) error {
	ratio := Q(tx.Numerator).Div(Q(tx.Denominator))
	for _, lot := range e.ledger.open(tx.Acct, tx.Sec) {
		// Units scale by the ratio; total cost is unchanged, so the per-unit
		// basis scales inversely.
		lot.Units = lot.Units.Mul(ratio)
	}
	return nil
}

func (e *Engine) applySpinoff(tx Spinoff) error {
	source := e.ledger.open(tx.Acct, tx.Sec)
	if len(source) == 0 {
		return &InsufficientPositionError{Account: tx.Acct, Security: tx.Sec, Date: tx.Date, Seq: tx.Sequence,
			Requested: tx.NewUnits, Open: Q(0)}
	}
	if e.registry.Security(tx.NewSecurity) == nil {
		return &UnknownReferenceError{Account: tx.Acct, Security: tx.NewSecurity, Date: tx.Date, Seq: tx.Sequence,
			Ref: tx.NewSecurity.String()}
	}

	var totalUnits Quantity
	for _, lot := range source {
		totalUnits = totalUnits.Add(lot.Units)
	}

	// Carve the basis fraction out of each source lot into a lot of the new
	// security, preserving the holding period. New units are spread pro-rata
	// by source units.
	for _, lot := range slices_cloneLots(source) {
		carved := M(lot.Cost.Decimal().Mul(tx.BasisFraction), lot.Cost.Currency()).Round()
		newUnits := tx.NewUnits.Mul(lot.Units).Div(totalUnits)
		lot.Cost = lot.Cost.Sub(carved)
		e.ledger.Open(tx.Acct, tx.NewSecurity, lot.OpenDate, lot.OriginalOpenDate, newUnits, carved, tx.Sequence)
	}
	return nil
}

// slices_cloneLots snapshots a lot slice so appends to the underlying
// position during iteration cannot alias.
func slices_cloneLots(lots []*Lot) []*Lot {
	out := make([]*Lot, len(lots))
	copy(out, lots)
	return out
}

func (e *Engine) applyReturnOfCapital(tx ReturnOfCapital) error {
	lots := e.ledger.open(tx.Acct, tx.Sec)
	if len(lots) == 0 {
		return &InsufficientPositionError{Account: tx.Acct, Security: tx.Sec, Date: tx.Date, Seq: tx.Sequence,
			Requested: Q(0), Open: Q(0)}
	}

	weights := make([]Quantity, len(lots))
	for i, lot := range lots {
		weights[i] = lot.Units
	}
	reductions := allocate(tx.Amount, weights)

	for i, lot := range lots {
		lot.Cost = lot.Cost.Sub(reductions[i])
		if lot.Cost.IsNegative() {
			// Distribution beyond remaining basis is an immediate gain.
			excess := lot.Cost.Neg()
			lot.Cost = M(decimal.Zero, excess.Currency())
			e.gains = append(e.gains, Gain{
				Account:     tx.Acct,
				Security:    tx.Sec,
				LotID:       lot.ID,
				LotOpenDate: lot.OriginalOpenDate,
				SaleDate:    tx.Date,
				Units:       Q(0),
				Proceeds:    excess,
				Basis:       M(decimal.Zero, excess.Currency()),
				Realized:    excess,
				Term:        e.term(lot.OriginalOpenDate, tx.Date),
				lotOpenSeq:  lot.openSeq,
			})
		}
	}
	return nil
}

func (e *Engine) applyTransferIn(tx TransferIn) error {
	e.ledger.Open(tx.Acct, tx.Sec, tx.Date, tx.OpenDate, tx.Units, tx.Cost, tx.Sequence)
	return nil
}

func (e *Engine) applyTransferOut(tx TransferOut) error {
	open := e.ledger.Position(tx.Acct, tx.Sec)
	if open.LessThan(tx.Units) {
		return &InsufficientPositionError{Account: tx.Acct, Security: tx.Sec, Date: tx.Date, Seq: tx.Sequence,
			Requested: tx.Units, Open: open}
	}

	// No disposition: lots leave the ledger FIFO, carrying the external
	// reference in the log for reconciliation with the receiving side.
	remaining := tx.Units
	for _, lot := range e.ledger.fifo(tx.Acct, tx.Sec) {
		if remaining.IsZero() {
			break
		}
		take := lot.Units.Min(remaining)
		remaining = remaining.Sub(take)
		if take.Equal(lot.Units) {
			e.log.Debug().Str("lot", lot.ID).Str("ref", tx.Ref).Msg("lot transferred out")
			e.ledger.remove(lot)
			continue
		}
		share := proRataShare(lot.Cost, take, lot.Units)
		lot.Units = lot.Units.Sub(take)
		lot.Cost = lot.Cost.Sub(share)
		e.log.Debug().Str("lot", lot.ID).Str("ref", tx.Ref).Msg("lot partially transferred out")
	}
	return nil
}
