package capgains

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TxType is a typed string identifying the kind of a normalized transaction.
type TxType string

// Transaction types recognized by the matching engine. Classification happens
// upstream, in the ingestion adapters: the engine never inspects raw feeds.
const (
	TxBuy             TxType = "buy"
	TxSell            TxType = "sell"
	TxSplit           TxType = "split"
	TxSpinoff         TxType = "spinoff"
	TxReturnOfCapital TxType = "return-of-capital"
	TxTransferIn      TxType = "transfer-in"
	TxTransferOut     TxType = "transfer-out"
)

// Transaction is the common interface of all normalized input events.
//
// Transactions for a given (account, security) must be fed to the engine in
// non-decreasing trade-date order; ties are broken by the ingestion sequence
// number, which is assigned once and never re-derived from content.
type Transaction interface {
	What() TxType
	When() Date
	Seq() int64
	Account() AccountID
	Security() SecurityID
}

type baseTx struct {
	Type     TxType     `json:"type"`
	Date     Date       `json:"date"`
	Sequence int64      `json:"seq"`
	Acct     AccountID  `json:"account"`
	Sec      SecurityID `json:"security"`
	Memo     string     `json:"memo,omitempty"`
}

func (t baseTx) What() TxType         { return t.Type }
func (t baseTx) When() Date           { return t.Date }
func (t baseTx) Seq() int64           { return t.Sequence }
func (t baseTx) Account() AccountID   { return t.Acct }
func (t baseTx) Security() SecurityID { return t.Sec }

func (t baseTx) validate() *DataError {
	if t.Date.IsZero() {
		return t.dataError("trade date is missing")
	}
	if t.Acct.IsZero() {
		return t.dataError("account reference is missing")
	}
	if t.Sec.IsZero() {
		return t.dataError("security reference is missing")
	}
	return nil
}

func (t baseTx) dataError(reason string) *DataError {
	return &DataError{Account: t.Acct, Security: t.Sec, Date: t.Date, Seq: t.Sequence, Reason: reason}
}

// MarshalJSON implements the json.Marshaler interface for baseTx.
func (t baseTx) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", t.Type)
	w.Append("date", t.Date)
	w.Append("seq", t.Sequence)
	w.Append("account", t.Acct)
	w.Append("security", t.Sec)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// amountTx is a specialized struct to read an amount in two json fields.
type amountTx struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountTx) Money() Money { return M(a.Amount, a.Currency) }

// Buy opens a new lot: units at a total cost.
type Buy struct {
	baseTx
	Units  Quantity `json:"units"`
	Amount Money    // total cost of the purchase
}

// NewBuy creates a new Buy transaction.
func NewBuy(day Date, seq int64, acct AccountID, sec SecurityID, units Quantity, amount Money) Buy {
	return Buy{
		baseTx: baseTx{Type: TxBuy, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Units:  units,
		Amount: amount,
	}
}

func (t Buy) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if !t.Units.IsPositive() {
		return t.dataError("buy units must be positive")
	}
	if t.Amount.IsNegative() {
		return t.dataError("buy amount must not be negative")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Buy.
func (t Buy) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("units", t.Units)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Buy.
func (t *Buy) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		amountTx
		Units Quantity `json:"units"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.Units = temp.Units
	t.Amount = temp.Money()
	return nil
}

// Sell closes open lots: units for total proceeds. LotRef optionally names a
// specific lot (by lot ID) to consume first.
type Sell struct {
	baseTx
	Units  Quantity `json:"units"`
	Amount Money    // total proceeds of the sale
	LotRef string   `json:"lotRef,omitempty"`
}

// NewSell creates a new Sell transaction.
func NewSell(day Date, seq int64, acct AccountID, sec SecurityID, units Quantity, amount Money) Sell {
	return Sell{
		baseTx: baseTx{Type: TxSell, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Units:  units,
		Amount: amount,
	}
}

// WithLot returns a copy of the sale carrying an explicit lot reference.
func (t Sell) WithLot(lotID string) Sell {
	t.LotRef = lotID
	return t
}

func (t Sell) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if !t.Units.IsPositive() {
		return t.dataError("sell units must be positive")
	}
	if t.Amount.IsNegative() {
		return t.dataError("sell amount must not be negative")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Sell.
func (t Sell) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("units", t.Units)
	w.Optional("lotRef", t.LotRef)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Sell.
func (t *Sell) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		amountTx
		Units  Quantity `json:"units"`
		LotRef string   `json:"lotRef,omitempty"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.Units = temp.Units
	t.LotRef = temp.LotRef
	t.Amount = temp.Money()
	return nil
}

// Split is a stock split: every open lot's units scale by Numerator over
// Denominator, total cost unchanged.
type Split struct {
	baseTx
	Numerator   int64 `json:"num"`
	Denominator int64 `json:"den"`
}

// NewSplit creates a new Split transaction.
func NewSplit(day Date, seq int64, acct AccountID, sec SecurityID, num, den int64) Split {
	return Split{
		baseTx:      baseTx{Type: TxSplit, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Numerator:   num,
		Denominator: den,
	}
}

func (t Split) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if t.Numerator <= 0 || t.Denominator <= 0 {
		return t.dataError("split ratio must be positive")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Split.
func (t Split) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("num", t.Numerator)
	w.Append("den", t.Denominator)
	return w.MarshalJSON()
}

// Spinoff carves a fraction of the source security's basis into new lots of
// the spun-off security. Units of the source are unchanged; NewUnits of the
// new security are allocated pro-rata across the source lots.
type Spinoff struct {
	baseTx
	NewSecurity   SecurityID      `json:"newSecurity"`
	NewUnits      Quantity        `json:"newUnits"`
	BasisFraction decimal.Decimal `json:"basisFraction"` // fraction of source basis moved, in (0,1)
}

// NewSpinoff creates a new Spinoff transaction.
func NewSpinoff(day Date, seq int64, acct AccountID, src, dst SecurityID, newUnits Quantity, basisFraction decimal.Decimal) Spinoff {
	return Spinoff{
		baseTx:        baseTx{Type: TxSpinoff, Date: day, Sequence: seq, Acct: acct, Sec: src},
		NewSecurity:   dst,
		NewUnits:      newUnits,
		BasisFraction: basisFraction,
	}
}

func (t Spinoff) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if t.NewSecurity.IsZero() {
		return t.dataError("spinoff new security reference is missing")
	}
	if !t.NewUnits.IsPositive() {
		return t.dataError("spinoff new units must be positive")
	}
	one := decimal.NewFromInt(1)
	if !t.BasisFraction.IsPositive() || !t.BasisFraction.LessThan(one) {
		return t.dataError("spinoff basis fraction must be in (0,1)")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Spinoff.
func (t Spinoff) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("newSecurity", t.NewSecurity)
	w.Append("newUnits", t.NewUnits)
	w.Append("basisFraction", t.BasisFraction)
	return w.MarshalJSON()
}

// ReturnOfCapital reduces the basis of open lots by a cash distribution.
// Any excess over remaining basis is an immediate realized gain.
type ReturnOfCapital struct {
	baseTx
	Amount Money // total distribution
}

// NewReturnOfCapital creates a new ReturnOfCapital transaction.
func NewReturnOfCapital(day Date, seq int64, acct AccountID, sec SecurityID, amount Money) ReturnOfCapital {
	return ReturnOfCapital{
		baseTx: baseTx{Type: TxReturnOfCapital, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Amount: amount,
	}
}

func (t ReturnOfCapital) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return t.dataError("return of capital amount must be positive")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for ReturnOfCapital.
func (t ReturnOfCapital) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for ReturnOfCapital.
func (t *ReturnOfCapital) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		amountTx
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.Amount = temp.Money()
	return nil
}

// TransferOut removes lots from this account, tagged with an external
// reference so the receiving side can be reconciled. No disposition occurs,
// so no Gain is emitted.
type TransferOut struct {
	baseTx
	Units Quantity `json:"units"`
	Ref   string   `json:"ref"`
}

// NewTransferOut creates a new TransferOut transaction.
func NewTransferOut(day Date, seq int64, acct AccountID, sec SecurityID, units Quantity, ref string) TransferOut {
	return TransferOut{
		baseTx: baseTx{Type: TxTransferOut, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Units:  units,
		Ref:    ref,
	}
}

func (t TransferOut) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if !t.Units.IsPositive() {
		return t.dataError("transfer-out units must be positive")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for TransferOut.
func (t TransferOut) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("units", t.Units)
	w.Append("ref", t.Ref)
	return w.MarshalJSON()
}

// TransferIn recreates a lot in this account with its holding period and
// basis preserved from the source side.
type TransferIn struct {
	baseTx
	Units    Quantity `json:"units"`
	Cost     Money    // preserved cost basis
	OpenDate Date     `json:"openDate"` // preserved original open date
	Ref      string   `json:"ref"`
}

// NewTransferIn creates a new TransferIn transaction.
func NewTransferIn(day Date, seq int64, acct AccountID, sec SecurityID, units Quantity, cost Money, openDate Date, ref string) TransferIn {
	return TransferIn{
		baseTx:   baseTx{Type: TxTransferIn, Date: day, Sequence: seq, Acct: acct, Sec: sec},
		Units:    units,
		Cost:     cost,
		OpenDate: openDate,
		Ref:      ref,
	}
}

func (t TransferIn) validate() *DataError {
	if err := t.baseTx.validate(); err != nil {
		return err
	}
	if !t.Units.IsPositive() {
		return t.dataError("transfer-in units must be positive")
	}
	if t.Cost.IsNegative() {
		return t.dataError("transfer-in cost must not be negative")
	}
	if t.OpenDate.IsZero() {
		return t.dataError("transfer-in original open date is missing")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for TransferIn.
func (t TransferIn) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("units", t.Units)
	w.Append("openDate", t.OpenDate)
	w.Append("ref", t.Ref)
	w.EmbedFrom(t.Cost)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for TransferIn.
func (t *TransferIn) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		amountTx
		Units    Quantity `json:"units"`
		OpenDate Date     `json:"openDate"`
		Ref      string   `json:"ref"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.Units = temp.Units
	t.Cost = temp.Money()
	t.OpenDate = temp.OpenDate
	t.Ref = temp.Ref
	return nil
}
