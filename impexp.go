package capgains

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// this file contains functions to handle the CSV import/export format.
// It should remain human readable, single file and be easy to diff across runs.

// positionRow is one open lot in the positions interchange format. Dates are
// ISO-8601 strings, amounts are plain decimals in the row's currency.
type positionRow struct {
	BrokerID     string          `csv:"brokerid"`
	AcctID       string          `csv:"acctid"`
	Ticker       string          `csv:"ticker"`
	SecName      string          `csv:"secname"`
	UniqueIDType string          `csv:"uniqueidtype"`
	UniqueID     string          `csv:"uniqueid"`
	DtOpen       string          `csv:"dtopen"`
	DtOriginal   string          `csv:"dtoriginal"`
	Units        decimal.Decimal `csv:"units"`
	Cost         decimal.Decimal `csv:"cost"`
	WashCost     decimal.Decimal `csv:"washcost"`
	Currency     string          `csv:"currency"`
}

// ImportPositions reads open lots from 'r' in the positions interchange
// format, declaring their accounts and securities in the registry and opening
// them in the ledger as synthetic lots (no opening transaction).
func ImportPositions(r io.Reader, registry *Registry, ledger *Ledger) error {
	var rows []positionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return fmt.Errorf("cannot parse positions file: %w", err)
	}

	for i, row := range rows {
		acct, err := registry.DeclareAccount(AccountID{BrokerID: row.BrokerID, AcctID: row.AcctID})
		if err != nil {
			return fmt.Errorf("positions row %d: %w", i+1, err)
		}
		sec, err := registry.Declare(SecurityID{Type: row.UniqueIDType, Value: row.UniqueID}, row.Ticker, row.SecName)
		if err != nil {
			return fmt.Errorf("positions row %d: %w", i+1, err)
		}
		dtOpen, err := ParseDate(row.DtOpen)
		if err != nil {
			return fmt.Errorf("positions row %d: %w", i+1, err)
		}
		dtOriginal := dtOpen
		if row.DtOriginal != "" {
			if dtOriginal, err = ParseDate(row.DtOriginal); err != nil {
				return fmt.Errorf("positions row %d: %w", i+1, err)
			}
		}
		if !row.Units.IsPositive() {
			return fmt.Errorf("positions row %d: units must be positive, got %s", i+1, row.Units)
		}
		lot := ledger.Open(acct, sec.ID(), dtOpen, dtOriginal, Q(row.Units), M(row.Cost, row.Currency), 0)
		lot.WashDeferred = M(row.WashCost, row.Currency)
	}
	return nil
}

// ExportPositions writes every open lot of the ledger to 'w' in the positions
// interchange format, in stable order. With consolidate, rows collapse per
// (account, security): units, cost and deferred amounts sum, the per-lot date
// columns go blank.
func ExportPositions(w io.Writer, registry *Registry, ledger *Ledger, consolidate bool) error {
	var rows []positionRow
	for lot := range ledger.AllLots() {
		row := positionRow{
			BrokerID:     lot.Account.BrokerID,
			AcctID:       lot.Account.AcctID,
			UniqueIDType: lot.Security.Type,
			UniqueID:     lot.Security.Value,
			DtOpen:       lot.OpenDate.String(),
			DtOriginal:   lot.OriginalOpenDate.String(),
			Units:        lot.Units.Decimal(),
			Cost:         lot.Cost.Decimal(),
			WashCost:     lot.WashDeferred.Decimal(),
			Currency:     lot.Cost.Currency(),
		}
		if sec := registry.Security(lot.Security); sec != nil {
			row.Ticker = sec.Ticker()
			row.SecName = sec.Name()
		}
		rows = append(rows, row)
	}
	if consolidate {
		rows = consolidatePositionRows(rows)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("cannot write positions file: %w", err)
	}
	return nil
}

// consolidatePositionRows collapses rows per (account, security), keeping the
// input order of first appearance.
func consolidatePositionRows(rows []positionRow) []positionRow {
	type key struct {
		brokerID, acctID, idType, id string
	}
	index := make(map[key]int)
	var out []positionRow
	for _, row := range rows {
		k := key{row.BrokerID, row.AcctID, row.UniqueIDType, row.UniqueID}
		i, ok := index[k]
		if !ok {
			row.DtOpen = ""
			row.DtOriginal = ""
			index[k] = len(out)
			out = append(out, row)
			continue
		}
		out[i].Units = out[i].Units.Add(row.Units)
		out[i].Cost = out[i].Cost.Add(row.Cost)
		out[i].WashCost = out[i].WashCost.Add(row.WashCost)
	}
	return out
}

// gainRow is one realized gain in the gains report format.
type gainRow struct {
	BrokerID   string          `csv:"brokerid"`
	AcctID     string          `csv:"acctid"`
	Ticker     string          `csv:"ticker"`
	SecName    string          `csv:"secname"`
	LotID      string          `csv:"lotid"`
	DtOpen     string          `csv:"dtopen"`
	DtSell     string          `csv:"dtsell"`
	Units      decimal.Decimal `csv:"units"`
	Proceeds   decimal.Decimal `csv:"proceeds"`
	Cost       decimal.Decimal `csv:"cost"`
	Realized   decimal.Decimal `csv:"realized"`
	Disallowed decimal.Decimal `csv:"disallowed"`
	Deductible decimal.Decimal `csv:"deductible"`
	Term       string          `csv:"term"`
	Currency   string          `csv:"currency"`
}

// ExportGains writes realized gains to 'w', one row per closing event. With
// consolidate, rows collapse per (account, security, term): units, proceeds,
// cost and realized amounts sum, lot-level columns go blank.
func ExportGains(w io.Writer, registry *Registry, gains []Gain, consolidate bool) error {
	rows := make([]gainRow, 0, len(gains))
	for _, gn := range gains {
		row := gainRow{
			BrokerID:   gn.Account.BrokerID,
			AcctID:     gn.Account.AcctID,
			LotID:      gn.LotID,
			DtOpen:     gn.LotOpenDate.String(),
			DtSell:     gn.SaleDate.String(),
			Units:      gn.Units.Decimal(),
			Proceeds:   gn.Proceeds.Decimal(),
			Cost:       gn.Basis.Decimal(),
			Realized:   gn.Realized.Decimal(),
			Disallowed: gn.Disallowed.Decimal(),
			Deductible: gn.Deductible().Decimal(),
			Term:       gn.Term.String(),
			Currency:   gn.Proceeds.Currency(),
		}
		if sec := registry.Security(gn.Security); sec != nil {
			row.Ticker = sec.Ticker()
			row.SecName = sec.Name()
		}
		rows = append(rows, row)
	}
	if consolidate {
		rows = consolidateGainRows(rows)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("cannot write gains file: %w", err)
	}
	return nil
}

// consolidateGainRows collapses rows per (account, ticker, term), keeping the
// input order of first appearance.
func consolidateGainRows(rows []gainRow) []gainRow {
	type key struct {
		brokerID, acctID, ticker, term string
	}
	index := make(map[key]int)
	var out []gainRow
	for _, row := range rows {
		k := key{row.BrokerID, row.AcctID, row.Ticker, row.Term}
		i, ok := index[k]
		if !ok {
			row.LotID = ""
			row.DtOpen = ""
			row.DtSell = ""
			index[k] = len(out)
			out = append(out, row)
			continue
		}
		out[i].Units = out[i].Units.Add(row.Units)
		out[i].Proceeds = out[i].Proceeds.Add(row.Proceeds)
		out[i].Cost = out[i].Cost.Add(row.Cost)
		out[i].Realized = out[i].Realized.Add(row.Realized)
		out[i].Disallowed = out[i].Disallowed.Add(row.Disallowed)
		out[i].Deductible = out[i].Deductible.Add(row.Deductible)
	}
	return out
}

// txRow is one transaction in the flat CSV ingestion format. It is a superset
// of all transaction types; a type only reads the columns it needs.
type txRow struct {
	Date          string          `csv:"date"`
	Type          string          `csv:"type"`
	BrokerID      string          `csv:"brokerid"`
	AcctID        string          `csv:"acctid"`
	Ticker        string          `csv:"ticker"`
	SecName       string          `csv:"secname"`
	UniqueIDType  string          `csv:"uniqueidtype"`
	UniqueID      string          `csv:"uniqueid"`
	Units         decimal.Decimal `csv:"units"`
	Total         decimal.Decimal `csv:"total"`
	Currency      string          `csv:"currency"`
	Num           int64           `csv:"num"`
	Den           int64           `csv:"den"`
	NewIDType     string          `csv:"newuniqueidtype"`
	NewID         string          `csv:"newuniqueid"`
	NewUnits      decimal.Decimal `csv:"newunits"`
	BasisFraction decimal.Decimal `csv:"basisfraction"`
	DtOpen        string          `csv:"dtopen"`
	Ref           string          `csv:"ref"`
	LotRef        string          `csv:"lotref"`
	Memo          string          `csv:"memo"`
}

// ImportTransactions reads transactions from 'r' in the flat CSV format,
// declaring accounts and securities on first sight and appending to the
// journal with freshly assigned sequence numbers.
func ImportTransactions(r io.Reader, registry *Registry, journal *Journal) error {
	var rows []txRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return fmt.Errorf("cannot parse transactions file: %w", err)
	}

	for i, row := range rows {
		tx, err := row.transaction(registry, journal.NextSeq())
		if err != nil {
			return fmt.Errorf("transactions row %d: %w", i+1, err)
		}
		journal.Append(tx)
	}
	return nil
}

// transaction converts one CSV row into a typed transaction, declaring its
// references along the way.
func (row txRow) transaction(registry *Registry, seq int64) (Transaction, error) {
	day, err := ParseDate(row.Date)
	if err != nil {
		return nil, err
	}
	acct, err := registry.DeclareAccount(AccountID{BrokerID: row.BrokerID, AcctID: row.AcctID})
	if err != nil {
		return nil, err
	}
	sec, err := registry.Declare(SecurityID{Type: row.UniqueIDType, Value: row.UniqueID}, row.Ticker, row.SecName)
	if err != nil {
		return nil, err
	}

	switch TxType(row.Type) {
	case TxBuy:
		return NewBuy(day, seq, acct, sec.ID(), Q(row.Units), M(row.Total, row.Currency)), nil
	case TxSell:
		sell := NewSell(day, seq, acct, sec.ID(), Q(row.Units), M(row.Total, row.Currency))
		if row.LotRef != "" {
			sell = sell.WithLot(row.LotRef)
		}
		return sell, nil
	case TxSplit:
		return NewSplit(day, seq, acct, sec.ID(), row.Num, row.Den), nil
	case TxSpinoff:
		dst, err := registry.Declare(SecurityID{Type: row.NewIDType, Value: row.NewID}, "", "")
		if err != nil {
			return nil, err
		}
		return NewSpinoff(day, seq, acct, sec.ID(), dst.ID(), Q(row.NewUnits), row.BasisFraction), nil
	case TxReturnOfCapital:
		return NewReturnOfCapital(day, seq, acct, sec.ID(), M(row.Total, row.Currency)), nil
	case TxTransferIn:
		dtOpen, err := ParseDate(row.DtOpen)
		if err != nil {
			return nil, err
		}
		return NewTransferIn(day, seq, acct, sec.ID(), Q(row.Units), M(row.Total, row.Currency), dtOpen, row.Ref), nil
	case TxTransferOut:
		return NewTransferOut(day, seq, acct, sec.ID(), Q(row.Units), row.Ref), nil
	default:
		return nil, fmt.Errorf("unknown transaction type %q", row.Type)
	}
}
