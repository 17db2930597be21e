package capgains

import (
	"fmt"
	"io"
	"slices"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// ImportOFX reads an OFX/QFX investment statement download, declares the
// securities from its SECLIST and the statement accounts, and appends the
// recognized investment transactions to the journal.
//
// Income, fees and cash management events carry no lot consequence and are
// skipped. Unrecognized transaction kinds are skipped too, with a count
// returned so callers can surface them.
func ImportOFX(r io.Reader, registry *Registry, journal *Journal, defaultCurrency string) (skipped int, err error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return 0, fmt.Errorf("cannot parse OFX response: %w", err)
	}

	for _, msg := range resp.SecList {
		list, ok := msg.(*ofxgo.SecurityList)
		if !ok {
			continue
		}
		for _, sec := range list.Securities {
			if err := declareOFXSecurity(registry, sec); err != nil {
				return 0, err
			}
		}
	}

	var pending []Transaction
	for _, msg := range resp.InvStmt {
		stmt, ok := msg.(*ofxgo.InvStatementResponse)
		if !ok {
			continue
		}
		acct, err := registry.DeclareAccount(AccountID{
			BrokerID: stmt.InvAcctFrom.BrokerID.String(),
			AcctID:   stmt.InvAcctFrom.AcctID.String(),
		})
		if err != nil {
			return 0, err
		}
		if stmt.InvTranList == nil {
			continue
		}
		for _, invTx := range stmt.InvTranList.InvTransactions {
			tx, ok, err := convertOFXTransaction(registry, acct, invTx, defaultCurrency)
			if err != nil {
				return 0, err
			}
			if !ok {
				skipped++
				continue
			}
			pending = append(pending, tx)
		}
	}

	// OFX statements do not guarantee ordering. Sort by trade date before
	// assigning sequence numbers so same-day sequence follows statement order.
	slices.SortStableFunc(pending, func(a, b Transaction) int {
		switch {
		case a.When().Before(b.When()):
			return -1
		case b.When().Before(a.When()):
			return 1
		default:
			return 0
		}
	})
	for _, tx := range pending {
		journal.Append(withSeq(tx, journal.NextSeq()))
	}
	return skipped, nil
}

// declareOFXSecurity registers one SECLIST entry. All OFX security kinds carry
// the same identity block.
func declareOFXSecurity(registry *Registry, sec ofxgo.Security) error {
	var info ofxgo.SecInfo
	switch v := sec.(type) {
	case ofxgo.StockInfo:
		info = v.SecInfo
	case ofxgo.MFInfo:
		info = v.SecInfo
	case ofxgo.DebtInfo:
		info = v.SecInfo
	case ofxgo.OptInfo:
		info = v.SecInfo
	case ofxgo.OtherInfo:
		info = v.SecInfo
	default:
		return nil
	}
	_, err := registry.Declare(
		SecurityID{Type: info.SecID.UniqueIDType.String(), Value: info.SecID.UniqueID.String()},
		info.Ticker.String(),
		info.SecName.String(),
	)
	return err
}

// convertOFXTransaction maps one OFX investment transaction to a normalized
// transaction, or reports ok=false when the kind has no lot consequence.
func convertOFXTransaction(registry *Registry, acct AccountID, invTx ofxgo.InvTransaction, currency string) (Transaction, bool, error) {
	switch v := invTx.(type) {
	case ofxgo.BuyStock:
		return convertOFXBuy(registry, acct, v.InvBuy, currency)
	case ofxgo.BuyMF:
		return convertOFXBuy(registry, acct, v.InvBuy, currency)
	case ofxgo.BuyDebt:
		return convertOFXBuy(registry, acct, v.InvBuy, currency)
	case ofxgo.BuyOther:
		return convertOFXBuy(registry, acct, v.InvBuy, currency)

	case ofxgo.SellStock:
		return convertOFXSell(registry, acct, v.InvSell, currency)
	case ofxgo.SellMF:
		return convertOFXSell(registry, acct, v.InvSell, currency)
	case ofxgo.SellDebt:
		return convertOFXSell(registry, acct, v.InvSell, currency)
	case ofxgo.SellOther:
		return convertOFXSell(registry, acct, v.InvSell, currency)

	case ofxgo.Reinvest:
		// A reinvested distribution opens a lot like any purchase.
		sec, err := declareOFXSecID(registry, v.SecID)
		if err != nil {
			return nil, false, err
		}
		day := NewDate(v.InvTran.DtTrade.Date())
		return NewBuy(day, 0, acct, sec, quantityFromOFX(v.Units), moneyFromOFX(v.Total, currency)), true, nil

	case ofxgo.Split:
		sec, err := declareOFXSecID(registry, v.SecID)
		if err != nil {
			return nil, false, err
		}
		day := NewDate(v.InvTran.DtTrade.Date())
		num := int64(v.Numerator)
		den := int64(v.Denominator)
		return NewSplit(day, 0, acct, sec, num, den), true, nil

	case ofxgo.RetOfCap:
		sec, err := declareOFXSecID(registry, v.SecID)
		if err != nil {
			return nil, false, err
		}
		day := NewDate(v.InvTran.DtTrade.Date())
		return NewReturnOfCapital(day, 0, acct, sec, moneyFromOFX(v.Total, currency)), true, nil

	case ofxgo.Transfer:
		sec, err := declareOFXSecID(registry, v.SecID)
		if err != nil {
			return nil, false, err
		}
		day := NewDate(v.InvTran.DtTrade.Date())
		ref := v.InvTran.FiTID.String()
		if v.TferAction.String() == "OUT" {
			return NewTransferOut(day, 0, acct, sec, quantityFromOFX(v.Units), ref), true, nil
		}
		openDate := day
		if v.DtPurchase != nil {
			openDate = NewDate(v.DtPurchase.Date())
		}
		cost := moneyFromOFX(v.AvgCostBasis, currency).Mul(quantityFromOFX(v.Units)).Round()
		return NewTransferIn(day, 0, acct, sec, quantityFromOFX(v.Units), cost, openDate, ref), true, nil
	}
	return nil, false, nil
}

func convertOFXBuy(registry *Registry, acct AccountID, buy ofxgo.InvBuy, currency string) (Transaction, bool, error) {
	sec, err := declareOFXSecID(registry, buy.SecID)
	if err != nil {
		return nil, false, err
	}
	day := NewDate(buy.InvTran.DtTrade.Date())
	// OFX totals are signed from the cash account's view: purchases negative.
	return NewBuy(day, 0, acct, sec, quantityFromOFX(buy.Units), moneyFromOFX(buy.Total, currency)), true, nil
}

func convertOFXSell(registry *Registry, acct AccountID, sell ofxgo.InvSell, currency string) (Transaction, bool, error) {
	sec, err := declareOFXSecID(registry, sell.SecID)
	if err != nil {
		return nil, false, err
	}
	day := NewDate(sell.InvTran.DtTrade.Date())
	// Sell units come through negative; the engine wants the magnitude.
	return NewSell(day, 0, acct, sec, quantityFromOFX(sell.Units), moneyFromOFX(sell.Total, currency)), true, nil
}

func declareOFXSecID(registry *Registry, id ofxgo.SecurityID) (SecurityID, error) {
	sec, err := registry.Declare(SecurityID{Type: id.UniqueIDType.String(), Value: id.UniqueID.String()}, "", "")
	if err != nil {
		return SecurityID{}, err
	}
	return sec.ID(), nil
}

// ratFromOFX converts an exact OFX rational amount to a decimal.
func ratFromOFX(a ofxgo.Amount) decimal.Decimal {
	rat := a.Rat
	return decimal.NewFromBigRat(&rat, 8)
}

func quantityFromOFX(a ofxgo.Amount) Quantity {
	return Q(ratFromOFX(a).Abs())
}

func moneyFromOFX(a ofxgo.Amount, currency string) Money {
	return M(ratFromOFX(a).Abs(), currency).Round()
}

// withSeq stamps a freshly assigned sequence number onto a converted
// transaction before it enters the journal.
func withSeq(tx Transaction, seq int64) Transaction {
	switch v := tx.(type) {
	case Buy:
		v.Sequence = seq
		return v
	case Sell:
		v.Sequence = seq
		return v
	case Split:
		v.Sequence = seq
		return v
	case Spinoff:
		v.Sequence = seq
		return v
	case ReturnOfCapital:
		v.Sequence = seq
		return v
	case TransferIn:
		v.Sequence = seq
		return v
	case TransferOut:
		v.Sequence = seq
		return v
	}
	return tx
}
