package capgains

import "fmt"

// Term classifies the holding period of a realized gain.
type Term int

const (
	Short Term = iota
	Long
)

func (t Term) String() string {
	switch t {
	case Short:
		return "SHORT"
	case Long:
		return "LONG"
	default:
		return "unknown"
	}
}

// Gain is the record of closing a lot (fully or partially) against a sale,
// or of a basis event realizing value without a disposition (return of
// capital in excess of basis, with Units zero).
//
// A Gain is provisionally final: after emission only the wash-sale processor
// may touch it, setting the two wash-sale fields once, and revising
// Basis/Realized once when a deferred loss lands on an already-closed
// replacement lot.
type Gain struct {
	Account     AccountID  `json:"account"`
	Security    SecurityID `json:"security"`
	LotID       string     `json:"lotId"`
	LotOpenDate Date       `json:"lotOpenDate"` // holding-period start actually used
	SaleDate    Date       `json:"saleDate"`
	Units       Quantity   `json:"units"` // units closed by this event
	Proceeds    Money      `json:"proceeds"`
	Basis       Money      `json:"basis"`
	Realized    Money      `json:"realized"` // proceeds - basis, before disallowance
	Term        Term       `json:"term"`

	WashSaleDisallowed bool  `json:"washSaleDisallowed"`
	Disallowed         Money `json:"disallowed"` // zero unless disallowed

	lotOpenSeq int64 // sequence of the transaction that opened the lot
}

// Deductible returns the gain or loss reportable in the current period:
// the raw realized amount with any disallowed portion added back.
func (gn Gain) Deductible() Money {
	if !gn.WashSaleDisallowed {
		return gn.Realized
	}
	return gn.Realized.Add(gn.Disallowed)
}

// IsLoss reports whether the gain realized a loss.
func (gn Gain) IsLoss() bool { return gn.Realized.IsNegative() }

func (gn Gain) String() string {
	return fmt.Sprintf("%s %s %s units closed %s: proceeds=%s basis=%s realized=%s (%s)",
		gn.Account, gn.Security, gn.Units, gn.SaleDate, gn.Proceeds, gn.Basis, gn.Realized, gn.Term)
}
