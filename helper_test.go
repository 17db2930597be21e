package capgains

import (
	"testing"

	"github.com/rs/zerolog"
)

var (
	testAcct = AccountID{BrokerID: "fid.com", AcctID: "12345"}
	appleID  = SecurityID{Type: "CUSIP", Value: "037833100"}
	msftID   = SecurityID{Type: "CUSIP", Value: "594918104"}
)

// usd is a shorthand for USD amounts in tests.
func usd(v float64) Money { return M(v, "USD") }

// day is a shorthand for parsing ISO dates in tests.
func day(s string) Date { return MustParseDate(s) }

// newTestRegistry returns a registry with the shared test account and
// securities declared.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if _, err := r.DeclareAccount(testAcct); err != nil {
		t.Fatalf("DeclareAccount() error = %v", err)
	}
	if _, err := r.Declare(appleID, "AAPL", "Apple Inc"); err != nil {
		t.Fatalf("Declare(AAPL) error = %v", err)
	}
	if _, err := r.Declare(msftID, "MSFT", "Microsoft Corp"); err != nil {
		t.Fatalf("Declare(MSFT) error = %v", err)
	}
	return r
}

// newTestEngine returns an engine over a fresh ledger with default options.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultConfig(), newTestRegistry(t), NewLedger(), zerolog.Nop())
}

// apply feeds one transaction and fails the test on error.
func apply(t *testing.T, e *Engine, tx Transaction) []Gain {
	t.Helper()
	gains, err := e.Apply(tx)
	if err != nil {
		t.Fatalf("Apply(%s seq=%d) error = %v", tx.What(), tx.Seq(), err)
	}
	return gains
}
