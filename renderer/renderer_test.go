package renderer

import (
	"strings"
	"testing"

	"github.com/ledgertools/capgains"
)

var (
	testAcct = capgains.AccountID{BrokerID: "fid.com", AcctID: "12345"}
	appleID  = capgains.SecurityID{Type: "CUSIP", Value: "037833100"}
)

func day(s string) capgains.Date {
	d, err := capgains.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testRegistry(t *testing.T) *capgains.Registry {
	t.Helper()
	registry := capgains.NewRegistry()
	if _, err := registry.DeclareAccount(testAcct); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Declare(appleID, "AAPL", "Apple Inc"); err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestGainsMarkdown(t *testing.T) {
	registry := testRegistry(t)
	gains := []capgains.Gain{
		{Account: testAcct, Security: appleID, LotID: "L000001",
			LotOpenDate: day("2023-01-10"), SaleDate: day("2025-03-10"),
			Units: capgains.Q(100), Proceeds: capgains.M(2000, "USD"),
			Basis: capgains.M(1000, "USD"), Realized: capgains.M(1000, "USD"),
			Disallowed: capgains.M(0, "USD"), Term: capgains.Long},
		{Account: testAcct, Security: appleID, LotID: "L000002",
			LotOpenDate: day("2025-01-10"), SaleDate: day("2025-03-10"),
			Units: capgains.Q(10), Proceeds: capgains.M(100, "USD"),
			Basis: capgains.M(300, "USD"), Realized: capgains.M(-200, "USD"),
			WashSaleDisallowed: true, Disallowed: capgains.M(200, "USD"),
			Term: capgains.Short},
	}

	md := GainsMarkdown(registry, gains)
	for _, want := range []string{
		"# Realized Capital Gains",
		"## Short-Term",
		"## Long-Term",
		"AAPL",
		"2025-03-10",
		"**Total**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}

	// The washed loss shows its disallowance; the clean gain shows a dash.
	short := md[strings.Index(md, "## Short-Term"):strings.Index(md, "## Long-Term")]
	if !strings.Contains(short, capgains.M(200, "USD").String()) {
		t.Errorf("short-term section missing disallowed amount:\n%s", short)
	}
	long := md[strings.Index(md, "## Long-Term"):]
	if !strings.Contains(long, "| - |") {
		t.Errorf("long-term row should show no disallowance:\n%s", long)
	}
}

func TestGainsMarkdownEmpty(t *testing.T) {
	md := GainsMarkdown(testRegistry(t), nil)
	if !strings.Contains(md, "No realized gains.") {
		t.Errorf("empty report = %q", md)
	}
}

func TestLotsMarkdown(t *testing.T) {
	registry := testRegistry(t)
	lots := []capgains.Lot{{
		ID:               "L000001",
		Account:          testAcct,
		Security:         appleID,
		OpenDate:         day("2025-01-10"),
		OriginalOpenDate: day("2023-01-15"),
		Units:            capgains.Q(100),
		Cost:             capgains.M(1500, "USD"),
		WashDeferred:     capgains.M(50, "USD"),
	}}

	md := LotsMarkdown(registry, lots)
	for _, want := range []string{
		"# Open Lots",
		"L000001",
		"AAPL",
		"2023-01-15",
		capgains.M(50, "USD").String(),
		"**Total**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestLotsMarkdownEmpty(t *testing.T) {
	md := LotsMarkdown(testRegistry(t), nil)
	if !strings.Contains(md, "No open positions.") {
		t.Errorf("empty report = %q", md)
	}
}
