package store

import (
	"context"
	"path/filepath"
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

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "capgains.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegistryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	registry := capgains.NewRegistry()
	if _, err := registry.DeclareAccount(testAcct); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Declare(appleID, "AAPL", "Apple Inc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRegistry(ctx, registry); err != nil {
		t.Fatalf("SaveRegistry() error = %v", err)
	}

	loaded, err := s.LoadRegistry(ctx)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if !loaded.HasAccount(testAcct) {
		t.Error("account not persisted")
	}
	sec := loaded.Security(appleID)
	if sec == nil || sec.Ticker() != "AAPL" || sec.Name() != "Apple Inc" {
		t.Errorf("security not persisted: %v", sec)
	}
}

func TestJournalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txs := []capgains.Transaction{
		capgains.NewBuy(day("2025-01-10"), 1, testAcct, appleID, capgains.Q(100), capgains.M(1000, "USD")),
		capgains.NewSell(day("2025-03-10"), 2, testAcct, appleID, capgains.Q(40), capgains.M(500, "USD")),
	}
	if err := s.AppendTransactions(ctx, txs); err != nil {
		t.Fatalf("AppendTransactions() error = %v", err)
	}

	journal, err := s.LoadJournal(ctx)
	if err != nil {
		t.Fatalf("LoadJournal() error = %v", err)
	}
	if journal.Len() != 2 {
		t.Fatalf("loaded %d transactions, want 2", journal.Len())
	}
	if got := journal.NextSeq(); got != 3 {
		t.Errorf("NextSeq() = %d, want 3", got)
	}

	// The journal is append-only: a duplicate sequence must be rejected.
	if err := s.AppendTransactions(ctx, txs[:1]); err == nil {
		t.Error("re-inserting an existing sequence should fail")
	}
}

func TestReplaceResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lots := []capgains.Lot{{
		ID:               "L000001",
		Account:          testAcct,
		Security:         appleID,
		OpenDate:         day("2025-01-10"),
		OriginalOpenDate: day("2023-01-15"),
		Units:            capgains.Q(60),
		Cost:             capgains.M(600, "USD"),
		WashDeferred:     capgains.M(50, "USD"),
	}}
	gains := []capgains.Gain{{
		Account:     testAcct,
		Security:    appleID,
		LotID:       "L000001",
		LotOpenDate: day("2025-01-10"),
		SaleDate:    day("2025-03-10"),
		Units:       capgains.Q(40),
		Proceeds:    capgains.M(500, "USD"),
		Basis:       capgains.M(400, "USD"),
		Realized:    capgains.M(100, "USD"),
		Disallowed:  capgains.M(0, "USD"),
		Term:        capgains.Short,
	}}
	if err := s.ReplaceResults(ctx, lots, gains); err != nil {
		t.Fatalf("ReplaceResults() error = %v", err)
	}

	got, err := s.LoadLots(ctx)
	if err != nil {
		t.Fatalf("LoadLots() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("loaded %d lots, want 1", len(got))
	}
	lot := got[0]
	if lot.ID != "L000001" || lot.OriginalOpenDate != day("2023-01-15") {
		t.Errorf("lot identity = %s/%s", lot.ID, lot.OriginalOpenDate)
	}
	if !lot.Cost.Equal(capgains.M(600, "USD")) || !lot.WashDeferred.Equal(capgains.M(50, "USD")) {
		t.Errorf("lot cost = %s, deferred = %s", lot.Cost, lot.WashDeferred)
	}

	// A second call replaces the snapshot wholesale.
	if err := s.ReplaceResults(ctx, nil, nil); err != nil {
		t.Fatalf("ReplaceResults(empty) error = %v", err)
	}
	got, err = s.LoadLots(ctx)
	if err != nil {
		t.Fatalf("LoadLots() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("snapshot not cleared, %d lots remain", len(got))
	}
}
