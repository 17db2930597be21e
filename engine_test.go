package capgains

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestSellMatchesFIFO(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))
	apply(t, e, NewBuy(day("2025-02-10"), 2, testAcct, appleID, Q(100), usd(1500)))

	gains := apply(t, e, NewSell(day("2025-03-10"), 3, testAcct, appleID, Q(150), usd(3000)))
	if len(gains) != 2 {
		t.Fatalf("expected 2 gains, got %d", len(gains))
	}

	first := gains[0]
	if !first.Units.Equal(Q(100)) || !first.Basis.Equal(usd(1000)) || !first.Proceeds.Equal(usd(2000)) {
		t.Errorf("oldest lot should close first: units=%s basis=%s proceeds=%s", first.Units, first.Basis, first.Proceeds)
	}
	if !first.Realized.Equal(usd(1000)) {
		t.Errorf("first gain realized = %s, want +$1,000.00", first.Realized)
	}

	second := gains[1]
	if !second.Units.Equal(Q(50)) || !second.Basis.Equal(usd(750)) || !second.Proceeds.Equal(usd(1000)) {
		t.Errorf("second lot partial close: units=%s basis=%s proceeds=%s", second.Units, second.Basis, second.Proceeds)
	}

	// The partially consumed lot keeps the remaining basis.
	if got := e.Ledger().Position(testAcct, appleID); !got.Equal(Q(50)) {
		t.Errorf("remaining position = %s, want 50", got)
	}
	left := e.Ledger().fifo(testAcct, appleID)[0]
	if !left.Cost.Equal(usd(750)) {
		t.Errorf("remaining lot cost = %s, want $750.00", left.Cost)
	}
}

func TestSellSpecificLotFirst(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))
	apply(t, e, NewBuy(day("2025-02-10"), 2, testAcct, appleID, Q(100), usd(1500)))

	newer := e.Ledger().findByOpenSeq(testAcct, appleID, 2)
	if newer == nil {
		t.Fatal("second lot not found")
	}

	gains := apply(t, e, NewSell(day("2025-03-10"), 3, testAcct, appleID, Q(100), usd(1600)).WithLot(newer.ID))
	if len(gains) != 1 {
		t.Fatalf("expected 1 gain, got %d", len(gains))
	}
	if gains[0].LotID != newer.ID {
		t.Errorf("consumed lot %s, want the referenced lot %s", gains[0].LotID, newer.ID)
	}
	if !gains[0].Basis.Equal(usd(1500)) {
		t.Errorf("basis = %s, want the referenced lot's $1,500.00", gains[0].Basis)
	}
}

func TestSellUnknownLotReference(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	_, err := e.Apply(NewSell(day("2025-02-10"), 2, testAcct, appleID, Q(10), usd(150)).WithLot("L999999"))
	var refErr *UnknownReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected UnknownReferenceError, got %v", err)
	}
	if got := e.Ledger().Position(testAcct, appleID); !got.Equal(Q(100)) {
		t.Errorf("failed sale must not touch the ledger, position = %s", got)
	}
}

func TestHoldingPeriodBoundary(t *testing.T) {
	// Long-term iff held strictly more than 365 days.
	tests := []struct {
		open, sell string
		want       Term
	}{
		{"2024-01-10", "2025-01-09", Short}, // 365 days exactly
		{"2024-01-10", "2025-01-10", Long},  // 366 days (2024 is a leap year)
		{"2025-03-01", "2025-06-01", Short},
	}
	for _, tc := range tests {
		e := newTestEngine(t)
		apply(t, e, NewBuy(day(tc.open), 1, testAcct, appleID, Q(10), usd(100)))
		gains := apply(t, e, NewSell(day(tc.sell), 2, testAcct, appleID, Q(10), usd(120)))
		if gains[0].Term != tc.want {
			t.Errorf("open %s sell %s: term = %s, want %s", tc.open, tc.sell, gains[0].Term, tc.want)
		}
	}
}

func TestSellInsufficientPosition(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	_, err := e.Apply(NewSell(day("2025-02-10"), 2, testAcct, appleID, Q(150), usd(2000)))
	var posErr *InsufficientPositionError
	if !errors.As(err, &posErr) {
		t.Fatalf("expected InsufficientPositionError, got %v", err)
	}
	if !posErr.Requested.Equal(Q(150)) || !posErr.Open.Equal(Q(100)) {
		t.Errorf("error carries requested=%s open=%s, want 150/100", posErr.Requested, posErr.Open)
	}
	if got := e.Ledger().Position(testAcct, appleID); !got.Equal(Q(100)) {
		t.Errorf("failed sale must not touch the ledger, position = %s", got)
	}
	if len(e.Gains()) != 0 {
		t.Errorf("failed sale must not emit gains, got %d", len(e.Gains()))
	}
}

func TestOutOfOrderTransaction(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-03-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	_, err := e.Apply(NewBuy(day("2025-02-10"), 2, testAcct, appleID, Q(10), usd(100)))
	var ordErr *OrderingError
	if !errors.As(err, &ordErr) {
		t.Fatalf("expected OrderingError, got %v", err)
	}

	// Other positions keep processing.
	apply(t, e, NewBuy(day("2025-01-10"), 3, testAcct, msftID, Q(10), usd(100)))
}

func TestUnknownSecurity(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Apply(NewBuy(day("2025-01-10"), 1, testAcct, SecurityID{Type: "CUSIP", Value: "000000000"}, Q(10), usd(100)))
	var refErr *UnknownReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected UnknownReferenceError, got %v", err)
	}
}

func TestSplitScalesUnitsKeepsCost(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))
	apply(t, e, NewSplit(day("2025-02-10"), 2, testAcct, appleID, 2, 1))

	if got := e.Ledger().Position(testAcct, appleID); !got.Equal(Q(200)) {
		t.Fatalf("position after 2:1 split = %s, want 200", got)
	}
	gains := apply(t, e, NewSell(day("2025-03-10"), 3, testAcct, appleID, Q(200), usd(1200)))
	if !gains[0].Basis.Equal(usd(1000)) {
		t.Errorf("basis after split = %s, want unchanged $1,000.00", gains[0].Basis)
	}

	// Reverse split with a fractional result.
	e2 := newTestEngine(t)
	apply(t, e2, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(5), usd(500)))
	apply(t, e2, NewSplit(day("2025-02-10"), 2, testAcct, appleID, 1, 2))
	if got := e2.Ledger().Position(testAcct, appleID); !got.Equal(Q(2.5)) {
		t.Errorf("position after 1:2 reverse split = %s, want 2.5", got)
	}
}

func TestReturnOfCapitalReducesBasis(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	gains := apply(t, e, NewReturnOfCapital(day("2025-02-10"), 2, testAcct, appleID, usd(300)))
	if len(gains) != 0 {
		t.Fatalf("distribution within basis must not realize a gain, got %d", len(gains))
	}
	lot := e.Ledger().fifo(testAcct, appleID)[0]
	if !lot.Cost.Equal(usd(700)) {
		t.Errorf("cost after distribution = %s, want $700.00", lot.Cost)
	}
}

func TestReturnOfCapitalExcessIsGain(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	gains := apply(t, e, NewReturnOfCapital(day("2025-02-10"), 2, testAcct, appleID, usd(1100)))
	if len(gains) != 1 {
		t.Fatalf("expected 1 excess gain, got %d", len(gains))
	}
	gn := gains[0]
	if !gn.Realized.Equal(usd(100)) {
		t.Errorf("excess gain = %s, want $100.00", gn.Realized)
	}
	if !gn.Units.IsZero() {
		t.Errorf("basis event closes no units, got %s", gn.Units)
	}
	lot := e.Ledger().fifo(testAcct, appleID)[0]
	if !lot.Cost.IsZero() {
		t.Errorf("cost after excess distribution = %s, want zero", lot.Cost)
	}
}

func TestSpinoffCarvesBasis(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2024-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))
	apply(t, e, NewSpinoff(day("2025-02-10"), 2, testAcct, appleID, msftID, Q(50), newDecimal(0.2)))

	src := e.Ledger().fifo(testAcct, appleID)[0]
	if !src.Cost.Equal(usd(800)) {
		t.Errorf("source cost after spinoff = %s, want $800.00", src.Cost)
	}
	spun := e.Ledger().fifo(testAcct, msftID)
	if len(spun) != 1 {
		t.Fatalf("expected 1 spun-off lot, got %d", len(spun))
	}
	if !spun[0].Cost.Equal(usd(200)) || !spun[0].Units.Equal(Q(50)) {
		t.Errorf("spun-off lot cost=%s units=%s, want $200.00/50", spun[0].Cost, spun[0].Units)
	}
	if spun[0].OriginalOpenDate != day("2024-01-10") {
		t.Errorf("spun-off lot holding period starts %s, want the source's 2024-01-10", spun[0].OriginalOpenDate)
	}
}

func TestTransferPreservesBasisAndHoldingPeriod(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewTransferIn(day("2025-02-01"), 1, testAcct, appleID, Q(100), usd(1000), day("2023-06-15"), "xfer-1"))

	gains := apply(t, e, NewSell(day("2025-03-01"), 2, testAcct, appleID, Q(100), usd(1500)))
	gn := gains[0]
	if !gn.Basis.Equal(usd(1000)) {
		t.Errorf("basis = %s, want the transferred $1,000.00", gn.Basis)
	}
	if gn.Term != Long {
		t.Errorf("term = %s, want LONG from the original 2023 open date", gn.Term)
	}
	if gn.LotOpenDate != day("2023-06-15") {
		t.Errorf("lot open date = %s, want the original 2023-06-15", gn.LotOpenDate)
	}
}

func TestTransferOutEmitsNoGain(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)))

	gains := apply(t, e, NewTransferOut(day("2025-02-10"), 2, testAcct, appleID, Q(60), "xfer-2"))
	if len(gains) != 0 {
		t.Fatalf("transfer out must not realize gains, got %d", len(gains))
	}
	lot := e.Ledger().fifo(testAcct, appleID)[0]
	if !lot.Units.Equal(Q(40)) || !lot.Cost.Equal(usd(400)) {
		t.Errorf("remaining lot units=%s cost=%s, want 40/$400.00", lot.Units, lot.Cost)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	journal := NewJournal()
	journal.Append(
		NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000)),
		NewBuy(day("2025-02-10"), 2, testAcct, appleID, Q(50), usd(600)),
		NewSell(day("2025-03-10"), 3, testAcct, appleID, Q(120), usd(1400)),
		NewBuy(day("2025-03-20"), 4, testAcct, appleID, Q(30), usd(350)),
	)
	registry := newTestRegistry(t)

	run := func() string {
		ledger, gains := Compute(DefaultConfig(), registry, journal, zerolog.Nop())
		var b bytes.Buffer
		for _, gn := range gains {
			b.WriteString(gn.String())
			b.WriteByte('\n')
		}
		for _, lot := range ledger.Snapshot() {
			b.WriteString(lot.ID)
			b.WriteString(lot.Units.String())
			b.WriteString(lot.Cost.String())
			b.WriteByte('\n')
		}
		return b.String()
	}

	first, second := run(), run()
	if first != second {
		t.Errorf("recomputation differs:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
