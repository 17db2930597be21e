package capgains

import (
	"bytes"
	"encoding/json"
	"testing"
)

// The journal format is canonical: every transaction encodes its fields in a
// fixed order, so re-encoding is byte-identical and journals diff cleanly
// across runs. These tests pin the field order down.

func TestCanonicalBuyEncoding(t *testing.T) {
	buy := NewBuy(day("2025-01-10"), 1, testAcct, appleID, Q(100), usd(1000))

	got, err := json.Marshal(buy)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	want := `{"type":"buy","date":"2025-01-10","seq":1,` +
		`"account":{"brokerId":"fid.com","acctId":"12345"},` +
		`"security":{"uniqueIdType":"CUSIP","uniqueId":"037833100"},` +
		`"units":100,"currency":"USD","amount":1000}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	again, err := json.Marshal(buy)
	if err != nil {
		t.Fatalf("second marshal error = %v", err)
	}
	if !bytes.Equal(got, again) {
		t.Errorf("encoding is not deterministic:\nfirst  %s\nsecond %s", got, again)
	}
}

func TestCanonicalSellEncoding(t *testing.T) {
	plain := NewSell(day("2025-03-10"), 2, testAcct, appleID, Q(40), usd(500))

	got, err := json.Marshal(plain)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	if bytes.Contains(got, []byte("lotRef")) {
		t.Errorf("sell without a lot reference must omit lotRef: %s", got)
	}

	got, err = json.Marshal(plain.WithLot("L000001"))
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	want := `{"type":"sell","date":"2025-03-10","seq":2,` +
		`"account":{"brokerId":"fid.com","acctId":"12345"},` +
		`"security":{"uniqueIdType":"CUSIP","uniqueId":"037833100"},` +
		`"units":40,"lotRef":"L000001","currency":"USD","amount":500}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestMoneyEncoding(t *testing.T) {
	got, err := json.Marshal(M(12.345, "USD"))
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	// Currency first, amount rounded to the currency's minor unit.
	if want := `{"currency":"USD","amount":12.35}`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}

	// The weak "" currency is omitted entirely.
	got, err = json.Marshal(M(0, ""))
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	if want := `{"amount":0}`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
