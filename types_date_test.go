package capgains

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2025-07-01", NewDate(2025, time.July, 1)},
		{"2025-7-1", NewDate(2025, time.July, 1)},
		{"2025-07-01 15:04:05", NewDate(2025, time.July, 1)},
		{"2025-07-01T15:04:05Z", NewDate(2025, time.July, 1)},
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParseDate("not-a-date"); err == nil {
		t.Error("ParseDate(\"not-a-date\") expected an error")
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2025-01-01", "2025-01-01", 0},
		{"2025-01-01", "2025-01-02", 1},
		{"2024-01-10", "2025-01-10", 366}, // leap year
		{"2025-01-10", "2026-01-10", 365},
		{"2025-03-15", "2025-02-13", -30},
	}
	for _, tc := range tests {
		if got := day(tc.from).DaysUntil(day(tc.to)); got != tc.want {
			t.Errorf("DaysUntil(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestDateAddAndEarlier(t *testing.T) {
	d := day("2025-03-01")
	if got := d.Add(-30); got != day("2025-01-30") {
		t.Errorf("Add(-30) = %s, want 2025-01-30", got)
	}
	if got := d.Add(30); got != day("2025-03-31") {
		t.Errorf("Add(30) = %s, want 2025-03-31", got)
	}

	a, b := day("2024-06-15"), day("2025-01-02")
	if got := a.Earlier(b); got != a {
		t.Errorf("Earlier() = %s, want %s", got, a)
	}
	if got := b.Earlier(a); got != a {
		t.Errorf("Earlier() = %s, want %s", got, a)
	}
}
