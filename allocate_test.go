package capgains

import "testing"

func TestAllocateSumsExactly(t *testing.T) {
	tests := []struct {
		name    string
		total   Money
		weights []Quantity
		want    []Money
	}{
		{
			name:    "even thirds round up the first part",
			total:   usd(100),
			weights: []Quantity{Q(1), Q(1), Q(1)},
			want:    []Money{usd(33.34), usd(33.33), usd(33.33)},
		},
		{
			name:    "proportional split",
			total:   usd(3000),
			weights: []Quantity{Q(100), Q(50)},
			want:    []Money{usd(2000), usd(1000)},
		},
		{
			name:    "largest remainder wins the extra cent",
			total:   usd(1),
			weights: []Quantity{Q(1), Q(2)},
			want:    []Money{usd(0.33), usd(0.67)},
		},
		{
			name:    "single weight gets everything",
			total:   usd(123.45),
			weights: []Quantity{Q(7)},
			want:    []Money{usd(123.45)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := allocate(tc.total, tc.weights)
			if len(got) != len(tc.want) {
				t.Fatalf("allocate() returned %d parts, want %d", len(got), len(tc.want))
			}
			sum := M(0, tc.total.Currency())
			for i := range got {
				if !got[i].Equal(tc.want[i]) {
					t.Errorf("part %d = %s, want %s", i, got[i], tc.want[i])
				}
				sum = sum.Add(got[i])
			}
			if !sum.Equal(tc.total) {
				t.Errorf("parts sum to %s, want exactly %s", sum, tc.total)
			}
		})
	}
}

func TestProRataShare(t *testing.T) {
	got := proRataShare(usd(1500), Q(50), Q(100))
	if !got.Equal(usd(750)) {
		t.Errorf("half of $1,500 = %s, want $750.00", got)
	}

	// Rounded to the cent; the remainder stays with the caller.
	got = proRataShare(usd(100), Q(1), Q(3))
	if !got.Equal(usd(33.33)) {
		t.Errorf("third of $100 = %s, want $33.33", got)
	}
}
