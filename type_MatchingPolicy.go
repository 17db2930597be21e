package capgains

import "fmt"

// MatchingPolicy defines the lot-selection order used when a sale closes an
// open position.
type MatchingPolicy int

const (
	// FIFO (First-In, First-Out) consumes the oldest open lot first.
	FIFO MatchingPolicy = iota
	// SpecificID consumes the lot explicitly referenced by the sale first,
	// falling back to FIFO for any remainder.
	SpecificID
)

func (m MatchingPolicy) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case SpecificID:
		return "specific-id"
	default:
		return "unknown"
	}
}

// ParseMatchingPolicy parses a string into a MatchingPolicy.
func ParseMatchingPolicy(s string) (MatchingPolicy, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "specific-id":
		return SpecificID, nil
	default:
		return 0, fmt.Errorf("unknown lot matching policy: %q", s)
	}
}

// Config holds the recognized engine options.
type Config struct {
	Policy                MatchingPolicy // lot-selection order for sales
	WashSaleWindowDays    int            // window each side of a loss sale
	LongTermThresholdDays int            // holding period strictly above which a gain is long-term
}

// DefaultConfig returns the statutory defaults: FIFO matching, a 30-day wash
// window each side, and the 365-day long-term threshold.
func DefaultConfig() Config {
	return Config{
		Policy:                FIFO,
		WashSaleWindowDays:    30,
		LongTermThresholdDays: 365,
	}
}
