package capgains

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// SecurityID is the immutable identity of a security: a unique-id scheme and
// its value, e.g. ("CUSIP", "037833100") or ("ISIN", "US0378331005").
//
// Two securities are substantially identical for wash-sale purposes iff their
// SecurityIDs are equal. Option/derivative equivalence is out of scope.
type SecurityID struct {
	Type  string `json:"uniqueIdType"`
	Value string `json:"uniqueId"`
}

func (id SecurityID) String() string { return id.Type + ":" + id.Value }

func (id SecurityID) IsZero() bool { return id.Type == "" && id.Value == "" }

// Security is a tradeable asset. Identity is fixed; ticker and name are
// mutable display metadata.
type Security struct {
	id     SecurityID
	ticker string
	name   string
}

// ID returns the unique, standardized identifier of the security.
func (s *Security) ID() SecurityID { return s.id }

// Ticker returns the human-friendly ticker symbol of the security.
func (s *Security) Ticker() string { return s.ticker }

// Name returns the display name of the security.
func (s *Security) Name() string { return s.name }

// AccountID is the immutable identity of a brokerage account.
type AccountID struct {
	BrokerID string `json:"brokerId"`
	AcctID   string `json:"acctId"`
}

func (a AccountID) String() string { return a.BrokerID + ":" + a.AcctID }

func (a AccountID) IsZero() bool { return a.BrokerID == "" && a.AcctID == "" }

// Registry resolves securities and accounts by identity, creating them on
// first sight. Pure lookup/creation; it holds no position state.
type Registry struct {
	securities map[SecurityID]*Security
	accounts   map[AccountID]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		securities: make(map[SecurityID]*Security),
		accounts:   make(map[AccountID]struct{}),
	}
}

// Security returns the security with this identity, or nil if unknown.
func (r *Registry) Security(id SecurityID) *Security {
	return r.securities[id]
}

// Declare resolves a security by identity, creating it if unknown. Non-empty
// ticker and name update the existing metadata (later statements win).
func (r *Registry) Declare(id SecurityID, ticker, name string) (*Security, error) {
	if id.Type == "" || id.Value == "" {
		return nil, fmt.Errorf("security identity requires both uniqueIdType and uniqueId, got %q", id)
	}
	sec, ok := r.securities[id]
	if !ok {
		sec = &Security{id: id}
		r.securities[id] = sec
	}
	if ticker != "" {
		sec.ticker = ticker
	}
	if name != "" {
		sec.name = name
	}
	return sec, nil
}

// HasAccount reports whether the account identity is known.
func (r *Registry) HasAccount(id AccountID) bool {
	_, ok := r.accounts[id]
	return ok
}

// DeclareAccount resolves an account by identity, creating it if unknown.
func (r *Registry) DeclareAccount(id AccountID) (AccountID, error) {
	if id.BrokerID == "" || id.AcctID == "" {
		return id, fmt.Errorf("account identity requires both brokerId and acctId, got %q", id)
	}
	r.accounts[id] = struct{}{}
	return id, nil
}

// AllSecurities iterates over declared securities in stable identity order.
func (r *Registry) AllSecurities() iter.Seq[*Security] {
	return func(yield func(*Security) bool) {
		ids := slices.Collect(maps.Keys(r.securities))
		slices.SortFunc(ids, func(a, b SecurityID) int {
			if c := strings.Compare(a.Type, b.Type); c != 0 {
				return c
			}
			return strings.Compare(a.Value, b.Value)
		})
		for _, id := range ids {
			if !yield(r.securities[id]) {
				return
			}
		}
	}
}

// AllAccounts iterates over declared accounts in stable identity order.
func (r *Registry) AllAccounts() iter.Seq[AccountID] {
	return func(yield func(AccountID) bool) {
		ids := slices.Collect(maps.Keys(r.accounts))
		slices.SortFunc(ids, func(a, b AccountID) int {
			if c := strings.Compare(a.BrokerID, b.BrokerID); c != 0 {
				return c
			}
			return strings.Compare(a.AcctID, b.AcctID)
		})
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}
