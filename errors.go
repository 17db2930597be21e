package capgains

import "fmt"

// DataError reports a malformed or incomplete transaction record. It is fatal
// to that record only; other accounts keep processing.
type DataError struct {
	Account  AccountID
	Security SecurityID
	Date     Date
	Seq      int64
	Reason   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad transaction data (account=%s security=%s date=%s seq=%d): %s",
		e.Account, e.Security, e.Date, e.Seq, e.Reason)
}

// OrderingError reports an out-of-sequence trade date. It is fatal to the run
// for that account: matching correctness depends on chronological input.
type OrderingError struct {
	Account  AccountID
	Security SecurityID
	Prev     Date
	Got      Date
	Seq      int64
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("out-of-order transaction (account=%s security=%s seq=%d): trade date %s precedes %s",
		e.Account, e.Security, e.Seq, e.Got, e.Prev)
}

// InsufficientPositionError reports a disposition exceeding the open
// position. The ledger is left untouched for the offending transaction.
type InsufficientPositionError struct {
	Account   AccountID
	Security  SecurityID
	Date      Date
	Seq       int64
	Requested Quantity
	Open      Quantity
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("insufficient position (account=%s security=%s date=%s seq=%d): requested %s units, %s open",
		e.Account, e.Security, e.Date, e.Seq, e.Requested, e.Open)
}

// UnknownReferenceError reports a transaction naming a security, account or
// lot that cannot be resolved.
type UnknownReferenceError struct {
	Account  AccountID
	Security SecurityID
	Date     Date
	Seq      int64
	Ref      string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q (account=%s security=%s date=%s seq=%d)",
		e.Ref, e.Account, e.Security, e.Date, e.Seq)
}
