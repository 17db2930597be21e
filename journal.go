package capgains

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Journal is the append-only, time-ordered list of normalized transactions.
// It is the durable input of the matching engine: recomputation always replays
// the whole journal from scratch against an empty lot ledger.
type Journal struct {
	transactions []Transaction
	nextSeq      int64
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{nextSeq: 1}
}

// Append adds transactions to the journal and advances the next sequence
// number past the highest one seen. Callers assign sequence numbers at
// ingestion, via NextSeq.
func (j *Journal) Append(txs ...Transaction) {
	for _, tx := range txs {
		if tx.Seq() >= j.nextSeq {
			j.nextSeq = tx.Seq() + 1
		}
		j.transactions = append(j.transactions, tx)
	}
}

// NextSeq returns the sequence number the next ingested transaction should
// carry. Sequence numbers are assigned once at ingestion and never re-derived.
func (j *Journal) NextSeq() int64 { return j.nextSeq }

// Len returns the number of transactions in the journal.
func (j *Journal) Len() int { return len(j.transactions) }

// Tail returns the transactions appended after the first n, in appended
// order. Valid until the next sort or append.
func (j *Journal) Tail(n int) []Transaction { return j.transactions[n:] }

// Transactions returns the journal's transactions in replay order.
func (j *Journal) Transactions() []Transaction {
	j.stableSort()
	return j.transactions
}

// stableSort orders transactions by trade date, ties broken by the ingestion
// sequence number so same-day events replay in arrival order.
func (j *Journal) stableSort() {
	slices.SortStableFunc(j.transactions, func(a, b Transaction) int {
		switch {
		case a.When().Before(b.When()):
			return -1
		case b.When().Before(a.When()):
			return 1
		default:
			return int(a.Seq() - b.Seq())
		}
	})
}

// DecodeJournal decodes transactions from a stream of JSONL data, one
// transaction per line, and returns a sorted journal.
func DecodeJournal(r io.Reader) (*Journal, error) {
	journal := NewJournal()
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Type TxType `json:"type"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify transaction in line %q: %w", string(lineBytes), err)
		}

		var decodedTx Transaction
		var err error

		switch identifier.Type {
		case TxBuy:
			var tx Buy
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxSell:
			var tx Sell
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxSplit:
			var tx Split
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxSpinoff:
			var tx Spinoff
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxReturnOfCapital:
			var tx ReturnOfCapital
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxTransferIn:
			var tx TransferIn
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxTransferOut:
			var tx TransferOut
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		default:
			err = fmt.Errorf("unknown transaction type: %q", identifier.Type)
		}

		if err != nil {
			return nil, err
		}
		journal.Append(decodedTx)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	journal.stableSort()
	return journal, nil
}

// EncodeTransaction marshals a single transaction to JSON and writes it to the
// writer, followed by a newline, in JSONL format.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	decimal.MarshalJSONWithoutQuotes = true
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeJournal reorders transactions by date and persists them to an
// io.Writer in JSONL format. The sort is stable, so transactions on the same
// day keep their ingestion order.
func EncodeJournal(w io.Writer, journal *Journal) error {
	decimal.MarshalJSONWithoutQuotes = true
	journal.stableSort()
	for _, tx := range journal.transactions {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}
