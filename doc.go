// Package capgains turns a chronological record of securities transactions
// into realized capital-gain events suitable for tax reporting. It is
// designed to be local-first and auditable: the transaction journal is the
// single source of truth and every derived figure can be recomputed from it.
//
// The core functionalities include:
//   - Lot Matching: consuming a time-ordered stream of transactions (buys,
//     sells, splits, spinoffs, returns of capital, and transfers), maintaining
//     per-account open tax lots, and emitting a Gain record for every lot
//     closed against a sale, classified short- or long-term.
//   - Wash-Sale Adjustment: scanning realized losses for replacement
//     purchases inside the statutory window, disallowing the loss, and
//     deferring it into the replacement lot's basis with holding-period
//     carry-forward.
//   - Journal Management: recording normalized transactions in a canonical,
//     replayable JSONL form so that recomputation is deterministic.
//   - Import/Export: loading opening positions and transactions from CSV and
//     OFX statement downloads, and exporting lots and gains for reporting.
//
// This package serves as the foundational logic for the `cg` command-line
// tool, ensuring that all reported gains derive from a single replayable
// record.
package capgains
