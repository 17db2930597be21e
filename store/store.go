// Package store persists the transaction journal, the registry and the
// computed lot and gain snapshots in a SQLite database.
//
// The journal is the source of truth: lots and gains are snapshots of the
// last computation, replaced wholesale on every recalculation so the database
// can be queried with plain SQL without ever becoming authoritative.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ledgertools/capgains"
)

// Store is a SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// initSchema creates all required tables and indexes.
func (s *Store) initSchema() error {
	schema := `
	-- Accounts declared by statements or interchange files
	CREATE TABLE IF NOT EXISTS accounts (
		brokerid TEXT NOT NULL,
		acctid TEXT NOT NULL,
		PRIMARY KEY (brokerid, acctid)
	);

	-- Securities keyed by their standardized identity
	CREATE TABLE IF NOT EXISTS securities (
		uniqueidtype TEXT NOT NULL,
		uniqueid TEXT NOT NULL,
		ticker TEXT,
		secname TEXT,
		PRIMARY KEY (uniqueidtype, uniqueid)
	);

	-- The normalized transaction journal, one JSON payload per row
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date, seq);

	-- Snapshot of open lots from the last computation
	CREATE TABLE IF NOT EXISTS lots (
		id TEXT PRIMARY KEY,
		brokerid TEXT NOT NULL,
		acctid TEXT NOT NULL,
		uniqueidtype TEXT NOT NULL,
		uniqueid TEXT NOT NULL,
		dtopen TEXT NOT NULL,
		dtoriginal TEXT NOT NULL,
		units TEXT NOT NULL,
		cost TEXT NOT NULL,
		washcost TEXT NOT NULL,
		currency TEXT NOT NULL
	);

	-- Snapshot of realized gains from the last computation
	CREATE TABLE IF NOT EXISTS gains (
		ord INTEGER PRIMARY KEY,
		brokerid TEXT NOT NULL,
		acctid TEXT NOT NULL,
		uniqueidtype TEXT NOT NULL,
		uniqueid TEXT NOT NULL,
		lotid TEXT NOT NULL,
		dtopen TEXT NOT NULL,
		dtsell TEXT NOT NULL,
		units TEXT NOT NULL,
		proceeds TEXT NOT NULL,
		cost TEXT NOT NULL,
		realized TEXT NOT NULL,
		disallowed TEXT NOT NULL,
		washsale INTEGER NOT NULL DEFAULT 0,
		term TEXT NOT NULL,
		currency TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SaveRegistry upserts every account and security of the registry.
func (s *Store) SaveRegistry(ctx context.Context, registry *capgains.Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for acct := range registry.AllAccounts() {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO accounts (brokerid, acctid) VALUES (?, ?)
		`, acct.BrokerID, acct.AcctID); err != nil {
			return fmt.Errorf("failed to save account %s: %w", acct, err)
		}
	}
	for sec := range registry.AllSecurities() {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO securities (uniqueidtype, uniqueid, ticker, secname) VALUES (?, ?, ?, ?)
		`, sec.ID().Type, sec.ID().Value, sec.Ticker(), sec.Name()); err != nil {
			return fmt.Errorf("failed to save security %s: %w", sec.ID(), err)
		}
	}
	return tx.Commit()
}

// LoadRegistry reads every stored account and security.
func (s *Store) LoadRegistry(ctx context.Context) (*capgains.Registry, error) {
	registry := capgains.NewRegistry()

	rows, err := s.db.QueryContext(ctx, `SELECT brokerid, acctid FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var acct capgains.AccountID
		if err := rows.Scan(&acct.BrokerID, &acct.AcctID); err != nil {
			return nil, err
		}
		if _, err := registry.DeclareAccount(acct); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	secRows, err := s.db.QueryContext(ctx, `SELECT uniqueidtype, uniqueid, ticker, secname FROM securities`)
	if err != nil {
		return nil, fmt.Errorf("failed to load securities: %w", err)
	}
	defer secRows.Close()
	for secRows.Next() {
		var id capgains.SecurityID
		var ticker, name string
		if err := secRows.Scan(&id.Type, &id.Value, &ticker, &name); err != nil {
			return nil, err
		}
		if _, err := registry.Declare(id, ticker, name); err != nil {
			return nil, err
		}
	}
	return registry, secRows.Err()
}

// AppendTransactions persists journal transactions, keyed by their sequence
// number. Re-inserting an existing sequence is an error: the journal is
// append-only.
func (s *Store) AppendTransactions(ctx context.Context, txs []capgains.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, tx := range txs {
		payload, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction seq %d: %w", tx.Seq(), err)
		}
		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (seq, date, type, payload) VALUES (?, ?, ?, ?)
		`, tx.Seq(), tx.When().String(), string(tx.What()), string(payload)); err != nil {
			return fmt.Errorf("failed to save transaction seq %d: %w", tx.Seq(), err)
		}
	}
	return dbTx.Commit()
}

// LoadJournal reads the whole journal back in replay order.
func (s *Store) LoadJournal(ctx context.Context) (*capgains.Journal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM transactions ORDER BY date, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		buf.WriteString(payload)
		buf.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return capgains.DecodeJournal(&buf)
}

// ReplaceResults atomically swaps the computed lot and gain snapshots.
func (s *Store) ReplaceResults(ctx context.Context, lots []capgains.Lot, gains []capgains.Gain) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lots`); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM gains`); err != nil {
		return fmt.Errorf("failed to clear gains: %w", err)
	}

	for _, lot := range lots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lots (id, brokerid, acctid, uniqueidtype, uniqueid, dtopen, dtoriginal, units, cost, washcost, currency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, lot.ID, lot.Account.BrokerID, lot.Account.AcctID,
			lot.Security.Type, lot.Security.Value,
			lot.OpenDate.String(), lot.OriginalOpenDate.String(),
			lot.Units.Decimal().String(), lot.Cost.Decimal().String(),
			lot.WashDeferred.Decimal().String(), lot.Cost.Currency()); err != nil {
			return fmt.Errorf("failed to save lot %s: %w", lot.ID, err)
		}
	}

	for i, gn := range gains {
		washed := 0
		if gn.WashSaleDisallowed {
			washed = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO gains (ord, brokerid, acctid, uniqueidtype, uniqueid, lotid, dtopen, dtsell, units, proceeds, cost, realized, disallowed, washsale, term, currency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, i, gn.Account.BrokerID, gn.Account.AcctID,
			gn.Security.Type, gn.Security.Value,
			gn.LotID, gn.LotOpenDate.String(), gn.SaleDate.String(),
			gn.Units.Decimal().String(), gn.Proceeds.Decimal().String(),
			gn.Basis.Decimal().String(), gn.Realized.Decimal().String(),
			gn.Disallowed.Decimal().String(), washed,
			gn.Term.String(), gn.Proceeds.Currency()); err != nil {
			return fmt.Errorf("failed to save gain %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadLots reads the last computed lot snapshot, for reporting only.
func (s *Store) LoadLots(ctx context.Context) ([]capgains.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, brokerid, acctid, uniqueidtype, uniqueid, dtopen, dtoriginal, units, cost, washcost, currency
		FROM lots ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	defer rows.Close()

	var out []capgains.Lot
	for rows.Next() {
		var lot capgains.Lot
		var dtOpen, dtOriginal, units, cost, washCost, currency string
		if err := rows.Scan(&lot.ID, &lot.Account.BrokerID, &lot.Account.AcctID,
			&lot.Security.Type, &lot.Security.Value,
			&dtOpen, &dtOriginal, &units, &cost, &washCost, &currency); err != nil {
			return nil, err
		}
		if lot.OpenDate, err = capgains.ParseDate(dtOpen); err != nil {
			return nil, err
		}
		if lot.OriginalOpenDate, err = capgains.ParseDate(dtOriginal); err != nil {
			return nil, err
		}
		u, err := decimal.NewFromString(units)
		if err != nil {
			return nil, fmt.Errorf("bad units for lot %s: %w", lot.ID, err)
		}
		c, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("bad cost for lot %s: %w", lot.ID, err)
		}
		wc, err := decimal.NewFromString(washCost)
		if err != nil {
			return nil, fmt.Errorf("bad wash cost for lot %s: %w", lot.ID, err)
		}
		lot.Units = capgains.Q(u)
		lot.Cost = capgains.M(c, currency)
		lot.WashDeferred = capgains.M(wc, currency)
		out = append(out, lot)
	}
	return out, rows.Err()
}
