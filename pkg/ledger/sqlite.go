package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on SQLite via database/sql. It is the durable
// single-node backend used in lite mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle and runs migrations.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLiteStore opens (or creates) the database file at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	// busy_timeout goes in the DSN so every pooled connection serializes on
	// write contention instead of surfacing SQLITE_BUSY to callers.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite %s: %w", path, err)
	}
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		account_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, accountID string, startingBalance int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (account_id, balance) VALUES (?, ?) ON CONFLICT (account_id) DO NOTHING",
		accountID, startingBalance)
	if err != nil {
		return fmt.Errorf("ledger: create account %s: %w", accountID, err)
	}
	return nil
}

func (s *SQLiteStore) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE account_id = ?", accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance %s: %w", accountID, err)
	}
	return balance, nil
}

func (s *SQLiteStore) TopUp(ctx context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.increment(ctx, accountID, amount)
}

func (s *SQLiteStore) Refund(ctx context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.increment(ctx, accountID, amount)
}

func (s *SQLiteStore) increment(ctx context.Context, accountID string, amount int64) error {
	query := `
		INSERT INTO accounts (account_id, balance) VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET balance = balance + excluded.balance`
	if _, err := s.db.ExecContext(ctx, query, accountID, amount); err != nil {
		return fmt.Errorf("ledger: increment %s: %w", accountID, err)
	}
	return nil
}

func (s *SQLiteStore) ChargeIfAffordable(ctx context.Context, accountID string, cost int64) error {
	if err := validateAmount(cost); err != nil {
		return err
	}
	// The precondition and the decrement commit as one statement; SQLite
	// serializes conflicting writers so no two charges can both observe the
	// same pre-decrement balance.
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - ? WHERE account_id = ? AND balance >= ?",
		cost, accountID, cost)
	if err != nil {
		return fmt.Errorf("ledger: charge %s: %w", accountID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: charge %s: %w", accountID, err)
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
