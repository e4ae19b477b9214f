// Package store owns the authoritative transaction list. It hands out
// copies: callers get value slices, never views into shared state, and
// corrections replace whole records rather than mutating them.
//
// The list order is most-recent-first: new records are prepended, exactly
// the order a user sees in the app.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/taxonomy"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no transaction matches the given id.
var ErrNotFound = errors.New("store: transaction not found")

// Store is a SQLite-backed transaction store.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates the database file (and its directory) if needed, runs
// migrations and returns a ready store.
func Open(dbPath string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append adds a new transaction at the head of the list. The record must
// already be valid and carry its final id.
func (s *Store) Append(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount, merchant, category, date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tx.ID, string(tx.Type), tx.Amount.String(), tx.Merchant, string(tx.Category), tx.Date, tx.Note)
	if err != nil {
		return fmt.Errorf("append: insert: %w", err)
	}

	s.log.Info().
		Str("id", tx.ID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Str("merchant", tx.Merchant).
		Msg("Transaction saved")

	return nil
}

// List returns all transactions, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, merchant, category, date, note
		FROM transactions
		ORDER BY position DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list: query: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}
	return txs, nil
}

// Get returns the transaction with the given id.
func (s *Store) Get(ctx context.Context, id string) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount, merchant, category, date, note
		FROM transactions
		WHERE id = ?
	`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get: %w", err)
	}
	return tx, nil
}

// Replace swaps the stored record for tx.ID with the given one, keeping its
// position in the list. Corrections are modeled this way; records are never
// mutated in place by callers.
func (s *Store) Replace(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("replace: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount = ?, merchant = ?, category = ?, date = ?, note = ?
		WHERE id = ?
	`, string(tx.Type), tx.Amount.String(), tx.Merchant, string(tx.Category), tx.Date, tx.Note, tx.ID)
	if err != nil {
		return fmt.Errorf("replace: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the transaction with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear wipes the whole list.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.log.Info().Msg("Transaction list cleared")
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		tx        domain.Transaction
		typeStr   string
		amountStr string
		catStr    string
	)
	if err := row.Scan(&tx.ID, &typeStr, &amountStr, &tx.Merchant, &catStr, &tx.Date, &tx.Note); err != nil {
		return domain.Transaction{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("corrupt amount %q: %w", amountStr, err)
	}
	tx.Type = taxonomy.TransactionType(typeStr)
	tx.Amount = amount
	tx.Category = taxonomy.Category(catStr)
	return tx, nil
}
