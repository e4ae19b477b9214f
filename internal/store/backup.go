package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dvloznov/autoledger/internal/domain"
)

// ExportJSON writes the full transaction list as a JSON array, most recent
// first. The output is the backup format: importing it reproduces the list
// exactly.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	txs, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

// ImportJSON replaces the whole list with the transactions in r, which must
// be a JSON array in export order (most recent first). Every record is
// validated before anything is written; on any error the existing list is
// left untouched.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var txs []domain.Transaction
	if err := json.NewDecoder(r).Decode(&txs); err != nil {
		return 0, fmt.Errorf("import: decode: %w", err)
	}

	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return 0, fmt.Errorf("import: record %d (%s): %w", i, tx.ID, err)
		}
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import: begin: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return 0, fmt.Errorf("import: clear: %w", err)
	}

	// The array is newest first; inserting back to front restores original
	// positions so List returns the same order.
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (id, type, amount, merchant, category, date, note)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, tx.ID, string(tx.Type), tx.Amount.String(), tx.Merchant, string(tx.Category), tx.Date, tx.Note)
		if err != nil {
			return 0, fmt.Errorf("import: insert %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("import: commit: %w", err)
	}

	s.log.Info().Int("count", len(txs)).Msg("Transaction list imported")
	return len(txs), nil
}
