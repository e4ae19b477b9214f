// Package domain holds the canonical transaction record shared by the
// store, the aggregation engine and the API layer.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// DateLayout is the calendar-date form used everywhere: YYYY-MM-DD.
const DateLayout = "2006-01-02"

func init() {
	// Backups keep amounts as JSON numbers, matching the format the app has
	// always exported and imported.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction is one validated ledger entry. Records are never mutated in
// place; a correction replaces the whole record in the store under the same
// id.
type Transaction struct {
	ID       string                   `json:"id"`
	Type     taxonomy.TransactionType `json:"type"`
	Amount   decimal.Decimal          `json:"amount"`
	Merchant string                   `json:"merchant"`
	Category taxonomy.Category        `json:"category"`
	Date     string                   `json:"date"`
	Note     string                   `json:"note,omitempty"`
}

var (
	ErrEmptyID         = errors.New("transaction id is empty")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrEmptyMerchant   = errors.New("merchant is empty")
	ErrInvalidCategory = errors.New("category does not belong to the transaction type")
	ErrInvalidDate     = errors.New("date is not a valid YYYY-MM-DD calendar date")
)

// Validate returns the first invariant violation found, or nil.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if !taxonomy.IsValidFor(t.Category, t.Type) {
		return ErrInvalidCategory
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}
