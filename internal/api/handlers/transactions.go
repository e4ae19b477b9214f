package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/api/middleware"
	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/store"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// TransactionsHandler handles the transaction list endpoints.
type TransactionsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(s *store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: s, log: log}
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

type createTransactionRequest struct {
	Type     taxonomy.TransactionType `json:"type"`
	Amount   decimal.Decimal          `json:"amount"`
	Merchant string                   `json:"merchant"`
	Category taxonomy.Category        `json:"category"`
	Date     string                   `json:"date"`
	Note     string                   `json:"note"`
}

// Create handles POST /api/transactions. The id is assigned here, at
// creation time; an omitted date defaults to today.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Date == "" {
		req.Date = time.Now().Format(domain.DateLayout)
	}

	tx := domain.Transaction{
		ID:       uuid.NewString(),
		Type:     req.Type,
		Amount:   req.Amount,
		Merchant: req.Merchant,
		Category: req.Category,
		Date:     req.Date,
		Note:     req.Note,
	}

	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Append(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to save transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Update handles PUT /api/transactions/{id}: a correction replaces the
// whole record.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx := domain.Transaction{
		ID:       id,
		Type:     req.Type,
		Amount:   req.Amount,
		Merchant: req.Merchant,
		Category: req.Category,
		Date:     req.Date,
		Note:     req.Note,
	}

	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Replace(r.Context(), tx); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to replace transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to replace transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
