package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/autoledger/internal/api/middleware"
	"github.com/dvloznov/autoledger/internal/report"
	"github.com/dvloznov/autoledger/internal/store"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// ReportsHandler handles summary, stats and taxonomy endpoints.
type ReportsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(s *store.Store, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{store: s, log: log}
}

type summaryGroup struct {
	report.PeriodGroup
	IncomeShare  float64 `json:"incomeShare"`
	ExpenseShare float64 `json:"expenseShare"`
}

// Summary handles GET /api/summary?period=day|month|year.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	period := report.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = report.PeriodDay
	}
	if !period.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "period must be day, month or year")
		return
	}

	txs, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	groups := report.Aggregate(txs, period)
	out := make([]summaryGroup, 0, len(groups))
	for _, g := range groups {
		income, expense := g.Shares()
		out = append(out, summaryGroup{PeriodGroup: g, IncomeShare: income, ExpenseShare: expense})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period": period,
		"groups": out,
		"count":  len(out),
	})
}

// Stats handles GET /api/stats: dashboard totals and the expense category
// breakdown.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	txs, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build stats")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"totals":     report.Totals(txs),
		"byCategory": report.CategoryBreakdown(txs),
	})
}

// Categories handles GET /api/categories.
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expense": taxonomy.CategoriesFor(taxonomy.Expense),
		"income":  taxonomy.CategoriesFor(taxonomy.Income),
	})
}
