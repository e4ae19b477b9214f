package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// Summary is the all-time headline figure set for the dashboard.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// Totals sums the whole transaction list into income, expense and net
// balance.
func Totals(txs []domain.Transaction) Summary {
	s := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, tx := range txs {
		if tx.Type == taxonomy.Income {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		} else {
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// CategoryAmount is one slice of the category pie chart.
type CategoryAmount struct {
	Category taxonomy.Category `json:"category"`
	Amount   decimal.Decimal   `json:"amount"`
}

// CategoryBreakdown sums expense transactions per category, largest first.
// Income transactions are skipped; the chart only shows spending.
func CategoryBreakdown(txs []domain.Transaction) []CategoryAmount {
	sums := make(map[taxonomy.Category]decimal.Decimal)
	order := make([]taxonomy.Category, 0)

	for _, tx := range txs {
		if tx.Type != taxonomy.Expense {
			continue
		}
		if _, ok := sums[tx.Category]; !ok {
			order = append(order, tx.Category)
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}

	out := make([]CategoryAmount, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryAmount{Category: c, Amount: sums[c]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
