// Package report derives grouped spending summaries from the transaction
// list. Everything here is pure: it never mutates its input and recomputes
// from scratch on every call.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// Period is the grouping granularity.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodMonth || p == PeriodYear
}

// UnknownTitle labels the bucket that collects transactions whose date
// cannot be parsed. Its key is the empty string, which sorts after every
// real period key in descending order.
const UnknownTitle = "未知日期"

// PeriodGroup is one bucket of the summary. Transactions keep the order in
// which they appeared in the input.
type PeriodGroup struct {
	Key          string               `json:"key"`
	Title        string               `json:"title"`
	TotalIncome  decimal.Decimal      `json:"totalIncome"`
	TotalExpense decimal.Decimal      `json:"totalExpense"`
	Transactions []domain.Transaction `json:"transactions"`
}

// shareEpsilon guards the ratio-bar division when a group has no amounts at
// all.
const shareEpsilon = 0.001

// Shares returns the income and expense fractions of the group's combined
// volume, for rendering a ratio bar. They need not sum to 1 when both totals
// are zero.
func (g PeriodGroup) Shares() (income, expense float64) {
	total := g.TotalIncome.InexactFloat64() + g.TotalExpense.InexactFloat64() + shareEpsilon
	return g.TotalIncome.InexactFloat64() / total, g.TotalExpense.InexactFloat64() / total
}

// Aggregate buckets transactions by period and returns the groups newest
// first. Every input transaction lands in exactly one group; a transaction
// whose date does not parse goes into the unknown bucket, which is ordered
// last.
func Aggregate(txs []domain.Transaction, period Period) []PeriodGroup {
	groups := make(map[string]*PeriodGroup)
	keys := make([]string, 0)

	for _, tx := range txs {
		key, title := bucketFor(tx.Date, period)

		g, ok := groups[key]
		if !ok {
			g = &PeriodGroup{
				Key:          key,
				Title:        title,
				TotalIncome:  decimal.Zero,
				TotalExpense: decimal.Zero,
			}
			groups[key] = g
			keys = append(keys, key)
		}

		if tx.Type == taxonomy.Income {
			g.TotalIncome = g.TotalIncome.Add(tx.Amount)
		} else {
			g.TotalExpense = g.TotalExpense.Add(tx.Amount)
		}
		g.Transactions = append(g.Transactions, tx)
	}

	// Newest period first. Keys are fixed-width (YYYY-MM-DD / YYYY-MM /
	// YYYY), so lexicographic descending order is chronological descending
	// order; the empty unknown key lands at the end.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]PeriodGroup, 0, len(keys))
	for _, key := range keys {
		out = append(out, *groups[key])
	}
	return out
}

// bucketFor derives the grouping key and display title for one date string.
func bucketFor(date string, period Period) (key, title string) {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return "", UnknownTitle
	}

	switch period {
	case PeriodMonth:
		// Zero-padded month so string order stays chronological across the
		// September/October boundary.
		return d.Format("2006-01"), fmt.Sprintf("%d年%d月", d.Year(), int(d.Month()))
	case PeriodYear:
		return d.Format("2006"), fmt.Sprintf("%d年", d.Year())
	default:
		return date, fmt.Sprintf("%d月%d日 %s", int(d.Month()), d.Day(), weekdayNames[d.Weekday()])
	}
}

var weekdayNames = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}
