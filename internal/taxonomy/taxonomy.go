// Package taxonomy defines the closed set of transaction categories.
//
// The set is split into two disjoint partitions, one per transaction type.
// Category labels are the user-facing Chinese strings; they are also the
// serialized form, so renaming a constant is a data migration.
package taxonomy

// TransactionType distinguishes money going out from money coming in.
type TransactionType string

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

// Valid reports whether t is one of the two known transaction types.
func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

// Category is one member of the closed taxonomy.
type Category string

const (
	Food          Category = "餐饮美食"
	Shopping      Category = "购物消费"
	Transport     Category = "交通出行"
	Bills         Category = "生活缴费"
	Entertainment Category = "休闲娱乐"
	Health        Category = "医疗健康"
	Education     Category = "学习教育"
	ExpenseOther  Category = "其他支出"

	Salary     Category = "工资薪金"
	Investment Category = "投资理财"
	Bonus      Category = "奖金补贴"
	IncomeOther Category = "其他入账"
)

var expenseCategories = []Category{
	Food, Shopping, Transport, Bills,
	Entertainment, Health, Education, ExpenseOther,
}

var incomeCategories = []Category{
	Salary, Investment, Bonus, IncomeOther,
}

// CategoriesFor returns the fixed, ordered category list for the given type.
// The returned slice is a copy; callers may not mutate the taxonomy.
func CategoriesFor(t TransactionType) []Category {
	var src []Category
	switch t {
	case Income:
		src = incomeCategories
	default:
		src = expenseCategories
	}
	out := make([]Category, len(src))
	copy(out, src)
	return out
}

// DefaultCategory returns the fallback used when reconciliation of a
// free-text category fails: the "other" member of the matching partition.
func DefaultCategory(t TransactionType) Category {
	if t == Income {
		return IncomeOther
	}
	return ExpenseOther
}

// IsValidFor reports whether c belongs to the partition for t.
func IsValidFor(c Category, t TransactionType) bool {
	if t == Income {
		return incomeSet[c]
	}
	return expenseSet[c]
}

var (
	expenseSet = toSet(expenseCategories)
	incomeSet  = toSet(incomeCategories)
)

func toSet(cats []Category) map[Category]bool {
	m := make(map[Category]bool, len(cats))
	for _, c := range cats {
		m[c] = true
	}
	return m
}
