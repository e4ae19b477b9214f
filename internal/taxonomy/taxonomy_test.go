package taxonomy

import "testing"

func TestCategoriesFor(t *testing.T) {
	expense := CategoriesFor(Expense)
	if len(expense) != 8 {
		t.Fatalf("expected 8 expense categories, got %d", len(expense))
	}
	income := CategoriesFor(Income)
	if len(income) != 4 {
		t.Fatalf("expected 4 income categories, got %d", len(income))
	}
	if expense[0] != Food {
		t.Errorf("expected first expense category %q, got %q", Food, expense[0])
	}
	if income[0] != Salary {
		t.Errorf("expected first income category %q, got %q", Salary, income[0])
	}
}

func TestCategoriesForReturnsCopy(t *testing.T) {
	a := CategoriesFor(Expense)
	a[0] = "tampered"
	b := CategoriesFor(Expense)
	if b[0] != Food {
		t.Fatalf("taxonomy mutated through returned slice: %q", b[0])
	}
}

func TestPartitionsDisjoint(t *testing.T) {
	for _, c := range CategoriesFor(Expense) {
		if IsValidFor(c, Income) {
			t.Errorf("category %q valid for both partitions", c)
		}
	}
	for _, c := range CategoriesFor(Income) {
		if IsValidFor(c, Expense) {
			t.Errorf("category %q valid for both partitions", c)
		}
	}
}

func TestDefaultCategory(t *testing.T) {
	if got := DefaultCategory(Expense); got != ExpenseOther {
		t.Errorf("DefaultCategory(Expense) = %q, want %q", got, ExpenseOther)
	}
	if got := DefaultCategory(Income); got != IncomeOther {
		t.Errorf("DefaultCategory(Income) = %q, want %q", got, IncomeOther)
	}
	if !IsValidFor(DefaultCategory(Expense), Expense) {
		t.Error("expense default not in expense partition")
	}
	if !IsValidFor(DefaultCategory(Income), Income) {
		t.Error("income default not in income partition")
	}
}

func TestIsValidFor(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		txType   TransactionType
		want     bool
	}{
		{"food is expense", Food, Expense, true},
		{"food is not income", Food, Income, false},
		{"salary is income", Salary, Income, true},
		{"salary is not expense", Salary, Expense, false},
		{"free text is nowhere", Category("停车费"), Expense, false},
		{"empty is nowhere", Category(""), Income, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidFor(tt.category, tt.txType); got != tt.want {
				t.Errorf("IsValidFor(%q, %q) = %v, want %v", tt.category, tt.txType, got, tt.want)
			}
		})
	}
}
