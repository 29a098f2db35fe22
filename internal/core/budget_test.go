package core

import "testing"

func TestEvaluateBudget(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		limit     int64
		threshold float64
		want      BudgetStatus
	}{
		{"well under limit", 500, 1000, 80, BudgetSafe},
		{"just under threshold", 799, 1000, 80, BudgetSafe},
		{"exactly at threshold", 800, 1000, 80, BudgetWarning},
		{"between threshold and limit", 850, 1000, 80, BudgetWarning},
		{"exactly at limit", 1000, 1000, 80, BudgetDanger},
		{"over limit", 1500, 1000, 80, BudgetDanger},
		{"zero limit is danger", 0, 0, 80, BudgetDanger},
		{"zero limit with spending is danger", 500, 0, 80, BudgetDanger},
		{"negative spent is safe", -100, 1000, 80, BudgetSafe},
		{"negative limit yields negative percentage", 500, -1000, 80, BudgetSafe},
		{"low threshold", 100, 1000, 5, BudgetWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateBudget(tt.spent, tt.limit, tt.threshold)
			if got != tt.want {
				t.Errorf("EvaluateBudget(%d, %d, %v) = %s, want %s",
					tt.spent, tt.limit, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestEvaluateBudget_Idempotent(t *testing.T) {
	first := EvaluateBudget(850, 1000, 80)
	for i := 0; i < 100; i++ {
		if got := EvaluateBudget(850, 1000, 80); got != first {
			t.Fatalf("call %d: got %s, want %s", i, got, first)
		}
	}
}

func TestBudgetStatusLabel(t *testing.T) {
	cases := []struct {
		status BudgetStatus
		want   string
	}{
		{BudgetSafe, "within budget"},
		{BudgetWarning, "approaching limit"},
		{BudgetDanger, "over budget"},
		{BudgetStatus("weird"), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.status.Label(); got != tc.want {
			t.Errorf("Label(%q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestCategoryBudgetSnapshot(t *testing.T) {
	b := CategoryBudget{Category: "Groceries", Limit: Money{Cents: 100000}, WarningThreshold: 80}
	snap := b.Snapshot(2024, 3, Money{Cents: 85000})

	if snap.Status != BudgetWarning {
		t.Errorf("Status = %s, want %s", snap.Status, BudgetWarning)
	}
	if snap.Category != "Groceries" || snap.Year != 2024 || snap.Month != 3 {
		t.Errorf("unexpected snapshot identity: %+v", snap)
	}
	if snap.Spent.Cents != 85000 || snap.Limit.Cents != 100000 {
		t.Errorf("unexpected snapshot amounts: %+v", snap)
	}
}
