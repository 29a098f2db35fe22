package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"soldi/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		Date:        core.NewDate(2024, 3, 15),
		Description: "weekly shop",
		Amount:      core.Money{Cents: 4250},
		Kind:        core.Expense,
		Primary:     "Groceries",
		Secondary:   "Food",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	list, err := repo.ListTransactions(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 1 || list[0].Description != "weekly shop" || list[0].Date.ISO() != "2024-03-15" {
		t.Fatalf("list = %+v", list)
	}

	// Other months stay empty.
	if other, _ := repo.ListTransactions(ctx, 2024, 4); len(other) != 0 {
		t.Fatalf("april list = %+v; want empty", other)
	}

	version, err := repo.SoftDeleteTransaction(ctx, id)
	if err != nil {
		t.Fatalf("SoftDeleteTransaction: %v", err)
	}
	if version != 2 {
		t.Errorf("version after delete = %d; want 2", version)
	}
	if list, _ := repo.ListTransactions(ctx, 2024, 3); len(list) != 0 {
		t.Fatal("soft-deleted transaction still listed")
	}

	// Second delete reports the row as gone.
	if _, err := repo.SoftDeleteTransaction(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete = %v; want sql.ErrNoRows", err)
	}
}

func TestSpentForCategoryCountsOnlyExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{Date: core.NewDate(2024, 3, 1), Description: "rent", Amount: core.Money{Cents: 90000}, Kind: core.Expense, Primary: "Housing", Secondary: "Rent"},
		{Date: core.NewDate(2024, 3, 10), Description: "repairs", Amount: core.Money{Cents: 15000}, Kind: core.Expense, Primary: "Housing", Secondary: "Maintenance"},
		{Date: core.NewDate(2024, 3, 12), Description: "groceries", Amount: core.Money{Cents: 8000}, Kind: core.Expense, Primary: "Groceries", Secondary: "Food"},
		{Date: core.NewDate(2024, 3, 25), Description: "salary", Amount: core.Money{Cents: 250000}, Kind: core.Income, Primary: "Income", Secondary: "Salary"},
		{Date: core.NewDate(2024, 4, 1), Description: "rent", Amount: core.Money{Cents: 90000}, Kind: core.Expense, Primary: "Housing", Secondary: "Rent"},
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	spent, err := repo.SpentForCategory(ctx, "Housing", 2024, 3)
	if err != nil {
		t.Fatalf("SpentForCategory: %v", err)
	}
	if spent != 105000 {
		t.Errorf("Housing march spend = %d; want 105000", spent)
	}

	if spent, _ := repo.SpentForCategory(ctx, "Nothing", 2024, 3); spent != 0 {
		t.Errorf("unknown category spend = %d; want 0", spent)
	}

	ov, err := repo.MonthOverview(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("MonthOverview: %v", err)
	}
	if ov.Total.Cents != 113000 {
		t.Errorf("march total = %d; want 113000 (income excluded)", ov.Total.Cents)
	}
	if len(ov.ByCategory) != 2 || ov.ByCategory[0].Name != "Housing" {
		t.Errorf("by category = %+v; want Housing first", ov.ByCategory)
	}
}

func TestDecemberMonthRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 12, 31), Description: "new year's eve",
		Amount: core.Money{Cents: 5000}, Kind: core.Expense, Primary: "Leisure", Secondary: "Bar",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := repo.ListTransactions(ctx, 2024, 12)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("december list = %+v; want one row", list)
	}
	if jan, _ := repo.ListTransactions(ctx, 2025, 1); len(jan) != 0 {
		t.Fatalf("january list = %+v; want empty", jan)
	}
}

func TestBudgetCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateBudget(ctx, core.CategoryBudget{
		Category:         "Groceries",
		Limit:            core.Money{Cents: 100000},
		WarningThreshold: 80,
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	b, err := repo.GetBudgetByCategory(ctx, "Groceries")
	if err != nil {
		t.Fatalf("GetBudgetByCategory: %v", err)
	}
	if b.ID != id || b.Limit.Cents != 100000 {
		t.Fatalf("budget = %+v", b)
	}

	if _, err := repo.GetBudgetByCategory(ctx, "Missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing budget err = %v; want sql.ErrNoRows", err)
	}

	b.Limit.Cents = 120000
	if err := repo.UpdateBudget(ctx, *b); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	updated, _ := repo.GetBudgetByCategory(ctx, "Groceries")
	if updated.Limit.Cents != 120000 {
		t.Errorf("updated limit = %d; want 120000", updated.Limit.Cents)
	}

	budgets, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("budgets = %+v", budgets)
	}

	if err := repo.DeleteBudget(ctx, id); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := repo.DeleteBudget(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete = %v; want sql.ErrNoRows", err)
	}
}

func TestRecurringTemplateLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := 5

	id, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
		Rule:        core.RecurrenceRule{Type: core.Monthly, Day: &day},
		NextDue:     core.NewDate(2024, 4, 5),
		IsActive:    true,
		Description: "rent",
		Amount:      core.Money{Cents: 90000},
		Kind:        core.Expense,
		Primary:     "Housing",
		Secondary:   "Rent",
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	tpl, err := repo.GetTemplate(ctx, id)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if tpl.Rule.Type != core.Monthly || tpl.Rule.Day == nil || *tpl.Rule.Day != 5 {
		t.Fatalf("rule = %+v", tpl.Rule)
	}
	if !tpl.LastExecuted.IsZero() {
		t.Errorf("last executed = %v; want zero", tpl.LastExecuted)
	}
	if tpl.NextDue.ISO() != "2024-04-05" {
		t.Errorf("next due = %q; want 2024-04-05", tpl.NextDue.ISO())
	}

	if err := repo.MarkExecuted(ctx, id, core.NewDate(2024, 4, 5), core.NewDate(2024, 5, 5)); err != nil {
		t.Fatalf("MarkExecuted: %v", err)
	}
	tpl, _ = repo.GetTemplate(ctx, id)
	if tpl.LastExecuted.ISO() != "2024-04-05" || tpl.NextDue.ISO() != "2024-05-05" {
		t.Errorf("after execution: last=%v next=%v", tpl.LastExecuted.ISO(), tpl.NextDue.ISO())
	}

	tpl.IsActive = false
	if err := repo.UpdateTemplate(ctx, *tpl); err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if active, _ := repo.ListActiveTemplates(ctx); len(active) != 0 {
		t.Fatalf("active templates = %+v; want empty", active)
	}
	if all, _ := repo.ListTemplates(ctx); len(all) != 1 {
		t.Fatalf("all templates = %+v; want one", all)
	}

	if err := repo.DeleteTemplate(ctx, id); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if _, err := repo.GetTemplate(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("get deleted = %v; want sql.ErrNoRows", err)
	}
}

func TestNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n := core.Notification{
		ID:        "0b7e4a60-0000-4000-8000-000000000001",
		Kind:      "budget_warning",
		Category:  "Groceries",
		Message:   "Groceries is near its limit",
		CreatedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.InsertNotification(ctx, n); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	unread, err := repo.ListNotifications(ctx, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(unread) != 1 || unread[0].Kind != "budget_warning" || unread[0].Read {
		t.Fatalf("unread = %+v", unread)
	}

	if err := repo.MarkNotificationRead(ctx, n.ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if unread, _ := repo.ListNotifications(ctx, true); len(unread) != 0 {
		t.Fatalf("unread after read = %+v; want empty", unread)
	}
	if all, _ := repo.ListNotifications(ctx, false); len(all) != 1 || !all[0].Read {
		t.Fatalf("all = %+v", all)
	}

	if err := repo.MarkNotificationRead(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing notification = %v; want sql.ErrNoRows", err)
	}
}

func TestSeededCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	primaries, secondaries, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(primaries) == 0 || len(secondaries) == 0 {
		t.Fatalf("categories empty: primaries=%v secondaries=%v", primaries, secondaries)
	}

	subs, err := repo.SecondariesByPrimary(ctx, "Housing")
	if err != nil {
		t.Fatalf("SecondariesByPrimary: %v", err)
	}
	if len(subs) == 0 {
		t.Fatal("expected seeded secondaries under Housing")
	}
}
