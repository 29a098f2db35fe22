package services

import (
	"context"
	"testing"
	"time"

	"soldi/internal/core"
)

type fakeRecurringStore struct {
	templates []core.RecurringTemplate
	executed  map[int64][2]core.Date // id -> {executed, nextDue}
	refreshed map[int64]core.Date
}

func newFakeRecurringStore(templates ...core.RecurringTemplate) *fakeRecurringStore {
	return &fakeRecurringStore{
		templates: templates,
		executed:  make(map[int64][2]core.Date),
		refreshed: make(map[int64]core.Date),
	}
}

func (f *fakeRecurringStore) ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	var active []core.RecurringTemplate
	for _, t := range f.templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (f *fakeRecurringStore) MarkExecuted(ctx context.Context, id int64, executed, nextDue core.Date) error {
	f.executed[id] = [2]core.Date{executed, nextDue}
	return nil
}

func (f *fakeRecurringStore) UpdateNextDue(ctx context.Context, id int64, nextDue core.Date) error {
	f.refreshed[id] = nextDue
	return nil
}

type fakeTransactionCreator struct {
	created []core.Transaction
	failOn  string
}

func (f *fakeTransactionCreator) CreateTransaction(ctx context.Context, t core.Transaction) (int64, *core.BudgetSnapshot, error) {
	if f.failOn != "" && t.Description == f.failOn {
		return 0, nil, context.DeadlineExceeded
	}
	f.created = append(f.created, t)
	return int64(len(f.created)), nil, nil
}

func intp(v int) *int { return &v }

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func template(id int64, rule core.RecurrenceRule, nextDue core.Date, active bool) core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:          id,
		Rule:        rule,
		NextDue:     nextDue,
		IsActive:    active,
		Description: "template",
		Amount:      core.Money{Cents: 1500},
		Kind:        core.Expense,
		Primary:     "Housing",
		Secondary:   "Rent",
	}
}

func TestProcessDueTemplates(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	today := core.DateOf(now)

	due := template(1, core.RecurrenceRule{Type: core.Daily}, mustDate(t, "2024-03-15"), true)
	overdue := template(2, core.RecurrenceRule{Type: core.Monthly, Day: intp(10)}, mustDate(t, "2024-03-10"), true)
	future := template(3, core.RecurrenceRule{Type: core.Daily}, mustDate(t, "2024-03-16"), true)
	inactive := template(4, core.RecurrenceRule{Type: core.Daily}, mustDate(t, "2024-03-01"), false)

	store := newFakeRecurringStore(due, overdue, future, inactive)
	creator := &fakeTransactionCreator{}
	processor := NewRecurringProcessor(store, creator)

	count, err := processor.ProcessDueTemplates(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueTemplates: %v", err)
	}
	if count != 2 {
		t.Fatalf("processed = %d, want 2", count)
	}
	if len(creator.created) != 2 {
		t.Fatalf("created %d transactions, want 2", len(creator.created))
	}
	for _, tx := range creator.created {
		if tx.Date.ISO() != today.ISO() {
			t.Errorf("transaction dated %s, want %s", tx.Date.ISO(), today.ISO())
		}
	}

	// Executions stamp today and recompute the cache from today.
	got, ok := store.executed[1]
	if !ok {
		t.Fatalf("template 1 not stamped")
	}
	if got[0].ISO() != "2024-03-15" || got[1].ISO() != "2024-03-16" {
		t.Errorf("daily stamp = (%s, %s), want (2024-03-15, 2024-03-16)", got[0].ISO(), got[1].ISO())
	}

	got, ok = store.executed[2]
	if !ok {
		t.Fatalf("template 2 not stamped")
	}
	if got[1].ISO() != "2024-04-10" {
		t.Errorf("monthly next due = %s, want 2024-04-10", got[1].ISO())
	}

	if _, ok := store.executed[3]; ok {
		t.Errorf("future template should not execute")
	}
	if _, ok := store.executed[4]; ok {
		t.Errorf("inactive template should not execute")
	}
}

func TestProcessDueTemplates_SeedsMissingCache(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	missing := template(7, core.RecurrenceRule{Type: core.Weekly, Day: intp(0)}, core.Date{}, true)
	store := newFakeRecurringStore(missing)
	creator := &fakeTransactionCreator{}
	processor := NewRecurringProcessor(store, creator)

	count, err := processor.ProcessDueTemplates(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueTemplates: %v", err)
	}
	if count != 0 {
		t.Fatalf("processed = %d, want 0 (seeding run)", count)
	}
	// 2024-03-15 is a Friday; next Sunday is the 17th.
	if got := store.refreshed[7]; got.ISO() != "2024-03-17" {
		t.Errorf("seeded next due = %s, want 2024-03-17", got.ISO())
	}
	if len(creator.created) != 0 {
		t.Errorf("seeding run must not create transactions")
	}
}

func TestProcessDueTemplates_CreateFailureDoesNotStamp(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	failing := template(9, core.RecurrenceRule{Type: core.Daily}, mustDate(t, "2024-03-15"), true)
	failing.Description = "boom"

	store := newFakeRecurringStore(failing)
	creator := &fakeTransactionCreator{failOn: "boom"}
	processor := NewRecurringProcessor(store, creator)

	count, err := processor.ProcessDueTemplates(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueTemplates: %v", err)
	}
	if count != 0 {
		t.Fatalf("processed = %d, want 0", count)
	}
	if _, ok := store.executed[9]; ok {
		t.Errorf("failed creation must not stamp execution")
	}
}

func TestRefreshDueDates(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	// Cache matches the rule: untouched.
	fresh := template(1, core.RecurrenceRule{Type: core.Monthly, Day: intp(10)}, mustDate(t, "2024-04-10"), true)
	fresh.LastExecuted = mustDate(t, "2024-03-10")

	// Rule changed to day 20 after the cache was written: recomputed.
	stale := template(2, core.RecurrenceRule{Type: core.Monthly, Day: intp(20)}, mustDate(t, "2024-04-10"), true)
	stale.LastExecuted = mustDate(t, "2024-03-10")

	// Never executed with an existing cache: left alone so it can fire.
	pending := template(3, core.RecurrenceRule{Type: core.Daily}, mustDate(t, "2024-03-14"), true)

	store := newFakeRecurringStore(fresh, stale, pending)
	processor := NewRecurringProcessor(store, &fakeTransactionCreator{})

	refreshed, err := processor.RefreshDueDates(context.Background(), now)
	if err != nil {
		t.Fatalf("RefreshDueDates: %v", err)
	}
	if refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", refreshed)
	}
	if got := store.refreshed[2]; got.ISO() != "2024-04-20" {
		t.Errorf("stale cache refreshed to %s, want 2024-04-20", got.ISO())
	}
	if _, ok := store.refreshed[1]; ok {
		t.Errorf("fresh cache must not be rewritten")
	}
	if _, ok := store.refreshed[3]; ok {
		t.Errorf("pending cache must not be pushed into the future")
	}
}

func TestProcessDueTemplates_NotInitialized(t *testing.T) {
	p := NewRecurringProcessor(nil, nil)
	if _, err := p.ProcessDueTemplates(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error for uninitialized processor")
	}
}
