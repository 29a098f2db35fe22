package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"soldi/internal/core"
)

// RecurringStore is the storage surface the recurring processor needs.
type RecurringStore interface {
	ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	MarkExecuted(ctx context.Context, id int64, executed, nextDue core.Date) error
	UpdateNextDue(ctx context.Context, id int64, nextDue core.Date) error
}

// TransactionCreator records transactions (and their budget side effects).
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, *core.BudgetSnapshot, error)
}

// RecurringProcessor turns due recurring templates into transactions.
type RecurringProcessor struct {
	storage      RecurringStore
	transactions TransactionCreator
}

func NewRecurringProcessor(storage RecurringStore, transactions TransactionCreator) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		transactions: transactions,
	}
}

// ProcessDueTemplates executes every active template whose next due date has
// arrived, dating the created transaction "now". After each execution the
// last-executed date is stamped and the next due date recomputed from it,
// keeping the cache consistent with the rule.
func (p *RecurringProcessor) ProcessDueTemplates(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	templates, err := p.storage.ListActiveTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", today.ISO())

	processed := 0

	for _, tpl := range templates {
		// Templates created before the due-date cache existed have no
		// next due date yet; seed it instead of executing immediately.
		if tpl.NextDue.IsZero() {
			next := core.NextDueDate(tpl.Rule, tpl.LastExecuted, today)
			if err := p.storage.UpdateNextDue(ctx, tpl.ID, next); err != nil {
				slog.ErrorContext(ctx, "Failed to seed next due date",
					"template_id", tpl.ID, "error", err)
			}
			continue
		}

		if !tpl.IsDue(today) {
			continue
		}

		tx := core.Transaction{
			Date:        today,
			Description: tpl.Description,
			Amount:      tpl.Amount,
			Kind:        tpl.Kind,
			Primary:     tpl.Primary,
			Secondary:   tpl.Secondary,
		}

		txID, snap, err := p.transactions.CreateTransaction(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from template",
				"template_id", tpl.ID,
				"description", tpl.Description,
				"error", err)
			continue
		}

		next := core.NextDueDate(tpl.Rule, today, today)
		if err := p.storage.MarkExecuted(ctx, tpl.ID, today, next); err != nil {
			slog.ErrorContext(ctx, "Failed to stamp template execution",
				"template_id", tpl.ID,
				"error", err)
			// Transaction already exists; the next run will see a stale
			// due date and may execute again. Surface loudly, keep going.
			continue
		}

		processed++
		slog.InfoContext(ctx, "Executed recurring template",
			"template_id", tpl.ID,
			"transaction_id", txID,
			"description", tpl.Description,
			"amount_cents", tpl.Amount.Cents,
			"frequency", tpl.Rule.Type,
			"next_due", next.ISO(),
			"budget_status", budgetStatusOf(snap))
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}

// RefreshDueDates seeds missing next-due-date caches without executing
// anything. Caches derived from a last execution are already deterministic
// and are left alone.
func (p *RecurringProcessor) RefreshDueDates(ctx context.Context, now time.Time) (int, error) {
	today := core.DateOf(now)
	templates, err := p.storage.ListActiveTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	refreshed := 0
	for _, tpl := range templates {
		expected := core.NextDueDate(tpl.Rule, tpl.LastExecuted, today)

		switch {
		case tpl.NextDue.IsZero():
			// missing cache
		case !tpl.LastExecuted.IsZero() && tpl.NextDue.ISO() != expected.ISO():
			// rule changed since the cache was written
		default:
			continue
		}

		if err := p.storage.UpdateNextDue(ctx, tpl.ID, expected); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh next due date",
				"template_id", tpl.ID, "error", err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		slog.InfoContext(ctx, "Refreshed due date caches", "refreshed", refreshed)
	}
	return refreshed, nil
}

func budgetStatusOf(snap *core.BudgetSnapshot) string {
	if snap == nil {
		return "none"
	}
	return string(snap.Status)
}
