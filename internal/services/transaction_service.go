// Package services provides business logic and orchestration on top of the
// storage and messaging layers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"soldi/internal/amqp"
	"soldi/internal/core"
)

// TransactionStore is the storage surface the transaction service needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	SoftDeleteTransaction(ctx context.Context, id int64) (int64, error)
	SpentForCategory(ctx context.Context, category string, year, month int) (int64, error)
	GetBudgetByCategory(ctx context.Context, category string) (*core.CategoryBudget, error)
	InsertNotification(ctx context.Context, n core.Notification) error
}

// EventPublisher publishes budget alerts and transaction change events to
// the message broker.
type EventPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
	PublishTransactionSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error
}

// Closer pairs with TransactionService.Close.
type Closer interface {
	Close() error
}

// TransactionService records transactions and re-evaluates the affected
// category budget on every expense.
type TransactionService struct {
	storage TransactionStore
	events  EventPublisher
}

func NewTransactionService(storage TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		storage: storage,
		events:  events,
	}
}

// CreateTransaction saves a transaction and, for expenses, classifies the
// category's budget for the transaction's month. Warning and danger states
// produce a stored notification and a published alert; failures in either
// are logged and never fail the transaction itself.
//
// The returned snapshot is nil for incomes and for categories without a
// configured budget.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (int64, *core.BudgetSnapshot, error) {
	id, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return 0, nil, fmt.Errorf("save transaction: %w", err)
	}

	// New rows start at version 1. Sync delivery is best-effort: the
	// transaction is already saved.
	s.publishSyncMessage(ctx, id, 1)

	if t.Kind != core.Expense {
		return id, nil, nil
	}

	snap, err := s.evaluateBudget(ctx, t.Primary, t.Date.Year(), t.Date.Month())
	if err != nil {
		slog.ErrorContext(ctx, "Budget evaluation failed",
			"transaction_id", id, "category", t.Primary, "error", err)
		return id, nil, nil
	}
	if snap == nil {
		return id, nil, nil
	}

	if snap.Status != core.BudgetSafe {
		s.notifyBudgetStatus(ctx, *snap)
	}

	return id, snap, nil
}

// DeleteTransaction soft deletes a transaction and publishes the bumped
// version so sync consumers refetch the row.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	version, err := s.storage.SoftDeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publishSyncMessage(ctx, id, version)
	return nil
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, version int64) {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return
	}
	if err := s.events.PublishTransactionSync(ctx, amqp.NewTransactionSyncMessage(id, version)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}
}

// evaluateBudget returns nil when the category has no budget configured.
func (s *TransactionService) evaluateBudget(ctx context.Context, category string, year, month int) (*core.BudgetSnapshot, error) {
	budget, err := s.storage.GetBudgetByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load budget: %w", err)
	}

	spent, err := s.storage.SpentForCategory(ctx, category, year, month)
	if err != nil {
		return nil, fmt.Errorf("sum spending: %w", err)
	}

	snap := budget.Snapshot(year, month, core.Money{Cents: spent})
	return &snap, nil
}

// notifyBudgetStatus stores a notification and publishes an alert.
// Both are best-effort: the transaction is already saved.
func (s *TransactionService) notifyBudgetStatus(ctx context.Context, snap core.BudgetSnapshot) {
	n := core.Notification{
		ID:        uuid.NewString(),
		Kind:      "budget_" + string(snap.Status),
		Category:  snap.Category,
		Message: fmt.Sprintf("%s is %s: %s of %s spent",
			snap.Category, snap.Status.Label(), snap.Spent.Format(), snap.Limit.Format()),
		CreatedAt: time.Now(),
	}
	if err := s.storage.InsertNotification(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to store budget notification",
			"category", snap.Category, "status", snap.Status, "error", err)
	}

	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping budget alert",
			"category", snap.Category, "status", snap.Status)
		return
	}
	if err := s.events.PublishBudgetAlert(ctx, amqp.NewBudgetAlertMessage(snap)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			"category", snap.Category, "status", snap.Status, "error", err)
	}
}

// Close closes the storage and broker connections when they support it.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.storage.(Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.events.(Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
