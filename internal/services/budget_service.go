package services

import (
	"context"
	"fmt"

	"soldi/internal/core"
)

// BudgetStore is the storage surface the budget service needs.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.CategoryBudget) (int64, error)
	UpdateBudget(ctx context.Context, b core.CategoryBudget) error
	DeleteBudget(ctx context.Context, id int64) error
	GetBudgetByCategory(ctx context.Context, category string) (*core.CategoryBudget, error)
	ListBudgets(ctx context.Context) ([]core.CategoryBudget, error)
	SpentForCategory(ctx context.Context, category string, year, month int) (int64, error)
}

// BudgetService manages category budgets and evaluates their health.
type BudgetService struct {
	storage BudgetStore
}

func NewBudgetService(storage BudgetStore) *BudgetService {
	return &BudgetService{storage: storage}
}

func (s *BudgetService) Create(ctx context.Context, b core.CategoryBudget) (int64, error) {
	return s.storage.CreateBudget(ctx, b)
}

func (s *BudgetService) Update(ctx context.Context, b core.CategoryBudget) error {
	return s.storage.UpdateBudget(ctx, b)
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeleteBudget(ctx, id)
}

func (s *BudgetService) List(ctx context.Context) ([]core.CategoryBudget, error) {
	return s.storage.ListBudgets(ctx)
}

// Snapshot evaluates one category's budget for a month. Returns an error
// when no budget is configured for the category.
func (s *BudgetService) Snapshot(ctx context.Context, category string, year, month int) (core.BudgetSnapshot, error) {
	budget, err := s.storage.GetBudgetByCategory(ctx, category)
	if err != nil {
		return core.BudgetSnapshot{}, fmt.Errorf("load budget for %s: %w", category, err)
	}

	spent, err := s.storage.SpentForCategory(ctx, category, year, month)
	if err != nil {
		return core.BudgetSnapshot{}, fmt.Errorf("sum spending for %s: %w", category, err)
	}

	return budget.Snapshot(year, month, core.Money{Cents: spent}), nil
}
