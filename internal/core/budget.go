package core

import "math"

const (
	BudgetSafe    BudgetStatus = "safe"
	BudgetWarning BudgetStatus = "warning"
	BudgetDanger  BudgetStatus = "danger"
)

// BudgetStatus classifies how much of a category budget has been consumed.
type BudgetStatus string

// EvaluateBudget classifies spending against a limit. warningThreshold is a
// percentage in (0, 100].
//
// A zero limit evaluates as +Inf percent and therefore danger; callers that
// consider zero-limit budgets invalid must guard upstream. spent is not
// clamped to non-negative.
func EvaluateBudget(spentCents, limitCents int64, warningThreshold float64) BudgetStatus {
	percentage := math.Inf(1)
	if limitCents != 0 {
		percentage = float64(spentCents) / float64(limitCents) * 100
	}
	switch {
	case percentage >= 100:
		return BudgetDanger
	case percentage >= warningThreshold:
		return BudgetWarning
	default:
		return BudgetSafe
	}
}

// Label returns a human-readable description of the budget status.
func (s BudgetStatus) Label() string {
	switch s {
	case BudgetSafe:
		return "within budget"
	case BudgetWarning:
		return "approaching limit"
	case BudgetDanger:
		return "over budget"
	}
	return "unknown"
}

// BudgetSnapshot is the evaluated state of one category budget for a month.
// It is derived on demand, never persisted: Status is a pure function of
// (Spent, Limit, WarningThreshold).
type BudgetSnapshot struct {
	Category         string
	Year             int
	Month            int // 1-12
	Spent            Money
	Limit            Money
	WarningThreshold float64
	Status           BudgetStatus
}

// Snapshot evaluates the budget against the amount spent so far.
func (b CategoryBudget) Snapshot(year, month int, spent Money) BudgetSnapshot {
	return BudgetSnapshot{
		Category:         b.Category,
		Year:             year,
		Month:            month,
		Spent:            spent,
		Limit:            b.Limit,
		WarningThreshold: b.WarningThreshold,
		Status:           EvaluateBudget(spent.Cents, b.Limit.Cents, b.WarningThreshold),
	}
}
