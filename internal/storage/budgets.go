package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"soldi/internal/core"
)

// CreateBudget inserts a category budget. Categories are unique: a second
// budget for the same category fails on the table constraint.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.CategoryBudget) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, limit_cents, warning_threshold)
		VALUES (?, ?, ?)`,
		b.Category, b.Limit.Cents, b.WarningThreshold)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget id: %w", err)
	}
	return id, nil
}

// UpdateBudget replaces the limit and threshold of an existing budget.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.CategoryBudget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET category = ?, limit_cents = ?, warning_threshold = ?, updated_at = datetime('now')
		WHERE id = ?`,
		b.Category, b.Limit.Cents, b.WarningThreshold, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBudget removes a budget permanently.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetBudgetByCategory fetches the budget for a primary category.
// Returns sql.ErrNoRows when no budget is configured.
func (r *SQLiteRepository) GetBudgetByCategory(ctx context.Context, category string) (*core.CategoryBudget, error) {
	var b core.CategoryBudget
	err := r.db.QueryRowContext(ctx, `
		SELECT id, category, limit_cents, warning_threshold FROM budgets WHERE category = ?`,
		category).Scan(&b.ID, &b.Category, &b.Limit.Cents, &b.WarningThreshold)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBudgets returns all configured budgets ordered by category.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, limit_cents, warning_threshold FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryBudget
	for rows.Next() {
		var b core.CategoryBudget
		if err := rows.Scan(&b.ID, &b.Category, &b.Limit.Cents, &b.WarningThreshold); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertNotification stores a user-facing notification.
func (r *SQLiteRepository) InsertNotification(ctx context.Context, n core.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, category, message, created_at, read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Kind, n.Category, n.Message, n.CreatedAt.UTC().Format(time.RFC3339), n.Read)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns notifications newest first, optionally unread only.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, unreadOnly bool) ([]core.Notification, error) {
	query := `SELECT id, kind, category, message, created_at, read FROM notifications`
	if unreadOnly {
		query += ` WHERE read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.Kind, &n.Category, &n.Message, &createdAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			n.CreatedAt = ts
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
