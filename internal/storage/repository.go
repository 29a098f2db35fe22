package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"soldi/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single persistence layer for transactions,
// categories, budgets, recurring templates and notifications.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// monthRange returns the ISO date bounds [first, next) for a year+month.
// Dates are stored as ISO strings, so range comparisons work lexically.
func monthRange(year, month int) (string, string) {
	first := core.NewDate(year, month, 1)
	next := core.NewDate(year, month+1, 1)
	return first.ISO(), next.ISO()
}

// CreateTransaction inserts a transaction and returns its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (tx_date, description, amount_cents, kind, primary_category, secondary_category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Date.ISO(), t.Description, t.Amount.Cents, string(t.Kind), t.Primary, t.Secondary)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"kind", t.Kind,
		"date", t.Date.ISO())

	return id, nil
}

// SoftDeleteTransaction marks a transaction as deleted without removing the
// row, bumps its version and returns the new version for sync consumers.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET deleted_at = datetime('now'), version = version + 1
		WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return 0, fmt.Errorf("soft delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, sql.ErrNoRows
	}

	var version int64
	err = r.db.QueryRowContext(ctx, `SELECT version FROM transactions WHERE id = ?`, id).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read transaction version: %w", err)
	}
	return version, nil
}

// ListTransactions returns all non-deleted transactions in a month, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	first, next := monthRange(year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_date, description, amount_cents, kind, primary_category, secondary_category
		FROM transactions
		WHERE deleted_at IS NULL AND tx_date >= ? AND tx_date < ?
		ORDER BY tx_date DESC, id DESC`, first, next)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			dateStr string
			kind    string
		)
		if err := rows.Scan(&t.ID, &dateStr, &t.Description, &t.Amount.Cents, &kind, &t.Primary, &t.Secondary); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("transaction %d has invalid date %q: %w", t.ID, dateStr, err)
		}
		t.Date = d
		t.Kind = core.TransactionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SpentForCategory sums expense cents for one primary category in a month.
func (r *SQLiteRepository) SpentForCategory(ctx context.Context, category string, year, month int) (int64, error) {
	first, next := monthRange(year, month)
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM transactions
		WHERE deleted_at IS NULL AND kind = 'expense'
		  AND primary_category = ? AND tx_date >= ? AND tx_date < ?`,
		category, first, next).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum category spending: %w", err)
	}
	return total.Int64, nil
}

// MonthOverview aggregates expense totals for a month, overall and per category.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	first, next := monthRange(year, month)

	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM transactions
		WHERE deleted_at IS NULL AND kind = 'expense' AND tx_date >= ? AND tx_date < ?`,
		first, next).Scan(&total)
	if err != nil {
		return overview, fmt.Errorf("get month total: %w", err)
	}
	overview.Total = core.Money{Cents: total.Int64}

	rows, err := r.db.QueryContext(ctx, `
		SELECT primary_category, SUM(amount_cents) AS total_cents
		FROM transactions
		WHERE deleted_at IS NULL AND kind = 'expense' AND tx_date >= ? AND tx_date < ?
		GROUP BY primary_category
		ORDER BY total_cents DESC`, first, next)
	if err != nil {
		return overview, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	return overview, rows.Err()
}

// ListCategories returns primary category names and all secondary names.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, []string, error) {
	primaries, err := r.selectNames(ctx, `SELECT name FROM categories WHERE parent IS NULL ORDER BY name`)
	if err != nil {
		return nil, nil, fmt.Errorf("get primary categories: %w", err)
	}
	secondaries, err := r.selectNames(ctx, `SELECT name FROM categories WHERE parent IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, nil, fmt.Errorf("get secondary categories: %w", err)
	}
	return primaries, secondaries, nil
}

// SecondariesByPrimary returns the secondary categories under a primary.
func (r *SQLiteRepository) SecondariesByPrimary(ctx context.Context, primary string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories WHERE parent = ? ORDER BY name`, primary)
	if err != nil {
		return nil, fmt.Errorf("get secondaries for %s: %w", primary, err)
	}
	defer rows.Close()
	return scanNames(rows)
}

func (r *SQLiteRepository) selectNames(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

func scanNames(rows *sql.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
