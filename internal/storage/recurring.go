package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"soldi/internal/core"
)

// CreateTemplate inserts a recurring template and returns its id.
// NextDue is expected to be precomputed by the caller.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_templates
			(recurrence_type, recurrence_day, last_executed, next_due, is_active,
			 description, amount_cents, kind, primary_category, secondary_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Rule.Type), nullableInt(t.Rule.Day), nullableDate(t.LastExecuted),
		nullableDate(t.NextDue), t.IsActive,
		t.Description, t.Amount.Cents, string(t.Kind), t.Primary, t.Secondary)
	if err != nil {
		return 0, fmt.Errorf("create recurring template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring template id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring template saved",
		"id", id,
		"description", t.Description,
		"frequency", t.Rule.Type,
		"next_due", t.NextDue.ISO())

	return id, nil
}

// UpdateTemplate replaces a template's rule and payload fields.
// The caller recomputes NextDue whenever the rule changed.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates SET
			recurrence_type = ?, recurrence_day = ?, next_due = ?, is_active = ?,
			description = ?, amount_cents = ?, kind = ?, primary_category = ?, secondary_category = ?
		WHERE id = ?`,
		string(t.Rule.Type), nullableInt(t.Rule.Day), nullableDate(t.NextDue), t.IsActive,
		t.Description, t.Amount.Cents, string(t.Kind), t.Primary, t.Secondary, t.ID)
	if err != nil {
		return fmt.Errorf("update recurring template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTemplate removes a template permanently.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetTemplate fetches a single template by id.
func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (*core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx, templateSelect+` WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("get recurring template %d: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all templates, active first, soonest due first.
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx, templateSelect+` ORDER BY is_active DESC, next_due ASC, id ASC`)
}

// ListActiveTemplates returns only active templates.
func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx, templateSelect+` WHERE is_active = 1 ORDER BY next_due ASC, id ASC`)
}

// MarkExecuted stamps the last execution date and the recomputed next due date.
func (r *SQLiteRepository) MarkExecuted(ctx context.Context, id int64, executed, nextDue core.Date) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates SET last_executed = ?, next_due = ? WHERE id = ?`,
		executed.ISO(), nextDue.ISO(), id)
	if err != nil {
		return fmt.Errorf("mark template executed: %w", err)
	}
	return nil
}

// UpdateNextDue refreshes only the cached next due date.
func (r *SQLiteRepository) UpdateNextDue(ctx context.Context, id int64, nextDue core.Date) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates SET next_due = ? WHERE id = ?`, nextDue.ISO(), id)
	if err != nil {
		return fmt.Errorf("update next due date: %w", err)
	}
	return nil
}

const templateSelect = `
	SELECT id, recurrence_type, recurrence_day, last_executed, next_due, is_active,
	       description, amount_cents, kind, primary_category, secondary_category
	FROM recurring_templates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*core.RecurringTemplate, error) {
	var (
		t            core.RecurringTemplate
		rtype, kind  string
		day          sql.NullInt64
		lastExecuted sql.NullString
		nextDue      sql.NullString
	)
	if err := row.Scan(&t.ID, &rtype, &day, &lastExecuted, &nextDue, &t.IsActive,
		&t.Description, &t.Amount.Cents, &kind, &t.Primary, &t.Secondary); err != nil {
		return nil, err
	}
	t.Rule.Type = core.RecurrenceType(rtype)
	if day.Valid {
		v := int(day.Int64)
		t.Rule.Day = &v
	}
	t.Kind = core.TransactionKind(kind)
	if lastExecuted.Valid && lastExecuted.String != "" {
		d, err := core.ParseDate(lastExecuted.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_executed %q: %w", lastExecuted.String, err)
		}
		t.LastExecuted = d
	}
	if nextDue.Valid && nextDue.String != "" {
		d, err := core.ParseDate(nextDue.String)
		if err != nil {
			return nil, fmt.Errorf("invalid next_due %q: %w", nextDue.String, err)
		}
		t.NextDue = d
	}
	return &t, nil
}

func (r *SQLiteRepository) queryTemplates(ctx context.Context, query string) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.ISO()
}
