package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   RecurrenceType = "daily"
	Weekly  RecurrenceType = "weekly"
	Monthly RecurrenceType = "monthly"
	Yearly  RecurrenceType = "yearly"
)

const (
	Expense TransactionKind = "expense"
	Income  TransactionKind = "income"
)

type (
	RecurrenceType string

	TransactionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurrenceRule describes how often a recurring template fires.
	// Day is optional; its meaning depends on Type:
	// weekly 0-6 (0 = Sunday), monthly 1-31, yearly month*100+day
	// (e.g. 1225 = Dec 25). Daily rules ignore it.
	RecurrenceRule struct {
		Type RecurrenceType
		Day  *int
	}

	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
		Kind        TransactionKind
		Primary     string // Primary category
		Secondary   string // Secondary category
	}

	// RecurringTemplate is a transaction blueprint executed on a schedule.
	// NextDue is a cache: it is always reproducible from (Rule, LastExecuted)
	// via NextDueDate and is recomputed after every execution.
	RecurringTemplate struct {
		ID           int64
		Rule         RecurrenceRule
		LastExecuted Date // zero value means never executed
		NextDue      Date
		IsActive     bool
		Description  string
		Amount       Money
		Kind         TransactionKind
		Primary      string
		Secondary    string
	}

	// CategoryBudget is a monthly spending ceiling for a primary category.
	// WarningThreshold is a percentage in (0, 100].
	CategoryBudget struct {
		ID               int64
		Category         string
		Limit            Money
		WarningThreshold float64
	}

	Notification struct {
		ID        string // uuid
		Kind      string // e.g. "budget_warning", "budget_danger"
		Category  string
		Message   string
		CreatedAt time.Time
		Read      bool
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyPrimary      = errors.New("empty primary category")
	ErrEmptySecondary    = errors.New("empty secondary category")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidRecurrence = errors.New("invalid recurrence type")
	ErrInvalidThreshold  = errors.New("warning threshold must be in (0, 100]")
)

// NewDate creates a Date at UTC midnight for year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to a civil date at UTC midnight.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// ISO returns the date formatted as YYYY-MM-DD. ISO strings sort
// lexicographically in chronological order, which the dueness check
// relies on.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k TransactionKind) Validate() error {
	switch k {
	case Expense, Income:
		return nil
	}
	return ErrInvalidKind
}

func (r RecurrenceRule) Validate() error {
	switch r.Type {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidRecurrence
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Primary) == "" {
		return ErrEmptyPrimary
	}
	if strings.TrimSpace(t.Secondary) == "" {
		return ErrEmptySecondary
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if err := t.Rule.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Primary) == "" {
		return ErrEmptyPrimary
	}
	if strings.TrimSpace(t.Secondary) == "" {
		return ErrEmptySecondary
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyPrimary
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if b.WarningThreshold <= 0 || b.WarningThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}
