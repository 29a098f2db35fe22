// Package core holds the finance domain model and its pure calculation rules.
//
// This file implements the recurrence engine: next-due-date calculation for
// recurring templates and the dueness predicate. All calendar arithmetic is
// explicit (month lengths, leap years) instead of relying on time.Time
// day-of-month rollover, so month/year boundaries behave identically
// everywhere.
package core

// daysInMonth returns the number of days in month (1-12) of year.
func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	}
	return 31
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// clampedDate builds a date with the day clamped into the valid range for
// the target month (e.g. Feb 30 becomes Feb 29 or Feb 28).
func clampedDate(year, month, day int) Date {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}

// NextDueDate computes when a recurrence rule fires next.
//
// The base date is lastExecuted, or now for a rule that has never executed.
//   - daily: base + 1 day.
//   - weekly: the next calendar day whose weekday matches Rule.Day
//     (default Sunday). The next occurrence is never "today": if the base
//     already falls on the target weekday, the result is a full week later.
//   - monthly: one calendar month after the base, on day-of-month Rule.Day
//     (default 1), clamped to the target month's length.
//   - yearly: one calendar year after the base. Rule.Day, when set, encodes
//     month*100+day and overrides the base's month and day.
//
// The function is total: an unrecognized recurrence type returns the base
// unchanged, and out-of-range Day values are clamped rather than rejected.
// Callers validate rules at the boundary via RecurrenceRule.Validate.
func NextDueDate(rule RecurrenceRule, lastExecuted, now Date) Date {
	base := lastExecuted
	if base.IsZero() {
		base = now
	}

	switch rule.Type {
	case Daily:
		return base.AddDays(1)

	case Weekly:
		target := 0 // Sunday
		if rule.Day != nil {
			target = *rule.Day
		}
		// time.Weekday already uses 0 = Sunday, matching the rule encoding.
		d := ((target-int(base.Weekday()))%7 + 7) % 7
		if d == 0 {
			d = 7
		}
		return base.AddDays(d)

	case Monthly:
		day := 1
		if rule.Day != nil {
			day = *rule.Day
		}
		year, month := base.Year(), base.Month()+1
		if month > 12 {
			month = 1
			year++
		}
		return clampedDate(year, month, day)

	case Yearly:
		year := base.Year() + 1
		month, day := base.Month(), base.Day()
		if rule.Day != nil {
			month = *rule.Day / 100
			day = *rule.Day % 100
		}
		return clampedDate(year, month, day)
	}

	return base
}

// IsDue reports whether the template should be executed on or before today.
// Inactive templates are never due. The comparison is on ISO date strings,
// which order the same as the underlying dates.
func (t RecurringTemplate) IsDue(today Date) bool {
	if !t.IsActive {
		return false
	}
	if t.NextDue.IsZero() {
		return false
	}
	return t.NextDue.ISO() <= today.ISO()
}

var recurrenceLabels = map[RecurrenceType]string{
	Daily:   "every day",
	Weekly:  "every week",
	Monthly: "every month",
	Yearly:  "every year",
}

// Label returns a human-readable description of the recurrence type.
// Unrecognized types get a fallback label instead of an error.
func (rt RecurrenceType) Label() string {
	if label, ok := recurrenceLabels[rt]; ok {
		return label
	}
	return "unknown"
}
