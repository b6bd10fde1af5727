package query

import (
	"time"

	"github.com/statbot-io/statbot/internal/errors"
)

// DateRange is an inclusive month range. Nil bounds are open.
type DateRange struct {
	After  *time.Time
	Before *time.Time
}

// ParseDateRange validates month/year pairs and resolves them to month
// buckets in the reference timezone. A month without its year (or the
// reverse) is rejected; so is an after bound in the future or past the
// before bound. Zero values mean "not given".
func ParseDateRange(afterMonth, afterYear, beforeMonth, beforeYear int, now time.Time, loc *time.Location) (DateRange, error) {
	var r DateRange

	after, err := resolveMonth("after", afterMonth, afterYear)
	if err != nil {
		return r, err
	}
	before, err := resolveMonth("before", beforeMonth, beforeYear)
	if err != nil {
		return r, err
	}

	if after != nil {
		if after.After(now.In(loc)) {
			return r, errors.Validation("after date is in the future")
		}
		if before != nil && after.After(*before) {
			return r, errors.Validation("after date is later than before date")
		}
	}

	// Buckets are stored as UTC-midnight firsts of the month.
	r.After = bucket(after)
	r.Before = bucket(before)
	return r, nil
}

func resolveMonth(name string, month, year int) (*time.Time, error) {
	if month == 0 && year == 0 {
		return nil, nil
	}
	if month == 0 || year == 0 {
		return nil, errors.Validation(name + " date needs both month and year")
	}
	if month < 1 || month > 12 {
		return nil, errors.Validation(name + " month is out of range")
	}
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return &t, nil
}

func bucket(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	b := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return &b
}
