// Package dates does calendar-day arithmetic on YYYY-MM-DD strings.
package dates

import (
	"fmt"
	"time"

	"streakline/internal/domain"
)

// Layout is the normalized on-disk date format.
const Layout = "2006-01-02"

// Today returns the calendar date of now() in Layout. A nil clock reads the
// system time.
func Today(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return now().Format(Layout)
}

// Parse reads a Layout date as midnight UTC.
func Parse(d string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, d, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: want %s", domain.ErrInvalidInput, d, Layout)
	}
	return t, nil
}

// DaysBetween returns the whole days from a to b. It is negative when b
// precedes a.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	// Both are UTC midnights, so the division is exact. time.Duration would
	// saturate past ~292 years.
	return int((tb.Unix() - ta.Unix()) / 86400), nil
}

// AddDays shifts d by n calendar days.
func AddDays(d string, n int) (string, error) {
	t, err := Parse(d)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}
