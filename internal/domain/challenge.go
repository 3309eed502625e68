package domain

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// AuthoritativeEntry returns the first log entry for date. Later entries on
// the same date are supplementary.
func (c Challenge) AuthoritativeEntry(date string) (ProgressEntry, bool) {
	for _, e := range c.ProgressLog {
		if e.Date == date {
			return e, true
		}
	}
	return ProgressEntry{}, false
}

// IsAuthoritative reports whether the entry at log position i is the first one
// for its date.
func (c Challenge) IsAuthoritative(i int) bool {
	if i < 0 || i >= len(c.ProgressLog) {
		return false
	}
	date := c.ProgressLog[i].Date
	for j := 0; j < i; j++ {
		if c.ProgressLog[j].Date == date {
			return false
		}
	}
	return true
}

// LastAuthoritative returns the most recently appended authoritative entry.
func (c Challenge) LastAuthoritative() (ProgressEntry, bool) {
	for i := len(c.ProgressLog) - 1; i >= 0; i-- {
		if c.IsAuthoritative(i) {
			return c.ProgressLog[i], true
		}
	}
	return ProgressEntry{}, false
}

func (c Challenge) AuthoritativeCount() int {
	seen := make(map[string]struct{}, len(c.ProgressLog))
	for _, e := range c.ProgressLog {
		seen[e.Date] = struct{}{}
	}
	return len(seen)
}

func (c Challenge) SupplementaryCount() int {
	return len(c.ProgressLog) - c.AuthoritativeCount()
}

// Clone returns a deep copy.
func (c Challenge) Clone() Challenge {
	out := c
	out.ProgressLog = make([]ProgressEntry, len(c.ProgressLog))
	copy(out.ProgressLog, c.ProgressLog)
	return out
}

// Validate checks the record's own invariants.
func (c Challenge) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidInput, c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: challenge %d: name is required", ErrInvalidInput, c.ID)
	}
	if c.DurationDays <= 0 {
		return fmt.Errorf("%w: challenge %d: durationDays must be positive", ErrInvalidInput, c.ID)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: challenge %d: unknown status %q", ErrInvalidInput, c.ID, c.Status)
	}
	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return fmt.Errorf("%w: challenge %d: startDate %q", ErrInvalidInput, c.ID, c.StartDate)
	}
	end, err := time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return fmt.Errorf("%w: challenge %d: endDate %q", ErrInvalidInput, c.ID, c.EndDate)
	}
	if want := start.AddDate(0, 0, c.DurationDays-1); !end.Equal(want) {
		return fmt.Errorf("%w: challenge %d: endDate %s does not match %d days from %s", ErrInvalidInput, c.ID, c.EndDate, c.DurationDays, c.StartDate)
	}
	if c.CurrentStreak < 0 || c.BestStreak < c.CurrentStreak {
		return fmt.Errorf("%w: challenge %d: streaks current=%d best=%d", ErrInvalidInput, c.ID, c.CurrentStreak, c.BestStreak)
	}
	for i, e := range c.ProgressLog {
		if e.DayIndex != i+1 {
			return fmt.Errorf("%w: challenge %d: entry %d has dayIndex %d", ErrInvalidInput, c.ID, i+1, e.DayIndex)
		}
	}
	if got, want := c.Stats.DaysFulfilled+c.Stats.DaysFailed, c.AuthoritativeCount(); got != want {
		return fmt.Errorf("%w: challenge %d: stats count %d days, log has %d", ErrInvalidInput, c.ID, got, want)
	}
	return nil
}

// ValidateSet validates each record and id uniqueness across the set.
func ValidateSet(records []Challenge) error {
	seen := make(map[int]struct{}, len(records))
	for _, c := range records {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate challenge id %d", ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// NextID returns max(id)+1, or 1 for an empty set.
func NextID(records []Challenge) int {
	maxID := 0
	for _, c := range records {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	return maxID + 1
}

// IndexOf returns the position of id in records, or -1.
func IndexOf(records []Challenge, id int) int {
	for i, c := range records {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CloneAll deep-copies a record set.
func CloneAll(records []Challenge) []Challenge {
	out := make([]Challenge, len(records))
	for i, c := range records {
		out[i] = c.Clone()
	}
	return out
}

// ParseStatus maps user input onto a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: status %q (want active, completed or abandoned)", ErrInvalidInput, s)
	}
	return st, nil
}
