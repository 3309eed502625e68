package tracker

import (
	"fmt"
	"strings"

	"streakline/internal/dates"
	"streakline/internal/domain"
)

// FilterAll selects every challenge in FilterByStatus.
const FilterAll = "all"

type Summary struct {
	ID                int           `json:"id"`
	Name              string        `json:"name"`
	Status            domain.Status `json:"status"`
	DurationDays      int           `json:"durationDays"`
	SuccessPercentage float64       `json:"successPercentage"`
}

type Analysis struct {
	ID                   int                   `json:"id"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Status               domain.Status         `json:"status"`
	DurationDays         int                   `json:"durationDays"`
	StartDate            string                `json:"startDate"`
	EndDate              string                `json:"endDate"`
	CurrentStreak        int                   `json:"currentStreak"`
	BestStreak           int                   `json:"bestStreak"`
	Stats                domain.Stats          `json:"stats"`
	CompletionRate       float64               `json:"completionRate"`
	DaysElapsed          int                   `json:"daysElapsed"`
	DaysRemaining        int                   `json:"daysRemaining"`
	Entries              int                   `json:"entries"`
	SupplementaryEntries int                   `json:"supplementaryEntries"`
	LastEntry            *domain.ProgressEntry `json:"lastEntry,omitempty"`
}

// ListAll summarizes every challenge in storage order.
func ListAll(records []domain.Challenge) ([]Summary, error) {
	if len(records) == 0 {
		return nil, domain.ErrNoChallenges
	}
	out := make([]Summary, 0, len(records))
	for _, c := range records {
		out = append(out, Summary{
			ID:                c.ID,
			Name:              c.Name,
			Status:            c.Status,
			DurationDays:      c.DurationDays,
			SuccessPercentage: c.Stats.SuccessPercentage,
		})
	}
	return out, nil
}

// Analyze builds the detailed view of one challenge as of today.
func Analyze(records []domain.Challenge, id int, today string) (Analysis, error) {
	idx := domain.IndexOf(records, id)
	if idx < 0 {
		return Analysis{}, notFound(id)
	}
	c := records[idx]
	a := Analysis{
		ID:                   c.ID,
		Name:                 c.Name,
		Description:          c.Description,
		Status:               c.Status,
		DurationDays:         c.DurationDays,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		CurrentStreak:        c.CurrentStreak,
		BestStreak:           c.BestStreak,
		Stats:                c.Stats,
		Entries:              len(c.ProgressLog),
		SupplementaryEntries: c.SupplementaryCount(),
	}
	if c.DurationDays > 0 {
		a.CompletionRate = round2(float64(c.Stats.DaysFulfilled) / float64(c.DurationDays) * 100)
	}
	if n := len(c.ProgressLog); n > 0 {
		last := c.ProgressLog[n-1]
		a.LastEntry = &last
	}
	elapsed, err := dates.DaysBetween(c.StartDate, today)
	if err != nil {
		return Analysis{}, fmt.Errorf("challenge %d: %w", c.ID, err)
	}
	a.DaysElapsed = clamp(elapsed+1, 0, c.DurationDays)
	remaining, err := dates.DaysBetween(today, c.EndDate)
	if err != nil {
		return Analysis{}, fmt.Errorf("challenge %d: %w", c.ID, err)
	}
	a.DaysRemaining = clamp(remaining, 0, c.DurationDays)
	return a, nil
}

// FilterByStatus returns the challenges with the given status, or all of them
// for FilterAll, preserving order.
func FilterByStatus(records []domain.Challenge, filter string) ([]domain.Challenge, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == FilterAll {
		return domain.CloneAll(records), nil
	}
	status, err := domain.ParseStatus(filter)
	if err != nil {
		return nil, err
	}
	out := []domain.Challenge{}
	for _, c := range records {
		if c.Status == status {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
