// Package tracker holds the challenge operations as pure functions over a
// record set. Nothing here does I/O or reads the clock: callers pass today's
// date in and persist the returned set.
package tracker

import (
	"fmt"
	"math"

	"streakline/internal/domain"
)

func notFound(id int) error {
	return fmt.Errorf("challenge %d: %w", id, domain.ErrNotFound)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// successPercentage is fulfilled/(fulfilled+failed) as a percentage, or 0
// when nothing has been judged yet.
func successPercentage(s domain.Stats) float64 {
	total := s.DaysFulfilled + s.DaysFailed
	if total == 0 {
		return 0
	}
	return round1(float64(s.DaysFulfilled) / float64(total) * 100)
}
