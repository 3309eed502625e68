package tracker

import (
	"fmt"

	"streakline/internal/dates"
	"streakline/internal/domain"
)

const (
	NoticeAlreadyRegistered = "already registered today; streak not affected"
	noticeCompletedFmt      = "challenge %q completed: %d of %d days fulfilled"
)

type RegisterInput struct {
	ID        int
	Fulfilled bool
	Note      string
	Today     string
}

type RegisterResult struct {
	Challenges    []domain.Challenge
	Challenge     domain.Challenge
	Entry         domain.ProgressEntry
	Authoritative bool
	Completed     bool
	Notices       []string
}

// RegisterProgress appends today's outcome to a challenge. The first entry of
// a date is authoritative and moves streaks and stats; later entries on the
// same date are kept for history only.
func RegisterProgress(records []domain.Challenge, in RegisterInput) (RegisterResult, error) {
	idx := domain.IndexOf(records, in.ID)
	if idx < 0 {
		return RegisterResult{}, notFound(in.ID)
	}
	if _, err := dates.Parse(in.Today); err != nil {
		return RegisterResult{}, err
	}
	out := domain.CloneAll(records)
	c := &out[idx]

	_, judged := c.AuthoritativeEntry(in.Today)
	prev, hasPrev := c.LastAuthoritative()

	entry := domain.ProgressEntry{
		DayIndex:  len(c.ProgressLog) + 1,
		Date:      in.Today,
		Fulfilled: in.Fulfilled,
		Note:      in.Note,
	}
	c.ProgressLog = append(c.ProgressLog, entry)

	res := RegisterResult{Challenges: out, Entry: entry}
	if judged {
		res.Notices = append(res.Notices, NoticeAlreadyRegistered)
		res.Challenge = c.Clone()
		return res, nil
	}
	res.Authoritative = true

	if in.Fulfilled {
		consecutive := !hasPrev
		if hasPrev {
			gap, err := dates.DaysBetween(prev.Date, in.Today)
			if err != nil {
				return RegisterResult{}, fmt.Errorf("challenge %d: previous entry: %w", c.ID, err)
			}
			consecutive = gap == 1
		}
		if consecutive {
			c.CurrentStreak++
		} else {
			c.CurrentStreak = 1
		}
		if c.CurrentStreak > c.BestStreak {
			c.BestStreak = c.CurrentStreak
		}
		c.Stats.DaysFulfilled++
	} else {
		c.CurrentStreak = 0
		c.Stats.DaysFailed++
	}
	c.Stats.SuccessPercentage = successPercentage(c.Stats)

	if c.Stats.DaysFulfilled == c.DurationDays && c.Status == domain.StatusActive {
		c.Status = domain.StatusCompleted
		res.Completed = true
		res.Notices = append(res.Notices, fmt.Sprintf(noticeCompletedFmt, c.Name, c.Stats.DaysFulfilled, c.DurationDays))
	}
	res.Challenge = c.Clone()
	return res, nil
}
