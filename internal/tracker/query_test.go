package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/domain"
	"streakline/internal/tracker"
)

func TestListAll(t *testing.T) {
	_, err := tracker.ListAll(nil)
	assert.ErrorIs(t, err, domain.ErrNoChallenges)

	records := createN(t, "a", "b")
	records, _ = register(t, records, day1, true)
	items, err := tracker.ListAll(records)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, tracker.Summary{ID: 1, Name: "a", Status: domain.StatusActive, DurationDays: 7, SuccessPercentage: 100}, items[0])
	assert.Equal(t, 2, items[1].ID)
}

func TestAnalyze(t *testing.T) {
	records := newSet(t, 5)
	records, _ = register(t, records, day(t, 0), true)
	records, _ = register(t, records, day(t, 0), true)
	records, _ = register(t, records, day(t, 1), true)
	records, _ = register(t, records, day(t, 2), false)

	a, err := tracker.Analyze(records, 1, day(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, a.CurrentStreak)
	assert.Equal(t, 2, a.BestStreak)
	assert.Equal(t, domain.Stats{DaysFulfilled: 2, DaysFailed: 1, SuccessPercentage: 66.7}, a.Stats)
	assert.Equal(t, 40.0, a.CompletionRate)
	assert.Equal(t, 3, a.DaysElapsed)
	assert.Equal(t, 2, a.DaysRemaining)
	assert.Equal(t, 4, a.Entries)
	assert.Equal(t, 1, a.SupplementaryEntries)
	require.NotNil(t, a.LastEntry)
	assert.Equal(t, 4, a.LastEntry.DayIndex)

	late, err := tracker.Analyze(records, 1, day(t, 40))
	require.NoError(t, err)
	assert.Equal(t, 5, late.DaysElapsed)
	assert.Equal(t, 0, late.DaysRemaining)

	_, err = tracker.Analyze(records, 2, day1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyzeLongChallenge(t *testing.T) {
	res, err := tracker.Create(nil, tracker.CreateInput{Name: "forever", DurationDays: 200000}, day1)
	require.NoError(t, err)

	a, err := tracker.Analyze(res.Challenges, 1, day1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.DaysElapsed)
	assert.Equal(t, 199999, a.DaysRemaining)
}

func TestFilterByStatus(t *testing.T) {
	records := createN(t, "a", "b", "c", "d")
	records, _, _ = tracker.SetStatus(records, 2, domain.StatusAbandoned)
	records, _, _ = tracker.SetStatus(records, 4, domain.StatusAbandoned)

	got, err := tracker.FilterByStatus(records, "abandoned")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 4, got[1].ID)

	all, err := tracker.FilterByStatus(records, tracker.FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := tracker.FilterByStatus(records, "completed")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = tracker.FilterByStatus(records, "paused")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
