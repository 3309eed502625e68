package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/domain"
	"streakline/internal/tracker"
)

func createN(t *testing.T, names ...string) []domain.Challenge {
	t.Helper()
	var records []domain.Challenge
	for _, n := range names {
		res, err := tracker.Create(records, tracker.CreateInput{Name: n, DurationDays: 7}, day1)
		require.NoError(t, err)
		records = res.Challenges
	}
	return records
}

func TestCreateInitializesRecord(t *testing.T) {
	res, err := tracker.Create(nil, tracker.CreateInput{Name: "  Run  ", DurationDays: 1, Description: "5k"}, day1)
	require.NoError(t, err)
	c := res.Challenge
	assert.Equal(t, "Run", c.Name)
	assert.Equal(t, "5k", c.Description)
	assert.Equal(t, day1, c.EndDate)
	assert.NotNil(t, c.ProgressLog)
	assert.Empty(t, c.ProgressLog)
	assert.Zero(t, c.Stats)
	require.NoError(t, c.Validate())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	_, err := tracker.Create(nil, tracker.CreateInput{Name: "", DurationDays: 5}, day1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "name is required")

	_, err = tracker.Create(nil, tracker.CreateInput{Name: "x", DurationDays: 0}, day1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "duration")

	_, err = tracker.Create(nil, tracker.CreateInput{Name: "x", DurationDays: -3}, day1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateAssignsMaxPlusOne(t *testing.T) {
	records := createN(t, "a", "b", "c")
	records, _, err := tracker.Delete(records, 3)
	require.NoError(t, err)
	records, _, err = tracker.Delete(records, 1)
	require.NoError(t, err)
	res, err := tracker.Create(records, tracker.CreateInput{Name: "d", DurationDays: 2}, day1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Challenge.ID)
	require.NoError(t, domain.ValidateSet(res.Challenges))
}

func TestDeletePreservesOrder(t *testing.T) {
	records := createN(t, "a", "b", "c", "d")
	out, removed, err := tracker.Delete(records, 2)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Name)
	var names []string
	for _, c := range out {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
	assert.Len(t, records, 4)

	_, _, err = tracker.Delete(out, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetStatusAnyTransition(t *testing.T) {
	records := createN(t, "a")
	for _, st := range []domain.Status{domain.StatusCompleted, domain.StatusAbandoned, domain.StatusActive, domain.StatusAbandoned} {
		var c domain.Challenge
		var err error
		records, c, err = tracker.SetStatus(records, 1, st)
		require.NoError(t, err)
		assert.Equal(t, st, c.Status)
	}
	_, _, err := tracker.SetStatus(records, 5, domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = tracker.SetStatus(records, 1, "concluído")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
