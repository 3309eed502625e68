package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/domain"
)

func validChallenge(id int) domain.Challenge {
	return domain.Challenge{
		ID:           id,
		Name:         "Read daily",
		DurationDays: 5,
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-05",
		Status:       domain.StatusActive,
		ProgressLog:  []domain.ProgressEntry{},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validChallenge(1).Validate())

	cases := map[string]func(c *domain.Challenge){
		"zero id":        func(c *domain.Challenge) { c.ID = 0 },
		"blank name":     func(c *domain.Challenge) { c.Name = "  " },
		"zero duration":  func(c *domain.Challenge) { c.DurationDays = 0 },
		"bad status":     func(c *domain.Challenge) { c.Status = "concluído" },
		"bad start":      func(c *domain.Challenge) { c.StartDate = "01/01/2024" },
		"end mismatch":   func(c *domain.Challenge) { c.EndDate = "2024-01-06" },
		"best < current": func(c *domain.Challenge) { c.CurrentStreak = 2; c.BestStreak = 1 },
		"day index gap": func(c *domain.Challenge) {
			c.ProgressLog = []domain.ProgressEntry{{DayIndex: 2, Date: "2024-01-01", Fulfilled: true}}
			c.Stats.DaysFulfilled = 1
		},
		"stats drift": func(c *domain.Challenge) {
			c.ProgressLog = []domain.ProgressEntry{{DayIndex: 1, Date: "2024-01-01", Fulfilled: true}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validChallenge(1)
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), domain.ErrInvalidInput)
		})
	}
}

func TestValidateSetRejectsDuplicateIDs(t *testing.T) {
	require.NoError(t, domain.ValidateSet([]domain.Challenge{validChallenge(1), validChallenge(2)}))
	assert.ErrorIs(t, domain.ValidateSet([]domain.Challenge{validChallenge(3), validChallenge(3)}), domain.ErrInvalidInput)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, 1, domain.NextID(nil))
	assert.Equal(t, 8, domain.NextID([]domain.Challenge{validChallenge(7), validChallenge(2)}))
}

func TestAuthorityIsFirstEntryPerDate(t *testing.T) {
	c := validChallenge(1)
	c.ProgressLog = []domain.ProgressEntry{
		{DayIndex: 1, Date: "2024-01-01", Fulfilled: true},
		{DayIndex: 2, Date: "2024-01-01", Fulfilled: false, Note: "second try"},
		{DayIndex: 3, Date: "2024-01-02", Fulfilled: false},
	}
	assert.True(t, c.IsAuthoritative(0))
	assert.False(t, c.IsAuthoritative(1))
	assert.True(t, c.IsAuthoritative(2))
	assert.False(t, c.IsAuthoritative(3))

	e, ok := c.AuthoritativeEntry("2024-01-01")
	require.True(t, ok)
	assert.True(t, e.Fulfilled)

	last, ok := c.LastAuthoritative()
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", last.Date)

	assert.Equal(t, 2, c.AuthoritativeCount())
	assert.Equal(t, 1, c.SupplementaryCount())
}

func TestCloneIsDeep(t *testing.T) {
	c := validChallenge(1)
	c.ProgressLog = append(c.ProgressLog, domain.ProgressEntry{DayIndex: 1, Date: "2024-01-01"})
	cp := c.Clone()
	cp.ProgressLog[0].Note = "changed"
	assert.Empty(t, c.ProgressLog[0].Note)
}

func TestParseStatus(t *testing.T) {
	st, err := domain.ParseStatus(" Abandoned ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, st)
	_, err = domain.ParseStatus("done")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
