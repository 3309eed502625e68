package streaklinesdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/config"
	"streakline/internal/engine"
	"streakline/internal/server"
	"streakline/internal/store"
	streaklinesdk "streakline/sdk/go"
)

func newClient(t *testing.T) *streaklinesdk.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = config.BackendSQLite
	s, closeStore, err := store.Open(context.Background(), t.TempDir(), cfg, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore() })
	e := engine.New(s, nil)
	e.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }
	handler, err := server.New(server.Config{Engine: e, BasePath: "/v0", DefaultDuration: 21})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return streaklinesdk.New(ts.URL)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	list, err := c.ListChallenges(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := c.CreateChallenge(ctx, "Journal", 0, "one page")
	require.NoError(t, err)
	assert.Equal(t, 21, created.DurationDays)
	assert.Equal(t, "active", created.Status)

	reg, err := c.RegisterProgress(ctx, created.ID, true, "")
	require.NoError(t, err)
	assert.True(t, reg.Authoritative)
	assert.Equal(t, 1, reg.Challenge.BestStreak)

	detail, err := c.GetChallenge(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, detail.Analysis.Stats.SuccessPercentage)
	require.NotNil(t, detail.Analysis.LastEntry)
	assert.Equal(t, "2024-03-01", detail.Analysis.LastEntry.Date)

	updated, err := c.SetStatus(ctx, created.ID, "abandoned")
	require.NoError(t, err)
	assert.Equal(t, "abandoned", updated.Status)

	evts, err := c.Events(ctx, "", created.ID, 10)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, "challenge.status_set", evts[0].Type)

	_, err = c.DeleteChallenge(ctx, created.ID)
	require.NoError(t, err)
	list, err = c.ListChallenges(ctx, "all")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClientErrors(t *testing.T) {
	c := newClient(t)
	_, err := c.GetChallenge(context.Background(), 42)
	var apiErr *streaklinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)

	_, err = c.SetStatus(context.Background(), 1, "paused")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
