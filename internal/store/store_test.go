package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/config"
	"streakline/internal/domain"
	"streakline/internal/events"
	"streakline/internal/store"
	"streakline/internal/tracker"
)

func sampleSet(t *testing.T) []domain.Challenge {
	t.Helper()
	res, err := tracker.Create(nil, tracker.CreateInput{Name: "Run", DurationDays: 3, Description: "5k every morning"}, "2024-03-01")
	require.NoError(t, err)
	records := res.Challenges
	res, err = tracker.Create(records, tracker.CreateInput{Name: "Read", DurationDays: 10}, "2024-03-02")
	require.NoError(t, err)
	records = res.Challenges
	for _, step := range []struct {
		id        int
		date      string
		fulfilled bool
		note      string
	}{
		{1, "2024-03-01", true, "easy"},
		{1, "2024-03-02", false, ""},
		{1, "2024-03-02", true, "made up for it"},
		{2, "2024-03-02", true, ""},
	} {
		reg, err := tracker.RegisterProgress(records, tracker.RegisterInput{ID: step.id, Fulfilled: step.fulfilled, Note: step.note, Today: step.date})
		require.NoError(t, err)
		records = reg.Challenges
	}
	return records
}

func openBackend(t *testing.T, backend string) store.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = backend
	s, closeFn, err := store.Open(context.Background(), t.TempDir(), cfg, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })
	return s
}

func TestRoundTripAllBackends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendJSON, config.BackendYAML, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := openBackend(t, backend)
			want := sampleSet(t)

			require.NoError(t, s.Save(ctx, want))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, s.Save(ctx, got))
			again, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, again)
		})
	}
}

func TestMissingStoreLoadsEmpty(t *testing.T) {
	for _, backend := range []string{config.BackendJSON, config.BackendYAML, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			got, err := openBackend(t, backend).Load(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestSaveEmptySet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "challenges.json")
	s := store.NewJSONFile(path, store.Options{})
	require.NoError(t, s.Save(ctx, sampleSet(t)))
	require.NoError(t, s.Save(ctx, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "challenges.json")
	s := store.NewJSONFile(path, store.Options{})
	require.NoError(t, s.Save(ctx, sampleSet(t)[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"id\": 2,"), string(data))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"id", "name", "description", "durationDays", "startDate", "endDate", "status", "progressLog", "currentStreak", "bestStreak", "stats"} {
		assert.Contains(t, raw[0], key)
	}
	entry := raw[0]["progressLog"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"dayIndex": float64(1), "date": "2024-03-02", "fulfilled": true, "note": ""}, entry)
	stats := raw[0]["stats"].(map[string]any)
	assert.Contains(t, stats, "daysFulfilled")
	assert.Contains(t, stats, "daysFailed")
	assert.Contains(t, stats, "successPercentage")
}

func TestCorruptFileResetsToEmpty(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range map[string]func(string, store.Options) *store.FileStore{
		"json": store.NewJSONFile,
		"yaml": store.NewYAMLFile,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "challenges."+name)
			require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o644))

			var logs bytes.Buffer
			resets := 0
			s := newStore(path, store.Options{Logger: log.New(&logs, "", 0), OnReset: func() { resets++ }})
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.Equal(t, 1, resets)
			assert.Contains(t, logs.String(), "WARNING:")
			assert.Contains(t, logs.String(), path)

			kept, err := os.ReadFile(path + ".corrupt")
			require.NoError(t, err)
			assert.Equal(t, "{not: [valid", string(kept))

			again, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, again)
			assert.Equal(t, 1, resets)
		})
	}
}

func TestEmptyFileIsEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "challenges.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	var logs bytes.Buffer
	got, err := store.NewJSONFile(path, store.Options{Logger: log.New(&logs, "", 0)}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, logs.String())
}

func TestWriteFailureIsStorageIO(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s := store.NewJSONFile(filepath.Join(blocker, "challenges.json"), store.Options{})

	err := s.Save(context.Background(), sampleSet(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageIO))
	var ioErr *store.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestSQLiteJournal(t *testing.T) {
	ctx := context.Background()
	s := openBackend(t, config.BackendSQLite)
	j, ok := s.(store.Journal)
	require.True(t, ok)

	records := sampleSet(t)
	require.NoError(t, j.SaveWithEvents(ctx, records, []events.Pending{
		{Type: events.TypeChallengeCreated, ChallengeID: 1, OperationID: "op-1", Payload: events.EventPayload{"name": "Run"}},
		{Type: events.TypeProgressRegistered, ChallengeID: 1, OperationID: "op-2"},
		{Type: events.TypeChallengeCreated, ChallengeID: 2, OperationID: "op-3"},
	}))

	all, err := j.LatestEvents(ctx, events.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "op-3", all[0].OperationID)
	assert.Equal(t, "op-1", all[2].OperationID)
	assert.JSONEq(t, `{"name":"Run"}`, all[2].Payload)

	created, err := j.LatestEvents(ctx, events.Filter{Type: events.TypeChallengeCreated, Limit: 1})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 2, created[0].ChallengeID)

	forOne, err := j.LatestEvents(ctx, events.Filter{ChallengeID: 1})
	require.NoError(t, err)
	assert.Len(t, forOne, 2)

	// rewriting the records keeps the journal
	require.NoError(t, s.Save(ctx, records[:1]))
	all, err = j.LatestEvents(ctx, events.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "csv"
	_, _, err := store.Open(context.Background(), t.TempDir(), cfg, store.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
