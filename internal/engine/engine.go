// Package engine runs challenge operations against a store: load the set,
// apply a tracker operation, save the result. Operations are serialized.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"streakline/internal/dates"
	"streakline/internal/domain"
	"streakline/internal/events"
	"streakline/internal/metrics"
	"streakline/internal/store"
	"streakline/internal/tracker"
)

// ErrNoJournal is returned by Events when the store keeps no event log.
var ErrNoJournal = errors.New("event log needs the sqlite backend")

type Engine struct {
	Store   store.Store
	Now     func() time.Time
	Logger  *log.Logger
	Metrics *metrics.Metrics

	mu sync.Mutex
}

func New(s store.Store, m *metrics.Metrics) *Engine {
	return &Engine{
		Store:   s,
		Now:     time.Now,
		Metrics: m,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) today() string {
	return dates.Today(e.now)
}

type actorKey struct{}

// WithActor tags the operations run under ctx with the caller's identity.
// It shows up in log lines and event payloads.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// logOp logs one line for a committed operation.
func (e *Engine) logOp(ctx context.Context, opID, format string, args ...any) {
	if e.Logger == nil {
		return
	}
	prefix := "op=" + opID
	if a := actorFrom(ctx); a != "" {
		prefix += " actor=" + a
	}
	e.Logger.Printf("%s "+format, append([]any{prefix}, args...)...)
}

// commit validates the changed record and persists the whole set. Stores
// with a journal get the events in the same write.
func (e *Engine) commit(ctx context.Context, records []domain.Challenge, changed *domain.Challenge, evts []events.Pending) error {
	if changed != nil {
		if err := changed.Validate(); err != nil {
			return fmt.Errorf("refusing to save: %w", err)
		}
	}
	if j, ok := e.Store.(store.Journal); ok {
		if a := actorFrom(ctx); a != "" {
			for i := range evts {
				if evts[i].Payload == nil {
					evts[i].Payload = events.EventPayload{}
				}
				evts[i].Payload["actor"] = a
			}
		}
		return j.SaveWithEvents(ctx, records, evts)
	}
	return e.Store.Save(ctx, records)
}

// Create adds a new active challenge starting today.
func (e *Engine) Create(ctx context.Context, in tracker.CreateInput) (c domain.Challenge, err error) {
	defer func() { e.Metrics.Op("create", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.Store.Load(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	res, err := tracker.Create(records, in, e.today())
	if err != nil {
		return domain.Challenge{}, err
	}
	opID := uuid.NewString()
	c = res.Challenge
	evt := events.Pending{
		Type:        events.TypeChallengeCreated,
		ChallengeID: c.ID,
		OperationID: opID,
		Payload: events.EventPayload{
			"name":         c.Name,
			"durationDays": c.DurationDays,
			"startDate":    c.StartDate,
			"endDate":      c.EndDate,
		},
	}
	if err := e.commit(ctx, res.Challenges, &c, []events.Pending{evt}); err != nil {
		return domain.Challenge{}, err
	}
	e.logOp(ctx, opID, "created challenge %d %q", c.ID, c.Name)
	return c, nil
}

// Registration is the outcome of RegisterProgress.
type Registration struct {
	Challenge     domain.Challenge     `json:"challenge"`
	Entry         domain.ProgressEntry `json:"entry"`
	Authoritative bool                 `json:"authoritative"`
	Completed     bool                 `json:"completed"`
	Notices       []string             `json:"notices"`
}

// RegisterProgress records today's outcome for a challenge.
func (e *Engine) RegisterProgress(ctx context.Context, id int, fulfilled bool, note string) (r Registration, err error) {
	defer func() { e.Metrics.Op("register", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.Store.Load(ctx)
	if err != nil {
		return Registration{}, err
	}
	res, err := tracker.RegisterProgress(records, tracker.RegisterInput{
		ID:        id,
		Fulfilled: fulfilled,
		Note:      note,
		Today:     e.today(),
	})
	if err != nil {
		return Registration{}, err
	}

	opID := uuid.NewString()
	payload := events.EventPayload{
		"dayIndex":  res.Entry.DayIndex,
		"date":      res.Entry.Date,
		"fulfilled": res.Entry.Fulfilled,
	}
	evtType := events.TypeProgressSupplementary
	if res.Authoritative {
		evtType = events.TypeProgressRegistered
		payload["currentStreak"] = res.Challenge.CurrentStreak
		payload["bestStreak"] = res.Challenge.BestStreak
	}
	evts := []events.Pending{{Type: evtType, ChallengeID: id, OperationID: opID, Payload: payload}}
	if res.Completed {
		evts = append(evts, events.Pending{
			Type:        events.TypeChallengeCompleted,
			ChallengeID: id,
			OperationID: opID,
			Payload:     events.EventPayload{"daysFulfilled": res.Challenge.Stats.DaysFulfilled},
		})
	}
	if err := e.commit(ctx, res.Challenges, &res.Challenge, evts); err != nil {
		return Registration{}, err
	}

	switch {
	case !res.Authoritative:
		e.Metrics.Registration("supplementary")
	case fulfilled:
		e.Metrics.Registration("fulfilled")
	default:
		e.Metrics.Registration("failed")
	}
	if res.Completed {
		e.Metrics.Completed()
	}
	for _, n := range res.Notices {
		e.logOp(ctx, opID, "challenge %d: %s", id, n)
	}
	notices := res.Notices
	if notices == nil {
		notices = []string{}
	}
	return Registration{
		Challenge:     res.Challenge,
		Entry:         res.Entry,
		Authoritative: res.Authoritative,
		Completed:     res.Completed,
		Notices:       notices,
	}, nil
}

// Delete removes a challenge for good.
func (e *Engine) Delete(ctx context.Context, id int) (c domain.Challenge, err error) {
	defer func() { e.Metrics.Op("delete", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.Store.Load(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	out, removed, err := tracker.Delete(records, id)
	if err != nil {
		return domain.Challenge{}, err
	}
	opID := uuid.NewString()
	evt := events.Pending{
		Type:        events.TypeChallengeDeleted,
		ChallengeID: id,
		OperationID: opID,
		Payload:     events.EventPayload{"name": removed.Name, "entries": len(removed.ProgressLog)},
	}
	if err := e.commit(ctx, out, nil, []events.Pending{evt}); err != nil {
		return domain.Challenge{}, err
	}
	e.logOp(ctx, opID, "deleted challenge %d", id)
	return removed, nil
}

// SetStatus overrides a challenge's status with any of the known values.
func (e *Engine) SetStatus(ctx context.Context, id int, status string) (c domain.Challenge, err error) {
	defer func() { e.Metrics.Op("set_status", err) }()
	st, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Challenge{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.Store.Load(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	idx := domain.IndexOf(records, id)
	var from domain.Status
	if idx >= 0 {
		from = records[idx].Status
	}
	out, updated, err := tracker.SetStatus(records, id, st)
	if err != nil {
		return domain.Challenge{}, err
	}
	opID := uuid.NewString()
	evt := events.Pending{
		Type:        events.TypeChallengeStatusSet,
		ChallengeID: id,
		OperationID: opID,
		Payload:     events.EventPayload{"from": string(from), "to": string(st)},
	}
	if err := e.commit(ctx, out, &updated, []events.Pending{evt}); err != nil {
		return domain.Challenge{}, err
	}
	e.logOp(ctx, opID, "challenge %d status %s -> %s", id, from, st)
	return updated, nil
}

// List summarizes all challenges; an empty store yields domain.ErrNoChallenges.
func (e *Engine) List(ctx context.Context) (res []tracker.Summary, err error) {
	defer func() { e.Metrics.Op("list", ignoreEmpty(err)) }()
	records, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return tracker.ListAll(records)
}

// Show returns the detailed analysis of one challenge.
func (e *Engine) Show(ctx context.Context, id int) (a tracker.Analysis, err error) {
	defer func() { e.Metrics.Op("show", err) }()
	records, err := e.load(ctx)
	if err != nil {
		return tracker.Analysis{}, err
	}
	return tracker.Analyze(records, id, e.today())
}

// Get returns the full stored record.
func (e *Engine) Get(ctx context.Context, id int) (domain.Challenge, error) {
	records, err := e.load(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	idx := domain.IndexOf(records, id)
	if idx < 0 {
		return domain.Challenge{}, fmt.Errorf("challenge %d: %w", id, domain.ErrNotFound)
	}
	return records[idx], nil
}

// Filter returns the challenges with a status, or all for "all".
func (e *Engine) Filter(ctx context.Context, status string) (res []domain.Challenge, err error) {
	defer func() { e.Metrics.Op("filter", err) }()
	records, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return tracker.FilterByStatus(records, status)
}

// Events reads the journal, newest first.
func (e *Engine) Events(ctx context.Context, f events.Filter) ([]domain.Event, error) {
	j, ok := e.Store.(store.Journal)
	if !ok {
		return nil, ErrNoJournal
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return j.LatestEvents(ctx, f)
}

func (e *Engine) load(ctx context.Context) ([]domain.Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Store.Load(ctx)
}

func ignoreEmpty(err error) error {
	if errors.Is(err, domain.ErrNoChallenges) {
		return nil
	}
	return err
}
