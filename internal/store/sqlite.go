package store

import (
	"context"
	"database/sql"
	"fmt"

	"streakline/internal/domain"
	"streakline/internal/events"
)

// SQLiteStore keeps records and their progress entries in normalized tables.
// Save rewrites both tables in one transaction; position preserves order.
type SQLiteStore struct {
	DB     *sql.DB
	Events events.Writer
}

var _ Journal = (*SQLiteStore)(nil)

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) Load(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,name,description,duration_days,start_date,end_date,status,current_streak,best_streak,days_fulfilled,days_failed,success_percentage FROM challenges ORDER BY position`)
	if err != nil {
		return nil, &IOError{Op: "read", Path: "challenges", Err: err}
	}
	defer rows.Close()
	res := []domain.Challenge{}
	byID := map[int]int{}
	for rows.Next() {
		var c domain.Challenge
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DurationDays, &c.StartDate, &c.EndDate, &c.Status,
			&c.CurrentStreak, &c.BestStreak, &c.Stats.DaysFulfilled, &c.Stats.DaysFailed, &c.Stats.SuccessPercentage); err != nil {
			return nil, &IOError{Op: "read", Path: "challenges", Err: err}
		}
		c.ProgressLog = []domain.ProgressEntry{}
		byID[c.ID] = len(res)
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOError{Op: "read", Path: "challenges", Err: err}
	}
	if len(res) == 0 {
		return res, nil
	}

	entries, err := s.DB.QueryContext(ctx, `SELECT challenge_id,day_index,date,fulfilled,note FROM progress_entries ORDER BY challenge_id, day_index`)
	if err != nil {
		return nil, &IOError{Op: "read", Path: "progress_entries", Err: err}
	}
	defer entries.Close()
	for entries.Next() {
		var (
			cid int
			e   domain.ProgressEntry
		)
		if err := entries.Scan(&cid, &e.DayIndex, &e.Date, &e.Fulfilled, &e.Note); err != nil {
			return nil, &IOError{Op: "read", Path: "progress_entries", Err: err}
		}
		idx, ok := byID[cid]
		if !ok {
			continue
		}
		res[idx].ProgressLog = append(res[idx].ProgressLog, e)
	}
	if err := entries.Err(); err != nil {
		return nil, &IOError{Op: "read", Path: "progress_entries", Err: err}
	}
	return res, nil
}

func (s *SQLiteStore) Save(ctx context.Context, records []domain.Challenge) error {
	return s.SaveWithEvents(ctx, records, nil)
}

// SaveWithEvents replaces the record set and appends evts in the same
// transaction.
func (s *SQLiteStore) SaveWithEvents(ctx context.Context, records []domain.Challenge, evts []events.Pending) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &IOError{Op: "begin", Path: "challenges", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress_entries`); err != nil {
		return &IOError{Op: "write", Path: "progress_entries", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM challenges`); err != nil {
		return &IOError{Op: "write", Path: "challenges", Err: err}
	}
	for pos, c := range records {
		if _, err := tx.ExecContext(ctx, `INSERT INTO challenges(position,id,name,description,duration_days,start_date,end_date,status,current_streak,best_streak,days_fulfilled,days_failed,success_percentage) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			pos, c.ID, c.Name, c.Description, c.DurationDays, c.StartDate, c.EndDate, string(c.Status),
			c.CurrentStreak, c.BestStreak, c.Stats.DaysFulfilled, c.Stats.DaysFailed, c.Stats.SuccessPercentage); err != nil {
			return &IOError{Op: "write", Path: "challenges", Err: fmt.Errorf("insert challenge %d: %w", c.ID, err)}
		}
		for _, e := range c.ProgressLog {
			if _, err := tx.ExecContext(ctx, `INSERT INTO progress_entries(challenge_id,day_index,date,fulfilled,note) VALUES (?,?,?,?,?)`,
				c.ID, e.DayIndex, e.Date, e.Fulfilled, e.Note); err != nil {
				return &IOError{Op: "write", Path: "progress_entries", Err: fmt.Errorf("insert entry %d of challenge %d: %w", e.DayIndex, c.ID, err)}
			}
		}
	}
	for _, evt := range evts {
		if err := s.Events.Append(ctx, tx, evt); err != nil {
			return &IOError{Op: "write", Path: "events", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &IOError{Op: "commit", Path: "challenges", Err: err}
	}
	return nil
}

func (s *SQLiteStore) LatestEvents(ctx context.Context, f events.Filter) ([]domain.Event, error) {
	evts, err := events.Latest(ctx, s.DB, f)
	if err != nil {
		return nil, &IOError{Op: "read", Path: "events", Err: err}
	}
	return evts, nil
}
