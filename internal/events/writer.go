package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"streakline/internal/domain"
)

const (
	TypeChallengeCreated      = "challenge.created"
	TypeChallengeDeleted      = "challenge.deleted"
	TypeChallengeStatusSet    = "challenge.status_set"
	TypeChallengeCompleted    = "challenge.completed"
	TypeProgressRegistered    = "progress.registered"
	TypeProgressSupplementary = "progress.supplementary"
)

type EventPayload map[string]any

// Pending is an event produced by an operation and written together with the
// record set it describes.
type Pending struct {
	Type        string
	ChallengeID int
	OperationID string
	Payload     EventPayload
}

type Writer struct {
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evt Pending) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	payload := evt.Payload
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,challenge_id,operation_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evt.Type, nullableID(evt.ChallengeID), evt.OperationID, string(data))
	return err
}

type Filter struct {
	Limit       int
	Type        string
	ChallengeID int
}

// Latest returns the newest events first.
func Latest(ctx context.Context, db *sql.DB, f Filter) ([]domain.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.ChallengeID > 0 {
		clauses = append(clauses, "challenge_id=?")
		args = append(args, f.ChallengeID)
	}
	query := `SELECT id,ts,type,COALESCE(challenge_id,0),operation_id,payload_json FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ChallengeID, &e.OperationID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullableID(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}
