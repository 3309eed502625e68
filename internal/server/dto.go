package server

import (
	"streakline/internal/domain"
	"streakline/internal/engine"
	"streakline/internal/tracker"
)

// Request payloads

type CreateChallengeRequest struct {
	Name         string `json:"name" minLength:"1" example:"Read daily"`
	DurationDays *int   `json:"durationDays,omitempty" minimum:"1" example:"30" doc:"Defaults to the configured duration"`
	Description  string `json:"description,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status" enum:"active,completed,abandoned"`
}

type RegisterProgressRequest struct {
	Fulfilled bool   `json:"fulfilled"`
	Note      string `json:"note,omitempty"`
}

// Response payloads

type ChallengeDetail struct {
	Challenge domain.Challenge `json:"challenge"`
	Analysis  tracker.Analysis `json:"analysis"`
}

type RegistrationResponse = engine.Registration

type EventResponse struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts"`
	Type        string `json:"type"`
	ChallengeID int    `json:"challenge_id,omitempty"`
	OperationID string `json:"operation_id"`
	Payload     string `json:"payload_json"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		TS:          e.TS,
		Type:        e.Type,
		ChallengeID: e.ChallengeID,
		OperationID: e.OperationID,
		Payload:     e.Payload,
	}
}

func summaries(items []domain.Challenge) []tracker.Summary {
	res, err := tracker.ListAll(items)
	if err != nil {
		return []tracker.Summary{}
	}
	return res
}
