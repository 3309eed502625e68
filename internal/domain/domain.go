package domain

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusActive, StatusCompleted, StatusAbandoned}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

type Stats struct {
	DaysFulfilled     int     `json:"daysFulfilled" yaml:"daysFulfilled"`
	DaysFailed        int     `json:"daysFailed" yaml:"daysFailed"`
	SuccessPercentage float64 `json:"successPercentage" yaml:"successPercentage"`
}

type ProgressEntry struct {
	DayIndex  int    `json:"dayIndex" yaml:"dayIndex"`
	Date      string `json:"date" yaml:"date"`
	Fulfilled bool   `json:"fulfilled" yaml:"fulfilled"`
	Note      string `json:"note" yaml:"note"`
}

// Challenge is a goal pursued daily for DurationDays days. Field names are
// the persisted names.
type Challenge struct {
	ID            int             `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Description   string          `json:"description" yaml:"description"`
	DurationDays  int             `json:"durationDays" yaml:"durationDays"`
	StartDate     string          `json:"startDate" yaml:"startDate"`
	EndDate       string          `json:"endDate" yaml:"endDate"`
	Status        Status          `json:"status" yaml:"status" enum:"active,completed,abandoned"`
	ProgressLog   []ProgressEntry `json:"progressLog" yaml:"progressLog"`
	CurrentStreak int             `json:"currentStreak" yaml:"currentStreak"`
	BestStreak    int             `json:"bestStreak" yaml:"bestStreak"`
	Stats         Stats           `json:"stats" yaml:"stats"`
}

// Event is one row of the activity journal.
type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	ChallengeID int    `json:"challenge_id,omitempty"`
	OperationID string `json:"operation_id"`
	Payload     string `json:"payload_json"`
}
