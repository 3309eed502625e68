package streaklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Streakline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type ProgressEntry struct {
	DayIndex  int    `json:"dayIndex"`
	Date      string `json:"date"`
	Fulfilled bool   `json:"fulfilled"`
	Note      string `json:"note"`
}

type Stats struct {
	DaysFulfilled     int     `json:"daysFulfilled"`
	DaysFailed        int     `json:"daysFailed"`
	SuccessPercentage float64 `json:"successPercentage"`
}

// Challenge is the stored record.
type Challenge struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	DurationDays  int             `json:"durationDays"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Status        string          `json:"status"`
	ProgressLog   []ProgressEntry `json:"progressLog"`
	CurrentStreak int             `json:"currentStreak"`
	BestStreak    int             `json:"bestStreak"`
	Stats         Stats           `json:"stats"`
}

// Summary is one row of the challenge list.
type Summary struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	DurationDays      int     `json:"durationDays"`
	SuccessPercentage float64 `json:"successPercentage"`
}

// Analysis is the derived view of a challenge as of the server's today.
type Analysis struct {
	ID                   int            `json:"id"`
	Name                 string         `json:"name"`
	Status               string         `json:"status"`
	DurationDays         int            `json:"durationDays"`
	Description          string         `json:"description"`
	StartDate            string         `json:"startDate"`
	EndDate              string         `json:"endDate"`
	CurrentStreak        int            `json:"currentStreak"`
	BestStreak           int            `json:"bestStreak"`
	Stats                Stats          `json:"stats"`
	CompletionRate       float64        `json:"completionRate"`
	DaysElapsed          int            `json:"daysElapsed"`
	DaysRemaining        int            `json:"daysRemaining"`
	Entries              int            `json:"entries"`
	SupplementaryEntries int            `json:"supplementaryEntries"`
	LastEntry            *ProgressEntry `json:"lastEntry,omitempty"`
}

type Detail struct {
	Challenge Challenge `json:"challenge"`
	Analysis  Analysis  `json:"analysis"`
}

// Registration is the result of RegisterProgress. Notices carry the
// same-day and completion messages.
type Registration struct {
	Challenge     Challenge     `json:"challenge"`
	Entry         ProgressEntry `json:"entry"`
	Authoritative bool          `json:"authoritative"`
	Completed     bool          `json:"completed"`
	Notices       []string      `json:"notices"`
}

// Event represents a journal entry.
type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts"`
	Type        string `json:"type"`
	ChallengeID int    `json:"challenge_id"`
	OperationID string `json:"operation_id"`
	Payload     string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateChallenge creates a challenge. A zero duration uses the server default.
func (c *Client) CreateChallenge(ctx context.Context, name string, durationDays int, description string) (Challenge, error) {
	body := map[string]any{"name": name}
	if durationDays != 0 {
		body["durationDays"] = durationDays
	}
	if description != "" {
		body["description"] = description
	}
	var resp Challenge
	err := c.do(ctx, http.MethodPost, "challenges", body, &resp)
	return resp, err
}

// ListChallenges lists summaries, optionally filtered by status.
func (c *Client) ListChallenges(ctx context.Context, status string) ([]Summary, error) {
	endpoint := "challenges"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Summary
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) GetChallenge(ctx context.Context, id int) (Detail, error) {
	var resp Detail
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("challenges/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteChallenge(ctx context.Context, id int) (Challenge, error) {
	var resp Challenge
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("challenges/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) SetStatus(ctx context.Context, id int, status string) (Challenge, error) {
	var resp Challenge
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("challenges/%d/status", id), map[string]any{"status": status}, &resp)
	return resp, err
}

// RegisterProgress records today's outcome for a challenge.
func (c *Client) RegisterProgress(ctx context.Context, id int, fulfilled bool, note string) (Registration, error) {
	body := map[string]any{"fulfilled": fulfilled}
	if note != "" {
		body["note"] = note
	}
	var resp Registration
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("challenges/%d/progress", id), body, &resp)
	return resp, err
}

// Events lists journal entries, newest first.
func (c *Client) Events(ctx context.Context, eventType string, challengeID, limit int) ([]Event, error) {
	q := url.Values{}
	if eventType != "" {
		q.Set("type", eventType)
	}
	if challengeID > 0 {
		q.Set("challenge_id", strconv.Itoa(challengeID))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
