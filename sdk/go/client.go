package hirelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Hireline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// StageRef is one stage chain entry.
type StageRef struct {
	StageName     string `json:"stage_name"`
	InterviewerID string `json:"interviewer_id"`
}

// Candidate represents the API candidate model.
type Candidate struct {
	ID                string `json:"id"`
	VacancyID         string `json:"vacancy_id"`
	FullName          string `json:"full_name"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
	CurrentStageIndex int    `json:"current_stage_index"`
	RejectionStage    string `json:"rejection_stage,omitempty"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
}

// Stage represents one stage of a candidate's chain.
type Stage struct {
	ID            string  `json:"id"`
	CandidateID   string  `json:"candidate_id"`
	StageIndex    int     `json:"stage_index"`
	StageName     string  `json:"stage_name"`
	InterviewerID string  `json:"interviewer_id"`
	Status        string  `json:"status"`
	ScheduledAt   *string `json:"scheduled_at,omitempty"`
	Comments      string  `json:"comments,omitempty"`
	Rating        *int    `json:"rating,omitempty"`
}

// Interview represents a booked interview slot.
type Interview struct {
	ID              string  `json:"id"`
	StageID         string  `json:"stage_id"`
	CandidateID     string  `json:"candidate_id"`
	InterviewerID   string  `json:"interviewer_id"`
	ScheduledAt     string  `json:"scheduled_at"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status"`
	Outcome         *string `json:"outcome,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts"`
	Type        string         `json:"type"`
	CandidateID string         `json:"candidate_id,omitempty"`
	EntityKind  string         `json:"entity_kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCandidate creates a candidate with its stage chain.
func (c *Client) CreateCandidate(ctx context.Context, vacancyID, fullName string, chain []StageRef) (Candidate, error) {
	body := map[string]any{
		"vacancy_id": vacancyID,
		"full_name":  fullName,
		"chain":      chain,
	}
	var resp Candidate
	err := c.do(ctx, http.MethodPost, "v0/candidates", body, &resp)
	return resp, err
}

// GetCandidate fetches a candidate by id.
func (c *Client) GetCandidate(ctx context.Context, id string) (Candidate, error) {
	var resp Candidate
	err := c.do(ctx, http.MethodGet, "v0/candidates/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Chain returns the candidate's stages in order.
func (c *Client) Chain(ctx context.Context, candidateID string) ([]Stage, error) {
	var resp []Stage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/candidates/%s/chain", url.PathEscape(candidateID)), nil, &resp)
	return resp, err
}

// UpdateChain replaces the candidate's stage chain.
func (c *Client) UpdateChain(ctx context.Context, candidateID string, chain []StageRef) ([]Stage, error) {
	var resp []Stage
	body := map[string]any{"chain": chain}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("v0/candidates/%s/chain", url.PathEscape(candidateID)), body, &resp)
	return resp, err
}

// BookInterview books an interview slot for a stage.
func (c *Client) BookInterview(ctx context.Context, stageID string, scheduledAt time.Time, durationMinutes int) (Interview, error) {
	body := map[string]any{
		"scheduled_at": scheduledAt.UTC().Format(time.RFC3339),
	}
	if durationMinutes > 0 {
		body["duration_minutes"] = durationMinutes
	}
	var resp Interview
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/stages/%s/interview", url.PathEscape(stageID)), body, &resp)
	return resp, err
}

// RescheduleInterview moves an interview to a new slot.
func (c *Client) RescheduleInterview(ctx context.Context, interviewID string, newAt time.Time) (Interview, error) {
	body := map[string]any{"scheduled_at": newAt.UTC().Format(time.RFC3339)}
	var resp Interview
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/interviews/%s/reschedule", url.PathEscape(interviewID)), body, &resp)
	return resp, err
}

// RecordOutcome settles a stage as passed or failed.
func (c *Client) RecordOutcome(ctx context.Context, stageID, outcome, comments string, rating *int) (Stage, error) {
	body := map[string]any{
		"outcome":  outcome,
		"comments": comments,
	}
	if rating != nil {
		body["rating"] = *rating
	}
	var resp Stage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/stages/%s/outcome", url.PathEscape(stageID)), body, &resp)
	return resp, err
}

// Schedule returns an interviewer's interviews.
func (c *Client) Schedule(ctx context.Context, interviewerID string) ([]Interview, error) {
	var resp []Interview
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/users/%s/schedule", url.PathEscape(interviewerID)), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
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
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
