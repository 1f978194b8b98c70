package server

import (
	"encoding/json"

	"hireline/internal/domain"
)

// Request payloads

type StageRefRequest struct {
	StageName     string `json:"stage_name"`
	InterviewerID string `json:"interviewer_id"`
}

type CreateCandidateRequest struct {
	ID        *string           `json:"id,omitempty"`
	VacancyID string            `json:"vacancy_id"`
	FullName  string            `json:"full_name"`
	Email     *string           `json:"email,omitempty"`
	Chain     []StageRefRequest `json:"chain"`
}

type UpdateChainRequest struct {
	Chain []StageRefRequest `json:"chain"`
}

type BookInterviewRequest struct {
	InterviewerID   *string `json:"interviewer_id,omitempty"`
	ScheduledAt     string  `json:"scheduled_at" format:"date-time"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type RescheduleInterviewRequest struct {
	ScheduledAt string `json:"scheduled_at" format:"date-time"`
}

type OutcomeRequest struct {
	Outcome     string  `json:"outcome" enum:"passed,failed"`
	Comments    string  `json:"comments"`
	Rating      *int    `json:"rating,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
}

type DismissRequest struct {
	Reason      string  `json:"reason"`
	DismissedAt *string `json:"dismissed_at,omitempty" format:"date-time"`
}

type CreateUserRequest struct {
	ID       *string `json:"id,omitempty"`
	FullName string  `json:"full_name"`
	Email    string  `json:"email,omitempty"`
	Role     string  `json:"role" enum:"admin,hr,interviewer"`
}

type CreateVacancyRequest struct {
	ID    *string `json:"id,omitempty"`
	Title string  `json:"title"`
}

// Response payloads

type CandidateResponse struct {
	ID                string  `json:"id"`
	VacancyID         string  `json:"vacancy_id"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email,omitempty"`
	Status            string  `json:"status" enum:"active,documentation,hired,rejected,archived,dismissed"`
	CurrentStageIndex int     `json:"current_stage_index"`
	RejectionStage    string  `json:"rejection_stage,omitempty"`
	RejectionReason   string  `json:"rejection_reason,omitempty"`
	DismissalReason   string  `json:"dismissal_reason,omitempty"`
	DismissedAt       *string `json:"dismissed_at,omitempty" format:"date-time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type StageResponse struct {
	ID            string  `json:"id"`
	CandidateID   string  `json:"candidate_id"`
	StageIndex    int     `json:"stage_index"`
	StageName     string  `json:"stage_name"`
	InterviewerID string  `json:"interviewer_id"`
	Status        string  `json:"status" enum:"waiting,pending,in_progress,passed,failed"`
	ScheduledAt   *string `json:"scheduled_at,omitempty" format:"date-time"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	Comments      string  `json:"comments,omitempty"`
	Rating        *int    `json:"rating,omitempty"`
}

type InterviewResponse struct {
	ID              string  `json:"id"`
	StageID         string  `json:"stage_id"`
	CandidateID     string  `json:"candidate_id"`
	InterviewerID   string  `json:"interviewer_id"`
	ScheduledAt     string  `json:"scheduled_at" format:"date-time"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status" enum:"scheduled,completed,cancelled,rescheduled"`
	Outcome         *string `json:"outcome,omitempty" enum:"passed,failed"`
	Notes           string  `json:"notes,omitempty"`
}

type StageHistoryResponse struct {
	ID            string  `json:"id"`
	StageIndex    int     `json:"stage_index"`
	StageName     string  `json:"stage_name"`
	InterviewerID string  `json:"interviewer_id"`
	Status        string  `json:"status"`
	Comments      string  `json:"comments,omitempty"`
	Rating        *int    `json:"rating,omitempty"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	ArchivedAt    string  `json:"archived_at" format:"date-time"`
}

type VacancyResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status" enum:"open,closed"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type UserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role" enum:"admin,hr,interviewer"`
}

type EventResponse struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts" format:"date-time"`
	Type        string         `json:"type"`
	CandidateID string         `json:"candidate_id,omitempty"`
	EntityKind  string         `json:"entity_kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func candidateResponse(c domain.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:                c.ID,
		VacancyID:         c.VacancyID,
		FullName:          c.FullName,
		Email:             c.Email,
		Status:            c.Status,
		CurrentStageIndex: c.CurrentStageIndex,
		RejectionStage:    c.RejectionStage,
		RejectionReason:   c.RejectionReason,
		DismissalReason:   c.DismissalReason,
		DismissedAt:       c.DismissedAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func mapCandidates(items []domain.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(items))
	for _, c := range items {
		out = append(out, candidateResponse(c))
	}
	return out
}

func stageResponse(s domain.Stage) StageResponse {
	return StageResponse{
		ID:            s.ID,
		CandidateID:   s.CandidateID,
		StageIndex:    s.StageIndex,
		StageName:     s.StageName,
		InterviewerID: s.InterviewerID,
		Status:        s.Status,
		ScheduledAt:   s.ScheduledAt,
		CompletedAt:   s.CompletedAt,
		Comments:      s.Comments,
		Rating:        s.Rating,
	}
}

func mapStages(items []domain.Stage) []StageResponse {
	out := make([]StageResponse, 0, len(items))
	for _, s := range items {
		out = append(out, stageResponse(s))
	}
	return out
}

func interviewResponse(iv domain.Interview) InterviewResponse {
	return InterviewResponse{
		ID:              iv.ID,
		StageID:         iv.StageID,
		CandidateID:     iv.CandidateID,
		InterviewerID:   iv.InterviewerID,
		ScheduledAt:     iv.ScheduledAt,
		DurationMinutes: iv.DurationMinutes,
		Status:          iv.Status,
		Outcome:         iv.Outcome,
		Notes:           iv.Notes,
	}
}

func mapInterviews(items []domain.Interview) []InterviewResponse {
	out := make([]InterviewResponse, 0, len(items))
	for _, iv := range items {
		out = append(out, interviewResponse(iv))
	}
	return out
}

func mapStageHistory(items []domain.StageHistory) []StageHistoryResponse {
	out := make([]StageHistoryResponse, 0, len(items))
	for _, h := range items {
		out = append(out, StageHistoryResponse{
			ID:            h.ID,
			StageIndex:    h.StageIndex,
			StageName:     h.StageName,
			InterviewerID: h.InterviewerID,
			Status:        h.Status,
			Comments:      h.Comments,
			Rating:        h.Rating,
			CompletedAt:   h.CompletedAt,
			ArchivedAt:    h.ArchivedAt,
		})
	}
	return out
}

func vacancyResponse(v domain.Vacancy) VacancyResponse {
	return VacancyResponse{ID: v.ID, Title: v.Title, Status: v.Status, CreatedAt: v.CreatedAt}
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

func eventResponse(evt domain.Event) EventResponse {
	var payload map[string]any
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:          evt.ID,
		TS:          evt.TS,
		Type:        evt.Type,
		CandidateID: evt.CandidateID,
		EntityKind:  evt.EntityKind,
		EntityID:    evt.EntityID,
		ActorID:     evt.ActorID,
		Payload:     payload,
	}
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, evt := range items {
		out = append(out, eventResponse(evt))
	}
	return out
}

func stageRefs(chain []StageRefRequest) []domain.StageRef {
	out := make([]domain.StageRef, 0, len(chain))
	for _, ref := range chain {
		out = append(out, domain.StageRef{StageName: ref.StageName, InterviewerID: ref.InterviewerID})
	}
	return out
}
