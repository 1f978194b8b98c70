package domain

// Candidate statuses.
const (
	CandidateActive        = "active"
	CandidateDocumentation = "documentation"
	CandidateHired         = "hired"
	CandidateRejected      = "rejected"
	CandidateArchived      = "archived"
	CandidateDismissed     = "dismissed"
)

// Stage statuses.
const (
	StageWaiting    = "waiting"
	StagePending    = "pending"
	StageInProgress = "in_progress"
	StagePassed     = "passed"
	StageFailed     = "failed"
)

// User roles.
const (
	RoleAdmin       = "admin"
	RoleHR          = "hr"
	RoleInterviewer = "interviewer"
)

// Interview statuses.
const (
	InterviewScheduled   = "scheduled"
	InterviewCompleted   = "completed"
	InterviewCancelled   = "cancelled"
	InterviewRescheduled = "rescheduled"
)

type Candidate struct {
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

// StageRef is one entry of a candidate's interview stage chain as supplied
// by callers; Stage rows are materialized from it.
type StageRef struct {
	StageName     string `json:"stage_name"`
	InterviewerID string `json:"interviewer_id"`
}

type Stage struct {
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
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type Interview struct {
	ID              string  `json:"id"`
	StageID         string  `json:"stage_id"`
	CandidateID     string  `json:"candidate_id"`
	InterviewerID   string  `json:"interviewer_id"`
	ScheduledAt     string  `json:"scheduled_at" format:"date-time"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status" enum:"scheduled,completed,cancelled,rescheduled"`
	Outcome         *string `json:"outcome,omitempty" enum:"passed,failed"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

// StageHistory is an archived snapshot of a completed stage, written when a
// candidate's chain is rematerialized so recorded feedback survives chain edits.
type StageHistory struct {
	ID            string  `json:"id"`
	CandidateID   string  `json:"candidate_id"`
	StageIndex    int     `json:"stage_index"`
	StageName     string  `json:"stage_name"`
	InterviewerID string  `json:"interviewer_id"`
	Status        string  `json:"status"`
	Comments      string  `json:"comments,omitempty"`
	Rating        *int    `json:"rating,omitempty"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	ArchivedAt    string  `json:"archived_at" format:"date-time"`
}

type Vacancy struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status" enum:"open,closed"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type User struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"admin,hr,interviewer"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	CandidateID string `json:"candidate_id,omitempty"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	Payload     string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
