package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hireline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// --- vacancies ---

func (r Repo) InsertVacancy(ctx context.Context, v domain.Vacancy) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO vacancies(id,title,status,created_at) VALUES (?,?,?,?)`,
		v.ID, v.Title, v.Status, v.CreatedAt)
	return err
}

func (r Repo) GetVacancy(ctx context.Context, id string) (domain.Vacancy, error) {
	var v domain.Vacancy
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,status,created_at FROM vacancies WHERE id=?`, id).
		Scan(&v.ID, &v.Title, &v.Status, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

func (r Repo) ListVacancies(ctx context.Context) ([]domain.Vacancy, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,status,created_at FROM vacancies ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Vacancy
	for rows.Next() {
		var v domain.Vacancy
		if err := rows.Scan(&v.ID, &v.Title, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r Repo) UpdateVacancyStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE vacancies SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- candidates ---

const candidateCols = `id,vacancy_id,full_name,COALESCE(email,''),status,current_stage_index,COALESCE(rejection_stage,''),COALESCE(rejection_reason,''),COALESCE(dismissal_reason,''),dismissed_at,created_at,updated_at`

func scanCandidate(scan func(dest ...any) error) (domain.Candidate, error) {
	var c domain.Candidate
	var dismissedAt sql.NullString
	err := scan(&c.ID, &c.VacancyID, &c.FullName, &c.Email, &c.Status, &c.CurrentStageIndex,
		&c.RejectionStage, &c.RejectionReason, &c.DismissalReason, &dismissedAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if dismissedAt.Valid {
		c.DismissedAt = &dismissedAt.String
	}
	return c, nil
}

func (r Repo) InsertCandidateTx(ctx context.Context, tx *sql.Tx, c domain.Candidate) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO candidates(id,vacancy_id,full_name,email,status,current_stage_index,rejection_stage,rejection_reason,dismissal_reason,dismissed_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.VacancyID, c.FullName, nullable(c.Email), c.Status, c.CurrentStageIndex,
		nullable(c.RejectionStage), nullable(c.RejectionReason), nullable(c.DismissalReason),
		nullableStringPtr(c.DismissedAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCandidateTx(ctx context.Context, tx *sql.Tx, c domain.Candidate) error {
	_, err := tx.ExecContext(ctx, `UPDATE candidates SET vacancy_id=?, full_name=?, email=?, status=?, current_stage_index=?, rejection_stage=?, rejection_reason=?, dismissal_reason=?, dismissed_at=?, updated_at=? WHERE id=?`,
		c.VacancyID, c.FullName, nullable(c.Email), c.Status, c.CurrentStageIndex,
		nullable(c.RejectionStage), nullable(c.RejectionReason), nullable(c.DismissalReason),
		nullableStringPtr(c.DismissedAt), c.UpdatedAt, c.ID)
	return err
}

func (r Repo) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+candidateCols+` FROM candidates WHERE id=?`, id)
	return scanCandidate(row.Scan)
}

func (r Repo) GetCandidateTx(ctx context.Context, tx *sql.Tx, id string) (domain.Candidate, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+candidateCols+` FROM candidates WHERE id=?`, id)
	return scanCandidate(row.Scan)
}

type CandidateFilters struct {
	VacancyID       string
	Status          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListCandidates(ctx context.Context, f CandidateFilters) ([]domain.Candidate, error) {
	var clauses []string
	var args []any
	if f.VacancyID != "" {
		clauses = append(clauses, "vacancy_id=?")
		args = append(args, f.VacancyID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + candidateCols + ` FROM candidates ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCandidateTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountCandidatesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// --- stages ---

const stageCols = `id,candidate_id,stage_index,stage_name,interviewer_id,status,scheduled_at,completed_at,COALESCE(comments,''),rating,created_at,updated_at`

func scanStage(scan func(dest ...any) error) (domain.Stage, error) {
	var s domain.Stage
	var scheduledAt, completedAt sql.NullString
	var rating sql.NullInt64
	err := scan(&s.ID, &s.CandidateID, &s.StageIndex, &s.StageName, &s.InterviewerID, &s.Status,
		&scheduledAt, &completedAt, &s.Comments, &rating, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if scheduledAt.Valid {
		s.ScheduledAt = &scheduledAt.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	if rating.Valid {
		v := int(rating.Int64)
		s.Rating = &v
	}
	return s, nil
}

func (r Repo) InsertStageTx(ctx context.Context, tx *sql.Tx, s domain.Stage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO stages(id,candidate_id,stage_index,stage_name,interviewer_id,status,scheduled_at,completed_at,comments,rating,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.CandidateID, s.StageIndex, s.StageName, s.InterviewerID, s.Status,
		nullableStringPtr(s.ScheduledAt), nullableStringPtr(s.CompletedAt), nullable(s.Comments),
		nullableIntPtr(s.Rating), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateStageTx(ctx context.Context, tx *sql.Tx, s domain.Stage) error {
	_, err := tx.ExecContext(ctx, `UPDATE stages SET stage_name=?, interviewer_id=?, status=?, scheduled_at=?, completed_at=?, comments=?, rating=?, updated_at=? WHERE id=?`,
		s.StageName, s.InterviewerID, s.Status, nullableStringPtr(s.ScheduledAt),
		nullableStringPtr(s.CompletedAt), nullable(s.Comments), nullableIntPtr(s.Rating), s.UpdatedAt, s.ID)
	return err
}

func (r Repo) GetStage(ctx context.Context, id string) (domain.Stage, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE id=?`, id)
	return scanStage(row.Scan)
}

func (r Repo) GetStageTx(ctx context.Context, tx *sql.Tx, id string) (domain.Stage, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE id=?`, id)
	return scanStage(row.Scan)
}

func (r Repo) GetStageByIndexTx(ctx context.Context, tx *sql.Tx, candidateID string, index int) (domain.Stage, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE candidate_id=? AND stage_index=?`, candidateID, index)
	return scanStage(row.Scan)
}

func (r Repo) ListStages(ctx context.Context, candidateID string) ([]domain.Stage, error) {
	return r.listStages(ctx, r.DB.QueryContext, candidateID)
}

func (r Repo) ListStagesTx(ctx context.Context, tx *sql.Tx, candidateID string) ([]domain.Stage, error) {
	return r.listStages(ctx, tx.QueryContext, candidateID)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r Repo) listStages(ctx context.Context, query queryFunc, candidateID string) ([]domain.Stage, error) {
	rows, err := query(ctx, `SELECT `+stageCols+` FROM stages WHERE candidate_id=? ORDER BY stage_index ASC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stage
	for rows.Next() {
		s, err := scanStage(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) DeleteStagesTx(ctx context.Context, tx *sql.Tx, candidateID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM interviews WHERE candidate_id=?`, candidateID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE candidate_id=?`, candidateID)
	return err
}

// --- stage history ---

func (r Repo) InsertStageHistoryTx(ctx context.Context, tx *sql.Tx, h domain.StageHistory) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO stage_history(id,candidate_id,stage_index,stage_name,interviewer_id,status,comments,rating,completed_at,archived_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.CandidateID, h.StageIndex, h.StageName, h.InterviewerID, h.Status,
		nullable(h.Comments), nullableIntPtr(h.Rating), nullableStringPtr(h.CompletedAt), h.ArchivedAt)
	return err
}

func (r Repo) ListStageHistory(ctx context.Context, candidateID string) ([]domain.StageHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,candidate_id,stage_index,stage_name,interviewer_id,status,COALESCE(comments,''),rating,completed_at,archived_at FROM stage_history WHERE candidate_id=? ORDER BY archived_at ASC, stage_index ASC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StageHistory
	for rows.Next() {
		var h domain.StageHistory
		var completedAt sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&h.ID, &h.CandidateID, &h.StageIndex, &h.StageName, &h.InterviewerID, &h.Status, &h.Comments, &rating, &completedAt, &h.ArchivedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			h.CompletedAt = &completedAt.String
		}
		if rating.Valid {
			v := int(rating.Int64)
			h.Rating = &v
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

// --- interviews ---

const interviewCols = `id,stage_id,candidate_id,interviewer_id,scheduled_at,duration_minutes,status,outcome,COALESCE(notes,''),created_at,updated_at`

func scanInterview(scan func(dest ...any) error) (domain.Interview, error) {
	var iv domain.Interview
	var outcome sql.NullString
	err := scan(&iv.ID, &iv.StageID, &iv.CandidateID, &iv.InterviewerID, &iv.ScheduledAt,
		&iv.DurationMinutes, &iv.Status, &outcome, &iv.Notes, &iv.CreatedAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		return iv, ErrNotFound
	}
	if err != nil {
		return iv, err
	}
	if outcome.Valid {
		iv.Outcome = &outcome.String
	}
	return iv, nil
}

func (r Repo) InsertInterviewTx(ctx context.Context, tx *sql.Tx, iv domain.Interview) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO interviews(id,stage_id,candidate_id,interviewer_id,scheduled_at,duration_minutes,status,outcome,notes,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		iv.ID, iv.StageID, iv.CandidateID, iv.InterviewerID, iv.ScheduledAt, iv.DurationMinutes,
		iv.Status, nullableStringPtr(iv.Outcome), nullable(iv.Notes), iv.CreatedAt, iv.UpdatedAt)
	return err
}

func (r Repo) UpdateInterviewTx(ctx context.Context, tx *sql.Tx, iv domain.Interview) error {
	_, err := tx.ExecContext(ctx, `UPDATE interviews SET scheduled_at=?, duration_minutes=?, status=?, outcome=?, notes=?, updated_at=? WHERE id=?`,
		iv.ScheduledAt, iv.DurationMinutes, iv.Status, nullableStringPtr(iv.Outcome), nullable(iv.Notes), iv.UpdatedAt, iv.ID)
	return err
}

func (r Repo) GetInterview(ctx context.Context, id string) (domain.Interview, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE id=?`, id)
	return scanInterview(row.Scan)
}

func (r Repo) GetInterviewTx(ctx context.Context, tx *sql.Tx, id string) (domain.Interview, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE id=?`, id)
	return scanInterview(row.Scan)
}

// LiveInterviewForStageTx returns the stage's current booking, if any.
// Scheduled and rescheduled interviews both hold the slot.
func (r Repo) LiveInterviewForStageTx(ctx context.Context, tx *sql.Tx, stageID string) (domain.Interview, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE stage_id=? AND status IN ('scheduled','rescheduled') LIMIT 1`, stageID)
	return scanInterview(row.Scan)
}

// ListLiveInterviewsByInterviewerTx returns every booking currently holding
// a slot for the interviewer, ordered by start time.
func (r Repo) ListLiveInterviewsByInterviewerTx(ctx context.Context, tx *sql.Tx, interviewerID string) ([]domain.Interview, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE interviewer_id=? AND status IN ('scheduled','rescheduled') ORDER BY scheduled_at ASC`, interviewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Interview
	for rows.Next() {
		iv, err := scanInterview(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, rows.Err()
}

func (r Repo) ListInterviewsByInterviewer(ctx context.Context, interviewerID string) ([]domain.Interview, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE interviewer_id=? ORDER BY scheduled_at ASC`, interviewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Interview
	for rows.Next() {
		iv, err := scanInterview(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, rows.Err()
}

func (r Repo) ListInterviewsByCandidate(ctx context.Context, candidateID string) ([]domain.Interview, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+interviewCols+` FROM interviews WHERE candidate_id=? ORDER BY created_at ASC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Interview
	for rows.Next() {
		iv, err := scanInterview(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, rows.Err()
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, candidateID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, candidateID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, candidateID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if candidateID != "" {
		clauses = append(clauses, "candidate_id=?")
		args = append(args, candidateID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,candidate_id,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, candidateID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if candidateID != "" {
		clauses = append(clauses, "candidate_id=?")
		args = append(args, candidateID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,candidate_id,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var candidateID, entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &candidateID, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if candidateID.Valid {
			e.CandidateID = candidateID.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
