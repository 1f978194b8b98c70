package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the pipeline engine.
const (
	TypeCandidateCreated       = "candidate.created"
	TypeCandidateDeleted       = "candidate.deleted"
	TypeCandidateRejected      = "candidate.rejected"
	TypeCandidateDocumentation = "candidate.documentation"
	TypeCandidateHired         = "candidate.hired"
	TypeCandidateDismissed     = "candidate.dismissed"
	TypeCandidateArchived      = "candidate.archived"
	TypeChainMaterialized      = "chain.materialized"
	TypeStageActivated         = "stage.activated"
	TypeStagePassed            = "stage.passed"
	TypeStageFailed            = "stage.failed"
	TypeInterviewScheduled     = "interview.scheduled"
	TypeInterviewRescheduled   = "interview.rescheduled"
	TypeInterviewCancelled     = "interview.cancelled"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes an event row inside the caller's transaction so the log
// commits or rolls back together with the state change it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, candidateID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,candidate_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(candidateID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
