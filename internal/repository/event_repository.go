package repository

import (
	"database/sql"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type ExecutionEventRepositoryInterface interface {
	Append(ev *model.ExecutionEvent) error
	// HasSent is the idempotency check for "has this step already fired".
	HasSent(enrollmentID, stepOrder int) (bool, error)
	ListByEnrollment(enrollmentID int) ([]*model.ExecutionEvent, error)
}

// ExecutionEventRepository owns the append-only dispatch ledger. Rows are
// never updated or deleted.
type ExecutionEventRepository struct {
	DB *sql.DB
}

func (r *ExecutionEventRepository) Append(ev *model.ExecutionEvent) error {
	query := `
        INSERT INTO execution_events (enrollment_id, campaign_id, step_order,
            attempted_at, outcome, failure_kind)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		ev.EnrollmentID, ev.CampaignID, ev.StepOrder, ev.AttemptedAt, ev.Outcome, ev.FailureKind,
	).Scan(&ev.ID)
}

func (r *ExecutionEventRepository) HasSent(enrollmentID, stepOrder int) (bool, error) {
	query := `
        SELECT 1 FROM execution_events
        WHERE enrollment_id=$1 AND step_order=$2 AND outcome='sent'
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRow(query, enrollmentID, stepOrder).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ExecutionEventRepository) ListByEnrollment(enrollmentID int) ([]*model.ExecutionEvent, error) {
	query := `
        SELECT id, enrollment_id, campaign_id, step_order, attempted_at, outcome, failure_kind
        FROM execution_events
        WHERE enrollment_id=$1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.ExecutionEvent{}
	for rows.Next() {
		var ev model.ExecutionEvent
		if err := rows.Scan(&ev.ID, &ev.EnrollmentID, &ev.CampaignID, &ev.StepOrder,
			&ev.AttemptedAt, &ev.Outcome, &ev.FailureKind); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, nil
}

var _ ExecutionEventRepositoryInterface = (*ExecutionEventRepository)(nil)
