package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EnrollmentRepositoryInterface interface {
	// Create inserts idempotently on (campaign_id, contact_id) and reports
	// whether a new row was created.
	Create(e *model.Enrollment) (bool, error)
	GetByID(id int) (*model.Enrollment, error)
	GetByCampaignAndContact(campaignID, contactID int) (*model.Enrollment, error)

	// ListDue selects active enrollments of active campaigns whose
	// next_action_at has passed.
	ListDue(now time.Time, limit int) ([]*model.Enrollment, error)

	// Update persists step/schedule changes guarded by the step order the
	// caller read, so no two workers advance the same enrollment and a
	// concurrent manual stop always wins. Reports whether the row matched.
	Update(e *model.Enrollment, expectedStepOrder int) (bool, error)

	// SetStatus is the unconditional write used by manual pause/resume/stop.
	SetStatus(id int, status, stopReason string, nextActionAt *time.Time) error
}

type EnrollmentRepository struct {
	DB *sql.DB
}

const enrollmentColumns = `id, campaign_id, contact_id, current_step_order, status,
       stop_reason, next_action_at, created_at, updated_at`

func scanEnrollment(row interface{ Scan(...any) error }) (*model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.ContactID, &e.CurrentStepOrder, &e.Status,
		&e.StopReason, &e.NextActionAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) (bool, error) {
	query := `
        INSERT INTO enrollments (campaign_id, contact_id, current_step_order, status,
            next_action_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (campaign_id, contact_id) DO NOTHING
        RETURNING id, created_at
    `
	err := r.DB.QueryRow(query,
		e.CampaignID, e.ContactID, e.CurrentStepOrder, e.Status, e.NextActionAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		// Already enrolled; exactly one enrollment per (campaign, contact).
		existing, err := r.GetByCampaignAndContact(e.CampaignID, e.ContactID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			*e = *existing
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *EnrollmentRepository) GetByID(id int) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id=$1`
	e, err := scanEnrollment(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewEnrollmentNotFound(id)
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) GetByCampaignAndContact(campaignID, contactID int) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE campaign_id=$1 AND contact_id=$2`
	e, err := scanEnrollment(r.DB.QueryRow(query, campaignID, contactID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) ListDue(now time.Time, limit int) ([]*model.Enrollment, error) {
	query := `
        SELECT e.id, e.campaign_id, e.contact_id, e.current_step_order, e.status,
               e.stop_reason, e.next_action_at, e.created_at, e.updated_at
        FROM enrollments e
        JOIN campaigns c ON c.id = e.campaign_id
        WHERE e.status = 'active'
          AND c.status = 'active'
          AND e.next_action_at IS NOT NULL
          AND e.next_action_at <= $1
          AND (c.start_date IS NULL OR c.start_date <= $1)
          AND (c.end_date IS NULL OR c.end_date >= $1)
        ORDER BY e.next_action_at
        LIMIT $2
    `
	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []*model.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, e)
	}
	return due, nil
}

func (r *EnrollmentRepository) Update(e *model.Enrollment, expectedStepOrder int) (bool, error) {
	query := `
        UPDATE enrollments
        SET current_step_order=$1, status=$2, stop_reason=$3, next_action_at=$4, updated_at=NOW()
        WHERE id=$5 AND current_step_order=$6 AND status='active'
    `
	res, err := r.DB.Exec(query,
		e.CurrentStepOrder, e.Status, e.StopReason, e.NextActionAt, e.ID, expectedStepOrder,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *EnrollmentRepository) SetStatus(id int, status, stopReason string, nextActionAt *time.Time) error {
	query := `
        UPDATE enrollments
        SET status=$1, stop_reason=$2, next_action_at=$3, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, status, stopReason, nextActionAt, id)
	return err
}

var _ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)
