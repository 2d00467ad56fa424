package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type StepRepositoryInterface interface {
	Create(s *model.CampaignStep) error
	ListByCampaign(campaignID int) ([]*model.CampaignStep, error)
	GetByOrder(campaignID, stepOrder int) (*model.CampaignStep, error)
	CountByCampaign(campaignID int) (int, error)
}

type StepRepository struct {
	DB *sql.DB
}

const stepColumns = `id, campaign_id, step_order, step_type, delay_days, delay_hours,
       subject, body, ai_personalize, condition_field, condition_value,
       on_true_step, on_false_step, created_at`

func scanStep(row interface{ Scan(...any) error }) (*model.CampaignStep, error) {
	var s model.CampaignStep
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.StepOrder, &s.StepType, &s.DelayDays, &s.DelayHours,
		&s.Subject, &s.Body, &s.AIPersonalize, &s.ConditionField, &s.ConditionValue,
		&s.OnTrueStep, &s.OnFalseStep, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StepRepository) Create(s *model.CampaignStep) error {
	s.CreatedAt = time.Now()
	query := `
        INSERT INTO campaign_steps (campaign_id, step_order, step_type, delay_days,
            delay_hours, subject, body, ai_personalize, condition_field,
            condition_value, on_true_step, on_false_step, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		s.CampaignID, s.StepOrder, s.StepType, s.DelayDays, s.DelayHours,
		s.Subject, s.Body, s.AIPersonalize, s.ConditionField, s.ConditionValue,
		s.OnTrueStep, s.OnFalseStep, s.CreatedAt,
	).Scan(&s.ID)
}

func (r *StepRepository) ListByCampaign(campaignID int) ([]*model.CampaignStep, error) {
	query := `SELECT ` + stepColumns + ` FROM campaign_steps WHERE campaign_id=$1 ORDER BY step_order`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []*model.CampaignStep{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func (r *StepRepository) GetByOrder(campaignID, stepOrder int) (*model.CampaignStep, error) {
	query := `SELECT ` + stepColumns + ` FROM campaign_steps WHERE campaign_id=$1 AND step_order=$2`
	s, err := scanStep(r.DB.QueryRow(query, campaignID, stepOrder))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewStepNotFound(campaignID, stepOrder)
		}
		return nil, err
	}
	return s, nil
}

func (r *StepRepository) CountByCampaign(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaign_steps WHERE campaign_id=$1`, campaignID).Scan(&count)
	return count, err
}

var _ StepRepositoryInterface = (*StepRepository)(nil)
