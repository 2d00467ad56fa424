package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID int, status string) error

	// Aggregate counters
	IncrementCounter(campaignID int, column string) error
	RecomputeCounters(campaignID int) error
	GetCampaignStats(campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, type, status, target_segment, exclude_segment,
       start_date, end_date, send_window_start, send_window_end, send_days,
       timezone, daily_limit, respect_unsubscribes, stop_on_reply, stop_on_meeting,
       enrolled_count, completed_count, replied_count, meeting_count, bounce_count,
       created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Status, &c.TargetSegment, &c.ExcludeSegment,
		&c.StartDate, &c.EndDate, &c.SendWindowStart, &c.SendWindowEnd, &c.SendDays,
		&c.Timezone, &c.DailyLimit, &c.RespectUnsubscribes, &c.StopOnReply, &c.StopOnMeeting,
		&c.EnrolledCount, &c.CompletedCount, &c.RepliedCount, &c.MeetingCount, &c.BounceCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	query := `
        INSERT INTO campaigns (name, type, status, target_segment, exclude_segment,
            start_date, end_date, send_window_start, send_window_end, send_days,
            timezone, daily_limit, respect_unsubscribes, stop_on_reply, stop_on_meeting,
            created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.Name, c.Type, c.Status, c.TargetSegment, c.ExcludeSegment,
		c.StartDate, c.EndDate, c.SendWindowStart, c.SendWindowEnd, c.SendDays,
		c.Timezone, c.DailyLimit, c.RespectUnsubscribes, c.StopOnReply, c.StopOnMeeting,
		c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, target_segment=$2, exclude_segment=$3, start_date=$4, end_date=$5,
            send_window_start=$6, send_window_end=$7, send_days=$8, timezone=$9,
            daily_limit=$10, respect_unsubscribes=$11, stop_on_reply=$12,
            stop_on_meeting=$13, updated_at=NOW()
        WHERE id=$14
    `
	_, err := r.DB.Exec(query,
		c.Name, c.TargetSegment, c.ExcludeSegment, c.StartDate, c.EndDate,
		c.SendWindowStart, c.SendWindowEnd, c.SendDays, c.Timezone,
		c.DailyLimit, c.RespectUnsubscribes, c.StopOnReply, c.StopOnMeeting, c.ID,
	)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if ctype != "" {
		query += fmt.Sprintf(" AND type=$%d", argPos)
		args = append(args, ctype)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if ctype != "" {
		countQuery += fmt.Sprintf(" AND type=$%d", argPosCount)
		argsCount = append(argsCount, ctype)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Aggregate Counters ======================

// counterColumns whitelists the incrementable counter columns so the
// column name can be interpolated safely.
var counterColumns = map[string]bool{
	"enrolled_count":  true,
	"completed_count": true,
	"replied_count":   true,
	"meeting_count":   true,
	"bounce_count":    true,
}

func (r *CampaignRepository) IncrementCounter(campaignID int, column string) error {
	if !counterColumns[column] {
		return fmt.Errorf("unknown counter column: %s", column)
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s=%s+1, updated_at=NOW() WHERE id=$1`, column, column)
	_, err := r.DB.Exec(query, campaignID)
	return err
}

// RecomputeCounters rebuilds all counters from enrollments and the event
// ledger. Repair/reconciliation tool only; never on the hot path.
func (r *CampaignRepository) RecomputeCounters(campaignID int) error {
	query := `
        UPDATE campaigns SET
            enrolled_count  = (SELECT COUNT(*) FROM enrollments WHERE campaign_id=$1),
            completed_count = (SELECT COUNT(*) FROM enrollments WHERE campaign_id=$1 AND status='completed'),
            replied_count   = (SELECT COUNT(*) FROM enrollments WHERE campaign_id=$1 AND stop_reason='replied'),
            meeting_count   = (SELECT COUNT(*) FROM enrollments WHERE campaign_id=$1 AND stop_reason='meeting_booked'),
            bounce_count    = (SELECT COUNT(*) FROM execution_events WHERE campaign_id=$1 AND outcome='failed' AND failure_kind='bounce'),
            updated_at      = NOW()
        WHERE id=$1
    `
	_, err := r.DB.Exec(query, campaignID)
	return err
}

func (r *CampaignRepository) GetCampaignStats(campaignID int) (map[string]int, error) {
	stats := map[string]int{
		"total": 0, "sent": 0, "failed": 0, "retried": 0, "skipped": 0,
		"active": 0, "paused": 0, "completed": 0, "stopped": 0,
	}

	query := `SELECT outcome, COUNT(*) FROM execution_events WHERE campaign_id=$1 GROUP BY outcome`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[outcome]; ok {
			stats[outcome] = count
		}
		stats["total"] += count
	}

	query = `SELECT status, COUNT(*) FROM enrollments WHERE campaign_id=$1 GROUP BY status`
	rows, err = r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
	}

	return stats, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
