package repository

import (
	"database/sql"
	"fmt"
)

type RateLimiterInterface interface {
	// TryReserve atomically claims one send slot from the per-(campaign,
	// local-date) budget. limit <= 0 means unbounded.
	TryReserve(campaignID int, localDate string, limit int) (bool, error)
	// DeleteOlderThan garbage-collects stale per-day counters.
	DeleteOlderThan(days int) (int64, error)
}

// RateLimitRepository keys the daily send budget on (campaign_id,
// local_date), so the cap resets implicitly at local midnight with no
// reset job. The reservation is a single compare-and-increment statement;
// concurrent workers across processes never oversend.
type RateLimitRepository struct {
	DB *sql.DB
}

func (r *RateLimitRepository) TryReserve(campaignID int, localDate string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	query := `
        INSERT INTO campaign_send_counters (campaign_id, local_date, sent_count)
        VALUES ($1, $2, 1)
        ON CONFLICT (campaign_id, local_date)
        DO UPDATE SET sent_count = campaign_send_counters.sent_count + 1
        WHERE campaign_send_counters.sent_count < $3
        RETURNING sent_count
    `
	var count int
	err := r.DB.QueryRow(query, campaignID, localDate, limit).Scan(&count)
	if err == sql.ErrNoRows {
		// Budget exhausted for this local day. Not an error.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RateLimitRepository) DeleteOlderThan(days int) (int64, error) {
	query := fmt.Sprintf(
		`DELETE FROM campaign_send_counters WHERE local_date < to_char(NOW() - INTERVAL '%d days', 'YYYY-MM-DD')`,
		days,
	)
	res, err := r.DB.Exec(query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ RateLimiterInterface = (*RateLimitRepository)(nil)
