package repository

import (
	"database/sql"

	"github.com/unclebandit/outreach-backend/internal/model"
)

// SignalRepository reads the stop-condition signals the rest of the
// product writes: reply detection from the inbox, meeting bookings,
// unsubscribes and provider bounce callbacks all land in contact_signals.
// The engine only ever reads this table.
type SignalRepository struct {
	DB *sql.DB
}

func (r *SignalRepository) GetSignals(contactID, campaignID int) (model.Signals, error) {
	query := `
        SELECT replied, meeting_booked, unsubscribed, bounced
        FROM contact_signals
        WHERE contact_id=$1 AND campaign_id=$2
    `
	var s model.Signals
	err := r.DB.QueryRow(query, contactID, campaignID).Scan(
		&s.Replied, &s.MeetingBooked, &s.Unsubscribed, &s.Bounced,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Signals{}, nil
		}
		return model.Signals{}, err
	}
	return s, nil
}
