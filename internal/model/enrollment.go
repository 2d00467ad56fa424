// internal/model/enrollment.go
package model

import "time"

// Enrollment statuses
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusPaused    = "paused"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusStopped   = "stopped"
)

// Stop reasons
const (
	StopReasonReplied          = "replied"
	StopReasonMeetingBooked    = "meeting_booked"
	StopReasonUnsubscribed     = "unsubscribed"
	StopReasonBounced          = "bounced"
	StopReasonManual           = "manual"
	StopReasonSequenceComplete = "sequence_complete"
)

// Enrollment is one contact's progress through one campaign's step sequence.
// NextActionAt is null exactly when the enrollment is completed or stopped.
type Enrollment struct {
	ID               int        `db:"id" json:"id"`
	CampaignID       int        `db:"campaign_id" json:"campaign_id"`
	ContactID        int        `db:"contact_id" json:"contact_id"`
	CurrentStepOrder int        `db:"current_step_order" json:"current_step_order"`
	Status           string     `db:"status" json:"status"`
	StopReason       string     `db:"stop_reason" json:"stop_reason,omitempty"`
	NextActionAt     *time.Time `db:"next_action_at" json:"next_action_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (e *Enrollment) Terminal() bool {
	return e.Status == EnrollmentStatusCompleted || e.Status == EnrollmentStatusStopped
}
