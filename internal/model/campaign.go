// internal/model/campaign.go
package model

import "time"

// Campaign types
const (
	CampaignTypeEmail        = "email"
	CampaignTypeMultiChannel = "multi_channel"
	CampaignTypeNurture      = "nurture"
	CampaignTypeOutbound     = "outbound"
)

// Campaign statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusArchived  = "archived"
)

type Campaign struct {
	ID             int        `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Type           string     `db:"type" json:"type"`
	Status         string     `db:"status" json:"status"`
	TargetSegment  string     `db:"target_segment" json:"target_segment"`
	ExcludeSegment string     `db:"exclude_segment" json:"exclude_segment"`
	StartDate      *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `db:"end_date" json:"end_date,omitempty"`

	// Send window, minutes since local midnight. Window is [start, end).
	SendWindowStart int    `db:"send_window_start" json:"send_window_start"`
	SendWindowEnd   int    `db:"send_window_end" json:"send_window_end"`
	SendDays        int    `db:"send_days" json:"send_days"` // weekday bitmask, bit n = time.Weekday(n)
	Timezone        string `db:"timezone" json:"timezone"`
	DailyLimit      int    `db:"daily_limit" json:"daily_limit"` // 0 = unbounded

	RespectUnsubscribes bool `db:"respect_unsubscribes" json:"respect_unsubscribes"`
	StopOnReply         bool `db:"stop_on_reply" json:"stop_on_reply"`
	StopOnMeeting       bool `db:"stop_on_meeting" json:"stop_on_meeting"`

	// Derived counters, maintained from execution events.
	EnrolledCount  int `db:"enrolled_count" json:"enrolled_count"`
	CompletedCount int `db:"completed_count" json:"completed_count"`
	RepliedCount   int `db:"replied_count" json:"replied_count"`
	MeetingCount   int `db:"meeting_count" json:"meeting_count"`
	BounceCount    int `db:"bounce_count" json:"bounce_count"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// validTransitions encodes draft→active→{paused↔active}→completed|archived.
var validTransitions = map[string][]string{
	CampaignStatusDraft:  {CampaignStatusActive, CampaignStatusArchived},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusArchived},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusCompleted, CampaignStatusArchived},
}

func ValidCampaignTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidCampaignType(t string) bool {
	switch t {
	case CampaignTypeEmail, CampaignTypeMultiChannel, CampaignTypeNurture, CampaignTypeOutbound:
		return true
	}
	return false
}

// Location resolves the campaign timezone, falling back to UTC on a bad name.
func (c *Campaign) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
