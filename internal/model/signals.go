// internal/model/signals.go
package model

// Signals is a snapshot of the external stop-condition sources for one
// (contact, campaign) pair: reply detection, meeting booking, unsubscribe
// list and bounce status.
type Signals struct {
	Replied       bool `db:"replied" json:"replied"`
	MeetingBooked bool `db:"meeting_booked" json:"meeting_booked"`
	Unsubscribed  bool `db:"unsubscribed" json:"unsubscribed"`
	Bounced       bool `db:"bounced" json:"bounced"`
}
