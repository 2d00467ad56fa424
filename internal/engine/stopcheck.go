package engine

import "github.com/unclebandit/outreach-backend/internal/model"

// SignalSource is the external collaborator reporting reply, meeting,
// unsubscribe and bounce state for a (contact, campaign) pair.
type SignalSource interface {
	GetSignals(contactID, campaignID int) (model.Signals, error)
}

// ShouldStop evaluates the stop conditions against the campaign's flags.
// It runs immediately before every dispatch attempt, not only at
// enrollment time, so a reply mid-sequence halts all future steps even if
// one is already queued. Bounces always stop.
func ShouldStop(sig model.Signals, c *model.Campaign) (bool, string) {
	if sig.Bounced {
		return true, model.StopReasonBounced
	}
	if c.RespectUnsubscribes && sig.Unsubscribed {
		return true, model.StopReasonUnsubscribed
	}
	if c.StopOnReply && sig.Replied {
		return true, model.StopReasonReplied
	}
	if c.StopOnMeeting && sig.MeetingBooked {
		return true, model.StopReasonMeetingBooked
	}
	return false, ""
}
