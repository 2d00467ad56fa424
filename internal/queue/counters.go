package queue

import (
	"log"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// StatusChange is published on enrollment_status whenever an enrollment
// reaches a terminal state or is resumed/paused.
type StatusChange struct {
	EnrollmentID int    `json:"enrollment_id"`
	CampaignID   int    `json:"campaign_id"`
	Status       string `json:"status"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// ApplyExecutionEvent maps an execution event onto the campaign's
// aggregate counters. Only bounces move a counter; sent/skipped/retried
// are ledger-only.
func ApplyExecutionEvent(repo repository.CampaignRepositoryInterface, ev *model.ExecutionEvent) error {
	if ev.Outcome == model.OutcomeFailed && ev.FailureKind == model.FailureBounce {
		return repo.IncrementCounter(ev.CampaignID, "bounce_count")
	}
	return nil
}

// ApplyStatusChange maps a terminal enrollment status change onto the
// campaign's aggregate counters.
func ApplyStatusChange(repo repository.CampaignRepositoryInterface, sc *StatusChange) error {
	switch sc.Status {
	case model.EnrollmentStatusCompleted:
		return repo.IncrementCounter(sc.CampaignID, "completed_count")
	case model.EnrollmentStatusStopped:
		switch sc.StopReason {
		case model.StopReasonReplied:
			return repo.IncrementCounter(sc.CampaignID, "replied_count")
		case model.StopReasonMeetingBooked:
			return repo.IncrementCounter(sc.CampaignID, "meeting_count")
		}
	}
	return nil
}

// StartCounterSubscriber wires the counter updates onto an in-process
// queue. The RabbitMQ equivalent lives in cmd/worker.
func StartCounterSubscriber(q Queue, campaignRepo repository.CampaignRepositoryInterface) {
	err := q.Subscribe(TopicExecutionEvents, func(payload any) error {
		ev, ok := payload.(*model.ExecutionEvent)
		if !ok {
			log.Println("⚠️ Invalid payload type on execution_events")
			return nil // no retry
		}
		return ApplyExecutionEvent(campaignRepo, ev)
	})
	if err != nil {
		log.Println("⚠️ Failed to subscribe to execution_events:", err)
	}

	err = q.Subscribe(TopicEnrollmentStatus, func(payload any) error {
		sc, ok := payload.(*StatusChange)
		if !ok {
			log.Println("⚠️ Invalid payload type on enrollment_status")
			return nil
		}
		return ApplyStatusChange(campaignRepo, sc)
	})
	if err != nil {
		log.Println("⚠️ Failed to subscribe to enrollment_status:", err)
	}
}
