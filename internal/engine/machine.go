// Package engine is the campaign execution engine: the enrollment state
// machine, the stop-condition gate, the step dispatcher and the scheduler
// loop that drives them.
package engine

import (
	"time"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/schedule"
)

// Pure transition functions over an enrollment. Callers persist the
// mutated enrollment; nothing here touches storage.

// NextActionTime applies a step's delay to a reference instant and pushes
// the result into the campaign's send window.
func NextActionTime(c *model.Campaign, step *model.CampaignStep, from time.Time) time.Time {
	at := from.Add(step.Delay())
	return schedule.NextSendable(c.Location(), c.SendDays, c.SendWindowStart, c.SendWindowEnd, at)
}

// StepByOrder finds a step in a campaign's ordered step list.
func StepByOrder(steps []*model.CampaignStep, order int) *model.CampaignStep {
	for _, s := range steps {
		if s.StepOrder == order {
			return s
		}
	}
	return nil
}

// nextAfter returns the step following the given order, or nil at the end
// of the sequence.
func nextAfter(steps []*model.CampaignStep, order int) *model.CampaignStep {
	for _, s := range steps {
		if s.StepOrder > order {
			return s
		}
	}
	return nil
}

// Advance moves the enrollment past its current step after a successful
// dispatch. With no further step the enrollment completes.
func Advance(e *model.Enrollment, c *model.Campaign, steps []*model.CampaignStep, now time.Time) {
	next := nextAfter(steps, e.CurrentStepOrder)
	if next == nil {
		e.Status = model.EnrollmentStatusCompleted
		e.StopReason = model.StopReasonSequenceComplete
		e.NextActionAt = nil
		return
	}
	e.CurrentStepOrder = next.StepOrder
	at := NextActionTime(c, next, now)
	e.NextActionAt = &at
}

// Branch resolves a condition step: the true/false successor replaces the
// literal next step. A missing false branch degrades to the true branch.
// No dispatch happens and no rate-limit slot is consumed.
func Branch(e *model.Enrollment, c *model.Campaign, steps []*model.CampaignStep, cond *model.CampaignStep, result bool, now time.Time) {
	var target *int
	if result {
		target = cond.OnTrueStep
	} else {
		target = cond.OnFalseStep
		if target == nil {
			target = cond.OnTrueStep
		}
	}

	var succ *model.CampaignStep
	if target != nil {
		succ = StepByOrder(steps, *target)
	} else {
		succ = nextAfter(steps, cond.StepOrder)
	}
	if succ == nil || succ.StepOrder <= cond.StepOrder {
		// No forward successor; the sequence is done.
		e.Status = model.EnrollmentStatusCompleted
		e.StopReason = model.StopReasonSequenceComplete
		e.NextActionAt = nil
		return
	}
	e.CurrentStepOrder = succ.StepOrder
	at := NextActionTime(c, succ, now)
	e.NextActionAt = &at
}

// Stop short-circuits the enrollment to its terminal stopped state,
// clearing any pending action regardless of the current step.
func Stop(e *model.Enrollment, reason string) {
	e.Status = model.EnrollmentStatusStopped
	e.StopReason = reason
	e.NextActionAt = nil
}

// Pause holds the enrollment; next_action_at is kept so resume knows
// where it left off, but paused enrollments are never selected.
func Pause(e *model.Enrollment) {
	e.Status = model.EnrollmentStatusPaused
}

// Resume reactivates a paused enrollment, recomputing next_action_at as
// "now, subject to window".
func Resume(e *model.Enrollment, c *model.Campaign, now time.Time) {
	if e.Status != model.EnrollmentStatusPaused {
		return
	}
	e.Status = model.EnrollmentStatusActive
	at := schedule.NextSendable(c.Location(), c.SendDays, c.SendWindowStart, c.SendWindowEnd, now)
	e.NextActionAt = &at
}
