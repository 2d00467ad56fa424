package engine

import (
	"fmt"
	"log"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// ChannelSender delivers one rendered step through one channel. Real
// delivery (email/SMS/call providers) is an external collaborator behind
// this interface.
type ChannelSender interface {
	Send(contact *model.Contact, content model.RenderedContent) error
}

// Dispatcher maps a due step to a channel send and records the outcome in
// the execution-event ledger.
type Dispatcher struct {
	Senders      map[string]ChannelSender // keyed by step_type
	Personalizer Personalizer             // AI collaborator; used when ai_personalize is set
	Events       repository.ExecutionEventRepositoryInterface
	Enrollments  repository.EnrollmentRepositoryInterface
	Contacts     repository.ContactRepositoryInterface
	Queue        queue.Publisher // optional; appended events are published here

	MaxAttempts int
	// Backoff returns the sleep before retry n (1-based). Defaults to the
	// n*500ms ramp; tests replace it with a zero delay.
	Backoff func(attempt int) time.Duration
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt*500) * time.Millisecond
}

// record appends an event to the ledger and publishes it. A ledger write
// failure is returned to the caller so the state advance is blocked:
// re-attempting a dispatch (guarded by the idempotency check) beats
// losing the record of one.
func (d *Dispatcher) record(ev *model.ExecutionEvent) error {
	if err := d.Events.Append(ev); err != nil {
		return fmt.Errorf("append execution event: %w", err)
	}
	if d.Queue != nil {
		if err := d.Queue.Publish(queue.TopicExecutionEvents, ev); err != nil {
			log.Println("⚠️ Failed to publish execution event:", err)
		}
	}
	return nil
}

// Dispatch executes one due channel/wait step. It returns the final event
// recorded for this attempt, or (nil, nil) when the ledger already holds
// a sent event for (enrollment, step): overlapping scheduler ticks then
// skip the re-send and the caller advances state directly.
//
// Condition steps never reach the dispatcher; the scheduler branches them.
func (d *Dispatcher) Dispatch(e *model.Enrollment, c *model.Campaign, step *model.CampaignStep, now time.Time) (*model.ExecutionEvent, error) {
	already, err := d.Events.HasSent(e.ID, step.StepOrder)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	// A wait step is a pure timing gate; its delay was consumed when
	// next_action_at was computed.
	if step.StepType == model.StepTypeWait {
		ev := &model.ExecutionEvent{
			EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
			AttemptedAt: now, Outcome: model.OutcomeSent,
		}
		return ev, d.record(ev)
	}

	sender, ok := d.Senders[step.StepType]
	if !ok {
		return nil, fmt.Errorf("no sender registered for step type %s", step.StepType)
	}

	contact, err := d.Contacts.GetByID(e.ContactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		ev := &model.ExecutionEvent{
			EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
			AttemptedAt: now, Outcome: model.OutcomeFailed,
			FailureKind: model.FailureInvalidRecipient,
		}
		return ev, d.record(ev)
	}

	content, err := d.render(step, contact)
	if err != nil {
		return nil, err
	}

	maxAttempts := d.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := d.Backoff
	if backoff == nil {
		backoff = defaultBackoff
	}

	for attempt := 1; ; attempt++ {
		// Re-check right before the external call commits: a concurrent
		// manual stop or unenroll wins over this in-flight dispatch.
		fresh, err := d.Enrollments.GetByID(e.ID)
		if err != nil {
			return nil, err
		}
		if fresh == nil || fresh.Status != model.EnrollmentStatusActive {
			ev := &model.ExecutionEvent{
				EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
				AttemptedAt: time.Now(), Outcome: model.OutcomeSkipped,
			}
			return ev, d.record(ev)
		}

		sendErr := sender.Send(contact, content)
		if sendErr == nil {
			ev := &model.ExecutionEvent{
				EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
				AttemptedAt: time.Now(), Outcome: model.OutcomeSent,
			}
			return ev, d.record(ev)
		}

		if appErrors.IsPermanentSendError(sendErr) {
			ev := &model.ExecutionEvent{
				EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
				AttemptedAt: time.Now(), Outcome: model.OutcomeFailed,
				FailureKind: appErrors.SendFailureKind(sendErr),
			}
			return ev, d.record(ev)
		}

		// Transient failure
		if attempt >= maxAttempts {
			ev := &model.ExecutionEvent{
				EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
				AttemptedAt: time.Now(), Outcome: model.OutcomeFailed,
				FailureKind: appErrors.SendFailureKind(sendErr),
			}
			return ev, d.record(ev)
		}
		retry := &model.ExecutionEvent{
			EnrollmentID: e.ID, CampaignID: c.ID, StepOrder: step.StepOrder,
			AttemptedAt: time.Now(), Outcome: model.OutcomeRetried,
			FailureKind: appErrors.SendFailureKind(sendErr),
		}
		if err := d.record(retry); err != nil {
			return nil, err
		}
		log.Printf("⚠️ Send attempt %d/%d failed for enrollment %d step %d: %v\n",
			attempt, maxAttempts, e.ID, step.StepOrder, sendErr)
		time.Sleep(backoff(attempt))
	}
}

func (d *Dispatcher) render(step *model.CampaignStep, contact *model.Contact) (model.RenderedContent, error) {
	if step.AIPersonalize && d.Personalizer != nil {
		content, err := d.Personalizer.Personalize(step.Subject, step.Body, contact)
		if err != nil {
			// Personalization is best-effort; fall back to the raw template.
			log.Println("⚠️ Personalization failed, falling back to template:", err)
			return TemplatePersonalizer{}.Personalize(step.Subject, step.Body, contact)
		}
		return content, nil
	}
	return TemplatePersonalizer{}.Personalize(step.Subject, step.Body, contact)
}
