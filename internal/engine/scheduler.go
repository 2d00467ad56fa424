package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/schedule"
)

// retryCooldown spaces re-attempts of a step whose transient retries were
// exhausted in one tick.
const retryCooldown = time.Hour

// Scheduler polls due enrollments across active campaigns and runs the
// stop-check → window → rate-limit → dispatch → advance pipeline for each,
// in parallel up to WorkerCount. Step order within one enrollment stays
// strictly sequential: an in-process in-flight set plus the optimistic
// step-order guard in the enrollment repository keep two workers from
// advancing the same enrollment.
type Scheduler struct {
	Campaigns   repository.CampaignRepositoryInterface
	Steps       repository.StepRepositoryInterface
	Enrollments repository.EnrollmentRepositoryInterface
	Contacts    repository.ContactRepositoryInterface
	Limiter     repository.RateLimiterInterface
	Signals     SignalSource
	Dispatcher  *Dispatcher
	Queue       queue.Publisher // optional

	TickInterval time.Duration
	WorkerCount  int
	BatchSize    int
	RateGCDays   int

	// Now is a clock hook for tests.
	Now func() time.Time

	mu       sync.Mutex
	inFlight map[int]struct{}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// tryAcquire claims the per-enrollment at-most-one-in-flight slot.
func (s *Scheduler) tryAcquire(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[int]struct{})
	}
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id int) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// Run ticks until the context is cancelled. Stale rate counters are
// garbage collected on a slow side ticker.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.TickInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gc := time.NewTicker(6 * time.Hour)
	defer gc.Stop()

	log.Println("🚀 Scheduler running, tick interval:", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler shutting down")
			return
		case <-gc.C:
			days := s.RateGCDays
			if days <= 0 {
				days = 14
			}
			if n, err := s.Limiter.DeleteOlderThan(days); err != nil {
				log.Println("⚠️ Rate counter GC failed:", err)
			} else if n > 0 {
				log.Printf("Rate counter GC removed %d stale rows\n", n)
			}
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				log.Println("⚠️ Tick failed:", err)
			}
		}
	}
}

// Tick processes one batch of due enrollments. Per-enrollment failures
// are logged and isolated; they never abort the tick for the others.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()
	batch := s.BatchSize
	if batch <= 0 {
		batch = 200
	}
	due, err := s.Enrollments.ListDue(now, batch)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	workers := s.WorkerCount
	if workers <= 0 {
		workers = 8
	}
	g.SetLimit(workers)

	for _, e := range due {
		if !s.tryAcquire(e.ID) {
			continue // already in flight from a previous tick
		}
		enrollment := e
		g.Go(func() error {
			defer s.release(enrollment.ID)
			if err := s.process(enrollment.ID, now); err != nil {
				log.Printf("⚠️ Enrollment %d failed this tick: %v\n", enrollment.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// process runs the full pipeline for one enrollment.
func (s *Scheduler) process(enrollmentID int, now time.Time) error {
	// Re-read under the in-flight claim; the due listing is stale by now.
	e, err := s.Enrollments.GetByID(enrollmentID)
	if err != nil {
		return err
	}
	if e == nil || e.Status != model.EnrollmentStatusActive {
		return nil
	}

	c, err := s.Campaigns.GetByID(e.CampaignID)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignStatusActive {
		// Pausing a campaign stops new work immediately.
		return nil
	}

	steps, err := s.Steps.ListByCampaign(c.ID)
	if err != nil {
		return err
	}
	step := StepByOrder(steps, e.CurrentStepOrder)
	if step == nil {
		// Step list shrank underneath the enrollment. Stop it rather than
		// guessing what the missing step meant.
		return s.stopEnrollment(e, model.StopReasonManual)
	}

	// Stop-condition gate, consulted before every dispatch attempt.
	sig, err := s.Signals.GetSignals(e.ContactID, c.ID)
	if err != nil {
		return err
	}
	if stop, reason := ShouldStop(sig, c); stop {
		return s.stopEnrollment(e, reason)
	}

	// Condition steps branch without dispatching or consuming budget.
	if step.StepType == model.StepTypeCondition {
		return s.branch(e, c, steps, step, now)
	}

	loc := c.Location()

	// Window gate. A tick firing before the window opens is not an error.
	if !schedule.IsSendable(loc, c.SendDays, c.SendWindowStart, c.SendWindowEnd, now) {
		at := schedule.NextSendable(loc, c.SendDays, c.SendWindowStart, c.SendWindowEnd, now)
		return s.reschedule(e, at)
	}

	// Daily budget. A denial reschedules to the next local day, pushed
	// into the window; the step is not marked failed.
	ok, err := s.Limiter.TryReserve(c.ID, schedule.LocalDate(loc, now), c.DailyLimit)
	if err != nil {
		return err
	}
	if !ok {
		midnight := schedule.NextLocalMidnight(loc, now)
		at := schedule.NextSendable(loc, c.SendDays, c.SendWindowStart, c.SendWindowEnd, midnight)
		return s.reschedule(e, at)
	}

	ev, err := s.Dispatcher.Dispatch(e, c, step, now)
	if err != nil {
		return err // ledger write failed; retried next tick behind the idempotency check
	}

	if ev == nil {
		// Ledger already has a sent event for this step (overlapping
		// ticks); advance without re-sending.
		return s.advance(e, c, steps, now)
	}

	switch ev.Outcome {
	case model.OutcomeSent:
		return s.advance(e, c, steps, now)
	case model.OutcomeSkipped:
		// A concurrent stop won; whoever stopped it already persisted.
		return nil
	case model.OutcomeFailed:
		if ev.FailureKind == model.FailureBounce || ev.FailureKind == model.FailureInvalidRecipient {
			return s.stopEnrollment(e, model.StopReasonBounced)
		}
		// Transient retries exhausted: same step again after a cooldown.
		at := schedule.NextSendable(loc, c.SendDays, c.SendWindowStart, c.SendWindowEnd, now.Add(retryCooldown))
		return s.reschedule(e, at)
	}
	return nil
}

func (s *Scheduler) branch(e *model.Enrollment, c *model.Campaign, steps []*model.CampaignStep, step *model.CampaignStep, now time.Time) error {
	contact, err := s.Contacts.GetByID(e.ContactID)
	if err != nil {
		return err
	}
	result := false
	if contact != nil {
		result = strings.EqualFold(contact.Field(step.ConditionField), step.ConditionValue)
	}

	prev := e.CurrentStepOrder
	Branch(e, c, steps, step, result, now)
	matched, err := s.Enrollments.Update(e, prev)
	if err != nil {
		return err
	}
	if matched && e.Status == model.EnrollmentStatusCompleted {
		s.publishStatus(e)
	}
	return nil
}

func (s *Scheduler) advance(e *model.Enrollment, c *model.Campaign, steps []*model.CampaignStep, now time.Time) error {
	prev := e.CurrentStepOrder
	Advance(e, c, steps, now)
	matched, err := s.Enrollments.Update(e, prev)
	if err != nil {
		return err
	}
	if !matched {
		// A concurrent manual stop or another process won the write.
		return nil
	}
	if e.Status == model.EnrollmentStatusCompleted {
		s.publishStatus(e)
	}
	return nil
}

func (s *Scheduler) reschedule(e *model.Enrollment, at time.Time) error {
	e.NextActionAt = &at
	_, err := s.Enrollments.Update(e, e.CurrentStepOrder)
	return err
}

func (s *Scheduler) stopEnrollment(e *model.Enrollment, reason string) error {
	Stop(e, reason)
	if err := s.Enrollments.SetStatus(e.ID, e.Status, e.StopReason, nil); err != nil {
		return err
	}
	s.publishStatus(e)
	return nil
}

func (s *Scheduler) publishStatus(e *model.Enrollment) {
	if s.Queue == nil {
		return
	}
	sc := &queue.StatusChange{
		EnrollmentID: e.ID,
		CampaignID:   e.CampaignID,
		Status:       e.Status,
		StopReason:   e.StopReason,
	}
	if err := s.Queue.Publish(queue.TopicEnrollmentStatus, sc); err != nil {
		log.Println("⚠️ Failed to publish enrollment status:", err)
	}
}
