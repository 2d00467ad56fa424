package engine_test

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// In-memory fakes for the engine tests. They store copies so the engine's
// re-reads behave like real rows, and they honor the optimistic guards the
// SQL repositories implement.

// ---- enrollments ----

type memEnrollments struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*model.Enrollment
}

func newMemEnrollments() *memEnrollments {
	return &memEnrollments{rows: map[int]*model.Enrollment{}}
}

func (m *memEnrollments) add(e *model.Enrollment) *model.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.rows[e.ID] = &cp
	return e
}

func (m *memEnrollments) Create(e *model.Enrollment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CampaignID == e.CampaignID && row.ContactID == e.ContactID {
			*e = *row
			return false, nil
		}
	}
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.rows[e.ID] = &cp
	return true, nil
}

func (m *memEnrollments) GetByID(id int) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, appErrors.NewEnrollmentNotFound(id)
	}
	cp := *row
	return &cp, nil
}

func (m *memEnrollments) GetByCampaignAndContact(campaignID, contactID int) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CampaignID == campaignID && row.ContactID == contactID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memEnrollments) ListDue(now time.Time, limit int) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.Enrollment{}
	for _, row := range m.rows {
		if row.Status != model.EnrollmentStatusActive || row.NextActionAt == nil {
			continue
		}
		if row.NextActionAt.After(now) {
			continue
		}
		cp := *row
		due = append(due, &cp)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (m *memEnrollments) Update(e *model.Enrollment, expectedStepOrder int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[e.ID]
	if !ok {
		return false, nil
	}
	if row.CurrentStepOrder != expectedStepOrder || row.Status != model.EnrollmentStatusActive {
		return false, nil
	}
	cp := *e
	m.rows[e.ID] = &cp
	return true, nil
}

func (m *memEnrollments) SetStatus(id int, status, stopReason string, nextActionAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return appErrors.NewEnrollmentNotFound(id)
	}
	row.Status = status
	row.StopReason = stopReason
	row.NextActionAt = nextActionAt
	return nil
}

// ---- execution events ----

type memEvents struct {
	mu     sync.Mutex
	nextID int
	rows   []*model.ExecutionEvent
}

func (m *memEvents) Append(ev *model.ExecutionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	cp := *ev
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memEvents) HasSent(enrollmentID, stepOrder int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.rows {
		if ev.EnrollmentID == enrollmentID && ev.StepOrder == stepOrder && ev.Outcome == model.OutcomeSent {
			return true, nil
		}
	}
	return false, nil
}

func (m *memEvents) ListByEnrollment(enrollmentID int) ([]*model.ExecutionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ExecutionEvent{}
	for _, ev := range m.rows {
		if ev.EnrollmentID == enrollmentID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEvents) all() []*model.ExecutionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ExecutionEvent, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *memEvents) countOutcome(outcome string) int {
	n := 0
	for _, ev := range m.all() {
		if ev.Outcome == outcome {
			n++
		}
	}
	return n
}

// ---- campaigns ----

type memCampaigns struct {
	mu       sync.Mutex
	rows     map[int]*model.Campaign
	counters map[string]int
}

func newMemCampaigns(cs ...*model.Campaign) *memCampaigns {
	m := &memCampaigns{rows: map[int]*model.Campaign{}, counters: map[string]int{}}
	for _, c := range cs {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memCampaigns) Create(c *model.Campaign) error { m.rows[c.ID] = c; return nil }

func (m *memCampaigns) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}
func (m *memCampaigns) Update(c *model.Campaign) error { return nil }
func (m *memCampaigns) UpdateStatus(id int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[id]; ok {
		c.Status = status
	}
	return nil
}

func (m *memCampaigns) IncrementCounter(id int, column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[fmt.Sprintf("%d/%s", id, column)]++
	return nil
}
func (m *memCampaigns) RecomputeCounters(id int) error            { return nil }
func (m *memCampaigns) GetCampaignStats(id int) (map[string]int, error) { return map[string]int{}, nil }

// ---- steps ----

type memSteps struct {
	rows map[int][]*model.CampaignStep
}

func (m *memSteps) Create(s *model.CampaignStep) error {
	m.rows[s.CampaignID] = append(m.rows[s.CampaignID], s)
	return nil
}

func (m *memSteps) ListByCampaign(campaignID int) ([]*model.CampaignStep, error) {
	return m.rows[campaignID], nil
}

func (m *memSteps) GetByOrder(campaignID, stepOrder int) (*model.CampaignStep, error) {
	for _, s := range m.rows[campaignID] {
		if s.StepOrder == stepOrder {
			return s, nil
		}
	}
	return nil, appErrors.NewStepNotFound(campaignID, stepOrder)
}

func (m *memSteps) CountByCampaign(campaignID int) (int, error) {
	return len(m.rows[campaignID]), nil
}

// ---- rate limiter ----

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemLimiter() *memLimiter {
	return &memLimiter{counts: map[string]int{}}
}

func (m *memLimiter) TryReserve(campaignID int, localDate string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/%s", campaignID, localDate)
	if m.counts[key] >= limit {
		return false, nil
	}
	m.counts[key]++
	return true, nil
}

func (m *memLimiter) DeleteOlderThan(days int) (int64, error) { return 0, nil }

// ---- contacts ----

type memContacts struct {
	rows map[int]*model.Contact
}

func (m *memContacts) GetByID(id int) (*model.Contact, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memContacts) ListAll() ([]model.Contact, error) { return nil, nil }

func (m *memContacts) Resolve(target, exclude string) ([]int, error) {
	ids := []int{}
	for id, c := range m.rows {
		if target != "" && c.Industry != target {
			continue
		}
		if exclude != "" && c.Industry == exclude {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ---- signals ----

type memSignals struct {
	mu   sync.Mutex
	rows map[string]model.Signals
}

func newMemSignals() *memSignals {
	return &memSignals{rows: map[string]model.Signals{}}
}

func (m *memSignals) set(contactID, campaignID int, sig model.Signals) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[fmt.Sprintf("%d/%d", contactID, campaignID)] = sig
}

func (m *memSignals) GetSignals(contactID, campaignID int) (model.Signals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[fmt.Sprintf("%d/%d", contactID, campaignID)], nil
}

// ---- channel sender ----

type sentCall struct {
	ContactID int
	Subject   string
	Body      string
}

// scriptedSender returns queued errors first, then succeeds.
type scriptedSender struct {
	mu    sync.Mutex
	errs  []error
	calls []sentCall
}

func (s *scriptedSender) Send(contact *model.Contact, content model.RenderedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sentCall{ContactID: contact.ID, Subject: content.Subject, Body: content.Body})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
