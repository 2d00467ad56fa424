package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/engine"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

func newDispatcher(enrollments *memEnrollments, events *memEvents, contacts *memContacts, sender *scriptedSender) *engine.Dispatcher {
	return &engine.Dispatcher{
		Senders:     map[string]engine.ChannelSender{model.StepTypeEmail: sender},
		Events:      events,
		Enrollments: enrollments,
		Contacts:    contacts,
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return 0 },
	}
}

func alice() *model.Contact {
	return &model.Contact{
		ID: 1, Email: "alice@brightsmile.example", FirstName: "Alice",
		Company: "BrightSmile", Industry: "dental",
	}
}

func TestDispatchSendsAndRecords(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})
	step := emailStep(0, 0, 0)

	ev, err := d.Dispatch(e, c, step, wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeSent, ev.Outcome)
	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, 1, events.countOutcome(model.OutcomeSent))

	// The rendered content reached the sender with placeholders filled.
	assert.Equal(t, "Hi Alice", sender.calls[0].Subject)
	assert.Equal(t, "Checking in with BrightSmile", sender.calls[0].Body)
}

func TestDispatchIsIdempotentPerStep(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})
	step := emailStep(0, 0, 0)

	first, err := d.Dispatch(e, c, step, wed10)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second dispatch of the same (enrollment, step) is a no-op signalled
	// by a nil event: the caller advances without re-sending.
	second, err := d.Dispatch(e, c, step, wed10)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, 1, events.countOutcome(model.OutcomeSent))
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{errs: []error{
		appErrors.NewTransientSendError(model.FailureTimeout, "smtp timeout"),
		appErrors.NewTransientSendError(model.FailureProviderError, "503"),
	}}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})

	ev, err := d.Dispatch(e, c, emailStep(0, 0, 0), wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeSent, ev.Outcome)
	assert.Equal(t, 3, sender.callCount())
	assert.Equal(t, 2, events.countOutcome(model.OutcomeRetried))
	assert.Equal(t, 1, events.countOutcome(model.OutcomeSent))
}

func TestDispatchGivesUpAfterMaxAttempts(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{errs: []error{
		appErrors.NewTransientSendError(model.FailureTimeout, "t1"),
		appErrors.NewTransientSendError(model.FailureTimeout, "t2"),
		appErrors.NewTransientSendError(model.FailureTimeout, "t3"),
	}}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})

	ev, err := d.Dispatch(e, c, emailStep(0, 0, 0), wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeFailed, ev.Outcome)
	assert.Equal(t, model.FailureTimeout, ev.FailureKind)
	assert.Equal(t, 3, sender.callCount())
	assert.Equal(t, 2, events.countOutcome(model.OutcomeRetried))
}

func TestDispatchPermanentFailureIsNotRetried(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{errs: []error{
		appErrors.NewPermanentSendError(model.FailureBounce, "hard bounce"),
	}}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})

	ev, err := d.Dispatch(e, c, emailStep(0, 0, 0), wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeFailed, ev.Outcome)
	assert.Equal(t, model.FailureBounce, ev.FailureKind)
	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, 0, events.countOutcome(model.OutcomeRetried))
}

func TestDispatchSkipsWhenStoppedConcurrently(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})

	// Manual stop lands between the due listing and the send.
	require.NoError(t, enrollments.SetStatus(e.ID, model.EnrollmentStatusStopped, model.StopReasonManual, nil))

	ev, err := d.Dispatch(e, c, emailStep(0, 0, 0), wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeSkipped, ev.Outcome)
	assert.Equal(t, 0, sender.callCount(), "sender must not be called after a stop")
}

func TestDispatchWaitStepSendsNothing(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{1: alice()}}
	sender := &scriptedSender{}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 1, Status: model.EnrollmentStatusActive, NextActionAt: &at})
	wait := &model.CampaignStep{CampaignID: 1, StepOrder: 0, StepType: model.StepTypeWait, DelayDays: 2}

	ev, err := d.Dispatch(e, c, wait, wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeSent, ev.Outcome)
	assert.Equal(t, 0, sender.callCount())
}

func TestDispatchMissingContactFailsAsInvalidRecipient(t *testing.T) {
	enrollments := newMemEnrollments()
	events := &memEvents{}
	contacts := &memContacts{rows: map[int]*model.Contact{}}
	sender := &scriptedSender{}
	d := newDispatcher(enrollments, events, contacts, sender)

	c := testCampaign()
	at := wed10
	e := enrollments.add(&model.Enrollment{CampaignID: 1, ContactID: 99, Status: model.EnrollmentStatusActive, NextActionAt: &at})

	ev, err := d.Dispatch(e, c, emailStep(0, 0, 0), wed10)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.OutcomeFailed, ev.Outcome)
	assert.Equal(t, model.FailureInvalidRecipient, ev.FailureKind)
	assert.Equal(t, 0, sender.callCount())
}
