// Package sender holds the channel sender implementations wired into the
// dispatcher: mocks for dev/tests and an AMQP-backed sender that hands
// rendered content to the external delivery worker.
package sender

import (
	"math/rand"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
)

// Mock simulates a provider with a configurable failure rate.
type Mock struct {
	Channel  string
	FailRate float64 // fraction of transient failures, e.g. 0.1
}

func (m *Mock) Send(contact *model.Contact, content model.RenderedContent) error {
	switch m.Channel {
	case model.StepTypeEmail:
		if contact.Email == "" {
			return appErrors.NewPermanentSendError(model.FailureInvalidRecipient, "contact has no email address")
		}
	case model.StepTypeSMS, model.StepTypeCall:
		if contact.Phone == "" {
			return appErrors.NewPermanentSendError(model.FailureInvalidRecipient, "contact has no phone number")
		}
	case model.StepTypeLinkedIn:
		if contact.LinkedInURL == "" {
			return appErrors.NewPermanentSendError(model.FailureInvalidRecipient, "contact has no linkedin profile")
		}
	}
	if rand.Float64() < m.FailRate {
		return appErrors.NewTransientSendError(model.FailureProviderError, "mock sending failed")
	}
	return nil
}

// ChannelSend is the payload handed to the delivery worker.
type ChannelSend struct {
	Channel   string `json:"channel"`
	ContactID int    `json:"contact_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// AMQP queues the send for the delivery worker. Acceptance by the broker
// counts as handed off; delivery itself is the provider's problem, and
// bounce callbacks come back through the signal source.
type AMQP struct {
	Channel string
	Pub     queue.Publisher
}

func (a *AMQP) Send(contact *model.Contact, content model.RenderedContent) error {
	if a.Channel == model.StepTypeEmail && contact.Email == "" {
		return appErrors.NewPermanentSendError(model.FailureInvalidRecipient, "contact has no email address")
	}
	job := &ChannelSend{
		Channel:   a.Channel,
		ContactID: contact.ID,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Subject:   content.Subject,
		Body:      content.Body,
	}
	if err := a.Pub.Publish(queue.TopicChannelSends, job); err != nil {
		return appErrors.NewTransientSendError(model.FailureProviderError, err.Error())
	}
	return nil
}
