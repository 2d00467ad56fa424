// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrEnrollmentNotFound struct {
	EnrollmentID int
}

func (e *ErrEnrollmentNotFound) Error() string {
	return fmt.Sprintf("enrollment with ID %d not found", e.EnrollmentID)
}

func NewEnrollmentNotFound(id int) error {
	return &ErrEnrollmentNotFound{EnrollmentID: id}
}

type ErrStepNotFound struct {
	CampaignID int
	StepOrder  int
}

func (e *ErrStepNotFound) Error() string {
	return fmt.Sprintf("campaign %d has no step at order %d", e.CampaignID, e.StepOrder)
}

func NewStepNotFound(campaignID, order int) error {
	return &ErrStepNotFound{CampaignID: campaignID, StepOrder: order}
}

// ErrInvalidTransition rejects a campaign status change outside the
// draft→active→{paused↔active}→completed|archived table.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot transition campaign from %s to %s", e.From, e.To)
}

// ErrCampaignLocked rejects structural step edits while a campaign is
// active. The campaign must be paused first so in-flight enrollments never
// reference a step_order that changed shape mid-sequence.
type ErrCampaignLocked struct {
	CampaignID int
}

func (e *ErrCampaignLocked) Error() string {
	return fmt.Sprintf("campaign %d is active; pause it before editing steps", e.CampaignID)
}

// SendError is a channel delivery failure. Permanent failures (hard
// bounces, invalid addresses) are never retried.
type SendError struct {
	Kind      string
	Permanent bool
	Msg       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %s", e.Kind, e.Msg)
}

func NewPermanentSendError(kind, msg string) error {
	return &SendError{Kind: kind, Permanent: true, Msg: msg}
}

func NewTransientSendError(kind, msg string) error {
	return &SendError{Kind: kind, Permanent: false, Msg: msg}
}

func IsPermanentSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent
}

// SendFailureKind extracts the failure kind from a send error, defaulting
// to provider_error for untyped failures.
func SendFailureKind(err error) string {
	var se *SendError
	if errors.As(err, &se) && se.Kind != "" {
		return se.Kind
	}
	return "provider_error"
}
