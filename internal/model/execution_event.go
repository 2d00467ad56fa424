// internal/model/execution_event.go
package model

import "time"

// Event outcomes
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeRetried = "retried"
)

// Failure kinds
const (
	FailureBounce           = "bounce"
	FailureInvalidRecipient = "invalid_recipient"
	FailureProviderError    = "provider_error"
	FailureTimeout          = "timeout"
)

// ExecutionEvent is the append-only audit record of one dispatch attempt.
// Events are never mutated; the ledger doubles as the idempotency check for
// "has this step already fired".
type ExecutionEvent struct {
	ID           int       `db:"id" json:"id"`
	EnrollmentID int       `db:"enrollment_id" json:"enrollment_id"`
	CampaignID   int       `db:"campaign_id" json:"campaign_id"`
	StepOrder    int       `db:"step_order" json:"step_order"`
	AttemptedAt  time.Time `db:"attempted_at" json:"attempted_at"`
	Outcome      string    `db:"outcome" json:"outcome"`
	FailureKind  string    `db:"failure_kind" json:"failure_kind,omitempty"`
}
