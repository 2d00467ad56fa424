// internal/model/step.go
package model

import "time"

// Step types
const (
	StepTypeEmail     = "email"
	StepTypeCall      = "call"
	StepTypeLinkedIn  = "linkedin"
	StepTypeSMS       = "sms"
	StepTypeTask      = "task"
	StepTypeWait      = "wait"
	StepTypeCondition = "condition"
)

type CampaignStep struct {
	ID         int    `db:"id" json:"id"`
	CampaignID int    `db:"campaign_id" json:"campaign_id"`
	StepOrder  int    `db:"step_order" json:"step_order"`
	StepType   string `db:"step_type" json:"step_type"`

	// Delay relative to completion of the previous step.
	DelayDays  int `db:"delay_days" json:"delay_days"`
	DelayHours int `db:"delay_hours" json:"delay_hours"`

	Subject       string `db:"subject" json:"subject,omitempty"`
	Body          string `db:"body" json:"body,omitempty"`
	AIPersonalize bool   `db:"ai_personalize" json:"ai_personalize"`

	// Condition steps only: predicate and branch targets. A nil branch
	// target falls through to the next step_order in sequence.
	ConditionField string `db:"condition_field" json:"condition_field,omitempty"`
	ConditionValue string `db:"condition_value" json:"condition_value,omitempty"`
	OnTrueStep     *int   `db:"on_true_step" json:"on_true_step,omitempty"`
	OnFalseStep    *int   `db:"on_false_step" json:"on_false_step,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func ValidStepType(t string) bool {
	switch t {
	case StepTypeEmail, StepTypeCall, StepTypeLinkedIn, StepTypeSMS,
		StepTypeTask, StepTypeWait, StepTypeCondition:
		return true
	}
	return false
}

// IsChannel reports whether the step reaches out through a channel sender.
func (s *CampaignStep) IsChannel() bool {
	switch s.StepType {
	case StepTypeEmail, StepTypeCall, StepTypeLinkedIn, StepTypeSMS, StepTypeTask:
		return true
	}
	return false
}

func (s *CampaignStep) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}

// RenderedContent is a step payload after personalization.
type RenderedContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
