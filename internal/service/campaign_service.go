// internal/service/campaign_service.go
package service

import (
	"fmt"
	"log"
	"time"

	"github.com/unclebandit/outreach-backend/internal/engine"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/schedule"
)

// SegmentResolver resolves an opaque segment pair into contact IDs. Used
// only at enrollment-creation time.
type SegmentResolver interface {
	Resolve(targetSegment, excludeSegment string) ([]int, error)
}

type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	StepRepo       repository.StepRepositoryInterface
	EnrollmentRepo repository.EnrollmentRepositoryInterface
	ContactRepo    repository.ContactRepositoryInterface
	Resolver       SegmentResolver
	Queue          queue.Publisher // optional

	// Now is a clock hook for tests.
	Now func() time.Time
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ====================== Campaigns ======================

type CreateCampaignInput struct {
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	TargetSegment       string     `json:"target_segment"`
	ExcludeSegment      string     `json:"exclude_segment"`
	StartDate           *time.Time `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
	SendWindowStart     *int       `json:"send_window_start"`
	SendWindowEnd       *int       `json:"send_window_end"`
	SendDays            *int       `json:"send_days"`
	Timezone            string     `json:"timezone"`
	DailyLimit          int        `json:"daily_limit"`
	RespectUnsubscribes bool       `json:"respect_unsubscribes"`
	StopOnReply         bool       `json:"stop_on_reply"`
	StopOnMeeting       bool       `json:"stop_on_meeting"`
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if !model.ValidCampaignType(in.Type) {
		return nil, fmt.Errorf("invalid campaign type: %s", in.Type)
	}

	c := &model.Campaign{
		Name:                in.Name,
		Type:                in.Type,
		Status:              model.CampaignStatusDraft,
		TargetSegment:       in.TargetSegment,
		ExcludeSegment:      in.ExcludeSegment,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		SendWindowStart:     9 * 60,
		SendWindowEnd:       17 * 60,
		SendDays:            schedule.Weekdays,
		Timezone:            "UTC",
		DailyLimit:          in.DailyLimit,
		RespectUnsubscribes: in.RespectUnsubscribes,
		StopOnReply:         in.StopOnReply,
		StopOnMeeting:       in.StopOnMeeting,
	}
	if in.SendWindowStart != nil {
		c.SendWindowStart = *in.SendWindowStart
	}
	if in.SendWindowEnd != nil {
		c.SendWindowEnd = *in.SendWindowEnd
	}
	if in.SendDays != nil {
		c.SendDays = *in.SendDays
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone: %s", in.Timezone)
		}
		c.Timezone = in.Timezone
	}

	if c.SendWindowStart < 0 || c.SendWindowEnd > 24*60 || c.SendWindowStart >= c.SendWindowEnd {
		return nil, fmt.Errorf("invalid send window [%d, %d)", c.SendWindowStart, c.SendWindowEnd)
	}
	if c.SendDays <= 0 || c.SendDays > 127 {
		return nil, fmt.Errorf("send_days must name at least one weekday")
	}
	if c.DailyLimit < 0 {
		return nil, fmt.Errorf("daily_limit cannot be negative")
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeStatus enforces the campaign lifecycle table. Activation requires
// at least one step.
func (s *CampaignService) ChangeStatus(campaignID int, to string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if !model.ValidCampaignTransition(c.Status, to) {
		return nil, &appErrors.ErrInvalidTransition{From: c.Status, To: to}
	}
	if to == model.CampaignStatusActive {
		count, err := s.StepRepo.CountByCampaign(campaignID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("campaign %d has no steps to run", campaignID)
		}
	}
	if err := s.CampaignRepo.UpdateStatus(campaignID, to); err != nil {
		return nil, err
	}
	c.Status = to
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, ctype, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, ctype, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) GetCampaignDetailsWithStats(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

func (s *CampaignService) RecomputeCounters(campaignID int) error {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return err
	}
	return s.CampaignRepo.RecomputeCounters(campaignID)
}

// ====================== Steps ======================

type AddStepInput struct {
	StepType       string `json:"step_type"`
	DelayDays      int    `json:"delay_days"`
	DelayHours     int    `json:"delay_hours"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AIPersonalize  bool   `json:"ai_personalize"`
	ConditionField string `json:"condition_field"`
	ConditionValue string `json:"condition_value"`
	OnTrueStep     *int   `json:"on_true_step"`
	OnFalseStep    *int   `json:"on_false_step"`
}

// AddStep appends a step to the campaign. Steps are immutable once the
// campaign is active: structural edits require pausing first.
func (s *CampaignService) AddStep(campaignID int, in AddStepInput) (*model.CampaignStep, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == model.CampaignStatusActive {
		return nil, &appErrors.ErrCampaignLocked{CampaignID: campaignID}
	}
	if !model.ValidStepType(in.StepType) {
		return nil, fmt.Errorf("invalid step type: %s", in.StepType)
	}
	if in.DelayDays < 0 || in.DelayHours < 0 {
		return nil, fmt.Errorf("step delay cannot be negative")
	}

	switch in.StepType {
	case model.StepTypeWait:
		if in.Subject != "" || in.Body != "" {
			return nil, fmt.Errorf("wait steps carry only a delay, no payload")
		}
	case model.StepTypeCondition:
		if in.ConditionField == "" || in.ConditionValue == "" {
			return nil, fmt.Errorf("condition steps need a predicate field and value")
		}
	}

	// step_order is dense, starting at 0.
	count, err := s.StepRepo.CountByCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	step := &model.CampaignStep{
		CampaignID:     campaignID,
		StepOrder:      count,
		StepType:       in.StepType,
		DelayDays:      in.DelayDays,
		DelayHours:     in.DelayHours,
		Subject:        in.Subject,
		Body:           in.Body,
		AIPersonalize:  in.AIPersonalize,
		ConditionField: in.ConditionField,
		ConditionValue: in.ConditionValue,
		OnTrueStep:     in.OnTrueStep,
		OnFalseStep:    in.OnFalseStep,
	}
	if err := s.StepRepo.Create(step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *CampaignService) ListSteps(campaignID int) ([]*model.CampaignStep, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}
	return s.StepRepo.ListByCampaign(campaignID)
}

// ====================== Enrollments ======================

type EnrollResult struct {
	CampaignID    int   `json:"campaign_id"`
	Enrolled      int   `json:"enrolled"`
	Skipped       int   `json:"skipped"`
	EnrollmentIDs []int `json:"enrollment_ids"`
}

// EnrollContacts enrolls the given contacts, or the campaign's target
// segment when none are given. Enrollment is idempotent per (campaign,
// contact); already-enrolled contacts are skipped.
func (s *CampaignService) EnrollContacts(campaignID int, contactIDs []int) (*EnrollResult, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignStatusActive {
		return nil, fmt.Errorf("cannot enroll into a %s campaign", c.Status)
	}
	steps, err := s.StepRepo.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("campaign %d has no steps to run", campaignID)
	}

	if len(contactIDs) == 0 && s.Resolver != nil {
		contactIDs, err = s.Resolver.Resolve(c.TargetSegment, c.ExcludeSegment)
		if err != nil {
			return nil, err
		}
	}

	first := steps[0]
	result := &EnrollResult{CampaignID: campaignID, EnrollmentIDs: []int{}}
	now := s.now()

	for _, contactID := range contactIDs {
		at := engine.NextActionTime(c, first, now)
		e := &model.Enrollment{
			CampaignID:       campaignID,
			ContactID:        contactID,
			CurrentStepOrder: first.StepOrder,
			Status:           model.EnrollmentStatusActive,
			NextActionAt:     &at,
		}
		created, err := s.EnrollmentRepo.Create(e)
		if err != nil {
			log.Println("⚠️ Failed to enroll contact", contactID, ":", err)
			continue
		}
		if !created {
			result.Skipped++
			continue
		}
		if err := s.CampaignRepo.IncrementCounter(campaignID, "enrolled_count"); err != nil {
			log.Println("⚠️ Failed to bump enrolled_count:", err)
		}
		result.Enrolled++
		result.EnrollmentIDs = append(result.EnrollmentIDs, e.ID)
	}

	return result, nil
}

func (s *CampaignService) PauseEnrollment(enrollmentID int) error {
	e, err := s.EnrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return err
	}
	if e.Terminal() {
		return fmt.Errorf("enrollment %d is already %s", enrollmentID, e.Status)
	}
	engine.Pause(e)
	return s.EnrollmentRepo.SetStatus(e.ID, e.Status, e.StopReason, e.NextActionAt)
}

func (s *CampaignService) ResumeEnrollment(enrollmentID int) error {
	e, err := s.EnrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return err
	}
	if e.Status != model.EnrollmentStatusPaused {
		return fmt.Errorf("enrollment %d is not paused", enrollmentID)
	}
	c, err := s.CampaignRepo.GetByID(e.CampaignID)
	if err != nil {
		return err
	}
	engine.Resume(e, c, s.now())
	return s.EnrollmentRepo.SetStatus(e.ID, e.Status, e.StopReason, e.NextActionAt)
}

// StopEnrollment is the manual unenroll. It wins over any concurrently
// in-flight dispatch decision; the dispatcher re-checks status right
// before the external call commits.
func (s *CampaignService) StopEnrollment(enrollmentID int) error {
	e, err := s.EnrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return err
	}
	if e.Terminal() {
		return nil // already done; stopping twice is a no-op
	}
	engine.Stop(e, model.StopReasonManual)
	if err := s.EnrollmentRepo.SetStatus(e.ID, e.Status, e.StopReason, nil); err != nil {
		return err
	}
	if s.Queue != nil {
		sc := &queue.StatusChange{
			EnrollmentID: e.ID, CampaignID: e.CampaignID,
			Status: e.Status, StopReason: e.StopReason,
		}
		if err := s.Queue.Publish(queue.TopicEnrollmentStatus, sc); err != nil {
			log.Println("⚠️ Failed to publish enrollment status:", err)
		}
	}
	return nil
}
