// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

// writeErr maps service errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	var notFoundCampaign *appErrors.ErrCampaignNotFound
	var notFoundEnrollment *appErrors.ErrEnrollmentNotFound
	var notFoundStep *appErrors.ErrStepNotFound
	var badTransition *appErrors.ErrInvalidTransition
	var locked *appErrors.ErrCampaignLocked

	switch {
	case errors.As(err, &notFoundCampaign), errors.As(err, &notFoundEnrollment), errors.As(err, &notFoundStep):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &badTransition), errors.As(err, &locked):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func urlID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	ctype := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, ctype, status)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := c.CampaignService.GetCampaignDetailsWithStats(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (c *CampaignController) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.ChangeStatus(id, body.Status)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) AddStep(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body service.AddStepInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	step, err := c.CampaignService.AddStep(id, body)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(step)
}

func (c *CampaignController) ListSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	steps, err := c.CampaignService.ListSteps(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": steps})
}

func (c *CampaignController) EnrollContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		ContactIDs []int `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.CampaignService.EnrollContacts(id, body.ContactIDs)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (c *CampaignController) RecomputeCounters(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.CampaignService.RecomputeCounters(id); err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "recomputed"})
}

// ====================== Enrollment actions ======================

func (c *CampaignController) enrollmentAction(w http.ResponseWriter, r *http.Request, action func(int) error) {
	id, ok := urlID(r)
	if !ok {
		http.Error(w, "invalid enrollment id", http.StatusBadRequest)
		return
	}

	if err := action(id); err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (c *CampaignController) PauseEnrollment(w http.ResponseWriter, r *http.Request) {
	c.enrollmentAction(w, r, c.CampaignService.PauseEnrollment)
}

func (c *CampaignController) ResumeEnrollment(w http.ResponseWriter, r *http.Request) {
	c.enrollmentAction(w, r, c.CampaignService.ResumeEnrollment)
}

func (c *CampaignController) StopEnrollment(w http.ResponseWriter, r *http.Request) {
	c.enrollmentAction(w, r, c.CampaignService.StopEnrollment)
}
