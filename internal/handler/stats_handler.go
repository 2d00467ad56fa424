// internal/handler/stats_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach-backend/internal/service"
)

// StatsHandler serves the campaign stats endpoint the dashboard polls.
type StatsHandler struct {
	Service *service.CampaignService
}

func (h *StatsHandler) GetCampaignStatsHandler(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(id)
	if err != nil {
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id":     details.ID,
		"status":          details.Status,
		"enrolled_count":  details.EnrolledCount,
		"completed_count": details.CompletedCount,
		"replied_count":   details.RepliedCount,
		"meeting_count":   details.MeetingCount,
		"bounce_count":    details.BounceCount,
		"events":          details.Stats,
	})
}
