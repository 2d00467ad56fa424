// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/handler"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	stepRepo := &repository.StepRepository{DB: conn}
	enrollmentRepo := &repository.EnrollmentRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}

	// Status changes go through RabbitMQ so the counter worker sees them.
	// Without a broker, fall back to an in-process queue.
	var pub queue.Publisher
	if amqpPub, err := queue.DialAMQP(cfg.AMQPURL); err != nil {
		log.Println("⚠️ RabbitMQ unavailable, using in-memory queue:", err)
		q := queue.NewInMemoryQueue()
		queue.StartCounterSubscriber(q, campaignRepo)
		pub = q
	} else {
		defer amqpPub.Close()
		pub = amqpPub
	}

	campaignService := &service.CampaignService{
		CampaignRepo:   campaignRepo,
		StepRepo:       stepRepo,
		EnrollmentRepo: enrollmentRepo,
		ContactRepo:    contactRepo,
		Resolver:       contactRepo,
		Queue:          pub,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	statsHandler := &handler.StatsHandler{
		Service: campaignService,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Patch("/campaigns/{id}/status", campaignController.ChangeStatus)
	r.Post("/campaigns/{id}/steps", campaignController.AddStep)
	r.Get("/campaigns/{id}/steps", campaignController.ListSteps)
	r.Post("/campaigns/{id}/enroll", campaignController.EnrollContacts)
	r.Post("/campaigns/{id}/recompute-counters", campaignController.RecomputeCounters)
	r.Get("/campaigns/{id}/stats", statsHandler.GetCampaignStatsHandler)

	// Enrollment routes
	r.Post("/enrollments/{id}/pause", campaignController.PauseEnrollment)
	r.Post("/enrollments/{id}/resume", campaignController.ResumeEnrollment)
	r.Post("/enrollments/{id}/stop", campaignController.StopEnrollment)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
