// cmd/scheduler/main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/engine"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/sender"
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
	eventRepo := &repository.ExecutionEventRepository{DB: conn}
	limiter := &repository.RateLimitRepository{DB: conn}
	signalRepo := &repository.SignalRepository{DB: conn}

	// Email and SMS hand off to the delivery worker through the broker;
	// call/linkedin/task surface as tasks for reps, mocked here until the
	// provider integrations land. Without a broker everything is mocked.
	senders := map[string]engine.ChannelSender{
		model.StepTypeEmail:    &sender.Mock{Channel: model.StepTypeEmail},
		model.StepTypeSMS:      &sender.Mock{Channel: model.StepTypeSMS},
		model.StepTypeCall:     &sender.Mock{Channel: model.StepTypeCall},
		model.StepTypeLinkedIn: &sender.Mock{Channel: model.StepTypeLinkedIn},
		model.StepTypeTask:     &sender.Mock{Channel: model.StepTypeTask},
	}

	var pub queue.Publisher
	if amqpPub, err := queue.DialAMQP(cfg.AMQPURL); err != nil {
		log.Println("⚠️ RabbitMQ unavailable, using in-memory queue:", err)
		q := queue.NewInMemoryQueue()
		queue.StartCounterSubscriber(q, campaignRepo)
		pub = q
	} else {
		defer amqpPub.Close()
		pub = amqpPub
		senders[model.StepTypeEmail] = &sender.AMQP{Channel: model.StepTypeEmail, Pub: pub}
		senders[model.StepTypeSMS] = &sender.AMQP{Channel: model.StepTypeSMS, Pub: pub}
	}

	dispatcher := &engine.Dispatcher{
		Senders:      senders,
		Personalizer: engine.TemplatePersonalizer{},
		Events:       eventRepo,
		Enrollments:  enrollmentRepo,
		Contacts:     contactRepo,
		Queue:        pub,
		MaxAttempts:  cfg.MaxSendAttempts,
	}

	sched := &engine.Scheduler{
		Campaigns:    campaignRepo,
		Steps:        stepRepo,
		Enrollments:  enrollmentRepo,
		Contacts:     contactRepo,
		Limiter:      limiter,
		Signals:      signalRepo,
		Dispatcher:   dispatcher,
		Queue:        pub,
		TickInterval: cfg.TickInterval,
		WorkerCount:  cfg.WorkerCount,
		BatchSize:    cfg.BatchSize,
		RateGCDays:   cfg.RateCounterTTLDays,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)
}
