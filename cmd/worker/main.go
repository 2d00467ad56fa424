// cmd/worker/main.go
//
// Consumes the engine's RabbitMQ queues: execution events and enrollment
// status changes feed the campaign aggregate counters, and channel_sends
// stands in for the external delivery providers.
package main

import (
	"encoding/json"
	"log"
	"math/rand"

	"github.com/streadway/amqp"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
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

	mq, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	for _, topic := range []string{queue.TopicExecutionEvents, queue.TopicEnrollmentStatus, queue.TopicChannelSends} {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			log.Fatal("Failed to declare queue:", err)
		}
	}

	go consume(ch, queue.TopicExecutionEvents, func(body []byte) error {
		var ev model.ExecutionEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			log.Println("Invalid execution event:", err)
			return nil // no retry
		}
		return queue.ApplyExecutionEvent(campaignRepo, &ev)
	})

	go consume(ch, queue.TopicEnrollmentStatus, func(body []byte) error {
		var sc queue.StatusChange
		if err := json.Unmarshal(body, &sc); err != nil {
			log.Println("Invalid status change:", err)
			return nil
		}
		return queue.ApplyStatusChange(campaignRepo, &sc)
	})

	go consume(ch, queue.TopicChannelSends, func(body []byte) error {
		var job sender.ChannelSend
		if err := json.Unmarshal(body, &job); err != nil {
			log.Println("Invalid channel send:", err)
			return nil
		}
		return deliver(&job)
	})

	log.Println("Worker running, waiting for messages...")
	forever := make(chan bool)
	<-forever
}

// consume runs a handler over one queue with the retry headers the
// publisher side expects: up to 3 requeues, then drop.
func consume(ch *amqp.Channel, topic string, handle func(body []byte) error) {
	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer for "+topic+":", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("⚠️ Handler for %s failed: %v\n", topic, err)
			var retryCount int
			if d.Headers["x-retry-count"] != nil {
				if n, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = int(n)
				}
			}
			if retryCount < 3 {
				d.Nack(false, true) // requeue
				continue
			}
		}
		d.Ack(false)
	}
}

// deliver is the provider stand-in: logs the send and fails 5% of the
// time so the retry path stays exercised in dev.
func deliver(job *sender.ChannelSend) error {
	if rand.Intn(100) < 5 {
		return &deliveryError{channel: job.Channel}
	}
	log.Printf("📩 Delivered %s to contact %d: %q\n", job.Channel, job.ContactID, job.Subject)
	return nil
}

type deliveryError struct {
	channel string
}

func (e *deliveryError) Error() string {
	return "mock delivery failed on " + e.channel
}
