package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// AMQPPublisher publishes engine messages to RabbitMQ. Consuming happens
// in cmd/worker, which talks to the broker directly.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects to RabbitMQ and declares the durable queues the
// engine publishes to.
func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	for _, topic := range []string{TopicExecutionEvents, TopicEnrollmentStatus, TopicChannelSends} {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.Publish(
		"",    // default exchange
		topic, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() {
	if err := p.ch.Close(); err != nil {
		log.Println("⚠️ Failed to close AMQP channel:", err)
	}
	if err := p.conn.Close(); err != nil {
		log.Println("⚠️ Failed to close AMQP connection:", err)
	}
}

var _ Publisher = (*AMQPPublisher)(nil)
