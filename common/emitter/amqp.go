package emitter

import (
	"encoding/json"
	"time"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type rabbitClient struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      amqp.Queue
}

// AmqpEmitter publishes events to a durable RabbitMQ queue, one message per
// event. Publish failures are logged and dropped: the capture paths behind
// this emitter are never allowed to see a delivery error.
type AmqpEmitter struct {
	rabbit *rabbitClient
}

type wireEvent struct {
	Severity   string                 `json:"severity"`
	Body       string                 `json:"body"`
	Attributes map[string]interface{} `json:"attributes"`
	Time       string                 `json:"time"`
}

func newRabbitClient(server, queue string) *rabbitClient {
	conn, err := amqp.Dial(server)
	if err != nil {
		log.WithError(err).Error("Failed to connect to RabbitMQ")
		return nil
	}

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Error("Failed to open a channel")
		return nil
	}

	q, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		log.WithError(err).Error("Failed to declare a queue")
		return nil
	}

	return &rabbitClient{conn, ch, q}
}

func NewAmqp(server, queue string) (*AmqpEmitter, error) {
	client := newRabbitClient(server, queue)
	if client == nil {
		log.Error("Can't connect to rabbit")
		return nil, errors.New("Can't connect to rabbit")
	}

	return &AmqpEmitter{rabbit: client}, nil
}

func (e *AmqpEmitter) Emit(severity Severity, body string, attrs Attrs) {
	msg, err := json.Marshal(EventPayload(severity, body, attrs))
	if err != nil {
		log.WithError(err).Error("Can't serialize event")
		return
	}

	err = e.rabbit.channel.Publish("",
		e.rabbit.queue.Name,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "text/json",
			Body:         msg,
		})
	if err != nil {
		log.WithError(err).Error("Can't publish event")
	}
}

func (e *AmqpEmitter) Close() error {
	return e.rabbit.connection.Close()
}

// EventPayload builds the wire shape published for one event.
func EventPayload(severity Severity, body string, attrs Attrs) interface{} {
	return &wireEvent{
		Severity:   string(severity),
		Body:       body,
		Attributes: attrs,
		Time:       time.Now().Format(time.RFC3339),
	}
}
