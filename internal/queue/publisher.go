package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/labstack/gommon/log"
)

// Publisher sends SeatReservedEvents to RabbitMQ.  Every call dials,
// declares the queue and publishes; admissions are rare enough that a
// pooled channel is not worth the reconnect bookkeeping.  Errors are
// logged and returned so callers can ignore them without interrupting
// the reservation flow.
type Publisher struct {
    url string
    log *log.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *log.Logger) *Publisher {
    return &Publisher{url: url, log: logger}
}

// PublishSeatReserved publishes a persistent message to the
// seat.reserved queue.
func (p *Publisher) PublishSeatReserved(ctx context.Context, event SeatReservedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warnf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warnf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        SeatReservedQueue, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        p.log.Warnf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        p.log.Warnf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        SeatReservedQueue, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        p.log.Warnf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
