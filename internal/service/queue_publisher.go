// Package queue_publisher publishes auth domain events to RabbitMQ.
// Errors are logged and returned so callers can ignore failures without
// interrupting the main request flow: a registration must not fail
// because the broker is down.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/event-auth/internal/queue"
)

// Publisher publishes events to a RabbitMQ broker.  The connection URL is
// injected through the constructor; a connection is opened per publish,
// which keeps the publisher stateless at the cost of a dial per event —
// acceptable for the low volume of auth events.
type Publisher struct {
    url string
}

func New(url string) *Publisher { return &Publisher{url: url} }

// PublishUserRegistered emits a UserRegisteredEvent to the
// "user.registered" queue.
func (p *Publisher) PublishUserRegistered(ctx context.Context, ev q.UserRegisteredEvent) error {
    return p.publish(ctx, q.UserRegisteredQueue, ev)
}

// PublishPasswordReset emits a PasswordResetEvent to the
// "user.password_reset" queue.
func (p *Publisher) PublishPasswordReset(ctx context.Context, ev q.PasswordResetEvent) error {
    return p.publish(ctx, q.PasswordResetQueue, ev)
}

// publish marshals the event and delivers it to the named queue.  The
// queue is declared durable and messages are marked persistent so they
// survive broker restarts.  The function never panics; any error is
// logged and returned for the caller to ignore.
func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent).
    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
        return err
    }
    return nil
}
