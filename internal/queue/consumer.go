package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer listens to the seat.reserved queue and appends one line
// per admission to an audit log file.
type AuditConsumer struct {
    url  string
    path string
    log  *log.Logger
}

// NewAuditConsumer returns a consumer writing to path.
func NewAuditConsumer(url, path string, logger *log.Logger) *AuditConsumer {
    if path == "" {
        path = filepath.Join("logs", "reservations.log")
    }
    return &AuditConsumer{url: url, path: path, log: logger}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff capped
// at 30s.  A message that cannot be handled is rejected without requeue so
// it cannot spin the loop.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warnf("audit-consumer: set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(SeatReservedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(SeatReservedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.log.Errorf("audit-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *AuditConsumer) handleMessage(body []byte) error {
    var ev SeatReservedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ShowingID == "" || ev.SeatID == "" {
        return errors.New("event missing showing or seat")
    }
    if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Seat reserved | showing=%q | seat=%q | holder=%q | session=%s\n",
        ev.ReservedAt, ev.ShowingID, ev.SeatID, ev.Holder, ev.SessionID)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
