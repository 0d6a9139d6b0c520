// Package intake consumes upload notifications from RabbitMQ and runs the
// pipeline for each one.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"postroll/internal/config"
	"postroll/internal/logging"
	"postroll/internal/pipeline"
	"postroll/internal/services"
)

// Runner executes one pipeline request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Job, error)
}

// acknowledger is the subset of amqp.Delivery the handler settles.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Decode parses an invocation message and validates it.
func Decode(body []byte) (pipeline.Request, error) {
	var req pipeline.Request
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		return pipeline.Request{}, services.Wrap(services.ErrValidation, "intake", "decode message", "malformed json", err)
	}
	if err := req.Validate(); err != nil {
		return pipeline.Request{}, err
	}
	return req, nil
}

// Consumer reads deliveries from a durable queue bound to the upload
// exchange. At most Prefetch messages are processed at once.
type Consumer struct {
	cfg     config.Intake
	conn    *amqp.Connection
	channel *amqp.Channel
	runner  Runner
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// Dial connects to the broker and declares the exchange, queue, and binding.
func Dial(cfg config.Intake, runner Runner, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "intake", "dial", "amqp broker unreachable", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{
		cfg:     cfg,
		conn:    conn,
		channel: ch,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "intake"),
	}
	if err := c.declare(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare() error {
	if err := c.channel.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	return nil
}

// Start consumes until ctx is cancelled or the broker closes the channel,
// then waits for in-flight jobs to settle.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	c.logger.Info("intake consumer started",
		logging.String("queue", c.cfg.Queue),
		logging.String("exchange", c.cfg.Exchange),
		logging.String("routing_key", c.cfg.RoutingKey),
		logging.Int("prefetch", c.cfg.Prefetch),
	)
	defer c.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("intake consumer stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer c.wg.Done()
				handle(ctx, c.runner, c.logger, msg.Body, msg)
			}(msg)
		}
	}
}

// Close releases the channel and connection.
func (c *Consumer) Close() error {
	var errs []error
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.conn != nil && !c.conn.IsClosed() {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

// handle runs one delivery and settles it. Malformed messages are dropped.
// Runs that reach a terminal status are acknowledged whether they succeeded
// or not; a run cut short by shutdown is requeued.
func handle(ctx context.Context, runner Runner, logger *slog.Logger, body []byte, msg acknowledger) {
	req, err := Decode(body)
	if err != nil {
		logging.WarnWithContext(logger, "intake message rejected", "intake_rejected",
			logging.Error(err),
			logging.Int("bytes", len(body)),
			logging.String(logging.FieldImpact, "message dropped without requeue"),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			logger.Error("nack failed", logging.Error(nackErr))
		}
		return
	}

	_, err = runner.Run(ctx, req)
	if err != nil && ctx.Err() != nil {
		logger.Info("run interrupted by shutdown; requeueing",
			logging.Int64(logging.FieldVideoID, req.VideoID),
		)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.Error("nack failed", logging.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		logger.Error("ack failed", logging.Int64(logging.FieldVideoID, req.VideoID), logging.Error(ackErr))
	}
}
