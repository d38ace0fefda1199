package mail

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
)

const deliveryTimeout = 30 * time.Second

// Dispatcher owns a bounded queue of outgoing messages and a single
// background worker. Enqueue never blocks the caller: when the queue is
// full the message is dropped with a warning. Delivery failures are
// logged, never propagated back to the producer.
type Dispatcher struct {
	sender Sender
	logger logging.Logger
	queue  chan Message
}

func NewDispatcher(sender Sender, logger logging.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		sender: sender,
		logger: logger.With("module", "mail_dispatcher"),
		queue:  make(chan Message, queueSize),
	}
}

// Enqueue hands a message to the background worker.
func (d *Dispatcher) Enqueue(m Message) {
	select {
	case d.queue <- m:
	default:
		d.logger.Warn(context.Background(), "mail queue full, dropping message", "to", m.To, "subject", m.Subject)
	}
}

// Run delivers queued messages until ctx is cancelled, then drains
// whatever is still queued before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info(ctx, "mail dispatcher started", "queue_size", cap(d.queue))
	for {
		select {
		case m := <-d.queue:
			d.deliver(ctx, m)
		case <-ctx.Done():
			d.drain()
			d.logger.Info(context.Background(), "mail dispatcher stopped")
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case m := <-d.queue:
			d.deliver(context.Background(), m)
		default:
			return
		}
	}
}

// deliver runs the blocking send under a watchdog. net/smtp has no context
// support, so a hung connection must not stall the whole queue.
func (d *Dispatcher) deliver(ctx context.Context, m Message) {
	done := make(chan error, 1)
	go func() { done <- d.sender.Send(m) }()

	select {
	case err := <-done:
		if err != nil {
			d.logger.Error(ctx, "mail delivery failed", "to", m.To, "error", err.Error())
			return
		}
		d.logger.Info(ctx, "mail delivered", "to", m.To, "subject", m.Subject)
	case <-time.After(deliveryTimeout):
		d.logger.Error(ctx, "mail delivery timed out", "to", m.To)
	}
}
