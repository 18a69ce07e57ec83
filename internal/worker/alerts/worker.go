package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

const subject = "Tranquilo: Shopify-MDS Error"

// sender delivers a composed alert message.
type sender interface {
	Send(subject, body string) error
}

// Notification is an escalation raised by the relay pipeline: an order that
// could not be built or whose submission MDS did not acknowledge.
type Notification struct {
	OrderNumber int64
	Reason      string
	Detail      string
}

// Worker drains escalation notifications and mails them to the operators.
// Delivery is best effort: a full buffer drops the notification and a mail
// failure only logs.
type Worker struct {
	sender   sender
	notifyCh chan Notification
	stopCh   chan struct{}
}

// NewWorker creates a new alerts worker.
func NewWorker(sender sender) *Worker {
	bufferSize := viper.GetInt("alerts.buffer_size")
	if bufferSize == 0 {
		bufferSize = 64
	}

	return &Worker{
		sender:   sender,
		notifyCh: make(chan Notification, bufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Notify queues a notification without blocking the request that raised it.
func (w *Worker) Notify(n Notification) {
	select {
	case w.notifyCh <- n:
	default:
		slog.Warn("Alert buffer full, dropping notification",
			"order_number", n.OrderNumber,
			"reason", n.Reason,
		)
	}
}

// Start begins draining notifications.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("Alerts worker started", "buffer_size", cap(w.notifyCh))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Alerts worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Alerts worker stopped")

			return
		case n := <-w.notifyCh:
			w.deliver(n)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) deliver(n Notification) {
	body := fmt.Sprintf("Order #%d: %s\n\n%s", n.OrderNumber, n.Reason, n.Detail)

	if err := w.sender.Send(subject, body); err != nil {
		slog.Error("Failed to send alert email",
			"order_number", n.OrderNumber,
			"reason", n.Reason,
			"error", err,
		)

		return
	}

	slog.Info("Alert email sent", "order_number", n.OrderNumber, "reason", n.Reason)
}
