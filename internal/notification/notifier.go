package notification

import (
	"context"
	"strings"
	"time"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/platform/logger"
)

const defaultTimeout = 10 * time.Second

// Sender delivers one text to one contact over the messaging gateway.
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
	Enabled() bool
}

// Counter is the metrics hook for delivery outcomes.
type Counter interface {
	Notification(result string)
}

// Notifier is the fire-and-forget delivery port used by every component.
// Send never returns an error: failures and timeouts are logged and
// recorded in diagnostics, and the next scan cycle acts as the retry.
type Notifier struct {
	sender   Sender
	fallback string
	timeout  time.Duration
	recorder diagnostics.Recorder
	counter  Counter
	log      *logger.Logger
}

// NewNotifier builds a Notifier. fallback receives messages addressed to an
// empty contact. sender, recorder and counter may be nil.
func NewNotifier(sender Sender, fallback string, timeout time.Duration, recorder diagnostics.Recorder, counter Counter, log *logger.Logger) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		sender:   sender,
		fallback: fallback,
		timeout:  timeout,
		recorder: recorder,
		counter:  counter,
		log:      log,
	}
}

func (n *Notifier) Send(ctx context.Context, contact, text string) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		contact = n.fallback
	}

	if n.sender == nil || !n.sender.Enabled() {
		n.log.Info("notification (log only)", "contact", contact, "message", text)
		n.count("logged")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.SendMessage(sendCtx, contact, text); err != nil {
		n.count("failed")
		if n.recorder != nil {
			n.recorder.Record(ctx, diagnostics.Failure("whatsapp", "send_message", err, map[string]string{"contact": contact}))
		} else {
			n.log.IntegrationFailure("whatsapp", "send_message", err, "contact", contact)
		}
		return
	}
	n.count("sent")
}

func (n *Notifier) count(result string) {
	if n.counter != nil {
		n.counter.Notification(result)
	}
}
