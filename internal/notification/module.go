// Package notification sends handler alerts in response to domain events
// and provides the Notifier used by the recurring jobs.
// Lead intake publishes events and never talks to the messaging gateway.
package notification

import (
	"context"
	"fmt"

	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/platform/logger"
)

const messagePreviewRunes = 80

// Module subscribes to lead events.
type Module struct {
	notifier *Notifier
	log      *logger.Logger
}

func New(notifier *Notifier, log *logger.Logger) *Module {
	return &Module{notifier: notifier, log: log}
}

// Notifier exposes the shared delivery port.
func (m *Module) Notifier() *Notifier {
	return m.notifier
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	m.log.Info("processing lead created notification", "lead_id", e.Lead.ID.String(), "source", string(e.Lead.Source))
	m.notifier.Send(ctx, e.Lead.AssignedHandlerContact, NewLeadAlert(e.Lead, e.MessageBody))
	return nil
}

// NewLeadAlert is the immediate alert text sent to the assigned handler.
func NewLeadAlert(lead domain.Lead, messageBody string) string {
	switch lead.Source {
	case domain.SourceFacebook:
		return fmt.Sprintf("New Facebook lead: %s (%s). Status: New", lead.Name, lead.Phone)
	case domain.SourceManual:
		return fmt.Sprintf("Manual lead added: %s (%s). Status: New", lead.Name, lead.Phone)
	case domain.SourceMessaging:
		return fmt.Sprintf("New messaging lead: %s → '%s'", lead.Phone, preview(messageBody))
	default:
		return fmt.Sprintf("New lead from website: %s (%s). Status: New", lead.Name, lead.Phone)
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= messagePreviewRunes {
		return text
	}
	return string(runes[:messagePreviewRunes])
}
