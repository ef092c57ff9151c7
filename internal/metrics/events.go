package metrics

import (
	"context"

	"lead_engine_backend/internal/events"
)

// RegisterHandlers counts lead creation from the event stream so intake
// stays unaware of metrics.
func (m *Metrics) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Metrics) Handle(_ context.Context, event events.Event) error {
	if e, ok := event.(events.LeadCreated); ok {
		m.LeadCreated(string(e.Lead.Source))
	}
	return nil
}
