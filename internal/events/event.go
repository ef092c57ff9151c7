// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published after a lead has been persisted by any ingestion path.
type LeadCreated struct {
	BaseEvent
	Lead domain.Lead `json:"lead"`
	// MessageBody carries the inbound text for messaging-channel leads.
	MessageBody string `json:"messageBody,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadLogged is published after an audit log entry has been appended,
// both for status transitions and informational entries.
type LeadLogged struct {
	BaseEvent
	Entry domain.LeadLog `json:"entry"`
}

func (e LeadLogged) EventName() string { return "leads.lead.logged" }
