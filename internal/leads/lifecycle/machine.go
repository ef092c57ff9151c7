// Package lifecycle owns lead status transitions and their audit trail.
// Every status change goes through Machine so that exactly one log entry
// is written per transition.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/platform/apperr"
	"lead_engine_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository is the data access needed by the state machine.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	AppendLog(ctx context.Context, params domain.NewLeadLog) (domain.LeadLog, error)
}

// TransitionRequest describes one status change.
type TransitionRequest struct {
	LeadID uuid.UUID
	Status domain.Status
	Note   *string
	// HandlerReplyAt is stored as last_handler_reply_at together with the status.
	HandlerReplyAt *time.Time
}

// Machine applies status transitions.
type Machine struct {
	repo     Repository
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the transition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func New(repo Repository, eventBus events.Bus, log *logger.Logger, opts ...Option) *Machine {
	m := &Machine{repo: repo, eventBus: eventBus, log: log, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition sets the lead status and appends one log entry capturing the
// observed from/to pair. Self-transitions are logged too. A missing lead
// yields apperr.NotFound and no log entry.
func (m *Machine) Transition(ctx context.Context, req TransitionRequest) (domain.LeadLog, error) {
	if !domain.IsKnownStatus(req.Status) {
		return domain.LeadLog{}, apperr.Validation(fmt.Sprintf("unknown status %q", req.Status))
	}

	lead, err := m.repo.GetLead(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.LeadLog{}, apperr.NotFound("lead not found")
		}
		return domain.LeadLog{}, fmt.Errorf("load lead: %w", err)
	}
	from := lead.Status

	status := req.Status
	patch := repository.LeadPatch{Status: &status, LastHandlerReplyAt: req.HandlerReplyAt}
	updated, err := m.repo.UpdateLeads(ctx, repository.LeadFilter{ID: &lead.ID}, patch)
	if err != nil {
		return domain.LeadLog{}, fmt.Errorf("update lead status: %w", err)
	}
	if updated == 0 {
		return domain.LeadLog{}, apperr.NotFound("lead not found")
	}

	entry, err := m.append(ctx, lead.ID, &from, req.Status, req.Note)
	if err != nil {
		return domain.LeadLog{}, err
	}

	m.log.Info("lead status changed",
		"lead_id", lead.ID.String(),
		"from", string(from),
		"to", string(req.Status),
	)
	return entry, nil
}

// Record appends an informational entry without touching the lead.
func (m *Machine) Record(ctx context.Context, leadID uuid.UUID, from *domain.Status, to domain.Status, note string) (domain.LeadLog, error) {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	return m.append(ctx, leadID, from, to, notePtr)
}

func (m *Machine) append(ctx context.Context, leadID uuid.UUID, from *domain.Status, to domain.Status, note *string) (domain.LeadLog, error) {
	entry, err := m.repo.AppendLog(ctx, domain.NewLeadLog{
		LeadID:     leadID,
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  m.now(),
		Note:       note,
	})
	if err != nil {
		return domain.LeadLog{}, fmt.Errorf("append lead log: %w", err)
	}

	// Mirroring happens in subscribers; their failures never reach the caller.
	m.eventBus.Publish(ctx, events.LeadLogged{
		BaseEvent: events.NewBaseEvent(),
		Entry:     entry,
	})
	return entry, nil
}
