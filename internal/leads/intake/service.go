// Package intake turns inbound payloads from every channel into leads and
// routes inbound messaging traffic to either lead creation or handler replies.
package intake

import (
	"context"
	"fmt"
	"time"

	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/lifecycle"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository is the data access needed by intake.
type Repository interface {
	CreateLead(ctx context.Context, params domain.NewLead) (domain.Lead, error)
	ListLeads(ctx context.Context, filter repository.LeadFilter, opts repository.ListOptions) ([]domain.Lead, error)
}

// Transitioner applies audited status changes.
type Transitioner interface {
	Transition(ctx context.Context, req lifecycle.TransitionRequest) (domain.LeadLog, error)
}

// Message is an inbound messaging-app text.
type Message struct {
	From      string
	To        string
	Body      string
	Timestamp *time.Time
}

// MessageResult reports what HandleMessage did.
type MessageResult struct {
	Outcome domain.Classification
	// Lead is set when a new lead was created.
	Lead *domain.Lead
	// Updated lists the leads moved to In progress by a handler reply.
	Updated []uuid.UUID
}

// Service handles lead ingestion.
type Service struct {
	repo       Repository
	machine    Transitioner
	classifier *domain.Classifier
	defaults   domain.Defaults
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func New(repo Repository, machine Transitioner, classifier *domain.Classifier, defaults domain.Defaults, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		machine:    machine,
		classifier: classifier,
		defaults:   defaults,
		eventBus:   eventBus,
		log:        log,
		now:        time.Now,
	}
}

// WithClock replaces the server-time source used for missing timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest normalizes and stores a lead from a structured channel, then
// publishes LeadCreated for alerting and mirroring.
func (s *Service) Ingest(ctx context.Context, source domain.Source, in domain.Inbound) (domain.Lead, error) {
	return s.create(ctx, source, in, "")
}

// HandleMessage classifies an inbound text. Keyword hits create a messaging
// lead; anything else is treated as the sender replying to their leads.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (MessageResult, error) {
	outcome := s.classifier.Classify(msg.Body)

	if outcome == domain.NewInquiry {
		from, to, body := msg.From, msg.To, msg.Body
		lead, err := s.create(ctx, domain.SourceMessaging, domain.Inbound{
			Phone:                  &from,
			Description:            &body,
			AssignedHandlerContact: &to,
			Timestamp:              msg.Timestamp,
		}, msg.Body)
		if err != nil {
			return MessageResult{}, err
		}
		return MessageResult{Outcome: outcome, Lead: &lead}, nil
	}

	updated, err := s.applyHandlerReply(ctx, msg)
	if err != nil {
		return MessageResult{}, err
	}
	return MessageResult{Outcome: outcome, Updated: updated}, nil
}

func (s *Service) create(ctx context.Context, source domain.Source, in domain.Inbound, body string) (domain.Lead, error) {
	params := domain.Normalize(in, source, s.defaults, s.now())

	lead, err := s.repo.CreateLead(ctx, params)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}

	s.log.Info("lead created",
		"lead_id", lead.ID.String(),
		"source", string(lead.Source),
		"assigned_handler", lead.AssignedHandlerContact,
	)

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		Lead:        lead,
		MessageBody: body,
	})
	return lead, nil
}

// applyHandlerReply moves every lead assigned to the sender to In progress.
// Matches are processed independently; a failing lead is logged and skipped.
func (s *Service) applyHandlerReply(ctx context.Context, msg Message) ([]uuid.UUID, error) {
	sender := s.defaults.NormalizeContact(msg.From)
	if sender == "" {
		return nil, nil
	}

	leads, err := s.repo.ListLeads(ctx, repository.LeadFilter{AssignedHandlerContact: &sender}, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("find leads for handler: %w", err)
	}

	replyAt := s.now()
	if msg.Timestamp != nil && !msg.Timestamp.IsZero() {
		replyAt = *msg.Timestamp
	}
	note := "Handler replied via messaging"

	updated := make([]uuid.UUID, 0, len(leads))
	for _, lead := range leads {
		_, err := s.machine.Transition(ctx, lifecycle.TransitionRequest{
			LeadID:         lead.ID,
			Status:         domain.StatusInProgress,
			Note:           &note,
			HandlerReplyAt: &replyAt,
		})
		if err != nil {
			s.log.Error("handler reply transition failed", "lead_id", lead.ID.String(), "error", err)
			continue
		}
		updated = append(updated, lead.ID)
	}

	s.log.Info("handler reply applied", "handler", sender, "matched", len(leads), "updated", len(updated))
	return updated, nil
}
