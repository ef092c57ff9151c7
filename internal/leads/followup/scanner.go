// Package followup implements the recurring scan over New leads that emits
// no-reply reminders and stale-lead follow-up tasks.
package followup

import (
	"context"
	"fmt"
	"time"

	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/platform/logger"

	"github.com/google/uuid"
)

// StaleNote is the fixed note of the informational entry written for stale leads.
const StaleNote = "Auto follow-up task created after 24h of no response"

// Repository lists candidate leads.
type Repository interface {
	ListLeads(ctx context.Context, filter repository.LeadFilter, opts repository.ListOptions) ([]domain.Lead, error)
}

// Recorder appends informational audit entries.
type Recorder interface {
	Record(ctx context.Context, leadID uuid.UUID, from *domain.Status, to domain.Status, note string) (domain.LeadLog, error)
}

// Notifier delivers a text to a contact. Delivery is best-effort.
type Notifier interface {
	Send(ctx context.Context, contact, text string)
}

// Config holds the scan thresholds.
type Config struct {
	ReminderAfter time.Duration
	StaleAfter    time.Duration
	BatchLimit    int
	// FallbackContact receives notifications for leads without a handler.
	FallbackContact string
}

// Result summarizes one scan cycle.
type Result struct {
	Scanned   int
	Reminders int
	Stale     int
	Failed    int
}

// Scanner runs follow-up cycles.
type Scanner struct {
	repo     Repository
	recorder Recorder
	notifier Notifier
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Repository, recorder Recorder, notifier Notifier, cfg Config, log *logger.Logger) *Scanner {
	return &Scanner{
		repo:     repo,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the scan time source.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Run performs one cycle. Both checks are re-evaluated on every cycle, so a
// lead past a threshold is notified again each time until its status or
// reply timestamp changes. The next cycle is the retry for missed sends.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	status := domain.StatusNew
	leads, err := s.repo.ListLeads(ctx, repository.LeadFilter{Status: &status}, repository.ListOptions{Limit: s.cfg.BatchLimit})
	if err != nil {
		return Result{}, fmt.Errorf("list new leads: %w", err)
	}

	now := s.now()
	res := Result{Scanned: len(leads)}
	for _, lead := range leads {
		age := lead.Age(now)
		contact := s.contactFor(lead)

		if age >= s.cfg.ReminderAfter && lead.LastHandlerReplyAt == nil {
			s.notifier.Send(ctx, contact, ReminderText(lead, s.cfg.ReminderAfter))
			res.Reminders++
		}

		if age >= s.cfg.StaleAfter && lead.Status == domain.StatusNew {
			from := domain.StatusNew
			if _, err := s.recorder.Record(ctx, lead.ID, &from, domain.StatusNew, StaleNote); err != nil {
				s.log.Error("follow-up log entry failed", "lead_id", lead.ID.String(), "error", err)
				res.Failed++
				continue
			}
			s.notifier.Send(ctx, contact, StaleText(lead, s.cfg.StaleAfter))
			res.Stale++
		}
	}

	return res, nil
}

func (s *Scanner) contactFor(lead domain.Lead) string {
	if lead.AssignedHandlerContact != "" {
		return lead.AssignedHandlerContact
	}
	return s.cfg.FallbackContact
}

// ReminderText is the no-reply reminder sent after the reminder threshold.
func ReminderText(lead domain.Lead, after time.Duration) string {
	return fmt.Sprintf("Reminder: Lead %s has no reply after %s.", lead.DisplayName(), humanDuration(after))
}

// StaleText is the follow-up task message sent after the stale threshold.
func StaleText(lead domain.Lead, after time.Duration) string {
	return fmt.Sprintf("Follow-up task: Lead %s still New after %s.", lead.DisplayName(), humanDuration(after))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d min", int(d/time.Minute))
	default:
		return d.String()
	}
}
