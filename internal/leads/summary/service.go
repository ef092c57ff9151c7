// Package summary builds and delivers the daily lead report.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/platform/logger"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Repository is the read-only data access needed by the report.
type Repository interface {
	ListLeads(ctx context.Context, filter repository.LeadFilter, opts repository.ListOptions) ([]domain.Lead, error)
	CountLogs(ctx context.Context, filter repository.LogFilter) (int, error)
}

// Notifier delivers the report text. Delivery is best-effort.
type Notifier interface {
	Send(ctx context.Context, contact, text string)
}

// Mailer sends an optional e-mail copy of the report.
type Mailer interface {
	SendSummary(ctx context.Context, subject, body string) error
}

// Config holds report settings.
type Config struct {
	BrandName    string
	AdminContact string
	BatchLimit   int
	StaleAfter   time.Duration
}

// Report is the aggregated daily snapshot.
type Report struct {
	GeneratedAt time.Time
	Total       int
	ByStatus    map[domain.Status]int
	ByArea      map[string]int
	ByJob       map[string]int
	Conversion  int
	Overdue     int
}

// Service builds and sends the report.
type Service struct {
	repo     Repository
	notifier Notifier
	mailer   Mailer
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// New creates the service. mailer may be nil.
func New(repo Repository, notifier Notifier, mailer Mailer, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the report time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Build aggregates the current store contents.
func (s *Service) Build(ctx context.Context) (Report, error) {
	leads, err := s.repo.ListLeads(ctx, repository.LeadFilter{}, repository.ListOptions{Limit: s.cfg.BatchLimit})
	if err != nil {
		return Report{}, fmt.Errorf("list leads: %w", err)
	}

	from, to := domain.StatusNew, domain.StatusInProgress
	conversion, err := s.repo.CountLogs(ctx, repository.LogFilter{FromStatus: &from, ToStatus: &to})
	if err != nil {
		return Report{}, fmt.Errorf("count conversions: %w", err)
	}

	now := s.now()
	report := Report{
		GeneratedAt: now,
		Total:       len(leads),
		ByStatus:    make(map[domain.Status]int, len(domain.Statuses)),
		ByArea:      make(map[string]int),
		ByJob:       make(map[string]int),
		Conversion:  conversion,
	}
	for _, status := range domain.Statuses {
		report.ByStatus[status] = 0
	}

	// Caser is not safe for concurrent use; Build may run from a request and a job at once.
	caser := cases.Title(language.Und)
	for _, lead := range leads {
		report.ByStatus[lead.Status]++
		report.ByArea[groupKey(caser, lead.Area)]++
		report.ByJob[groupKey(caser, lead.JobCategory)]++
		if lead.Status == domain.StatusNew && lead.Age(now) >= s.cfg.StaleAfter {
			report.Overdue++
		}
	}

	return report, nil
}

// Format renders the fixed-layout report text.
func (s *Service) Format(r Report) string {
	lines := []string{
		fmt.Sprintf("%s Daily Lead Summary", s.cfg.BrandName),
		fmt.Sprintf("Total leads: %d", r.Total),
		fmt.Sprintf("Status → New: %d, In progress: %d, Won: %d, Lost: %d",
			r.ByStatus[domain.StatusNew], r.ByStatus[domain.StatusInProgress],
			r.ByStatus[domain.StatusWon], r.ByStatus[domain.StatusLost]),
		"By Area: " + formatGroups(r.ByArea),
		"By Job: " + formatGroups(r.ByJob),
		fmt.Sprintf("Conversion New→In progress: %d", r.Conversion),
		fmt.Sprintf("Overdue follow-ups (24h): %d", r.Overdue),
	}
	return strings.Join(lines, "\n")
}

// Run builds the report and sends it to the admin contact, plus an e-mail
// copy when a mailer is configured. Delivery failures are logged only.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report, err := s.Build(ctx)
	if err != nil {
		return Report{}, err
	}
	text := s.Format(report)

	s.notifier.Send(ctx, s.cfg.AdminContact, text)

	if s.mailer != nil {
		subject := fmt.Sprintf("%s Daily Lead Summary %s", s.cfg.BrandName, report.GeneratedAt.Format("2006-01-02"))
		if err := s.mailer.SendSummary(ctx, subject, text); err != nil {
			s.log.IntegrationFailure("email", "send_summary", err)
		}
	}

	return report, nil
}

func groupKey(caser cases.Caser, value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return domain.UnknownName
	}
	return caser.String(strings.TrimSpace(*value))
}

func formatGroups(groups map[string]int) string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, groups[k]))
	}
	return strings.Join(parts, ", ")
}
