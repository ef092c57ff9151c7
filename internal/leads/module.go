// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/events"
	apphttp "lead_engine_backend/internal/http"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/followup"
	"lead_engine_backend/internal/leads/handler"
	"lead_engine_backend/internal/leads/intake"
	"lead_engine_backend/internal/leads/lifecycle"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/internal/leads/summary"
	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/logger"
	"lead_engine_backend/platform/validator"
)

// Notifier delivers handler and admin messages.
type Notifier interface {
	Send(ctx context.Context, contact, text string)
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	store    repository.Store
	machine  *lifecycle.Machine
	intake   *intake.Service
	followUp *followup.Scanner
	summary  *summary.Service
	handler  *handler.Handler
}

// NewModule creates and initializes the leads module with all its dependencies.
// mailer may be nil when no e-mail copy of the summary is configured.
func NewModule(store repository.Store, eventBus events.Bus, notifier Notifier, mailer summary.Mailer, recorder diagnostics.Recorder, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) (*Module, error) {
	if err := handler.RegisterValidations(val); err != nil {
		return nil, err
	}

	defaults := DefaultsFromConfig(cfg)
	classifier := domain.NewClassifier(cfg.GetKeywords())

	machine := lifecycle.New(store, eventBus, log)
	intakeSvc := intake.New(store, machine, classifier, defaults, eventBus, log)

	followUpSvc := followup.New(store, machine, notifier, followup.Config{
		ReminderAfter:   cfg.GetReminderAfter(),
		StaleAfter:      cfg.GetStaleAfter(),
		BatchLimit:      cfg.GetFollowUpBatchLimit(),
		FallbackContact: cfg.GetDefaultAdminContact(),
	}, log)

	summarySvc := summary.New(store, notifier, mailer, summary.Config{
		BrandName:    cfg.GetBrandName(),
		AdminContact: cfg.GetDefaultAdminContact(),
		BatchLimit:   cfg.GetSummaryBatchLimit(),
		StaleAfter:   cfg.GetStaleAfter(),
	}, log)

	h := handler.New(handler.Deps{
		Intake:      intakeSvc,
		Machine:     machine,
		Leads:       store,
		Summary:     summarySvc,
		Diagnostics: recorder,
		Validator:   val,
	})

	return &Module{
		store:    store,
		machine:  machine,
		intake:   intakeSvc,
		followUp: followUpSvc,
		summary:  summarySvc,
		handler:  h,
	}, nil
}

// DefaultsFromConfig maps the configured contacts onto the normalizer defaults.
func DefaultsFromConfig(cfg config.LeadsConfig) domain.Defaults {
	sourceContacts := make(map[domain.Source]string)
	for source, contact := range cfg.GetSourceAssignedContacts() {
		if domain.IsKnownSource(domain.Source(source)) {
			sourceContacts[domain.Source(source)] = contact
		}
	}
	return domain.Defaults{
		AdminContact:    cfg.GetDefaultAdminContact(),
		AssignedContact: cfg.GetDefaultAssignedContact(),
		SourceContacts:  sourceContacts,
		PhoneRegion:     cfg.GetPhoneRegion(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Store returns the persistence port shared by the module's services.
func (m *Module) Store() repository.Store {
	return m.store
}

// IntakeService returns the ingestion service.
func (m *Module) IntakeService() *intake.Service {
	return m.intake
}

// Machine returns the lifecycle state machine.
func (m *Module) Machine() *lifecycle.Machine {
	return m.machine
}

// FollowUpScanner returns the follow-up scanner run by the scheduler.
func (m *Module) FollowUpScanner() *followup.Scanner {
	return m.followUp
}

// SummaryService returns the daily summary service run by the scheduler.
func (m *Module) SummaryService() *summary.Service {
	return m.summary
}

// SetJobTrigger exposes on-demand job runs over HTTP.
func (m *Module) SetJobTrigger(jobs handler.JobTrigger) {
	m.handler.SetJobTrigger(jobs)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterIngestRoutes(ctx.Ingest)
	m.handler.RegisterRoutes(ctx.V1)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
