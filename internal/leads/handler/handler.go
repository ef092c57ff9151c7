package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/intake"
	"lead_engine_backend/internal/leads/lifecycle"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/internal/leads/summary"
	"lead_engine_backend/internal/leads/transport"
	"lead_engine_backend/platform/apperr"
	"lead_engine_backend/platform/httpkit"
	"lead_engine_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgLeadNotFound     = "lead not found"

	defaultDiagnosticsLimit = 50
	// maxListLimit caps listing responses.
	maxListLimit = 1000
)

// Ingestor creates leads and routes inbound messages.
type Ingestor interface {
	Ingest(ctx context.Context, source domain.Source, in domain.Inbound) (domain.Lead, error)
	HandleMessage(ctx context.Context, msg intake.Message) (intake.MessageResult, error)
}

// StatusChanger applies audited status transitions.
type StatusChanger interface {
	Transition(ctx context.Context, req lifecycle.TransitionRequest) (domain.LeadLog, error)
}

// LeadQueries is the read side used by the listing endpoints.
type LeadQueries interface {
	repository.LeadReader
	ListLogs(ctx context.Context, filter repository.LogFilter, limit int) ([]domain.LeadLog, error)
}

// SummaryBuilder previews the daily report.
type SummaryBuilder interface {
	Build(ctx context.Context) (summary.Report, error)
	Format(r summary.Report) string
}

// JobTrigger starts a recurring job on demand. It reports false for unknown jobs.
type JobTrigger interface {
	Trigger(ctx context.Context, job string) (bool, error)
}

// JobTriggerFunc adapts a function to JobTrigger.
type JobTriggerFunc func(ctx context.Context, job string) (bool, error)

func (f JobTriggerFunc) Trigger(ctx context.Context, job string) (bool, error) {
	return f(ctx, job)
}

// Deps groups the collaborators of Handler.
type Deps struct {
	Intake      Ingestor
	Machine     StatusChanger
	Leads       LeadQueries
	Summary     SummaryBuilder
	Diagnostics diagnostics.Recorder
	Jobs        JobTrigger
	Validator   *validator.Validator
}

type Handler struct {
	intake  Ingestor
	machine StatusChanger
	leads   LeadQueries
	summary SummaryBuilder
	diag    diagnostics.Recorder
	jobs    JobTrigger
	val     *validator.Validator
}

func New(deps Deps) *Handler {
	return &Handler{
		intake:  deps.Intake,
		machine: deps.Machine,
		leads:   deps.Leads,
		summary: deps.Summary,
		diag:    deps.Diagnostics,
		jobs:    deps.Jobs,
		val:     deps.Validator,
	}
}

// RegisterIngestRoutes mounts the channel ingestion endpoints.
func (h *Handler) RegisterIngestRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", h.IngestWebhook)
	rg.POST("/facebook", h.IngestFacebook)
	rg.POST("/manual", h.IngestManual)
	rg.POST("/messaging", h.IngestMessage)
}

// RegisterRoutes mounts the lead, report and operations endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.POST("/status", h.UpdateStatus)
	leads.GET("/:id", h.GetByID)
	leads.GET("/:id/logs", h.ListLogs)
	leads.PATCH("/:id/status", h.PatchStatus)

	rg.GET("/reports/daily-summary", h.DailySummary)
	rg.GET("/diagnostics", h.Diagnostics)
	rg.POST("/jobs/:name/run", h.RunJob)
}

func (h *Handler) IngestWebhook(c *gin.Context) {
	h.ingestInbound(c, domain.SourceWebsite)
}

func (h *Handler) IngestFacebook(c *gin.Context) {
	h.ingestInbound(c, domain.SourceFacebook)
}

func (h *Handler) IngestManual(c *gin.Context) {
	var req transport.ManualLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.respondCreated(c, domain.SourceManual, req.ToInbound())
}

// Create is the staff form endpoint; it behaves like manual ingestion.
func (h *Handler) Create(c *gin.Context) {
	h.IngestManual(c)
}

func (h *Handler) IngestMessage(c *gin.Context) {
	var req transport.MessageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.intake.HandleMessage(c.Request.Context(), intake.Message{
		From:      req.FromNumber,
		To:        req.ToNumber,
		Body:      req.Message,
		Timestamp: req.Timestamp,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.MessageResponse{
		OK:      true,
		Outcome: result.Outcome.String(),
		Lead:    result.Lead,
		Updated: result.Updated,
	}
	if result.Lead == nil {
		resp.Ignored = true
		httpkit.OK(c, resp)
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	var filter repository.LeadFilter
	if query.Status != "" {
		status := domain.Status(query.Status)
		filter.Status = &status
	}

	limit := query.Limit
	if limit == 0 {
		limit = maxListLimit
	}

	leads, err := h.leads.ListLeads(c.Request.Context(), filter, repository.ListOptions{
		Limit:       limit,
		NewestFirst: true,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}

	httpkit.OK(c, transport.LeadListResponse{OK: true, Leads: leads})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.getLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LeadResponse{OK: true, Lead: lead})
}

func (h *Handler) ListLogs(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	if _, err := h.getLead(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}

	logs, err := h.leads.ListLogs(c.Request.Context(), repository.LogFilter{LeadID: &id}, maxListLimit)
	if httpkit.HandleError(c, err) {
		return
	}
	if logs == nil {
		logs = []domain.LeadLog{}
	}

	httpkit.OK(c, transport.LeadLogListResponse{OK: true, Logs: logs})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req transport.StatusUpdateRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.transition(c, req.LeadID, req.Status, req.Note)
}

func (h *Handler) PatchStatus(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.transition(c, id, req.Status, req.Note)
}

func (h *Handler) DailySummary(c *gin.Context) {
	report, err := h.summary.Build(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	byStatus := make(map[string]int, len(report.ByStatus))
	for status, count := range report.ByStatus {
		byStatus[string(status)] = count
	}

	httpkit.OK(c, transport.DailySummaryResponse{
		OK:          true,
		GeneratedAt: report.GeneratedAt,
		Total:       report.Total,
		ByStatus:    byStatus,
		ByArea:      report.ByArea,
		ByJob:       report.ByJob,
		Conversion:  report.Conversion,
		Overdue:     report.Overdue,
		Text:        h.summary.Format(report),
	})
}

func (h *Handler) Diagnostics(c *gin.Context) {
	limit := defaultDiagnosticsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.diag.Recent(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	if entries == nil {
		entries = []diagnostics.Entry{}
	}

	httpkit.OK(c, transport.DiagnosticsResponse{OK: true, Entries: entries})
}

// SetJobTrigger wires the job runner once the scheduler has been built.
func (h *Handler) SetJobTrigger(jobs JobTrigger) {
	h.jobs = jobs
}

func (h *Handler) RunJob(c *gin.Context) {
	name := c.Param("name")
	if h.jobs == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "jobs are not available", nil)
		return
	}

	known, err := h.jobs.Trigger(c.Request.Context(), name)
	if !known {
		httpkit.HandleError(c, apperr.NotFound("unknown job").WithDetails(name))
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, transport.JobRunResponse{OK: true, Job: name})
}

func (h *Handler) ingestInbound(c *gin.Context, source domain.Source) {
	var req transport.InboundLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.respondCreated(c, source, req.ToInbound())
}

func (h *Handler) respondCreated(c *gin.Context, source domain.Source, in domain.Inbound) {
	lead, err := h.intake.Ingest(c.Request.Context(), source, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.LeadResponse{OK: true, Lead: lead})
}

func (h *Handler) transition(c *gin.Context, id uuid.UUID, status string, note *string) {
	entry, err := h.machine.Transition(c.Request.Context(), lifecycle.TransitionRequest{
		LeadID: id,
		Status: domain.Status(status),
		Note:   note,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.StatusUpdateResponse{OK: true, Log: entry})
}

func (h *Handler) getLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := h.leads.GetLead(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	return lead, err
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

// RegisterValidations installs the lead-specific validation tags.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation("lead_status", validateLeadStatus)
}
