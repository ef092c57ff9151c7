package transport

import (
	"time"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Request DTOs

// InboundLeadRequest is the loosely structured payload accepted by the
// website and Facebook ingestion endpoints. Every field is optional.
type InboundLeadRequest struct {
	Name                   *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone                  *string    `json:"phone,omitempty" validate:"omitempty,max=40"`
	Area                   *string    `json:"area,omitempty" validate:"omitempty,max=200"`
	JobCategory            *string    `json:"job_category,omitempty" validate:"omitempty,max=200"`
	Description            *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	AssignedHandlerContact *string    `json:"assigned_handler_contact,omitempty" validate:"omitempty,max=40"`
	Timestamp              *time.Time `json:"timestamp,omitempty"`
}

// ToInbound converts the request into the normalizer input.
func (r InboundLeadRequest) ToInbound() domain.Inbound {
	return domain.Inbound{
		Name:                   r.Name,
		Phone:                  r.Phone,
		Area:                   r.Area,
		JobCategory:            r.JobCategory,
		Description:            r.Description,
		AssignedHandlerContact: r.AssignedHandlerContact,
		Timestamp:              r.Timestamp,
	}
}

// ManualLeadRequest is the form used by staff; name and phone are required.
type ManualLeadRequest struct {
	Name                   string     `json:"name" validate:"required,min=1,max=200"`
	Phone                  string     `json:"phone" validate:"required,min=3,max=40"`
	Area                   *string    `json:"area,omitempty" validate:"omitempty,max=200"`
	JobCategory            *string    `json:"job_category,omitempty" validate:"omitempty,max=200"`
	Description            *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	AssignedHandlerContact *string    `json:"assigned_handler_contact,omitempty" validate:"omitempty,max=40"`
	Timestamp              *time.Time `json:"timestamp,omitempty"`
}

// ToInbound converts the form into the normalizer input.
func (r ManualLeadRequest) ToInbound() domain.Inbound {
	name, phone := r.Name, r.Phone
	return domain.Inbound{
		Name:                   &name,
		Phone:                  &phone,
		Area:                   r.Area,
		JobCategory:            r.JobCategory,
		Description:            r.Description,
		AssignedHandlerContact: r.AssignedHandlerContact,
		Timestamp:              r.Timestamp,
	}
}

// MessageRequest is an inbound messaging-app text forwarded by the gateway.
type MessageRequest struct {
	FromNumber string     `json:"from_number" validate:"required,max=40"`
	ToNumber   string     `json:"to_number" validate:"required,max=40"`
	Message    string     `json:"message" validate:"max=5000"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// StatusUpdateRequest is the body of POST /leads/status.
type StatusUpdateRequest struct {
	LeadID uuid.UUID `json:"lead_id" validate:"required"`
	Status string    `json:"status" validate:"required,lead_status"`
	Note   *string   `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// UpdateLeadStatusRequest is the body of PATCH /leads/:id/status.
type UpdateLeadStatusRequest struct {
	Status string  `json:"status" validate:"required,lead_status"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// ListLeadsQuery filters GET /leads.
type ListLeadsQuery struct {
	Status string `form:"status" validate:"omitempty,lead_status"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=1000"`
}

// Response DTOs

type HealthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

type LeadResponse struct {
	OK   bool        `json:"ok"`
	Lead domain.Lead `json:"lead"`
}

type LeadListResponse struct {
	OK    bool          `json:"ok"`
	Leads []domain.Lead `json:"leads"`
}

type LeadLogListResponse struct {
	OK   bool             `json:"ok"`
	Logs []domain.LeadLog `json:"logs"`
}

type StatusUpdateResponse struct {
	OK  bool           `json:"ok"`
	Log domain.LeadLog `json:"log"`
}

// MessageResponse reports the outcome of an inbound message. Ignored is set
// when the text was treated as a handler reply rather than a new inquiry.
type MessageResponse struct {
	OK      bool         `json:"ok"`
	Outcome string       `json:"outcome"`
	Ignored bool         `json:"ignored,omitempty"`
	Lead    *domain.Lead `json:"lead,omitempty"`
	Updated []uuid.UUID  `json:"updated,omitempty"`
}

type DailySummaryResponse struct {
	OK          bool           `json:"ok"`
	GeneratedAt time.Time      `json:"generated_at"`
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByArea      map[string]int `json:"by_area"`
	ByJob       map[string]int `json:"by_job"`
	Conversion  int            `json:"conversion"`
	Overdue     int            `json:"overdue"`
	Text        string         `json:"text"`
}

type DiagnosticsResponse struct {
	OK      bool                `json:"ok"`
	Entries []diagnostics.Entry `json:"entries"`
}

type JobRunResponse struct {
	OK  bool   `json:"ok"`
	Job string `json:"job"`
}
