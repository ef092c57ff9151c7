package repository

import (
	"context"
	"errors"
	"time"

	"lead_engine_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lead not found")

// LeadFilter narrows lead queries. Nil fields are ignored.
type LeadFilter struct {
	ID                     *uuid.UUID
	Status                 *domain.Status
	AssignedHandlerContact *string
	Source                 *domain.Source
	CreatedBefore          *time.Time
	TimestampBefore        *time.Time
}

// ListOptions controls ordering and size of list queries.
type ListOptions struct {
	// Limit caps the result size; zero or less returns every match.
	Limit int
	// NewestFirst orders by created_at descending; otherwise by inquiry timestamp ascending.
	NewestFirst bool
}

// LeadPatch holds the mutable lead fields. Nil fields are left untouched.
type LeadPatch struct {
	Status             *domain.Status
	LastHandlerReplyAt *time.Time
}

// LogFilter narrows log queries. Nil fields are ignored.
type LogFilter struct {
	LeadID     *uuid.UUID
	FromStatus *domain.Status
	ToStatus   *domain.Status
}

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter, opts ListOptions) ([]domain.Lead, error)
}

// LeadWriter provides write operations for leads.
type LeadWriter interface {
	CreateLead(ctx context.Context, params domain.NewLead) (domain.Lead, error)
	// UpdateLeads applies patch to every matching lead and reports how many changed.
	UpdateLeads(ctx context.Context, filter LeadFilter, patch LeadPatch) (int64, error)
}

// LogStore records and reads the audit trail.
type LogStore interface {
	AppendLog(ctx context.Context, params domain.NewLeadLog) (domain.LeadLog, error)
	// ListLogs returns entries oldest first; limit <= 0 returns every match.
	ListLogs(ctx context.Context, filter LogFilter, limit int) ([]domain.LeadLog, error)
	CountLogs(ctx context.Context, filter LogFilter) (int, error)
}

// Store is the complete persistence port for the leads context.
type Store interface {
	LeadReader
	LeadWriter
	LogStore
	Ping(ctx context.Context) error
}
