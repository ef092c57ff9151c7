package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnknownName is stored when an inbound payload carries no name.
const UnknownName = "Unknown"

// Lead is one tracked service inquiry.
type Lead struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Phone                  string     `json:"phone"`
	Area                   *string    `json:"area,omitempty"`
	JobCategory            *string    `json:"job_category,omitempty"`
	Description            *string    `json:"description,omitempty"`
	Source                 Source     `json:"source"`
	Timestamp              time.Time  `json:"timestamp"`
	Status                 Status     `json:"status"`
	AssignedHandlerContact string     `json:"assigned_handler_contact"`
	LastHandlerReplyAt     *time.Time `json:"last_handler_reply_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DisplayName is the name used in reminder texts: the name, or the phone
// when no name is stored.
func (l Lead) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Phone
}

// Age returns how long ago the inquiry was made.
func (l Lead) Age(now time.Time) time.Duration {
	return now.Sub(l.Timestamp)
}

// NewLead is the canonical creation payload produced by Normalize.
// The store assigns ID, CreatedAt and UpdatedAt.
type NewLead struct {
	Name                   string
	Phone                  string
	Area                   *string
	JobCategory            *string
	Description            *string
	Source                 Source
	Timestamp              time.Time
	Status                 Status
	AssignedHandlerContact string
	LastHandlerReplyAt     *time.Time
}

// LeadLog is an immutable audit trail entry.
type LeadLog struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"lead_id"`
	FromStatus *Status   `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Timestamp  time.Time `json:"timestamp"`
	Note       *string   `json:"note,omitempty"`
}

// NewLeadLog is the payload for appending a log entry.
type NewLeadLog struct {
	LeadID     uuid.UUID
	FromStatus *Status
	ToStatus   Status
	Timestamp  time.Time
	Note       *string
}

// ReplayStatus reconstructs the current status from a lead's log entries,
// which must be ordered by timestamp. ok is false when there are no entries.
func ReplayStatus(entries []LeadLog) (status Status, ok bool) {
	for _, entry := range entries {
		status = entry.ToStatus
		ok = true
	}
	return status, ok
}
