package domain

import (
	"strings"
	"time"

	"lead_engine_backend/platform/phone"
	"lead_engine_backend/platform/sanitize"
)

// Inbound is a loosely structured payload from any ingestion channel.
// Every field is optional.
type Inbound struct {
	Name                   *string
	Phone                  *string
	Area                   *string
	JobCategory            *string
	Description            *string
	AssignedHandlerContact *string
	Timestamp              *time.Time
}

// Defaults holds the contacts used when a payload does not name a handler.
type Defaults struct {
	// AdminContact is the global fallback and must be set.
	AdminContact string
	// AssignedContact applies to every channel without its own entry.
	AssignedContact string
	// SourceContacts overrides AssignedContact per channel.
	SourceContacts map[Source]string
	// PhoneRegion resolves national-format numbers.
	PhoneRegion string
}

// ResolveHandler picks the handler contact: explicit value, then the channel
// default, then the global admin contact.
func (d Defaults) ResolveHandler(explicit string, source Source) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(d.SourceContacts[source]); v != "" {
		return v
	}
	if v := strings.TrimSpace(d.AssignedContact); v != "" {
		return v
	}
	return d.AdminContact
}

// NormalizeContact formats a contact address the same way at creation and
// lookup so replies correlate with stored leads.
func (d Defaults) NormalizeContact(contact string) string {
	return phone.NormalizeE164In(contact, d.PhoneRegion)
}

// Normalize turns an inbound payload into a canonical creation payload.
// It never fails: missing fields fall back to defaults.
func Normalize(in Inbound, source Source, d Defaults, now time.Time) NewLead {
	name := UnknownName
	if v := trimmed(in.Name); v != "" {
		name = v
	}

	ts := now
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = *in.Timestamp
	}

	return NewLead{
		Name:                   name,
		Phone:                  d.NormalizeContact(trimmed(in.Phone)),
		Area:                   optional(in.Area),
		JobCategory:            optional(in.JobCategory),
		Description:            optional(in.Description),
		Source:                 source,
		Timestamp:              ts,
		Status:                 StatusNew,
		AssignedHandlerContact: d.NormalizeContact(d.ResolveHandler(trimmed(in.AssignedHandlerContact), source)),
		LastHandlerReplyAt:     nil,
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return sanitize.Text(*s)
}

func optional(s *string) *string {
	v := trimmed(s)
	if v == "" {
		return nil
	}
	return &v
}
