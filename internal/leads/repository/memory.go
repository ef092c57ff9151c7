package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_engine_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for local runs and tests.
type Memory struct {
	mu    sync.RWMutex
	leads map[uuid.UUID]domain.Lead
	order []uuid.UUID
	logs  []domain.LeadLog
	now   func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock uses now for created_at and updated_at stamps.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		leads: make(map[uuid.UUID]domain.Lead),
		now:   now,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateLead(_ context.Context, params domain.NewLead) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	lead := domain.Lead{
		ID:                     uuid.New(),
		Name:                   params.Name,
		Phone:                  params.Phone,
		Area:                   params.Area,
		JobCategory:            params.JobCategory,
		Description:            params.Description,
		Source:                 params.Source,
		Timestamp:              params.Timestamp,
		Status:                 params.Status,
		AssignedHandlerContact: params.AssignedHandlerContact,
		LastHandlerReplyAt:     params.LastHandlerReplyAt,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	m.leads[lead.ID] = lead
	m.order = append(m.order, lead.ID)
	return lead, nil
}

func (m *Memory) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead, nil
}

func (m *Memory) ListLeads(_ context.Context, filter LeadFilter, opts ListOptions) ([]domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leads := make([]domain.Lead, 0)
	for _, id := range m.order {
		lead := m.leads[id]
		if matchLead(lead, filter) {
			leads = append(leads, lead)
		}
	}

	if opts.NewestFirst {
		// Insertion order breaks created_at ties.
		for i, j := 0, len(leads)-1; i < j; i, j = i+1, j-1 {
			leads[i], leads[j] = leads[j], leads[i]
		}
		sort.SliceStable(leads, func(i, j int) bool { return leads[i].CreatedAt.After(leads[j].CreatedAt) })
	} else {
		sort.SliceStable(leads, func(i, j int) bool { return leads[i].Timestamp.Before(leads[j].Timestamp) })
	}

	if opts.Limit > 0 && len(leads) > opts.Limit {
		leads = leads[:opts.Limit]
	}
	return leads, nil
}

func (m *Memory) UpdateLeads(_ context.Context, filter LeadFilter, patch LeadPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	now := m.now()
	for _, id := range m.order {
		lead := m.leads[id]
		if !matchLead(lead, filter) {
			continue
		}
		if patch.Status != nil {
			lead.Status = *patch.Status
		}
		if patch.LastHandlerReplyAt != nil {
			ts := *patch.LastHandlerReplyAt
			lead.LastHandlerReplyAt = &ts
		}
		lead.UpdatedAt = now
		m.leads[id] = lead
		affected++
	}
	return affected, nil
}

func (m *Memory) AppendLog(_ context.Context, params domain.NewLeadLog) (domain.LeadLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := domain.LeadLog{
		ID:         uuid.New(),
		LeadID:     params.LeadID,
		FromStatus: params.FromStatus,
		ToStatus:   params.ToStatus,
		Timestamp:  params.Timestamp,
		Note:       params.Note,
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

func (m *Memory) ListLogs(_ context.Context, filter LogFilter, limit int) ([]domain.LeadLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]domain.LeadLog, 0)
	for _, entry := range m.logs {
		if matchLog(entry, filter) {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) CountLogs(_ context.Context, filter LogFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, entry := range m.logs {
		if matchLog(entry, filter) {
			total++
		}
	}
	return total, nil
}

func matchLead(lead domain.Lead, filter LeadFilter) bool {
	if filter.ID != nil && lead.ID != *filter.ID {
		return false
	}
	if filter.Status != nil && lead.Status != *filter.Status {
		return false
	}
	if filter.AssignedHandlerContact != nil && lead.AssignedHandlerContact != *filter.AssignedHandlerContact {
		return false
	}
	if filter.Source != nil && lead.Source != *filter.Source {
		return false
	}
	if filter.CreatedBefore != nil && lead.CreatedAt.After(*filter.CreatedBefore) {
		return false
	}
	if filter.TimestampBefore != nil && lead.Timestamp.After(*filter.TimestampBefore) {
		return false
	}
	return true
}

func matchLog(entry domain.LeadLog, filter LogFilter) bool {
	if filter.LeadID != nil && entry.LeadID != *filter.LeadID {
		return false
	}
	if filter.FromStatus != nil && (entry.FromStatus == nil || *entry.FromStatus != *filter.FromStatus) {
		return false
	}
	if filter.ToStatus != nil && entry.ToStatus != *filter.ToStatus {
		return false
	}
	return true
}
