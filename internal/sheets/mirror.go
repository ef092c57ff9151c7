// Package sheets mirrors leads and audit entries into append-only CSV
// sheets kept in object storage. Every row is its own immutable object under
// <sheet>/<yyyy-mm-dd>/, so writers in separate processes never overwrite
// each other. Mirroring is best-effort: failures are recorded in diagnostics
// and never reach the primary operation.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sync"
	"time"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	partitionLayout = "2006-01-02"
	objectLayout    = "20060102T150405.000000000"
)

var (
	leadHeader = []string{"Name", "Phone", "Area", "Job Category", "Description", "Source", "Timestamp", "Status", "Assigned Handler", "Lead ID"}
	logHeader  = []string{"Lead ID", "From", "To", "Timestamp", "Note"}
)

// Mirror appends rows to named sheets.
type Mirror struct {
	store     ObjectStore
	leadsName string
	logsName  string
	loc       *time.Location
	recorder  diagnostics.Recorder
	log       *logger.Logger
	now       func() time.Time

	// headers remembers sheets whose header object this process has written.
	headers sync.Map
}

// NewMirror builds a Mirror. A nil store makes every append a no-op.
func NewMirror(store ObjectStore, leadsName, logsName string, loc *time.Location, recorder diagnostics.Recorder, log *logger.Logger) *Mirror {
	if loc == nil {
		loc = time.UTC
	}
	return &Mirror{
		store:     store,
		leadsName: leadsName,
		logsName:  logsName,
		loc:       loc,
		recorder:  recorder,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for object keys.
func (m *Mirror) WithClock(now func() time.Time) *Mirror {
	m.now = now
	return m
}

// Enabled reports whether rows are written anywhere.
func (m *Mirror) Enabled() bool {
	return m.store != nil
}

// RegisterHandlers subscribes the mirror to lead events.
func (m *Mirror) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadLogged{}.EventName(), m)
}

// Handle implements events.Handler. It always returns nil.
func (m *Mirror) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		m.appendBestEffort(ctx, m.leadsName, leadHeader, m.LeadRow(e.Lead))
	case events.LeadLogged:
		m.appendBestEffort(ctx, m.logsName, logHeader, m.LogRow(e.Entry))
	}
	return nil
}

func (m *Mirror) appendBestEffort(ctx context.Context, sheet string, header, row []string) {
	if err := m.AppendRow(ctx, sheet, header, row); err != nil {
		if m.recorder != nil {
			m.recorder.Record(ctx, diagnostics.Failure("sheets", "append_row", err, map[string]string{"sheet": sheet}))
			return
		}
		m.log.IntegrationFailure("sheets", "append_row", err, "sheet", sheet)
	}
}

// AppendRow stores row as a new object under the sheet's daily partition.
// The header goes to <sheet>/header.csv; rewriting it is harmless because
// its content never changes.
func (m *Mirror) AppendRow(ctx context.Context, sheet string, header, row []string) error {
	if m.store == nil {
		return nil
	}

	if len(header) > 0 {
		if _, written := m.headers.Load(sheet); !written {
			data, err := encodeRow(header)
			if err != nil {
				return fmt.Errorf("encode header: %w", err)
			}
			if err := m.store.Write(ctx, HeaderKey(sheet), data); err != nil {
				return err
			}
			m.headers.Store(sheet, struct{}{})
		}
	}

	data, err := encodeRow(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return m.store.Write(ctx, m.rowKey(sheet), data)
}

// HeaderKey is the object holding the sheet's column names.
func HeaderKey(sheet string) string {
	return sheet + "/header.csv"
}

// PartitionPrefix is the key prefix of the rows written on day.
func PartitionPrefix(sheet string, day time.Time) string {
	return fmt.Sprintf("%s/%s/", sheet, day.Format(partitionLayout))
}

// rowKey sorts by write time within a partition; the uuid keeps keys unique
// across processes.
func (m *Mirror) rowKey(sheet string) string {
	now := m.now().In(m.loc)
	return fmt.Sprintf("%s%s-%s.csv", PartitionPrefix(sheet, now), now.Format(objectLayout), uuid.NewString())
}

func encodeRow(row []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LeadRow is the lead sheet layout.
func (m *Mirror) LeadRow(lead domain.Lead) []string {
	return []string{
		lead.Name,
		lead.Phone,
		deref(lead.Area),
		deref(lead.JobCategory),
		deref(lead.Description),
		string(lead.Source),
		lead.Timestamp.In(m.loc).Format(timestampLayout),
		string(lead.Status),
		lead.AssignedHandlerContact,
		lead.ID.String(),
	}
}

// LogRow is the log sheet layout.
func (m *Mirror) LogRow(entry domain.LeadLog) []string {
	from := ""
	if entry.FromStatus != nil {
		from = string(*entry.FromStatus)
	}
	return []string{
		entry.LeadID.String(),
		from,
		string(entry.ToStatus),
		entry.Timestamp.In(m.loc).Format(timestampLayout),
		deref(entry.Note),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
