package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/intake"
	"lead_engine_backend/internal/leads/lifecycle"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/internal/leads/summary"
	"lead_engine_backend/internal/leads/transport"
	"lead_engine_backend/platform/logger"
	"lead_engine_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testAdmin = "admin-line"

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, string) {}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testServer struct {
	engine   *gin.Engine
	handler  *Handler
	store    *repository.Memory
	recorder *diagnostics.MemoryRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("test")
	clock := &steppingClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryWithClock(clock.Now)
	bus := events.NewInMemoryBus(log)
	machine := lifecycle.New(store, bus, log)
	defaults := domain.Defaults{AdminContact: testAdmin}
	intakeSvc := intake.New(store, machine, domain.NewClassifier([]string{"plumber"}), defaults, bus, log)
	summarySvc := summary.New(store, noopNotifier{}, nil, summary.Config{
		BrandName:    "PK",
		AdminContact: testAdmin,
		StaleAfter:   24 * time.Hour,
	}, log)
	recorder := diagnostics.NewMemoryRecorder(10, log, nil)

	val := validator.New()
	if err := RegisterValidations(val); err != nil {
		t.Fatalf("RegisterValidations returned error: %v", err)
	}

	h := New(Deps{
		Intake:      intakeSvc,
		Machine:     machine,
		Leads:       store,
		Summary:     summarySvc,
		Diagnostics: recorder,
		Validator:   val,
	})

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	h.RegisterIngestRoutes(v1.Group("/ingest"))
	h.RegisterRoutes(v1)

	t.Cleanup(bus.Wait)
	return &testServer{engine: engine, handler: h, store: store, recorder: recorder}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestWebhookIngestAppliesDefaults(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/ingest/webhook", map[string]string{"name": "Ali", "phone": "+60111"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[transport.LeadResponse](t, rec)
	if !resp.OK {
		t.Fatal("expected ok=true")
	}
	if resp.Lead.Source != domain.SourceWebsite || resp.Lead.Status != domain.StatusNew {
		t.Fatalf("unexpected lead %+v", resp.Lead)
	}
	if resp.Lead.AssignedHandlerContact != testAdmin {
		t.Fatalf("expected admin contact, got %q", resp.Lead.AssignedHandlerContact)
	}
}

func TestFacebookIngestAcceptsEmptyPayload(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/ingest/facebook", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	resp := decode[transport.LeadResponse](t, rec)
	if resp.Lead.Name != domain.UnknownName || resp.Lead.Source != domain.SourceFacebook {
		t.Fatalf("unexpected lead %+v", resp.Lead)
	}
}

func TestManualLeadRequiresNameAndPhone(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body map[string]string
		want string
	}{
		{name: "ingest missing phone", path: "/api/v1/ingest/manual", body: map[string]string{"name": "Ali"}, want: "phone"},
		{name: "form missing name", path: "/api/v1/leads", body: map[string]string{"phone": "+60111"}, want: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("expected %q in details, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestStatusUpdateUnknownLeadReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/leads/status", map[string]string{
		"lead_id": uuid.NewString(),
		"status":  "Won",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	count, err := srv.store.CountLogs(context.Background(), repository.LogFilter{})
	if err != nil {
		t.Fatalf("CountLogs returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no log entries, got %d", count)
	}
}

func TestStatusUpdateWritesLog(t *testing.T) {
	srv := newTestServer(t)
	created := decode[transport.LeadResponse](t, srv.do(t, http.MethodPost, "/api/v1/leads", map[string]string{"name": "Siti", "phone": "+60122"}))

	rec := srv.do(t, http.MethodPost, "/api/v1/leads/status", map[string]string{
		"lead_id": created.Lead.ID.String(),
		"status":  "Won",
		"note":    "signed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	logs := decode[transport.LeadLogListResponse](t, srv.do(t, http.MethodGet, "/api/v1/leads/"+created.Lead.ID.String()+"/logs", nil))
	if len(logs.Logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs.Logs))
	}
	entry := logs.Logs[0]
	if entry.FromStatus == nil || *entry.FromStatus != domain.StatusNew || entry.ToStatus != domain.StatusWon {
		t.Fatalf("unexpected log entry %+v", entry)
	}

	lead := decode[transport.LeadResponse](t, srv.do(t, http.MethodGet, "/api/v1/leads/"+created.Lead.ID.String(), nil))
	if lead.Lead.Status != domain.StatusWon {
		t.Fatalf("expected Won, got %s", lead.Lead.Status)
	}
}

func TestPatchStatusValidation(t *testing.T) {
	srv := newTestServer(t)
	created := decode[transport.LeadResponse](t, srv.do(t, http.MethodPost, "/api/v1/leads", map[string]string{"name": "Siti", "phone": "+60122"}))

	tests := []struct {
		name string
		path string
		body map[string]string
		want int
	}{
		{name: "unknown status", path: "/api/v1/leads/" + created.Lead.ID.String() + "/status", body: map[string]string{"status": "Done"}, want: http.StatusBadRequest},
		{name: "bad id", path: "/api/v1/leads/not-a-uuid/status", body: map[string]string{"status": "Won"}, want: http.StatusBadRequest},
		{name: "in progress", path: "/api/v1/leads/" + created.Lead.ID.String() + "/status", body: map[string]string{"status": "In progress"}, want: http.StatusOK},
		{name: "self transition", path: "/api/v1/leads/" + created.Lead.ID.String() + "/status", body: map[string]string{"status": "In progress"}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPatch, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	count, err := srv.store.CountLogs(context.Background(), repository.LogFilter{LeadID: &created.Lead.ID})
	if err != nil {
		t.Fatalf("CountLogs returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 log entries, got %d", count)
	}
}

func TestMessagingCreatesLeadThenHandlerReply(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/ingest/messaging", map[string]string{
		"from_number": "+60133",
		"to_number":   "handler-line",
		"message":     "need plumber urgent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[transport.MessageResponse](t, rec)
	if created.Outcome != "new_lead" || created.Lead == nil {
		t.Fatalf("unexpected response %+v", created)
	}
	if created.Lead.Source != domain.SourceMessaging || created.Lead.AssignedHandlerContact != "handler-line" {
		t.Fatalf("unexpected lead %+v", created.Lead)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/ingest/messaging", map[string]string{
		"from_number": "handler-line",
		"to_number":   "+60133",
		"message":     "ok on my way",
		"timestamp":   "2024-05-01T10:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	reply := decode[transport.MessageResponse](t, rec)
	if !reply.Ignored || reply.Outcome != "handler_reply" || len(reply.Updated) != 1 {
		t.Fatalf("unexpected reply response %+v", reply)
	}

	lead, err := srv.store.GetLead(context.Background(), created.Lead.ID)
	if err != nil {
		t.Fatalf("GetLead returned error: %v", err)
	}
	if lead.Status != domain.StatusInProgress || lead.LastHandlerReplyAt == nil {
		t.Fatalf("expected reply applied, got %+v", lead)
	}
}

func TestListLeadsNewestFirstWithStatusFilter(t *testing.T) {
	srv := newTestServer(t)
	first := decode[transport.LeadResponse](t, srv.do(t, http.MethodPost, "/api/v1/leads", map[string]string{"name": "First", "phone": "1"}))
	second := decode[transport.LeadResponse](t, srv.do(t, http.MethodPost, "/api/v1/leads", map[string]string{"name": "Second", "phone": "2"}))
	srv.do(t, http.MethodPatch, "/api/v1/leads/"+first.Lead.ID.String()+"/status", map[string]string{"status": "Lost"})

	all := decode[transport.LeadListResponse](t, srv.do(t, http.MethodGet, "/api/v1/leads", nil))
	if len(all.Leads) != 2 || all.Leads[0].ID != second.Lead.ID {
		t.Fatalf("expected newest first, got %+v", all.Leads)
	}

	filtered := decode[transport.LeadListResponse](t, srv.do(t, http.MethodGet, "/api/v1/leads?status=Lost", nil))
	if len(filtered.Leads) != 1 || filtered.Leads[0].ID != first.Lead.ID {
		t.Fatalf("expected only the lost lead, got %+v", filtered.Leads)
	}

	if rec := srv.do(t, http.MethodGet, "/api/v1/leads?status=Archived", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status filter, got %d", rec.Code)
	}
}

func TestGetLeadNotFound(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.do(t, http.MethodGet, "/api/v1/leads/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/api/v1/leads/"+uuid.NewString()+"/logs", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for logs, got %d", rec.Code)
	}
}

func TestDailySummaryPreview(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/ingest/webhook", map[string]string{"name": "Ali", "area": "shah alam"})

	rec := srv.do(t, http.MethodGet, "/api/v1/reports/daily-summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[transport.DailySummaryResponse](t, rec)
	if resp.Total != 1 || resp.ByStatus["New"] != 1 || resp.ByArea["Shah Alam"] != 1 {
		t.Fatalf("unexpected report %+v", resp)
	}
	if !strings.Contains(resp.Text, "Total leads: 1") {
		t.Fatalf("unexpected text %q", resp.Text)
	}
}

func TestDiagnosticsListsRecentFailures(t *testing.T) {
	srv := newTestServer(t)
	srv.recorder.Record(context.Background(), diagnostics.Failure("whatsapp", "send", errors.New("timeout"), nil))

	rec := srv.do(t, http.MethodGet, "/api/v1/diagnostics?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[transport.DiagnosticsResponse](t, rec)
	if len(resp.Entries) != 1 || resp.Entries[0].Component != "whatsapp" {
		t.Fatalf("unexpected entries %+v", resp.Entries)
	}

	if rec := srv.do(t, http.MethodGet, "/api/v1/diagnostics?limit=zero", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestRunJob(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.do(t, http.MethodPost, "/api/v1/jobs/followup_scan/run", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without trigger, got %d", rec.Code)
	}

	var ran []string
	srv.handler.SetJobTrigger(JobTriggerFunc(func(_ context.Context, job string) (bool, error) {
		if job != "followup_scan" {
			return false, nil
		}
		ran = append(ran, job)
		return true, nil
	}))

	if rec := srv.do(t, http.MethodPost, "/api/v1/jobs/followup_scan/run", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/api/v1/jobs/reindex/run", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
	if len(ran) != 1 {
		t.Fatalf("expected one run, got %v", ran)
	}
}
