package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/internal/leads/lifecycle"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/platform/logger"
)

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) created() []events.LeadCreated {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.LeadCreated
	for _, e := range b.published {
		if c, ok := e.(events.LeadCreated); ok {
			out = append(out, c)
		}
	}
	return out
}

const adminContact = "+60123456789"

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *repository.Memory, *recordingBus) {
	t.Helper()
	store := repository.NewMemory()
	bus := &recordingBus{}
	log := logger.New("development")
	machine := lifecycle.New(store, bus, log, lifecycle.WithClock(func() time.Time { return now }))
	defaults := domain.Defaults{AdminContact: adminContact, PhoneRegion: "MY"}
	classifier := domain.NewClassifier([]string{"paip", "plumber", "wiring"})

	svc := New(store, machine, classifier, defaults, bus, log).WithClock(func() time.Time { return now })
	return svc, store, bus
}

func TestIngestWebhookScenario(t *testing.T) {
	svc, _, bus := newService(t)
	name, phone := "Ali", "+60111"

	lead, err := svc.Ingest(context.Background(), domain.SourceWebsite, domain.Inbound{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	if lead.Source != domain.SourceWebsite {
		t.Fatalf("expected website source, got %q", lead.Source)
	}
	if lead.Status != domain.StatusNew {
		t.Fatalf("expected New status, got %q", lead.Status)
	}
	if lead.AssignedHandlerContact != adminContact {
		t.Fatalf("expected default handler %q, got %q", adminContact, lead.AssignedHandlerContact)
	}
	if lead.Phone != "+60111" {
		t.Fatalf("expected unparseable phone kept as-is, got %q", lead.Phone)
	}
	if created := bus.created(); len(created) != 1 || created[0].Lead.ID != lead.ID {
		t.Fatalf("expected one LeadCreated event, got %+v", created)
	}
}

func TestHandleMessageCreatesLeadOnKeyword(t *testing.T) {
	svc, store, bus := newService(t)
	ts := now.Add(-time.Minute)

	res, err := svc.HandleMessage(context.Background(), Message{
		From:      "+60111111111",
		To:        "+60198765432",
		Body:      "need plumber urgent",
		Timestamp: &ts,
	})
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	if res.Outcome != domain.NewInquiry || res.Lead == nil {
		t.Fatalf("expected a new lead, got %+v", res)
	}
	lead := res.Lead
	if lead.Source != domain.SourceMessaging || lead.Status != domain.StatusNew {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.Phone != "+60111111111" {
		t.Fatalf("expected sender phone, got %q", lead.Phone)
	}
	if lead.Description == nil || *lead.Description != "need plumber urgent" {
		t.Fatalf("expected message body as description, got %v", lead.Description)
	}
	if lead.AssignedHandlerContact != "+60198765432" {
		t.Fatalf("expected recipient as handler, got %q", lead.AssignedHandlerContact)
	}
	if !lead.Timestamp.Equal(ts) {
		t.Fatalf("expected message timestamp, got %s", lead.Timestamp)
	}

	created := bus.created()
	if len(created) != 1 || created[0].MessageBody != "need plumber urgent" {
		t.Fatalf("expected LeadCreated with message body, got %+v", created)
	}

	all, _ := store.ListLeads(context.Background(), repository.LeadFilter{}, repository.ListOptions{})
	if len(all) != 1 {
		t.Fatalf("expected 1 stored lead, got %d", len(all))
	}
}

func TestHandleMessageReplyUpdatesAllMatchingLeads(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	handler := "+60198765432"

	for _, name := range []string{"a", "b"} {
		n := name
		if _, err := svc.Ingest(ctx, domain.SourceManual, domain.Inbound{Name: &n, AssignedHandlerContact: &handler}); err != nil {
			t.Fatalf("Ingest returned error: %v", err)
		}
	}
	other := "+60177777777"
	untouched, _ := svc.Ingest(ctx, domain.SourceManual, domain.Inbound{AssignedHandlerContact: &other})

	replyAt := now.Add(5 * time.Minute)
	res, err := svc.HandleMessage(ctx, Message{From: handler, Body: "ok on my way", Timestamp: &replyAt})
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if res.Outcome != domain.HandlerReply || len(res.Updated) != 2 {
		t.Fatalf("expected 2 updated leads, got %+v", res)
	}

	for _, id := range res.Updated {
		lead, _ := store.GetLead(ctx, id)
		if lead.Status != domain.StatusInProgress {
			t.Fatalf("expected In progress, got %q", lead.Status)
		}
		if lead.LastHandlerReplyAt == nil || !lead.LastHandlerReplyAt.Equal(replyAt) {
			t.Fatalf("expected reply timestamp, got %v", lead.LastHandlerReplyAt)
		}
		count, _ := store.CountLogs(ctx, repository.LogFilter{LeadID: &lead.ID})
		if count != 1 {
			t.Fatalf("expected one audit entry per reply, got %d", count)
		}
	}

	got, _ := store.GetLead(ctx, untouched.ID)
	if got.Status != domain.StatusNew {
		t.Fatalf("lead of another handler must stay New, got %q", got.Status)
	}
}

func TestHandleMessageReplyWithoutMatchesIsNoop(t *testing.T) {
	svc, _, bus := newService(t)

	res, err := svc.HandleMessage(context.Background(), Message{From: "+60100000000", Body: "hello"})
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if res.Outcome != domain.HandlerReply || len(res.Updated) != 0 || res.Lead != nil {
		t.Fatalf("expected no-op reply, got %+v", res)
	}
	if len(bus.created()) != 0 {
		t.Fatal("expected no lead created")
	}
}

func TestHandleMessageReplyCorrelatesGatewayContacts(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "same gateway format", reply: "60123456789"},
		{name: "international format", reply: "+60123456789"},
		{name: "national format", reply: "012-345 6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, _ := newService(t)

			res, err := svc.HandleMessage(ctx, Message{From: "60111111111", To: "60123456789", Body: "paip bocor"})
			if err != nil || res.Lead == nil {
				t.Fatalf("expected a new lead, got %+v (%v)", res, err)
			}
			if res.Lead.AssignedHandlerContact != "+60123456789" {
				t.Fatalf("expected handler stored in E.164, got %q", res.Lead.AssignedHandlerContact)
			}

			reply, err := svc.HandleMessage(ctx, Message{From: tt.reply, Body: "ok noted"})
			if err != nil {
				t.Fatalf("HandleMessage returned error: %v", err)
			}
			if len(reply.Updated) != 1 || reply.Updated[0] != res.Lead.ID {
				t.Fatalf("expected reply to reach the lead, got %+v", reply)
			}
			lead, _ := store.GetLead(ctx, res.Lead.ID)
			if lead.Status != domain.StatusInProgress {
				t.Fatalf("expected In progress, got %q", lead.Status)
			}
		})
	}
}

func TestHandleMessageReplyReachesEveryMatchingLead(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	handler := "+60198765432"

	const total = 1200
	for i := 0; i < total; i++ {
		if _, err := store.CreateLead(ctx, domain.NewLead{
			Name:                   "x",
			Source:                 domain.SourceManual,
			Timestamp:              now,
			Status:                 domain.StatusNew,
			AssignedHandlerContact: handler,
		}); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
	}

	res, err := svc.HandleMessage(ctx, Message{From: handler, Body: "ok"})
	if err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(res.Updated) != total {
		t.Fatalf("expected %d leads updated, got %d", total, len(res.Updated))
	}
}
