package repository

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"lead_engine_backend/internal/leads/domain"
	"lead_engine_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errScanStub = errors.New("scan not supported")

type capturedQuery struct {
	sql  string
	args []interface{}
}

type capturingDB struct {
	queries []capturedQuery
}

func (d *capturingDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	d.queries = append(d.queries, capturedQuery{sql: sql, args: args})
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (d *capturingDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	d.queries = append(d.queries, capturedQuery{sql: sql, args: args})
	return nil, errScanStub
}

func (d *capturingDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	d.queries = append(d.queries, capturedQuery{sql: sql, args: args})
	return stubRow{}
}

func (d *capturingDB) Ping(context.Context) error { return nil }

func (d *capturingDB) last(t *testing.T) capturedQuery {
	t.Helper()
	if len(d.queries) == 0 {
		t.Fatal("expected a query")
	}
	return d.queries[len(d.queries)-1]
}

type stubRow struct{}

func (stubRow) Scan(...interface{}) error { return errScanStub }

var insertPattern = regexp.MustCompile(`(?s)INSERT INTO \w+ \((.*?)\)\s*VALUES \((.*?)\)`)

// insertColumns splits an INSERT statement into its column and placeholder lists.
func insertColumns(t *testing.T, sql string) ([]string, []string) {
	t.Helper()
	m := insertPattern.FindStringSubmatch(sql)
	if m == nil {
		t.Fatalf("not an INSERT statement: %s", sql)
	}
	split := func(s string) []string {
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return split(m[1]), split(m[2])
}

func TestInsertsSupplyPrimaryKey(t *testing.T) {
	ctx := context.Background()
	from := domain.StatusNew

	tests := []struct {
		name string
		run  func(r *Repository) error
	}{
		{
			name: "lead",
			run: func(r *Repository) error {
				_, err := r.CreateLead(ctx, domain.NewLead{
					Name:                   "Ali",
					Source:                 domain.SourceWebsite,
					Timestamp:              time.Now(),
					Status:                 domain.StatusNew,
					AssignedHandlerContact: "+60123456789",
				})
				return err
			},
		},
		{
			name: "log",
			run: func(r *Repository) error {
				_, err := r.AppendLog(ctx, domain.NewLeadLog{
					LeadID:     uuid.New(),
					FromStatus: &from,
					ToStatus:   domain.StatusInProgress,
					Timestamp:  time.Now(),
				})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &capturingDB{}
			repo := NewWithDB(fake)

			ids := make(map[uuid.UUID]bool)
			for i := 0; i < 2; i++ {
				if err := tt.run(repo); !errors.Is(err, errScanStub) {
					t.Fatalf("expected the stub scan error, got %v", err)
				}

				q := fake.last(t)
				columns, placeholders := insertColumns(t, q.sql)
				if len(columns) != len(placeholders) || len(placeholders) != len(q.args) {
					t.Fatalf("columns %d, placeholders %d, args %d must match", len(columns), len(placeholders), len(q.args))
				}
				if columns[0] != "id" {
					t.Fatalf("expected id as first column, got %v", columns)
				}
				id, ok := q.args[0].(uuid.UUID)
				if !ok || id == uuid.Nil {
					t.Fatalf("expected a generated uuid for id, got %#v", q.args[0])
				}
				ids[id] = true
			}
			if len(ids) != 2 {
				t.Fatal("expected a fresh id per insert")
			}
		})
	}
}

func TestListQueriesHonourCallerLimit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		run       func(r *Repository) error
		wantLimit interface{}
	}{
		{
			name: "leads with batch limit",
			run: func(r *Repository) error {
				_, err := r.ListLeads(ctx, LeadFilter{}, ListOptions{Limit: 5000})
				return err
			},
			wantLimit: 5000,
		},
		{
			name: "leads without limit",
			run: func(r *Repository) error {
				_, err := r.ListLeads(ctx, LeadFilter{}, ListOptions{})
				return err
			},
		},
		{
			name: "logs without limit",
			run: func(r *Repository) error {
				_, err := r.ListLogs(ctx, LogFilter{}, 0)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &capturingDB{}
			_ = tt.run(NewWithDB(fake))

			q := fake.last(t)
			hasLimit := strings.Contains(q.sql, "LIMIT")
			if tt.wantLimit == nil {
				if hasLimit || len(q.args) != 0 {
					t.Fatalf("expected no LIMIT, got %q with %v", q.sql, q.args)
				}
				return
			}
			if !hasLimit || len(q.args) != 1 || q.args[0] != tt.wantLimit {
				t.Fatalf("expected LIMIT %v, got %q with %v", tt.wantLimit, q.sql, q.args)
			}
		})
	}
}

func TestBuildLeadWhere(t *testing.T) {
	id := uuid.New()
	status := domain.StatusNew
	handler := "+60123456789"

	where, args, next := buildLeadWhere(LeadFilter{ID: &id, Status: &status, AssignedHandlerContact: &handler})

	want := "TRUE AND id = $1 AND status = $2 AND assigned_handler_contact = $3"
	if where != want {
		t.Fatalf("expected %q, got %q", want, where)
	}
	if len(args) != 3 || next != 4 {
		t.Fatalf("expected 3 args and next index 4, got %d / %d", len(args), next)
	}
	if args[1] != "New" {
		t.Fatalf("expected status bound as string, got %#v", args[1])
	}
}

func TestBuildLogWhereEmpty(t *testing.T) {
	where, args, next := buildLogWhere(LogFilter{})
	if where != "TRUE" || len(args) != 0 || next != 1 {
		t.Fatalf("unexpected empty filter result %q %v %d", where, args, next)
	}
}

type testDatabaseConfig string

func (c testDatabaseConfig) GetDatabaseURL() string { return string(c) }
func (c testDatabaseConfig) GetStoreDriver() string { return "postgres" }

// TestPostgresRoundTrip runs against a real database when
// LEAD_ENGINE_TEST_DATABASE_URL is set.
func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("LEAD_ENGINE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEAD_ENGINE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	cfg := testDatabaseConfig(url)

	if err := db.RunMigrations(ctx, cfg); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPool returned error: %v", err)
	}
	defer pool.Close()
	repo := New(pool)

	lead, err := repo.CreateLead(ctx, domain.NewLead{
		Name:                   "Ali",
		Phone:                  "+60111111111",
		Source:                 domain.SourceWebsite,
		Timestamp:              time.Now(),
		Status:                 domain.StatusNew,
		AssignedHandlerContact: "+60123456789",
	})
	if err != nil {
		t.Fatalf("CreateLead returned error: %v", err)
	}
	if lead.ID == uuid.Nil || lead.CreatedAt.IsZero() {
		t.Fatalf("expected stored lead with id and created_at, got %+v", lead)
	}

	from := domain.StatusNew
	entry, err := repo.AppendLog(ctx, domain.NewLeadLog{
		LeadID:     lead.ID,
		FromStatus: &from,
		ToStatus:   domain.StatusInProgress,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendLog returned error: %v", err)
	}
	if entry.ID == uuid.Nil || entry.LeadID != lead.ID {
		t.Fatalf("unexpected log entry %+v", entry)
	}

	entries, err := repo.ListLogs(ctx, LogFilter{LeadID: &lead.ID}, 0)
	if err != nil {
		t.Fatalf("ListLogs returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}
