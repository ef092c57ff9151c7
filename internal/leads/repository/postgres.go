package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead_engine_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, name, phone, area, job_category, description, source, inquiry_at,
	status, assigned_handler_contact, last_handler_reply_at, created_at, updated_at`

const logColumns = `id, lead_id, from_status, to_status, logged_at, note`

// DBTX is the subset of pgxpool.Pool used by Repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	db DBTX
}

func New(pool *pgxpool.Pool) *Repository {
	return NewWithDB(pool)
}

// NewWithDB builds a Repository over any DBTX, such as a transaction wrapper.
func NewWithDB(db DBTX) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) CreateLead(ctx context.Context, params domain.NewLead) (domain.Lead, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO leads (
			id, name, phone, area, job_category, description, source, inquiry_at,
			status, assigned_handler_contact, last_handler_reply_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		uuid.New(), params.Name, params.Phone, params.Area, params.JobCategory, params.Description,
		string(params.Source), params.Timestamp, string(params.Status),
		params.AssignedHandlerContact, params.LastHandlerReplyAt,
	)
	return scanLead(row)
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) ListLeads(ctx context.Context, filter LeadFilter, opts ListOptions) ([]domain.Lead, error) {
	whereClause, args, argIdx := buildLeadWhere(filter)

	order := "inquiry_at ASC, created_at ASC"
	if opts.NewestFirst {
		order = "created_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY %s`, leadColumns, whereClause, order)
	query, args = withLimit(query, args, argIdx, opts.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func (r *Repository) UpdateLeads(ctx context.Context, filter LeadFilter, patch LeadPatch) (int64, error) {
	whereClause, args, argIdx := buildLeadWhere(filter)

	sets := []string{"updated_at = now()"}
	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*patch.Status))
		argIdx++
	}
	if patch.LastHandlerReplyAt != nil {
		sets = append(sets, fmt.Sprintf("last_handler_reply_at = $%d", argIdx))
		args = append(args, *patch.LastHandlerReplyAt)
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE %s`, strings.Join(sets, ", "), whereClause)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) AppendLog(ctx context.Context, params domain.NewLeadLog) (domain.LeadLog, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO lead_logs (id, lead_id, from_status, to_status, logged_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+logColumns,
		uuid.New(), params.LeadID, statusPtr(params.FromStatus), string(params.ToStatus), params.Timestamp, params.Note,
	)
	return scanLog(row)
}

func (r *Repository) ListLogs(ctx context.Context, filter LogFilter, limit int) ([]domain.LeadLog, error) {
	whereClause, args, argIdx := buildLogWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM lead_logs WHERE %s ORDER BY logged_at ASC, created_at ASC`, logColumns, whereClause)
	query, args = withLimit(query, args, argIdx, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeadLog, 0)
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *Repository) CountLogs(ctx context.Context, filter LogFilter) (int, error) {
	whereClause, args, _ := buildLogWhere(filter)

	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM lead_logs WHERE %s`, whereClause)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func buildLeadWhere(filter LeadFilter) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	addClause := func(clause string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.ID != nil {
		addClause("id = $%d", *filter.ID)
	}
	if filter.Status != nil {
		addClause("status = $%d", string(*filter.Status))
	}
	if filter.AssignedHandlerContact != nil {
		addClause("assigned_handler_contact = $%d", *filter.AssignedHandlerContact)
	}
	if filter.Source != nil {
		addClause("source = $%d", string(*filter.Source))
	}
	if filter.CreatedBefore != nil {
		addClause("created_at <= $%d", *filter.CreatedBefore)
	}
	if filter.TimestampBefore != nil {
		addClause("inquiry_at <= $%d", *filter.TimestampBefore)
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func buildLogWhere(filter LogFilter) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	addClause := func(clause string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.LeadID != nil {
		addClause("lead_id = $%d", *filter.LeadID)
	}
	if filter.FromStatus != nil {
		addClause("from_status = $%d", string(*filter.FromStatus))
	}
	if filter.ToStatus != nil {
		addClause("to_status = $%d", string(*filter.ToStatus))
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// withLimit appends a LIMIT clause when limit is positive.
func withLimit(query string, args []interface{}, argIdx, limit int) (string, []interface{}) {
	if limit <= 0 {
		return query, args
	}
	return fmt.Sprintf("%s LIMIT $%d", query, argIdx), append(args, limit)
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead   domain.Lead
		source string
		status string
	)
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Area, &lead.JobCategory, &lead.Description,
		&source, &lead.Timestamp, &status, &lead.AssignedHandlerContact, &lead.LastHandlerReplyAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Source = domain.Source(source)
	lead.Status = domain.Status(status)
	return lead, nil
}

func scanLog(row pgx.Row) (domain.LeadLog, error) {
	var (
		entry domain.LeadLog
		from  *string
		to    string
	)
	if err := row.Scan(&entry.ID, &entry.LeadID, &from, &to, &entry.Timestamp, &entry.Note); err != nil {
		return domain.LeadLog{}, err
	}
	if from != nil {
		s := domain.Status(*from)
		entry.FromStatus = &s
	}
	entry.ToStatus = domain.Status(to)
	return entry, nil
}

func statusPtr(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
