package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-support/internal/domain"
)

// TicketFilter captures list parameters shared by the admin and customer surfaces.
// AssignedTo and Unassigned are mutually exclusive; leaving both unset matches every ticket.
type TicketFilter struct {
	CustomerID *string
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	Category   *domain.TicketCategory
	AssignedTo *string
	Unassigned bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	// CompareAndSetAssignee writes next only while assigned_to still equals expected.
	CompareAndSetAssignee(ctx context.Context, id string, expected, next *string, at time.Time) (*domain.Ticket, error)
	// UpdateIfVersion persists mutable fields only while the stored version equals expectedVersion.
	UpdateIfVersion(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) (*domain.Ticket, error)
	// MarkEscalated sets escalated_at once on an open or in-progress ticket;
	// ErrStaleWrite means it was already set or the ticket was resolved meanwhile.
	MarkEscalated(ctx context.Context, id string, at time.Time) (*domain.Ticket, error)
	ListUnresolved(ctx context.Context) ([]domain.Ticket, error)
	Stats(ctx context.Context, recentSince time.Time) (*domain.TicketStats, error)
}

const ticketColumns = `id, customer_id, purchase_id, subject, message, resolution, attachment_urls,
               status, priority, category, assigned_to, created_at, updated_at, first_response_at,
               last_activity_at, escalated_at, resolved_at, version`

type ticketRepository struct {
	pool PgxPool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool PgxPool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, purchase_id, subject, message, attachment_urls, status, priority, category,
            created_at, updated_at, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9,$9)
        RETURNING id, version`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.PurchaseID,
		ticket.Subject,
		ticket.Message,
		ticket.AttachmentURLs,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.Version)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ticket, nil
}

func (r *ticketRepository) CompareAndSetAssignee(ctx context.Context, id string, expected, next *string, at time.Time) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrStaleWrite
	}
	query := `
        UPDATE tickets SET assigned_to=$3, last_activity_at=$4, updated_at=$4, version=version+1
        WHERE id=$1 AND assigned_to IS NOT DISTINCT FROM $2
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id, expected, next, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleWrite
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateIfVersion(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$3, priority=$4, assigned_to=$5, resolution=$6, resolved_at=$7,
            last_activity_at=$8, updated_at=$9, version=version+1
        WHERE id=$1 AND version=$2
        RETURNING ` + ticketColumns
	updated, err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.ID,
		expectedVersion,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.Resolution,
		ticket.ResolvedAt,
		ticket.LastActivityAt,
		ticket.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleWrite
		}
		return nil, err
	}
	return updated, nil
}

func (r *ticketRepository) MarkEscalated(ctx context.Context, id string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET escalated_at=$2, updated_at=$2, version=version+1
        WHERE id=$1 AND escalated_at IS NULL AND status IN ('open','in_progress')
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleWrite
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListUnresolved(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
             WHERE status IN ('open','in_progress')
             ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	if (filter.CustomerID != nil && !validID(*filter.CustomerID)) || (filter.AssignedTo != nil && !validID(*filter.AssignedTo)) {
		return []domain.Ticket{}, 0, nil
	}
	where, args := buildTicketWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM tickets WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// id breaks created_at ties so pages stay disjoint.
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// likeEscaper makes search input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	switch {
	case filter.Unassigned:
		clauses = append(clauses, "assigned_to IS NULL")
	case filter.AssignedTo != nil:
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(*filter.SearchTerm))) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(subject) LIKE %[1]s ESCAPE '\' OR LOWER(message) LIKE %[1]s ESCAPE '\')`, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *ticketRepository) Stats(ctx context.Context, recentSince time.Time) (*domain.TicketStats, error) {
	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE status='closed'),
               COUNT(*) FILTER (WHERE priority='urgent'),
               COUNT(*) FILTER (WHERE priority='high'),
               COUNT(*) FILTER (WHERE created_at >= $1),
               COUNT(*) FILTER (WHERE assigned_to IS NULL AND status IN ('open','in_progress'))
        FROM tickets`
	stats := &domain.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	var open, inProgress, resolved, closed int
	if err := r.pool.QueryRow(ctx, totals, recentSince).Scan(
		&stats.Total,
		&open,
		&inProgress,
		&resolved,
		&closed,
		&stats.Urgent,
		&stats.High,
		&stats.Recent,
		&stats.Unassigned,
	); err != nil {
		return nil, err
	}
	stats.ByStatus[domain.TicketStatusOpen] = open
	stats.ByStatus[domain.TicketStatusInProgress] = inProgress
	stats.ByStatus[domain.TicketStatusResolved] = resolved
	stats.ByStatus[domain.TicketStatusClosed] = closed

	const byCategory = `SELECT category, COUNT(*) FROM tickets GROUP BY category`
	rows, err := r.pool.Query(ctx, byCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var category domain.TicketCategory
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.PurchaseID,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Resolution,
		&ticket.AttachmentURLs,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.LastActivityAt,
		&ticket.EscalatedAt,
		&ticket.ResolvedAt,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
