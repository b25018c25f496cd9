package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-support/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	// CreateWithActivity appends msg and touches the parent ticket in one transaction:
	// last_activity_at always, first_response_at only for the first admin message.
	CreateWithActivity(ctx context.Context, msg *domain.TicketMessage) (*domain.Ticket, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool PgxPool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool PgxPool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) CreateWithActivity(ctx context.Context, msg *domain.TicketMessage) (ticket *domain.Ticket, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer commitOrRollback(ctx, tx, &err)

	touch := `
        UPDATE tickets SET last_activity_at=$2, updated_at=$2,
            first_response_at = CASE WHEN $3 AND first_response_at IS NULL THEN $2 ELSE first_response_at END,
            version=version+1
        WHERE id=$1
        RETURNING ` + ticketColumns
	ticket, err = scanTicket(tx.QueryRow(ctx, touch, msg.TicketID, msg.CreatedAt, msg.SenderType == domain.SenderTypeAdmin))
	if err != nil {
		err = notFoundOr(err)
		return nil, err
	}

	const insert = `
        INSERT INTO ticket_messages (ticket_id, sender_type, sender_customer_id, sender_admin_id, message, attachment_urls, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	customerID, adminID := senderColumns(msg)
	if err = tx.QueryRow(ctx, insert,
		msg.TicketID,
		msg.SenderType,
		customerID,
		adminID,
		msg.Message,
		msg.AttachmentURLs,
		msg.CreatedAt,
	).Scan(&msg.ID); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_type, COALESCE(sender_customer_id, sender_admin_id), message, attachment_urls, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketMessage{}
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderType,
			&msg.SenderID,
			&msg.Message,
			&msg.AttachmentURLs,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

// senderColumns splits SenderID into the mutually exclusive customer/admin columns.
func senderColumns(msg *domain.TicketMessage) (customerID, adminID *string) {
	id := msg.SenderID
	if msg.SenderType == domain.SenderTypeAdmin {
		return nil, &id
	}
	return &id, nil
}
