package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MessageListOptions captures thread parameters. The zero value lists oldest
// first; equal timestamps keep insertion order.
type MessageListOptions struct {
	Order SortOrder
}

// MessageRepository manages ticket thread messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string, opts MessageListOptions) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMessage(ctx context.Context, db execer, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (id, ticket_id, author, body, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := db.Exec(ctx, query,
		msg.ID,
		msg.TicketID,
		msg.Author,
		msg.Body,
		msg.CreatedAt,
	)
	return err
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return insertMessage(ctx, r.pool, msg)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string, opts MessageListOptions) ([]domain.Message, error) {
	query := `
        SELECT id, ticket_id, author, body, created_at
        FROM messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	if opts.Order == SortDescending {
		query = `
        SELECT id, ticket_id, author, body, created_at
        FROM messages WHERE ticket_id=$1 ORDER BY created_at DESC, seq DESC`
	}
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	result := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.Author,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
