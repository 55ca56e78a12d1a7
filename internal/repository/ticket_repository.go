package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrNotFound is returned when a ticket id does not resolve.
var ErrNotFound = errors.New("not found")

// SortOrder controls createdAt ordering of list queries.
type SortOrder int

const (
	SortDefault SortOrder = iota
	SortAscending
	SortDescending
)

// TicketListOptions captures list parameters. The zero value lists newest first.
type TicketListOptions struct {
	Order SortOrder
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// CreateWithMessage stores a ticket together with its founding message.
	// Either both records persist or neither does.
	CreateWithMessage(ctx context.Context, ticket *domain.Ticket, first *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, opts TicketListOptions) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, name, email, description, attachment_url, status, created_at`

func (r *ticketRepository) CreateWithMessage(ctx context.Context, ticket *domain.Ticket, first *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const ticketQuery = `
        INSERT INTO tickets (id, name, email, description, attachment_url, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := tx.Exec(ctx, ticketQuery,
		ticket.ID,
		ticket.Name,
		ticket.Email,
		ticket.Description,
		ticket.AttachmentURL,
		ticket.Status,
		ticket.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	if err := insertMessage(ctx, tx, first); err != nil {
		return fmt.Errorf("insert first message: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, opts TicketListOptions) ([]domain.Ticket, error) {
	direction := "DESC"
	if opts.Order == SortAscending {
		direction = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY created_at %s, seq %s`, ticketColumns, direction, direction)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `UPDATE tickets SET status=$1 WHERE id=$2 RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, status, id))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Name,
		&ticket.Email,
		&ticket.Description,
		&ticket.AttachmentURL,
		&ticket.Status,
		&ticket.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}
