package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemoryStore keeps tickets and messages in process memory. It satisfies both
// TicketRepository and MessageRepository and is used when no database is
// configured.
type MemoryStore struct {
	mu       sync.RWMutex
	tickets  []*domain.Ticket
	byID     map[string]*domain.Ticket
	messages map[string][]domain.Message
}

var (
	_ TicketRepository  = (*MemoryStore)(nil)
	_ MessageRepository = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*domain.Ticket),
		messages: make(map[string][]domain.Message),
	}
}

func (s *MemoryStore) CreateWithMessage(ctx context.Context, ticket *domain.Ticket, first *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTicket(ticket)
	s.tickets = append(s.tickets, stored)
	s.byID[stored.ID] = stored
	s.messages[first.TicketID] = append(s.messages[first.TicketID], *first)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTicket(ticket), nil
}

func (s *MemoryStore) List(ctx context.Context, opts TicketListOptions) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	result := make([]domain.Ticket, 0, len(s.tickets))
	if opts.Order == SortAscending {
		for _, t := range s.tickets {
			result = append(result, *copyTicket(t))
		}
	} else {
		// newest insertion first so equal timestamps keep a stable order
		for i := len(s.tickets) - 1; i >= 0; i-- {
			result = append(result, *copyTicket(s.tickets[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if opts.Order == SortAscending {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket.Status = status
	return copyTicket(ticket), nil
}

func (s *MemoryStore) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.TicketID] = append(s.messages[msg.TicketID], *msg)
	return nil
}

func (s *MemoryStore) ListByTicket(ctx context.Context, ticketID string, opts MessageListOptions) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	thread := s.messages[ticketID]
	result := make([]domain.Message, 0, len(thread))
	if opts.Order == SortDescending {
		for i := len(thread) - 1; i >= 0; i-- {
			result = append(result, thread[i])
		}
	} else {
		result = append(result, thread...)
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if opts.Order == SortDescending {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	if t.AttachmentURL != nil {
		url := *t.AttachmentURL
		c.AttachmentURL = &url
	}
	return &c
}
