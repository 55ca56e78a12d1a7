package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/upload"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	uploader   upload.Uploader
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	Uploader    upload.Uploader
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// Now and NewID default to the wall clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Name        string
	Email       string
	Description string
	Attachment  *upload.Attachment
}

// RespondInput describes a reply. An empty Author falls back to "support".
type RespondInput struct {
	Author  string
	Message string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		uploader:   deps.Uploader,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if s.uploader == nil {
		s.uploader = upload.Disabled()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// CreateTicket validates the submission, uploads the attachment if one is
// present, then stores the ticket with its description as the first message.
// A failed upload aborts before anything is stored.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if missing := missingFields(input); len(missing) > 0 {
		return nil, apperrors.NewValidationError("name, email, description required", map[string]any{
			"missing": missing,
		})
	}

	var attachmentURL *string
	if input.Attachment != nil {
		url, err := s.uploader.Upload(ctx, *input.Attachment)
		if err != nil {
			return nil, apperrors.NewUploadError(err)
		}
		attachmentURL = &url
	}

	createdAt := s.timestamp()
	ticket := &domain.Ticket{
		ID:            s.newID(),
		Name:          input.Name,
		Email:         input.Email,
		Description:   input.Description,
		AttachmentURL: attachmentURL,
		Status:        domain.TicketStatusNew,
		CreatedAt:     createdAt,
	}
	first := &domain.Message{
		ID:        s.newID(),
		TicketID:  ticket.ID,
		Author:    input.Name,
		Body:      input.Description,
		CreatedAt: createdAt,
	}

	if err := s.tickets.CreateWithMessage(ctx, ticket, first); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Timestamp: ticket.CreatedAt,
		Payload: events.TicketCreatedPayload{
			Name:          ticket.Name,
			Email:         ticket.Email,
			HasAttachment: ticket.AttachmentURL != nil,
		},
	})
	return ticket, nil
}

// ListTickets returns every ticket, newest first.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketListOptions{Order: repository.SortDescending})
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return tickets, nil
}

// GetTicketDetail returns a ticket and its thread, oldest message first.
func (s *TicketService) GetTicketDetail(ctx context.Context, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID, repository.MessageListOptions{Order: repository.SortAscending})
	if err != nil {
		return nil, nil, apperrors.NewStoreError(err)
	}
	return ticket, msgs, nil
}

// Respond appends a reply to a ticket thread. The ticket status is untouched.
func (s *TicketService) Respond(ctx context.Context, ticketID string, input RespondInput) (*domain.Message, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	author := input.Author
	if author == "" {
		author = domain.DefaultReplyAuthor
	}
	msg := &domain.Message{
		ID:        s.newID(),
		TicketID:  ticket.ID,
		Author:    author,
		Body:      input.Message,
		CreatedAt: s.timestamp(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		Timestamp: msg.CreatedAt,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Author:      msg.Author,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// SetStatus moves a ticket to any valid status. Concurrent updates are last
// write wins.
func (s *TicketService) SetStatus(ctx context.Context, ticketID, rawStatus string) (*domain.Ticket, error) {
	status, err := domain.ParseTicketStatus(rawStatus)
	if err != nil {
		return nil, apperrors.NewInvalidStatus(rawStatus, domain.TicketStatusNames())
	}

	current, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	updated, err := s.tickets.UpdateStatus(ctx, current.ID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, apperrors.NewStoreError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, apperrors.NewStoreError(err)
	}
	return ticket, nil
}

// timestamp is truncated to microseconds to match what Postgres stores.
func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.timestamp()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

func missingFields(input CreateTicketInput) []string {
	var missing []string
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	return missing
}

func stringPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
