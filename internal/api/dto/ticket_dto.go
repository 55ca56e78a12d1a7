package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketResponse is the public ticket shape.
type TicketResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Description   string              `json:"description"`
	AttachmentURL *string             `json:"attachmentUrl"`
	Status        domain.TicketStatus `json:"status"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// MessageResponse represents one entry of a ticket thread.
type MessageResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// TicketDetailResponse provides a ticket and its thread.
type TicketDetailResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Messages []MessageResponse `json:"messages"`
}

// RespondRequest payload. Author is optional.
type RespondRequest struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// SetStatusRequest payload.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		Name:          ticket.Name,
		Email:         ticket.Email,
		Description:   ticket.Description,
		AttachmentURL: ticket.AttachmentURL,
		Status:        ticket.Status,
		CreatedAt:     ticket.CreatedAt,
	}
}

// NewTicketList maps a slice of tickets, preserving order.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		Author:    msg.Author,
		Message:   msg.Body,
		CreatedAt: msg.CreatedAt,
	}
}

// NewTicketDetailResponse maps a ticket with its thread.
func NewTicketDetailResponse(ticket *domain.Ticket, messages []domain.Message) TicketDetailResponse {
	msgs := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, NewMessageResponse(&messages[i]))
	}
	return TicketDetailResponse{Ticket: NewTicketResponse(ticket), Messages: msgs}
}
