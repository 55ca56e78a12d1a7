package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/upload"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const attachmentField = "attachment"

// TicketsHandler serves the ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets (multipart form).
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	attachment, err := readAttachment(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
		Name:        c.FormValue("name"),
		Email:       c.FormValue("email"),
		Description: c.FormValue("description"),
		Attachment:  attachment,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketList(tickets))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, msgs, err := h.service.GetTicketDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketDetailResponse(ticket, msgs))
}

// Respond POST /api/tickets/:id/respond.
func (h *TicketsHandler) Respond(c *fiber.Ctx) error {
	var req dto.RespondRequest
	if err := decodeBody(c, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.Respond(c.UserContext(), c.Params("id"), service.RespondInput{
		Author:  req.Author,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMessageResponse(msg))
}

// SetStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.SetStatusRequest
	if err := decodeBody(c, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// readAttachment returns nil when the request carries no usable file part.
// FormFile also fails for non-multipart bodies, which simply have no file.
func readAttachment(c *fiber.Ctx) (*upload.Attachment, error) {
	header, err := c.FormFile(attachmentField)
	if err != nil {
		return nil, nil
	}
	return openAttachment(header)
}

func openAttachment(header *multipart.FileHeader) (*upload.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", nil)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &upload.Attachment{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
