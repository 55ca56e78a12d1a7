package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketStatuses lists every valid status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusResolved,
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid ticket status: %q", raw)
	}
	return status, nil
}

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusResolved:
		return true
	default:
		return false
	}
}

func (s TicketStatus) String() string {
	return string(s)
}

// TicketStatusNames returns the string form of every valid status.
func TicketStatusNames() []string {
	names := make([]string, 0, len(TicketStatuses))
	for _, s := range TicketStatuses {
		names = append(names, s.String())
	}
	return names
}

// Ticket is a support request submitted by a client.
// Status is the only field that changes after creation.
type Ticket struct {
	ID            string
	Name          string
	Email         string
	Description   string
	AttachmentURL *string
	Status        TicketStatus
	CreatedAt     time.Time
}
