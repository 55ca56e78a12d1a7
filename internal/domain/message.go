package domain

import "time"

// DefaultReplyAuthor is used when a reply names no author.
const DefaultReplyAuthor = "support"

// Message is one entry in a ticket thread. The first message of every
// ticket is its description, authored by the submitter.
type Message struct {
	ID        string
	TicketID  string
	Author    string
	Body      string
	CreatedAt time.Time
}
