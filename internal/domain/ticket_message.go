package domain

import "time"

// SenderType indicates who authored a ticket message.
type SenderType string

const (
	SenderTypeCustomer SenderType = "customer"
	SenderTypeAdmin    SenderType = "admin"
)

// Valid reports whether s is a known sender type.
func (s SenderType) Valid() bool {
	return s == SenderTypeCustomer || s == SenderTypeAdmin
}

// TicketMessage is one entry in a ticket's append-only thread.
// SenderID holds a customer id or an admin id depending on SenderType.
type TicketMessage struct {
	ID             string
	TicketID       string
	SenderType     SenderType
	SenderID       string
	Message        string
	AttachmentURLs []string
	CreatedAt      time.Time
}
