package models

import "time"

// NATS Event Types
const (
	EventPaymentCompleted = "payment.completed"
	EventTicketIssued     = "ticket.issued"
	EventEntryConfirmed   = "entry.confirmed"
	EventEmailSent        = "email.sent"
	EventEmailFailed      = "email.failed"
)

// PaymentCompletedEvent represents a confirmed payment for a registration
type PaymentCompletedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	PaymentID      string    `json:"payment_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// TicketIssuedEvent represents a completed ticket issuance
type TicketIssuedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	TicketNumber   string    `json:"ticket_number"`
	MemberCount    int       `json:"member_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// EntryConfirmedEvent represents a one-time entry confirmation at the gate
type EntryConfirmedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	TicketNumber   string    `json:"ticket_number"`
	ScannedAt      time.Time `json:"scanned_at"`
	Timestamp      time.Time `json:"timestamp"`
}

// EmailSentEvent represents a successfully delivered ticket email
type EmailSentEvent struct {
	RegistrationID int64     `json:"registration_id"`
	TicketNumber   string    `json:"ticket_number"`
	Recipient      string    `json:"recipient"`
	Timestamp      time.Time `json:"timestamp"`
}

// EmailFailedEvent represents a ticket email abandoned after retries
type EmailFailedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	Recipient      string    `json:"recipient"`
	Reason         string    `json:"reason"`
	Attempts       int       `json:"attempts"`
	Timestamp      time.Time `json:"timestamp"`
}
