package models

import (
	"time"
)

// Payment statuses
const (
	PaymentPending              = "PENDING"
	PaymentAwaitingVerification = "AWAITING_VERIFICATION"
	PaymentCompleted            = "COMPLETED"
	PaymentFailed               = "FAILED"
)

// Booking kinds
const (
	BookingIndividual  = "INDIVIDUAL"
	BookingGroupLeader = "GROUP_LEADER"
)

// Registration represents one purchaser/attendee record
type Registration struct {
	ID              int64      `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Email           string     `json:"email" db:"email"`
	PaymentStatus   string     `json:"payment_status" db:"payment_status"`
	BookingKind     string     `json:"booking_kind" db:"booking_kind"`
	TicketQuantity  int        `json:"ticket_quantity" db:"ticket_quantity"`
	TicketGenerated bool       `json:"ticket_generated" db:"ticket_generated"`
	TicketNumber    *string    `json:"ticket_number" db:"ticket_number"`
	QRPayload       []byte     `json:"-" db:"qr_payload"`
	IsScanned       bool       `json:"is_scanned" db:"is_scanned"`
	ScannedAt       *time.Time `json:"scanned_at" db:"scanned_at"`
	EntryConfirmed  bool       `json:"entry_confirmed" db:"entry_confirmed"`
	EmailSentAt     *time.Time `json:"email_sent_at" db:"email_sent_at"`
	ResendCount     int        `json:"resend_count" db:"resend_count"`
	LastResentAt    *time.Time `json:"last_resent_at" db:"last_resent_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	Members         []GroupMember `json:"members,omitempty"` // Not from DB, filled separately
}

// GroupMember represents one admitted attendee under a group-leader
// registration. Each member is an independent check-in unit with its
// own ticket number; payment and booking metadata live on the parent.
type GroupMember struct {
	ID             int64      `json:"id" db:"id"`
	RegistrationID int64      `json:"registration_id" db:"registration_id"`
	MemberIndex    int        `json:"member_index" db:"member_index"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	TicketNumber   *string    `json:"ticket_number" db:"ticket_number"`
	QRPayload      []byte     `json:"-" db:"qr_payload"`
	IsScanned      bool       `json:"is_scanned" db:"is_scanned"`
	ScannedAt      *time.Time `json:"scanned_at" db:"scanned_at"`
	EntryConfirmed bool       `json:"entry_confirmed" db:"entry_confirmed"`
	EmailSentAt    *time.Time `json:"email_sent_at" db:"email_sent_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// AttendanceEvent represents one confirmed entry per ticket per
// calendar day (multi-day events only)
type AttendanceEvent struct {
	ID           int64     `json:"id" db:"id"`
	TicketNumber string    `json:"ticket_number" db:"ticket_number"`
	Day          time.Time `json:"day" db:"day"`
	ScanTime     time.Time `json:"scan_time" db:"scan_time"`
}
