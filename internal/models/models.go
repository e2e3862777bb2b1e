package models

import "time"

// Scan result statuses
const (
	ScanStatusOK             = "ok"
	ScanStatusAlreadyScanned = "already_scanned"
)

// VerifyScanRequest - модель для проверки отсканированного QR
type VerifyScanRequest struct {
	QRContent string `json:"qr_content" binding:"required"`
}

// VerificationResult - результат проверки билета на сканере
type VerificationResult struct {
	Status         string     `json:"status"`
	TicketNumber   string     `json:"ticket_number"`
	RegistrationID int64      `json:"registration_id"`
	AttendeeName   string     `json:"attendee_name"`
	MemberIndex    *int       `json:"member_index,omitempty"`
	GroupBooking   bool       `json:"group_booking,omitempty"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
	EntryConfirmed bool       `json:"entry_confirmed"`
}

// ConfirmEntryRequest - модель для подтверждения входа
type ConfirmEntryRequest struct {
	RegistrationID int64  `json:"registration_id" binding:"required"`
	TicketNumber   string `json:"ticket_number" binding:"required"`
}

// ConfirmResult - результат подтверждения входа
type ConfirmResult struct {
	Confirmed      bool       `json:"confirmed"`
	AlreadyScanned bool       `json:"already_scanned"`
	TicketNumber   string     `json:"ticket_number"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
	EntryConfirmed bool       `json:"entry_confirmed"`
}

// IssuedMember - выданный билет участника группы
type IssuedMember struct {
	MemberIndex  int    `json:"member_index"`
	Name         string `json:"name"`
	TicketNumber string `json:"ticket_number"`
}

// IssueTicketResult - модель ответа при выпуске билета
type IssueTicketResult struct {
	RegistrationID int64          `json:"registration_id"`
	TicketNumber   string         `json:"ticket_number"`
	QRImage        []byte         `json:"qr_image"`
	Members        []IssuedMember `json:"members,omitempty"`
}

// ResendResult - модель ответа при повторной отправке билета
type ResendResult struct {
	RegistrationID int64  `json:"registration_id"`
	TicketNumber   string `json:"ticket_number"`
	Queued         int    `json:"queued"`
}

// PaymentNotificationPayload - модель для webhook уведомлений от платежного шлюза
type PaymentNotificationPayload struct {
	PaymentID      string                 `json:"paymentId"`
	RegistrationID int64                  `json:"registrationId"`
	Status         string                 `json:"status"`
	Timestamp      string                 `json:"timestamp"`
	Data           map[string]interface{} `json:"data"`
}
