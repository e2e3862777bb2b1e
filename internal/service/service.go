package service

import (
	"context"
	"time"

	"gatepass/internal/mailer"
	"gatepass/internal/messaging"
	"gatepass/internal/models"
	"gatepass/internal/repository"
	"gatepass/internal/ticket"
)

// RegistrationStore is the registration persistence the services need.
type RegistrationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Registration, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status string) error
	SetTicketIssued(ctx context.Context, id int64, number string, qrPayload []byte) error
	MarkEmailSent(ctx context.Context, id int64, at time.Time) error
	UpdateResendAudit(ctx context.Context, id int64, at time.Time) error
	ConfirmEntry(ctx context.Context, id int64, ticketNumber string, at time.Time) (bool, error)
}

// MemberStore is the group-member persistence the services need.
type MemberStore interface {
	GetByRegistrationID(ctx context.Context, registrationID int64) ([]models.GroupMember, error)
	SetTicketIssued(ctx context.Context, memberID int64, number string, qrPayload []byte) error
	MarkEmailSent(ctx context.Context, memberID int64, at time.Time) error
	ConfirmEntry(ctx context.Context, registrationID int64, ticketNumber string, at time.Time) (bool, error)
}

// AttendanceStore records per-day entries for multi-day events.
type AttendanceStore interface {
	RecordScan(ctx context.Context, ticketNumber string, at time.Time) (bool, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) ([]models.AttendanceEvent, error)
}

// Publisher emits domain events to the message bus.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Enqueuer accepts email tasks for asynchronous delivery.
type Enqueuer interface {
	Enqueue(t *mailer.Task) *mailer.Task
}

// ResendGuard rate-limits ticket resends per registration.
type ResendGuard interface {
	AcquireResendGuard(ctx context.Context, registrationID int64, ttl time.Duration) (bool, error)
}

// Options carries the event-level settings shared by the services.
type Options struct {
	EventTitle     string
	MultiDay       bool
	ResendCooldown time.Duration
}

type Services struct {
	Tickets *TicketService
	CheckIn *CheckInService
}

func NewServices(repos *repository.Repositories, natsClient *messaging.NATSClient, generator *ticket.Generator, codec *ticket.Codec, sender mailer.Sender, queue Enqueuer, guard ResendGuard, opts Options) *Services {
	ticketService := NewTicketService(repos.Registrations, repos.Members, generator, codec, sender, queue, natsClient, guard, opts)
	checkInService := NewCheckInService(repos.Registrations, repos.Members, repos.Attendance, codec, natsClient, opts)

	return &Services{
		Tickets: ticketService,
		CheckIn: checkInService,
	}
}
