package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/models"
	"gatepass/internal/service"

	"github.com/nats-io/stan.go"
)

type Handlers struct {
	tickets *service.TicketService
}

func NewHandlers(tickets *service.TicketService) *Handlers {
	return &Handlers{
		tickets: tickets,
	}
}

// HandlePaymentCompleted issues the ticket for a freshly paid
// registration. Issuance is idempotent, so redelivered messages are
// harmless; the message stays unacked only on transient faults.
func (h *Handlers) HandlePaymentCompleted(m *stan.Msg) {
	var event models.PaymentCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment completed event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing payment completed event",
		"registration_id", event.RegistrationID,
		"payment_id", event.PaymentID)

	ctx := context.Background()
	result, err := h.tickets.IssueTicket(ctx, event.RegistrationID)
	if err != nil {
		// A registration that vanished or rolled back its payment is
		// not retryable; redelivery would fail the same way forever.
		if errors.Is(err, apperrors.ErrRegistrationNotFound) ||
			errors.Is(err, apperrors.ErrPaymentNotCompleted) ||
			errors.Is(err, apperrors.ErrCorruptIssuanceState) {
			slog.Error("Dropping unprocessable payment event",
				"error", err,
				"registration_id", event.RegistrationID)
			m.Ack()
			return
		}

		slog.Error("Failed to issue ticket, leaving message for redelivery",
			"error", err,
			"registration_id", event.RegistrationID)
		return
	}

	slog.Info("Ticket issued from payment event",
		"registration_id", result.RegistrationID,
		"ticket_number", result.TicketNumber,
		"member_count", len(result.Members))

	m.Ack()
}
