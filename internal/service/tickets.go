package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/logger"
	"gatepass/internal/mailer"
	"gatepass/internal/metrics"
	"gatepass/internal/models"
	"gatepass/internal/ticket"
)

// TicketService owns issuance, delivery and resend of tickets. All
// ticket numbers and QR payloads it hands out come from persisted
// state written in a single update per unit.
type TicketService struct {
	regs      RegistrationStore
	members   MemberStore
	generator *ticket.Generator
	codec     *ticket.Codec
	sender    mailer.Sender
	queue     Enqueuer
	nats      Publisher
	guard     ResendGuard
	opts      Options
}

func NewTicketService(regs RegistrationStore, members MemberStore, generator *ticket.Generator, codec *ticket.Codec, sender mailer.Sender, queue Enqueuer, nats Publisher, guard ResendGuard, opts Options) *TicketService {
	return &TicketService{
		regs:      regs,
		members:   members,
		generator: generator,
		codec:     codec,
		sender:    sender,
		queue:     queue,
		nats:      nats,
		guard:     guard,
		opts:      opts,
	}
}

// IssueTicket assigns ticket numbers to a completed-payment
// registration and queues delivery emails. Calling it again for an
// already-issued registration returns the stored numbers unchanged
// and queues nothing.
func (s *TicketService) IssueTicket(ctx context.Context, registrationID int64) (*models.IssueTicketResult, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.ErrRegistrationNotFound
	}
	if reg.PaymentStatus != models.PaymentCompleted {
		return nil, apperrors.ErrPaymentNotCompleted
	}

	if reg.TicketGenerated {
		return s.existingIssuance(ctx, reg)
	}

	number, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket number: %w", err)
	}

	payload, err := s.codec.Encode(s.leaderPayload(reg, number))
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket payload: %w", err)
	}

	// Flag, number and payload land in one update so no observer can
	// see a generated ticket without its number.
	if err := s.regs.SetTicketIssued(ctx, reg.ID, number, payload); err != nil {
		return nil, fmt.Errorf("failed to persist issued ticket: %w", err)
	}
	metrics.TicketsIssued.Inc()

	result := &models.IssueTicketResult{
		RegistrationID: reg.ID,
		TicketNumber:   number,
	}
	result.QRImage, err = s.codec.RenderPNG(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket image: %w", err)
	}

	s.queueTicketEmail(reg.ID, number, reg.Name, reg.Email, payload, func(at time.Time) error {
		return s.regs.MarkEmailSent(context.Background(), reg.ID, at)
	})

	memberCount := 0
	if reg.BookingKind == models.BookingGroupLeader {
		issued, err := s.issueMemberTickets(ctx, reg)
		if err != nil {
			return nil, err
		}
		result.Members = issued
		memberCount = len(issued)
	}

	event := models.TicketIssuedEvent{
		RegistrationID: reg.ID,
		TicketNumber:   number,
		MemberCount:    memberCount,
		Timestamp:      time.Now(),
	}
	if err := s.nats.Publish(models.EventTicketIssued, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket issued event",
			"error", err,
			"registration_id", reg.ID,
			"event_type", models.EventTicketIssued)
	}

	logger.WithContext(ctx).Info("Ticket issued",
		"registration_id", reg.ID,
		"ticket_number", number,
		"member_count", memberCount)

	return result, nil
}

// existingIssuance rebuilds the issue response from stored state.
func (s *TicketService) existingIssuance(ctx context.Context, reg *models.Registration) (*models.IssueTicketResult, error) {
	if reg.TicketNumber == nil {
		return nil, apperrors.ErrCorruptIssuanceState
	}

	qrImage, err := s.codec.RenderPNG(reg.QRPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket image: %w", err)
	}

	result := &models.IssueTicketResult{
		RegistrationID: reg.ID,
		TicketNumber:   *reg.TicketNumber,
		QRImage:        qrImage,
	}

	if reg.BookingKind == models.BookingGroupLeader {
		members, err := s.members.GetByRegistrationID(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get group members: %w", err)
		}
		for _, m := range members {
			if m.TicketNumber == nil {
				return nil, apperrors.ErrCorruptIssuanceState
			}
			result.Members = append(result.Members, models.IssuedMember{
				MemberIndex:  m.MemberIndex,
				Name:         m.Name,
				TicketNumber: *m.TicketNumber,
			})
		}
	}

	logger.WithContext(ctx).Info("Ticket already issued, returning stored state",
		"registration_id", reg.ID,
		"ticket_number", *reg.TicketNumber)

	return result, nil
}

func (s *TicketService) issueMemberTickets(ctx context.Context, reg *models.Registration) ([]models.IssuedMember, error) {
	members, err := s.members.GetByRegistrationID(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	issued := make([]models.IssuedMember, 0, len(members))
	for i := range members {
		m := &members[i]
		if m.TicketNumber == nil {
			number, err := s.generator.Generate(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to generate member ticket number: %w", err)
			}

			payload, err := s.codec.Encode(s.memberPayload(reg, m, number))
			if err != nil {
				return nil, fmt.Errorf("failed to encode member ticket payload: %w", err)
			}

			if err := s.members.SetTicketIssued(ctx, m.ID, number, payload); err != nil {
				return nil, fmt.Errorf("failed to persist member ticket: %w", err)
			}
			metrics.TicketsIssued.Inc()

			m.TicketNumber = &number
			m.QRPayload = payload
		}

		memberID := m.ID
		s.queueTicketEmail(reg.ID, *m.TicketNumber, m.Name, m.Email, m.QRPayload, func(at time.Time) error {
			return s.members.MarkEmailSent(context.Background(), memberID, at)
		})

		issued = append(issued, models.IssuedMember{
			MemberIndex:  m.MemberIndex,
			Name:         m.Name,
			TicketNumber: *m.TicketNumber,
		})
	}

	return issued, nil
}

// Resend queues the stored ticket emails again. The ticket number and
// QR payload are reused verbatim; resending never mints identifiers.
func (s *TicketService) Resend(ctx context.Context, registrationID int64) (*models.ResendResult, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.ErrRegistrationNotFound
	}
	if reg.PaymentStatus != models.PaymentCompleted {
		return nil, apperrors.ErrPaymentNotCompleted
	}
	if !reg.TicketGenerated {
		return nil, apperrors.ErrTicketNotIssued
	}
	if reg.TicketNumber == nil {
		return nil, apperrors.ErrCorruptIssuanceState
	}

	if err := s.checkResendCooldown(ctx, reg); err != nil {
		return nil, err
	}

	now := time.Now()
	queued := 0

	s.queueTicketEmail(reg.ID, *reg.TicketNumber, reg.Name, reg.Email, reg.QRPayload, func(at time.Time) error {
		return s.regs.MarkEmailSent(context.Background(), reg.ID, at)
	})
	queued++

	if reg.BookingKind == models.BookingGroupLeader {
		members, err := s.members.GetByRegistrationID(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get group members: %w", err)
		}
		for _, m := range members {
			if m.TicketNumber == nil {
				return nil, apperrors.ErrCorruptIssuanceState
			}
			memberID := m.ID
			s.queueTicketEmail(reg.ID, *m.TicketNumber, m.Name, m.Email, m.QRPayload, func(at time.Time) error {
				return s.members.MarkEmailSent(context.Background(), memberID, at)
			})
			queued++
		}
	}

	if err := s.regs.UpdateResendAudit(ctx, reg.ID, now); err != nil {
		logger.WithContext(ctx).Error("Failed to record resend audit",
			"error", err,
			"registration_id", reg.ID)
	}

	logger.WithContext(ctx).Info("Ticket resend queued",
		"registration_id", reg.ID,
		"ticket_number", *reg.TicketNumber,
		"queued", queued)

	return &models.ResendResult{
		RegistrationID: reg.ID,
		TicketNumber:   *reg.TicketNumber,
		Queued:         queued,
	}, nil
}

// checkResendCooldown enforces the per-registration resend window. The
// cache guard is preferred; when the cache is unavailable the stored
// resend timestamp backs it up.
func (s *TicketService) checkResendCooldown(ctx context.Context, reg *models.Registration) error {
	if s.guard != nil {
		acquired, err := s.guard.AcquireResendGuard(ctx, reg.ID, s.opts.ResendCooldown)
		if err == nil {
			if !acquired {
				return apperrors.ErrResendCooldown
			}
			return nil
		}
		logger.WithContext(ctx).Warn("Resend guard unavailable, falling back to stored timestamp",
			"error", err,
			"registration_id", reg.ID)
	}

	if reg.LastResentAt != nil && time.Since(*reg.LastResentAt) < s.opts.ResendCooldown {
		return apperrors.ErrResendCooldown
	}
	return nil
}

// HandlePaymentNotification applies a payment gateway webhook and, on
// completion, announces it on the bus so the issuance consumer picks
// it up.
func (s *TicketService) HandlePaymentNotification(ctx context.Context, payload *models.PaymentNotificationPayload) error {
	reg, err := s.regs.GetByID(ctx, payload.RegistrationID)
	if err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return apperrors.ErrRegistrationNotFound
	}

	status := normalizePaymentStatus(payload.Status)
	if err := s.regs.UpdatePaymentStatus(ctx, reg.ID, status); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	logger.WithContext(ctx).Info("Payment notification applied",
		"registration_id", reg.ID,
		"payment_id", payload.PaymentID,
		"status", status)

	if status == models.PaymentCompleted {
		event := models.PaymentCompletedEvent{
			RegistrationID: reg.ID,
			PaymentID:      payload.PaymentID,
			Timestamp:      time.Now(),
		}
		if err := s.nats.Publish(models.EventPaymentCompleted, event); err != nil {
			logger.WithContext(ctx).Error("Failed to publish payment completed event",
				"error", err,
				"registration_id", reg.ID,
				"event_type", models.EventPaymentCompleted)
		}
	}

	return nil
}

func normalizePaymentStatus(raw string) string {
	switch strings.ToUpper(raw) {
	case "COMPLETED", "SUCCEEDED", "SUCCESS", "PAID":
		return models.PaymentCompleted
	case "FAILED", "DECLINED", "CANCELLED":
		return models.PaymentFailed
	case "PENDING":
		return models.PaymentPending
	default:
		return models.PaymentAwaitingVerification
	}
}

func (s *TicketService) leaderPayload(reg *models.Registration, number string) *ticket.Payload {
	return &ticket.Payload{
		TicketNumber:   number,
		RegistrationID: reg.ID,
		Name:           reg.Name,
		Email:          reg.Email,
		GeneratedAt:    time.Now(),
		GroupBooking:   reg.BookingKind == models.BookingGroupLeader,
	}
}

func (s *TicketService) memberPayload(reg *models.Registration, m *models.GroupMember, number string) *ticket.Payload {
	idx := m.MemberIndex
	return &ticket.Payload{
		TicketNumber:   number,
		RegistrationID: reg.ID,
		Name:           m.Name,
		Email:          m.Email,
		GeneratedAt:    time.Now(),
		MemberIndex:    &idx,
		GroupBooking:   true,
	}
}

// queueTicketEmail renders the ticket email for one unit and hands it
// to the delivery queue. markSent runs from the queue worker after the
// relay accepts the message.
func (s *TicketService) queueTicketEmail(registrationID int64, number, name, email string, payload []byte, markSent func(at time.Time) error) {
	task := &mailer.Task{
		RegistrationID: registrationID,
		TicketNumber:   number,
		To:             email,
		Send: func() error {
			png, err := s.codec.RenderPNG(payload)
			if err != nil {
				return fmt.Errorf("failed to render ticket image: %w", err)
			}
			return s.sender.Send(s.buildTicketEmail(name, email, number, png))
		},
		OnSent: func(t *mailer.Task) {
			now := time.Now()
			if err := markSent(now); err != nil {
				logger.Get().Error("Failed to record email delivery",
					"error", err,
					"registration_id", t.RegistrationID,
					"ticket_number", t.TicketNumber)
			}
			event := models.EmailSentEvent{
				RegistrationID: t.RegistrationID,
				TicketNumber:   t.TicketNumber,
				Recipient:      t.To,
				Timestamp:      now,
			}
			if err := s.nats.Publish(models.EventEmailSent, event); err != nil {
				logger.Get().Error("Failed to publish email sent event",
					"error", err,
					"registration_id", t.RegistrationID,
					"event_type", models.EventEmailSent)
			}
		},
		OnFailed: func(t *mailer.Task, sendErr error) {
			event := models.EmailFailedEvent{
				RegistrationID: t.RegistrationID,
				Recipient:      t.To,
				Reason:         sendErr.Error(),
				Attempts:       t.Attempts,
				Timestamp:      time.Now(),
			}
			if err := s.nats.Publish(models.EventEmailFailed, event); err != nil {
				logger.Get().Error("Failed to publish email failed event",
					"error", err,
					"registration_id", t.RegistrationID,
					"event_type", models.EventEmailFailed)
			}
		},
	}

	s.queue.Enqueue(task)
}

func (s *TicketService) buildTicketEmail(name, email, number string, png []byte) *mailer.Message {
	subject := fmt.Sprintf("Your ticket for %s", s.opts.EventTitle)

	textBody := fmt.Sprintf(
		"Hello %s,\n\nYour ticket for %s is attached.\n\nTicket number: %s\n\nShow the attached QR code at the entrance.\n",
		name, s.opts.EventTitle, number)

	htmlBody := fmt.Sprintf(
		`<p>Hello %s,</p><p>Your ticket for <strong>%s</strong> is attached.</p><p>Ticket number: <strong>%s</strong></p><p>Show the attached QR code at the entrance.</p>`,
		name, s.opts.EventTitle, number)

	return &mailer.Message{
		To:       email,
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
		Attachments: []mailer.Attachment{
			{
				Filename:    fmt.Sprintf("ticket-%s.png", number),
				ContentType: "image/png",
				Data:        png,
			},
		},
	}
}
