package service

import (
	"context"
	"fmt"
	"time"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/logger"
	"gatepass/internal/metrics"
	"gatepass/internal/models"
	"gatepass/internal/ticket"
)

// checkInUnit is one admittable party: a registration itself, or a
// single group member. Each unit carries its own ticket number and
// scan state.
type checkInUnit struct {
	registration *models.Registration
	member       *models.GroupMember
}

func (u *checkInUnit) ticketNumber() string {
	if u.member != nil {
		return *u.member.TicketNumber
	}
	return *u.registration.TicketNumber
}

func (u *checkInUnit) attendeeName() string {
	if u.member != nil {
		return u.member.Name
	}
	return u.registration.Name
}

func (u *checkInUnit) memberIndex() *int {
	if u.member != nil {
		idx := u.member.MemberIndex
		return &idx
	}
	return nil
}

func (u *checkInUnit) isScanned() bool {
	if u.member != nil {
		return u.member.IsScanned
	}
	return u.registration.IsScanned
}

func (u *checkInUnit) entryConfirmed() bool {
	if u.member != nil {
		return u.member.EntryConfirmed
	}
	return u.registration.EntryConfirmed
}

func (u *checkInUnit) scannedAt() *time.Time {
	if u.member != nil {
		return u.member.ScannedAt
	}
	return u.registration.ScannedAt
}

// CheckInService validates scanned tickets and confirms entries. Entry
// confirmation is a conditional write; under concurrent scans of the
// same ticket exactly one caller wins.
type CheckInService struct {
	regs       RegistrationStore
	members    MemberStore
	attendance AttendanceStore
	codec      *ticket.Codec
	nats       Publisher
	opts       Options
}

func NewCheckInService(regs RegistrationStore, members MemberStore, attendance AttendanceStore, codec *ticket.Codec, nats Publisher, opts Options) *CheckInService {
	return &CheckInService{
		regs:       regs,
		members:    members,
		attendance: attendance,
		codec:      codec,
		nats:       nats,
		opts:       opts,
	}
}

// VerifyScan validates scanned QR content against persisted state
// without mutating anything. A ticket whose registration has not
// completed payment is reported exactly like a missing ticket.
func (s *CheckInService) VerifyScan(ctx context.Context, qrContent string) (*models.VerificationResult, error) {
	payload, err := s.codec.Decode([]byte(qrContent))
	if err != nil {
		metrics.ScansTotal.WithLabelValues("verify", "rejected").Inc()
		return nil, err
	}

	unit, err := s.resolveUnit(ctx, payload.RegistrationID, payload.TicketNumber)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("verify", "not_found").Inc()
		return nil, err
	}

	result := &models.VerificationResult{
		Status:         models.ScanStatusOK,
		TicketNumber:   unit.ticketNumber(),
		RegistrationID: unit.registration.ID,
		AttendeeName:   unit.attendeeName(),
		MemberIndex:    unit.memberIndex(),
		GroupBooking:   unit.registration.BookingKind == models.BookingGroupLeader,
	}

	scanned, scannedAt, err := s.unitScanned(ctx, unit, time.Now())
	if err != nil {
		return nil, err
	}
	if scanned {
		result.Status = models.ScanStatusAlreadyScanned
		result.ScannedAt = scannedAt
	}
	result.EntryConfirmed = unit.entryConfirmed()

	metrics.ScansTotal.WithLabelValues("verify", result.Status).Inc()
	return result, nil
}

// ConfirmEntry marks a verified ticket as used. The used check and the
// mark are one conditional write, never a read followed by a write, so
// concurrent confirmations of the same ticket produce one winner and
// the rest observe already_scanned.
func (s *CheckInService) ConfirmEntry(ctx context.Context, req *models.ConfirmEntryRequest) (*models.ConfirmResult, error) {
	unit, err := s.resolveUnit(ctx, req.RegistrationID, req.TicketNumber)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("confirm", "not_found").Inc()
		return nil, err
	}

	now := time.Now()

	var won bool
	if s.opts.MultiDay {
		won, err = s.confirmMultiDay(ctx, unit, now)
	} else {
		won, err = s.confirmSingle(ctx, unit, now)
	}
	if err != nil {
		return nil, err
	}

	if !won {
		metrics.ScansTotal.WithLabelValues("confirm", models.ScanStatusAlreadyScanned).Inc()
		return s.alreadyScannedResult(ctx, unit, now)
	}

	metrics.ScansTotal.WithLabelValues("confirm", models.ScanStatusOK).Inc()

	event := models.EntryConfirmedEvent{
		RegistrationID: unit.registration.ID,
		TicketNumber:   unit.ticketNumber(),
		ScannedAt:      now,
		Timestamp:      now,
	}
	if err := s.nats.Publish(models.EventEntryConfirmed, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish entry confirmed event",
			"error", err,
			"registration_id", unit.registration.ID,
			"event_type", models.EventEntryConfirmed)
	}

	logger.WithContext(ctx).Info("Entry confirmed",
		"registration_id", unit.registration.ID,
		"ticket_number", unit.ticketNumber())

	return &models.ConfirmResult{
		Confirmed:      true,
		TicketNumber:   unit.ticketNumber(),
		ScannedAt:      &now,
		EntryConfirmed: true,
	}, nil
}

func (s *CheckInService) confirmSingle(ctx context.Context, unit *checkInUnit, now time.Time) (bool, error) {
	if unit.member != nil {
		won, err := s.members.ConfirmEntry(ctx, unit.registration.ID, unit.ticketNumber(), now)
		if err != nil {
			return false, fmt.Errorf("failed to confirm member entry: %w", err)
		}
		return won, nil
	}

	won, err := s.regs.ConfirmEntry(ctx, unit.registration.ID, unit.ticketNumber(), now)
	if err != nil {
		return false, fmt.Errorf("failed to confirm entry: %w", err)
	}
	return won, nil
}

// confirmMultiDay admits each ticket once per calendar day. The
// attendance insert is the winner-picker; the per-unit scan flags are
// updated best effort for reporting and stay set after day one.
func (s *CheckInService) confirmMultiDay(ctx context.Context, unit *checkInUnit, now time.Time) (bool, error) {
	won, err := s.attendance.RecordScan(ctx, unit.ticketNumber(), now)
	if err != nil {
		return false, fmt.Errorf("failed to record attendance: %w", err)
	}
	if !won {
		return false, nil
	}

	if _, err := s.confirmSingle(ctx, unit, now); err != nil {
		logger.WithContext(ctx).Error("Failed to update scan state after attendance record",
			"error", err,
			"ticket_number", unit.ticketNumber())
	}
	return true, nil
}

// alreadyScannedResult reloads the unit so the losing scanner sees
// when the ticket was first used.
func (s *CheckInService) alreadyScannedResult(ctx context.Context, unit *checkInUnit, now time.Time) (*models.ConfirmResult, error) {
	result := &models.ConfirmResult{
		AlreadyScanned: true,
		TicketNumber:   unit.ticketNumber(),
		EntryConfirmed: true,
	}

	if s.opts.MultiDay {
		scannedAt, err := s.attendanceToday(ctx, unit.ticketNumber(), now)
		if err != nil {
			return nil, err
		}
		result.ScannedAt = scannedAt
		return result, nil
	}

	fresh, err := s.resolveUnit(ctx, unit.registration.ID, unit.ticketNumber())
	if err != nil {
		return nil, err
	}
	result.ScannedAt = fresh.scannedAt()
	return result, nil
}

// resolveUnit finds the admittable party a ticket number belongs to.
// Unknown tickets and tickets on unpaid registrations both come back
// as not found.
func (s *CheckInService) resolveUnit(ctx context.Context, registrationID int64, ticketNumber string) (*checkInUnit, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil || reg.PaymentStatus != models.PaymentCompleted {
		return nil, apperrors.ErrTicketNotFound
	}

	if reg.TicketNumber != nil && *reg.TicketNumber == ticketNumber {
		return &checkInUnit{registration: reg}, nil
	}

	if reg.BookingKind == models.BookingGroupLeader {
		members, err := s.members.GetByRegistrationID(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get group members: %w", err)
		}
		for i := range members {
			m := &members[i]
			if m.TicketNumber != nil && *m.TicketNumber == ticketNumber {
				return &checkInUnit{registration: reg, member: m}, nil
			}
		}
	}

	return nil, apperrors.ErrTicketNotFound
}

// unitScanned reports whether the unit has already been admitted. For
// multi-day events "scanned" means scanned today.
func (s *CheckInService) unitScanned(ctx context.Context, unit *checkInUnit, now time.Time) (bool, *time.Time, error) {
	if !s.opts.MultiDay {
		return unit.isScanned(), unit.scannedAt(), nil
	}

	scannedAt, err := s.attendanceToday(ctx, unit.ticketNumber(), now)
	if err != nil {
		return false, nil, err
	}
	return scannedAt != nil, scannedAt, nil
}

func (s *CheckInService) attendanceToday(ctx context.Context, ticketNumber string, now time.Time) (*time.Time, error) {
	events, err := s.attendance.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance events: %w", err)
	}

	today := now.Format("2006-01-02")
	for _, e := range events {
		if e.Day.Format("2006-01-02") == today {
			at := e.ScanTime
			return &at, nil
		}
	}
	return nil, nil
}
