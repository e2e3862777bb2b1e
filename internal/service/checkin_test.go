package service

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/models"
	"gatepass/internal/ticket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventCode = "SUMMIT26"

type checkInFixture struct {
	regs       *fakeRegStore
	members    *fakeMemberStore
	attendance *fakeAttendanceStore
	publisher  *fakePublisher
	codec      *ticket.Codec
	service    *CheckInService
}

func newCheckInFixture(t *testing.T, multiDay bool, regs ...*models.Registration) *checkInFixture {
	t.Helper()
	f := &checkInFixture{
		regs:       newFakeRegStore(regs...),
		members:    newFakeMemberStore(),
		attendance: newFakeAttendanceStore(),
		publisher:  newFakePublisher(),
		codec:      ticket.NewCodec(testEventCode),
	}
	f.service = NewCheckInService(f.regs, f.members, f.attendance, f.codec, f.publisher, Options{
		EventTitle: "Gatepass Summit",
		MultiDay:   multiDay,
	})
	return f
}

func issuedRegistration(id int64, number string) *models.Registration {
	return &models.Registration{
		ID:              id,
		Name:            "Dana Scanner",
		Email:           "dana@example.com",
		PaymentStatus:   models.PaymentCompleted,
		BookingKind:     models.BookingIndividual,
		TicketQuantity:  1,
		TicketGenerated: true,
		TicketNumber:    &number,
	}
}

func (f *checkInFixture) qrContent(t *testing.T, reg *models.Registration) string {
	t.Helper()
	raw, err := f.codec.Encode(&ticket.Payload{
		TicketNumber:   *reg.TicketNumber,
		RegistrationID: reg.ID,
		Name:           reg.Name,
		Email:          reg.Email,
		GeneratedAt:    time.Now(),
	})
	require.NoError(t, err)
	return string(raw)
}

func TestVerifyScanValidTicket(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)

	result, err := f.service.VerifyScan(context.Background(), f.qrContent(t, reg))

	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusOK, result.Status)
	assert.Equal(t, "GP-SUM260831-AAAA", result.TicketNumber)
	assert.Equal(t, "Dana Scanner", result.AttendeeName)
	assert.False(t, result.EntryConfirmed)
	assert.Nil(t, result.ScannedAt)
}

func TestVerifyScanDoesNotMutateState(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)
	qr := f.qrContent(t, reg)

	for i := 0; i < 3; i++ {
		result, err := f.service.VerifyScan(context.Background(), qr)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusOK, result.Status)
	}

	stored, err := f.regs.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsScanned)
}

func TestVerifyScanAlreadyUsedTicket(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	scannedAt := time.Now().Add(-10 * time.Minute)
	reg.IsScanned = true
	reg.ScannedAt = &scannedAt
	reg.EntryConfirmed = true
	f := newCheckInFixture(t, false, reg)

	result, err := f.service.VerifyScan(context.Background(), f.qrContent(t, reg))

	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusAlreadyScanned, result.Status)
	assert.True(t, result.EntryConfirmed)
	require.NotNil(t, result.ScannedAt)
	assert.WithinDuration(t, scannedAt, *result.ScannedAt, time.Second)
}

// Legacy rows can carry is_scanned without entry_confirmed; the
// verification report must surface the stored confirmation flag, not
// infer it from the scan flag.
func TestVerifyScanReportsStoredConfirmationFlag(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	scannedAt := time.Now().Add(-time.Hour)
	reg.IsScanned = true
	reg.ScannedAt = &scannedAt
	reg.EntryConfirmed = false
	f := newCheckInFixture(t, false, reg)

	result, err := f.service.VerifyScan(context.Background(), f.qrContent(t, reg))

	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusAlreadyScanned, result.Status)
	assert.False(t, result.EntryConfirmed)
}

func TestVerifyScanRejectsMalformedContent(t *testing.T) {
	f := newCheckInFixture(t, false)

	_, err := f.service.VerifyScan(context.Background(), "not json at all")

	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
}

func TestVerifyScanUnknownTicket(t *testing.T) {
	f := newCheckInFixture(t, false)
	ghost := issuedRegistration(99, "GP-SUM260831-DEAD")

	_, err := f.service.VerifyScan(context.Background(), f.qrContent(t, ghost))

	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

// A ticket whose registration has not completed payment must be
// indistinguishable from a missing ticket at the scanner.
func TestVerifyScanUnpaidLooksLikeMissing(t *testing.T) {
	unpaid := issuedRegistration(1, "GP-SUM260831-AAAA")
	unpaid.PaymentStatus = models.PaymentPending
	f := newCheckInFixture(t, false, unpaid)

	_, unpaidErr := f.service.VerifyScan(context.Background(), f.qrContent(t, unpaid))

	ghost := issuedRegistration(99, "GP-SUM260831-DEAD")
	_, missingErr := f.service.VerifyScan(context.Background(), f.qrContent(t, ghost))

	assert.ErrorIs(t, unpaidErr, apperrors.ErrTicketNotFound)
	assert.Equal(t, missingErr, unpaidErr)
}

func TestConfirmEntry(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)

	result, err := f.service.ConfirmEntry(context.Background(), &models.ConfirmEntryRequest{
		RegistrationID: reg.ID,
		TicketNumber:   *reg.TicketNumber,
	})

	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.False(t, result.AlreadyScanned)
	require.NotNil(t, result.ScannedAt)
	assert.Equal(t, 1, f.publisher.count(models.EventEntryConfirmed))

	stored, err := f.regs.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsScanned)
	assert.True(t, stored.EntryConfirmed)
}

func TestConfirmEntrySecondAttemptReportsAlreadyScanned(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)
	req := &models.ConfirmEntryRequest{RegistrationID: reg.ID, TicketNumber: *reg.TicketNumber}

	first, err := f.service.ConfirmEntry(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Confirmed)

	second, err := f.service.ConfirmEntry(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Confirmed)
	assert.True(t, second.AlreadyScanned)
	require.NotNil(t, second.ScannedAt)
	assert.Equal(t, 1, f.publisher.count(models.EventEntryConfirmed))
}

// Concurrent confirmations of the same ticket must produce exactly one
// winner; every other scanner observes already_scanned.
func TestConfirmEntryConcurrentSingleWinner(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)
	req := &models.ConfirmEntryRequest{RegistrationID: reg.ID, TicketNumber: *reg.TicketNumber}

	const scanners = 32
	results := make([]*models.ConfirmResult, scanners)

	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.ConfirmEntry(context.Background(), req)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r.Confirmed {
			winners++
		} else {
			assert.True(t, r.AlreadyScanned)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, f.publisher.count(models.EventEntryConfirmed))
}

// Admitting one group member must not touch the scan state of the
// leader or the other members.
func TestConfirmEntryGroupMemberIsolation(t *testing.T) {
	leaderNumber := "GP-SUM260831-AAAA"
	reg := issuedRegistration(1, leaderNumber)
	reg.BookingKind = models.BookingGroupLeader
	reg.TicketQuantity = 3
	f := newCheckInFixture(t, false, reg)

	numbers := []string{"GP-SUM260831-BBBB", "GP-SUM260831-CCCC"}
	for i, n := range numbers {
		number := n
		f.members.add(&models.GroupMember{
			ID:             int64(10 + i),
			RegistrationID: reg.ID,
			MemberIndex:    i + 1,
			Name:           "Member",
			Email:          "member@example.com",
			TicketNumber:   &number,
		})
	}

	result, err := f.service.ConfirmEntry(context.Background(), &models.ConfirmEntryRequest{
		RegistrationID: reg.ID,
		TicketNumber:   numbers[1],
	})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)

	stored, err := f.regs.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsScanned)

	members, err := f.members.GetByRegistrationID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.False(t, members[0].IsScanned)
	assert.True(t, members[1].IsScanned)

	verify, err := f.service.VerifyScan(context.Background(), f.qrContent(t, reg))
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusOK, verify.Status)
}

func TestConfirmEntryUnknownTicket(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, false, reg)

	_, err := f.service.ConfirmEntry(context.Background(), &models.ConfirmEntryRequest{
		RegistrationID: reg.ID,
		TicketNumber:   "GP-SUM260831-DEAD",
	})

	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestConfirmEntryMultiDayOncePerDay(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, true, reg)
	req := &models.ConfirmEntryRequest{RegistrationID: reg.ID, TicketNumber: *reg.TicketNumber}

	first, err := f.service.ConfirmEntry(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Confirmed)

	second, err := f.service.ConfirmEntry(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Confirmed)
	assert.True(t, second.AlreadyScanned)
	require.NotNil(t, second.ScannedAt)
}

func TestConfirmEntryMultiDayAdmitsOnNewDay(t *testing.T) {
	reg := issuedRegistration(1, "GP-SUM260831-AAAA")
	f := newCheckInFixture(t, true, reg)

	// Entry was already confirmed yesterday; unit flags carry over.
	yesterday := time.Now().Add(-24 * time.Hour)
	won, err := f.attendance.RecordScan(context.Background(), *reg.TicketNumber, yesterday)
	require.NoError(t, err)
	require.True(t, won)
	_, err = f.regs.ConfirmEntry(context.Background(), reg.ID, *reg.TicketNumber, yesterday)
	require.NoError(t, err)

	verify, err := f.service.VerifyScan(context.Background(), f.qrContent(t, reg))
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusOK, verify.Status)

	result, err := f.service.ConfirmEntry(context.Background(), &models.ConfirmEntryRequest{
		RegistrationID: reg.ID,
		TicketNumber:   *reg.TicketNumber,
	})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)

	events, err := f.attendance.GetByTicketNumber(context.Background(), *reg.TicketNumber)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
