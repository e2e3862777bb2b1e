package service

import (
	"context"
	"sync"
	"time"

	"gatepass/internal/mailer"
	"gatepass/internal/models"
)

// fakeRegStore keeps registrations in memory with the same conditional
// write semantics as the SQL layer.
type fakeRegStore struct {
	mu   sync.Mutex
	regs map[int64]*models.Registration
}

func newFakeRegStore(regs ...*models.Registration) *fakeRegStore {
	s := &fakeRegStore{regs: make(map[int64]*models.Registration)}
	for _, r := range regs {
		s.regs[r.ID] = r
	}
	return s
}

func (s *fakeRegStore) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeRegStore) UpdatePaymentStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[id].PaymentStatus = status
	return nil
}

func (s *fakeRegStore) SetTicketIssued(ctx context.Context, id int64, number string, qrPayload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.regs[id]
	r.TicketGenerated = true
	r.TicketNumber = &number
	r.QRPayload = qrPayload
	return nil
}

func (s *fakeRegStore) MarkEmailSent(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[id].EmailSentAt = &at
	return nil
}

func (s *fakeRegStore) UpdateResendAudit(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.regs[id]
	r.ResendCount++
	r.LastResentAt = &at
	return nil
}

func (s *fakeRegStore) ConfirmEntry(ctx context.Context, id int64, ticketNumber string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok || r.TicketNumber == nil || *r.TicketNumber != ticketNumber {
		return false, nil
	}
	if r.PaymentStatus != models.PaymentCompleted || r.IsScanned {
		return false, nil
	}
	r.IsScanned = true
	r.ScannedAt = &at
	r.EntryConfirmed = true
	return true, nil
}

type fakeMemberStore struct {
	mu      sync.Mutex
	members map[int64][]*models.GroupMember
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{members: make(map[int64][]*models.GroupMember)}
}

func (s *fakeMemberStore) add(m *models.GroupMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.RegistrationID] = append(s.members[m.RegistrationID], m)
}

func (s *fakeMemberStore) GetByRegistrationID(ctx context.Context, registrationID int64) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GroupMember
	for _, m := range s.members[registrationID] {
		out = append(out, *m)
	}
	return out, nil
}

func (s *fakeMemberStore) SetTicketIssued(ctx context.Context, memberID int64, number string, qrPayload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.members {
		for _, m := range list {
			if m.ID == memberID {
				m.TicketNumber = &number
				m.QRPayload = qrPayload
				return nil
			}
		}
	}
	return nil
}

func (s *fakeMemberStore) MarkEmailSent(ctx context.Context, memberID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.members {
		for _, m := range list {
			if m.ID == memberID {
				m.EmailSentAt = &at
				return nil
			}
		}
	}
	return nil
}

func (s *fakeMemberStore) ConfirmEntry(ctx context.Context, registrationID int64, ticketNumber string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[registrationID] {
		if m.TicketNumber == nil || *m.TicketNumber != ticketNumber {
			continue
		}
		if m.IsScanned {
			return false, nil
		}
		m.IsScanned = true
		m.ScannedAt = &at
		m.EntryConfirmed = true
		return true, nil
	}
	return false, nil
}

// fakeAttendanceStore enforces the one-row-per-ticket-per-day rule.
type fakeAttendanceStore struct {
	mu     sync.Mutex
	events map[string][]models.AttendanceEvent
}

func newFakeAttendanceStore() *fakeAttendanceStore {
	return &fakeAttendanceStore{events: make(map[string][]models.AttendanceEvent)}
}

func (s *fakeAttendanceStore) RecordScan(ctx context.Context, ticketNumber string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := at.Format("2006-01-02")
	for _, e := range s.events[ticketNumber] {
		if e.Day.Format("2006-01-02") == day {
			return false, nil
		}
	}
	dayStart, _ := time.Parse("2006-01-02", day)
	s.events[ticketNumber] = append(s.events[ticketNumber], models.AttendanceEvent{
		TicketNumber: ticketNumber,
		Day:          dayStart,
		ScanTime:     at,
	})
	return true, nil
}

func (s *fakeAttendanceStore) GetByTicketNumber(ctx context.Context, ticketNumber string) ([]models.AttendanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AttendanceEvent(nil), s.events[ticketNumber]...), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events map[string]int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(map[string]int)}
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[subject]++
	return nil
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[subject]
}

// captureQueue records enqueued tasks without running them, so tests
// drive delivery callbacks explicitly.
type captureQueue struct {
	mu    sync.Mutex
	tasks []*mailer.Task
}

func (q *captureQueue) Enqueue(t *mailer.Task) *mailer.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return t
}

func (q *captureQueue) all() []*mailer.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*mailer.Task(nil), q.tasks...)
}

type fakeSender struct {
	mu       sync.Mutex
	messages []*mailer.Message
	err      error
}

func (s *fakeSender) Send(msg *mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

type fakeGuard struct {
	allow bool
	err   error
}

func (g *fakeGuard) AcquireResendGuard(ctx context.Context, registrationID int64, ttl time.Duration) (bool, error) {
	return g.allow, g.err
}

type openNumberStore struct{}

func (openNumberStore) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	return false, nil
}
