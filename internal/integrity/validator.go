// Package integrity runs read-only batch reconciliation over persisted
// issuance state. It never mutates anything; findings are surfaced as
// a report for manual remediation.
package integrity

import (
	"context"
	"fmt"
	"time"
)

// DuplicateNumber is a ticket number held by more than one owner.
type DuplicateNumber struct {
	TicketNumber string   `json:"ticket_number"`
	Owners       int      `json:"owners"`
	References   []string `json:"references"`
}

// RecordRef points at an offending registration or group member.
type RecordRef struct {
	RegistrationID int64  `json:"registration_id"`
	Email          string `json:"email"`
}

// Report is the structured result of one reconciliation run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	DuplicateCount int               `json:"duplicate_count"`
	Duplicates     []DuplicateNumber `json:"duplicates,omitempty"`

	// Orphans are completed-payment registrations with no ticket
	// number: paid but ticketless.
	OrphanCount int         `json:"orphan_count"`
	Orphans     []RecordRef `json:"orphans,omitempty"`

	// Corrupt rows carry ticket_generated = TRUE with no number. They
	// must be repaired before any resend runs against them, or the
	// resend mints a phantom second identifier.
	CorruptCount int         `json:"corrupt_count"`
	Corrupt      []RecordRef `json:"corrupt,omitempty"`
}

// Clean reports whether the run found nothing to remediate.
func (r *Report) Clean() bool {
	return r.DuplicateCount == 0 && r.OrphanCount == 0 && r.CorruptCount == 0
}

// Store provides the read queries the validator scans over.
type Store interface {
	DuplicateTicketNumbers(ctx context.Context) ([]DuplicateNumber, error)
	OrphanedRegistrations(ctx context.Context) ([]RecordRef, error)
	CorruptIssuanceRows(ctx context.Context) ([]RecordRef, error)
}

type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

func (v *Validator) Run(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: time.Now()}

	duplicates, err := v.store.DuplicateTicketNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for duplicate ticket numbers: %w", err)
	}
	report.Duplicates = duplicates
	report.DuplicateCount = len(duplicates)

	orphans, err := v.store.OrphanedRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphaned registrations: %w", err)
	}
	report.Orphans = orphans
	report.OrphanCount = len(orphans)

	corrupt, err := v.store.CorruptIssuanceRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for corrupt issuance rows: %w", err)
	}
	report.Corrupt = corrupt
	report.CorruptCount = len(corrupt)

	return report, nil
}
