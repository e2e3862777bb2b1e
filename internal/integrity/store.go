package integrity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements Store over the live registrations schema.
// Ticket numbers live in two tables, so the duplicate scan unions
// both before grouping.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DuplicateTicketNumbers(ctx context.Context) ([]DuplicateNumber, error) {
	query := `
		SELECT ticket_number, COUNT(*) AS owners,
		       ARRAY_AGG(ref ORDER BY ref) AS refs
		FROM (
			SELECT ticket_number, 'registration:' || id AS ref
			FROM registrations
			WHERE ticket_number IS NOT NULL
			UNION ALL
			SELECT ticket_number, 'member:' || id AS ref
			FROM group_members
			WHERE ticket_number IS NOT NULL
		) numbered
		GROUP BY ticket_number
		HAVING COUNT(*) > 1
		ORDER BY ticket_number`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate ticket numbers: %w", err)
	}
	defer rows.Close()

	var duplicates []DuplicateNumber
	for rows.Next() {
		var d DuplicateNumber
		if err := rows.Scan(&d.TicketNumber, &d.Owners, pq.Array(&d.References)); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate row: %w", err)
		}
		duplicates = append(duplicates, d)
	}
	return duplicates, rows.Err()
}

func (s *PostgresStore) OrphanedRegistrations(ctx context.Context) ([]RecordRef, error) {
	query := `
		SELECT id, email
		FROM registrations
		WHERE payment_status = 'COMPLETED' AND ticket_number IS NULL
		ORDER BY id`
	return s.queryRefs(ctx, query)
}

func (s *PostgresStore) CorruptIssuanceRows(ctx context.Context) ([]RecordRef, error) {
	query := `
		SELECT id, email
		FROM registrations
		WHERE ticket_generated = TRUE AND ticket_number IS NULL
		ORDER BY id`
	return s.queryRefs(ctx, query)
}

func (s *PostgresStore) queryRefs(ctx context.Context, query string) ([]RecordRef, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var refs []RecordRef
	for rows.Next() {
		var ref RecordRef
		if err := rows.Scan(&ref.RegistrationID, &ref.Email); err != nil {
			return nil, fmt.Errorf("failed to scan registration ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
