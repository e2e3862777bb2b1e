package repository

import (
	"context"
	"database/sql"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/models"
)

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, name, email, payment_status, booking_kind, ticket_quantity,
       ticket_generated, ticket_number, qr_payload, is_scanned, scanned_at,
       entry_confirmed, email_sent_at, resend_count, last_resent_at, created_at, updated_at`

func scanRegistration(row interface{ Scan(...interface{}) error }, reg *models.Registration) error {
	return row.Scan(
		&reg.ID,
		&reg.Name,
		&reg.Email,
		&reg.PaymentStatus,
		&reg.BookingKind,
		&reg.TicketQuantity,
		&reg.TicketGenerated,
		&reg.TicketNumber,
		&reg.QRPayload,
		&reg.IsScanned,
		&reg.ScannedAt,
		&reg.EntryConfirmed,
		&reg.EmailSentAt,
		&reg.ResendCount,
		&reg.LastResentAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	reg := &models.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	err := scanRegistration(r.db.QueryRowContext(ctx, query, id), reg)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return reg, err
}

func (r *RegistrationRepository) UpdatePaymentStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE registrations SET payment_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

// SetTicketIssued commits the ticket number, the rendered QR payload
// and the generated flag in a single write, so a row can never end up
// flagged as generated without a number.
func (r *RegistrationRepository) SetTicketIssued(ctx context.Context, id int64, number string, qrPayload []byte) error {
	query := `
		UPDATE registrations
		SET ticket_generated = TRUE, ticket_number = $1, qr_payload = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, number, qrPayload, id)
	return err
}

func (r *RegistrationRepository) MarkEmailSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE registrations SET email_sent_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *RegistrationRepository) UpdateResendAudit(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE registrations
		SET resend_count = resend_count + 1, last_resent_at = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

// ConfirmEntry performs the conditional scan write. The is_scanned
// condition is embedded in the statement itself; of two concurrent
// scanners exactly one sees RowsAffected = 1.
func (r *RegistrationRepository) ConfirmEntry(ctx context.Context, id int64, ticketNumber string, at time.Time) (bool, error) {
	query := `
		UPDATE registrations
		SET is_scanned = TRUE, scanned_at = $1, entry_confirmed = TRUE, updated_at = NOW()
		WHERE id = $2 AND ticket_number = $3 AND payment_status = 'COMPLETED' AND is_scanned = FALSE`

	result, err := r.db.ExecContext(ctx, query, at, id, ticketNumber)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// TicketNumberExists checks a candidate against every issued number,
// primary and group-member alike.
func (r *RegistrationRepository) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM registrations WHERE ticket_number = $1)
		    OR EXISTS(SELECT 1 FROM group_members WHERE ticket_number = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, number).Scan(&exists)
	return exists, err
}
