package repository

import (
	"context"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/models"
)

type MemberRepository struct {
	db *database.DB
}

func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByRegistrationID(ctx context.Context, registrationID int64) ([]models.GroupMember, error) {
	var members []models.GroupMember
	query := `
		SELECT id, registration_id, member_index, name, email, ticket_number, qr_payload,
		       is_scanned, scanned_at, entry_confirmed, email_sent_at, created_at
		FROM group_members
		WHERE registration_id = $1
		ORDER BY member_index`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var member models.GroupMember
		err := rows.Scan(
			&member.ID,
			&member.RegistrationID,
			&member.MemberIndex,
			&member.Name,
			&member.Email,
			&member.TicketNumber,
			&member.QRPayload,
			&member.IsScanned,
			&member.ScannedAt,
			&member.EntryConfirmed,
			&member.EmailSentAt,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// SetTicketIssued commits the member's number and QR payload in one
// write, same discipline as the primary slot.
func (r *MemberRepository) SetTicketIssued(ctx context.Context, memberID int64, number string, qrPayload []byte) error {
	query := `
		UPDATE group_members
		SET ticket_number = $1, qr_payload = $2
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, number, qrPayload, memberID)
	return err
}

func (r *MemberRepository) MarkEmailSent(ctx context.Context, memberID int64, at time.Time) error {
	query := `UPDATE group_members SET email_sent_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, memberID)
	return err
}

// ConfirmEntry is the conditional scan write for a group member. Only
// the matching member row is touched, never siblings or the parent.
func (r *MemberRepository) ConfirmEntry(ctx context.Context, registrationID int64, ticketNumber string, at time.Time) (bool, error) {
	query := `
		UPDATE group_members
		SET is_scanned = TRUE, scanned_at = $1, entry_confirmed = TRUE
		WHERE registration_id = $2 AND ticket_number = $3 AND is_scanned = FALSE`

	result, err := r.db.ExecContext(ctx, query, at, registrationID, ticketNumber)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
