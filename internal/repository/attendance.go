package repository

import (
	"context"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/models"
)

type AttendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// RecordScan inserts the day's attendance row for a ticket. The unique
// constraint on (ticket_number, day) makes the insert the atomic
// winner-picking step for multi-day events: exactly one scan per ticket
// per calendar day lands.
func (r *AttendanceRepository) RecordScan(ctx context.Context, ticketNumber string, at time.Time) (bool, error) {
	query := `
		INSERT INTO attendance_events (ticket_number, day, scan_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_number, day) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, ticketNumber, at.Format("2006-01-02"), at)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *AttendanceRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) ([]models.AttendanceEvent, error) {
	var events []models.AttendanceEvent
	query := `
		SELECT id, ticket_number, day, scan_time
		FROM attendance_events
		WHERE ticket_number = $1
		ORDER BY day`

	rows, err := r.db.QueryContext(ctx, query, ticketNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.AttendanceEvent
		err := rows.Scan(
			&event.ID,
			&event.TicketNumber,
			&event.Day,
			&event.ScanTime,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
