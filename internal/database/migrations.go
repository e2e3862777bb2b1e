package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createRegistrationsTable,
		createGroupMembersTable,
		createAttendanceEventsTable,
		createRegistrationsPaymentIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    payment_status VARCHAR(30) NOT NULL DEFAULT 'PENDING',
    booking_kind VARCHAR(20) NOT NULL DEFAULT 'INDIVIDUAL',
    ticket_quantity INTEGER NOT NULL DEFAULT 1,
    ticket_generated BOOLEAN NOT NULL DEFAULT FALSE,
    ticket_number VARCHAR(64) UNIQUE,
    qr_payload BYTEA,
    is_scanned BOOLEAN NOT NULL DEFAULT FALSE,
    scanned_at TIMESTAMP,
    entry_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    email_sent_at TIMESTAMP,
    resend_count INTEGER NOT NULL DEFAULT 0,
    last_resent_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (payment_status IN ('PENDING', 'AWAITING_VERIFICATION', 'COMPLETED', 'FAILED')),
    CHECK (booking_kind IN ('INDIVIDUAL', 'GROUP_LEADER'))
);`

const createGroupMembersTable = `
CREATE TABLE IF NOT EXISTS group_members (
    id SERIAL PRIMARY KEY,
    registration_id INTEGER NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    member_index INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    ticket_number VARCHAR(64) UNIQUE,
    qr_payload BYTEA,
    is_scanned BOOLEAN NOT NULL DEFAULT FALSE,
    scanned_at TIMESTAMP,
    entry_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    email_sent_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(registration_id, member_index)
);`

const createAttendanceEventsTable = `
CREATE TABLE IF NOT EXISTS attendance_events (
    id SERIAL PRIMARY KEY,
    ticket_number VARCHAR(64) NOT NULL,
    day DATE NOT NULL,
    scan_time TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(ticket_number, day)
);`

const createRegistrationsPaymentIndex = `
CREATE INDEX IF NOT EXISTS registrations_payment_status_idx
ON registrations (payment_status);`
