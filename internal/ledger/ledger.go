// Package ledger persists parking entry/exit/payment records in PostgreSQL.
// The pipeline never touches this package; it only consumes the plate strings
// the gates hand over.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Ledger manages the PostgreSQL connection and the parking records.
type Ledger struct {
	conn *pgx.Conn
}

// Record is one parking stay. ExitTime is nil while the vehicle is inside.
type Record struct {
	ID        int64
	Plate     string
	EntryTime time.Time
	ExitTime  *time.Time
	Paid      bool
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Ledger, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Ledger{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS parking_records (
			id BIGSERIAL PRIMARY KEY,
			plate TEXT NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			exit_time TIMESTAMPTZ,
			paid BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS parking_records_plate_idx ON parking_records (plate);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (l *Ledger) Close(ctx context.Context) {
	l.conn.Close(ctx)
}

// RecordEntry logs a vehicle at the entrance gate. A vehicle with an open
// stay (no exit yet) is not logged twice; the returned message is
// human-readable either way.
func (l *Ledger) RecordEntry(ctx context.Context, plate string) (string, error) {
	var id int64
	err := l.conn.QueryRow(ctx,
		"SELECT id FROM parking_records WHERE plate = $1 AND exit_time IS NULL LIMIT 1",
		plate).Scan(&id)
	if err == nil {
		return fmt.Sprintf("Car %s is already inside.", plate), nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}

	_, err = l.conn.Exec(ctx,
		"INSERT INTO parking_records (plate) VALUES ($1)", plate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Entry recorded for %s", plate), nil
}

// MarkPaid settles the open stay for a plate. Reports whether a record was found.
func (l *Ledger) MarkPaid(ctx context.Context, plate string) (bool, error) {
	tag, err := l.conn.Exec(ctx,
		"UPDATE parking_records SET paid = TRUE WHERE plate = $1 AND exit_time IS NULL",
		plate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordExit verifies payment and closes the stay. The boolean reports
// whether the gate opens; the message explains the outcome either way.
func (l *Ledger) RecordExit(ctx context.Context, plate string) (bool, string, error) {
	var id int64
	var paid bool
	err := l.conn.QueryRow(ctx, `
		SELECT id, paid FROM parking_records
		WHERE plate = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC LIMIT 1
	`, plate).Scan(&id, &paid)

	if err == pgx.ErrNoRows {
		// Distinguish a vehicle that already left from one never seen.
		var count int
		if err := l.conn.QueryRow(ctx,
			"SELECT COUNT(*) FROM parking_records WHERE plate = $1", plate).Scan(&count); err != nil {
			return false, "", err
		}
		if count > 0 {
			return false, fmt.Sprintf("Vehicle %s has already exited.", plate), nil
		}
		return false, "Vehicle record not found!", nil
	}
	if err != nil {
		return false, "", err
	}

	if !paid {
		return false, "Please pay your ticket!", nil
	}

	_, err = l.conn.Exec(ctx,
		"UPDATE parking_records SET exit_time = NOW() WHERE id = $1", id)
	if err != nil {
		return false, "", err
	}
	return true, fmt.Sprintf("Exit recorded for %s. Gate opening...", plate), nil
}

// ListRecords returns all stays, newest entry first, for the dashboard table.
func (l *Ledger) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := l.conn.Query(ctx, `
		SELECT id, plate, entry_time, exit_time, paid
		FROM parking_records ORDER BY entry_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Plate, &r.EntryTime, &r.ExitTime, &r.Paid); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Reset drops the records table to clear all state.
// This is useful for development to force a schema refresh without migrations.
func (l *Ledger) Reset(ctx context.Context) error {
	_, err := l.conn.Exec(ctx, "DROP TABLE IF EXISTS parking_records CASCADE")
	return err
}
