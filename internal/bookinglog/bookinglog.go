// Package bookinglog keeps the shop's own record of online bookings. The
// vendor system stays the source of truth for appointments; this log
// exists for reconciliation and the admin view when the vendor is
// unreachable.
package bookinglog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one committed booking.
type Entry struct {
	ID                 int64     `json:"id"`
	ConfirmationNumber string    `json:"confirmationNumber"`
	AppointmentID      string    `json:"appointmentId"`
	ServiceID          string    `json:"serviceId"`
	ServiceName        string    `json:"serviceName"`
	Department         string    `json:"department"`
	TechnicianID       string    `json:"technicianId"`
	CustomerName       string    `json:"customerName"`
	CustomerEmail      string    `json:"customerEmail,omitempty"`
	SlotStart          time.Time `json:"slotStart"`
	SlotEnd            time.Time `json:"slotEnd"`
	CreatedAt          time.Time `json:"createdAt"`
}

// DB is the pgx pool surface the repository uses. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists booking log rows.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("bookinglog: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

const insertEntry = `
INSERT INTO booking_log (
	confirmation_number, appointment_id, service_id, service_name,
	department, technician_id, customer_name, customer_email,
	slot_start, slot_end
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Record inserts one booking row.
func (r *Repository) Record(ctx context.Context, entry Entry) error {
	_, err := r.db.Exec(ctx, insertEntry,
		entry.ConfirmationNumber,
		entry.AppointmentID,
		entry.ServiceID,
		entry.ServiceName,
		entry.Department,
		entry.TechnicianID,
		entry.CustomerName,
		entry.CustomerEmail,
		entry.SlotStart,
		entry.SlotEnd,
	)
	if err != nil {
		return fmt.Errorf("bookinglog: insert: %w", err)
	}
	return nil
}

const listEntries = `
SELECT id, confirmation_number, appointment_id, service_id, service_name,
	department, technician_id, customer_name, customer_email,
	slot_start, slot_end, created_at
FROM booking_log
ORDER BY created_at DESC
LIMIT $1`

// List returns the most recent bookings, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, listEntries, limit)
	if err != nil {
		return nil, fmt.Errorf("bookinglog: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID,
			&e.ConfirmationNumber,
			&e.AppointmentID,
			&e.ServiceID,
			&e.ServiceName,
			&e.Department,
			&e.TechnicianID,
			&e.CustomerName,
			&e.CustomerEmail,
			&e.SlotStart,
			&e.SlotEnd,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("bookinglog: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookinglog: iterate: %w", err)
	}
	return entries, nil
}
