// Package store provides the SQLite-backed booking store and tenant
// config provider.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/db"
)

// Bookings implements booking.BookingStore on SQLite. The unique index
// on (tenant_id, date, time) provides the at-most-one-winner guarantee
// the scheduling service depends on, and keeps it correct across
// multiple service instances sharing the database.
type Bookings struct {
	db *db.DB
}

func NewBookings(database *db.DB) *Bookings {
	return &Bookings{db: database}
}

const bookingColumns = "id, tenant_id, customer_name, customer_email, customer_phone, date, time, service, created_at"

func (s *Bookings) ListByTenantAndDate(ctx context.Context, tenantID, date string) ([]booking.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE tenant_id = ? AND date = ? ORDER BY time ASC, id ASC",
		tenantID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByTenant returns every booking for a tenant, ordered by date and
// time. Used by the admin panel.
func (s *Bookings) ListByTenant(ctx context.Context, tenantID string) ([]booking.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE tenant_id = ? ORDER BY date ASC, time ASC, id ASC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *Bookings) Insert(ctx context.Context, tenantID string, c booking.Candidate) (booking.Booking, error) {
	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO bookings (tenant_id, customer_name, customer_email, customer_phone, date, time, service, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		tenantID, c.CustomerName, c.CustomerEmail, c.CustomerPhone, c.Date, c.Time, c.Service, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return booking.Booking{}, fmt.Errorf("insert booking: %w", booking.ErrUniquenessViolation)
		}
		return booking.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return booking.Booking{}, fmt.Errorf("booking id: %w", err)
	}
	return booking.Booking{
		ID:            id,
		TenantID:      tenantID,
		CustomerName:  c.CustomerName,
		CustomerEmail: c.CustomerEmail,
		CustomerPhone: c.CustomerPhone,
		Date:          c.Date,
		Time:          c.Time,
		Service:       c.Service,
		CreatedAt:     createdAt,
	}, nil
}

func (s *Bookings) Delete(ctx context.Context, tenantID, date, timeOfDay string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM bookings WHERE tenant_id = ? AND date = ? AND time = ?",
		tenantID, date, timeOfDay,
	)
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// DeleteBefore removes bookings dated strictly before cutoffDate
// (ISO date). ISO dates order lexicographically, so string comparison
// suffices. Used by the nightly retention job.
func (s *Bookings) DeleteBefore(ctx context.Context, cutoffDate string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM bookings WHERE date < ?", cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("purge bookings: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func scanBookings(rows *sql.Rows) ([]booking.Booking, error) {
	var out []booking.Booking
	for rows.Next() {
		var b booking.Booking
		if err := rows.Scan(&b.ID, &b.TenantID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.Date, &b.Time, &b.Service, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
