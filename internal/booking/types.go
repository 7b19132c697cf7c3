// Package booking holds the slot-allocation core: availability
// computation, admission validation, and the scheduling service that
// commits bookings against a store.
package booking

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceMinutes applies when a booking names no service or an
	// unknown one.
	DefaultServiceMinutes = 30
	// DefaultSlotGranularityMinutes is the candidate start-time step.
	DefaultSlotGranularityMinutes = 15
	// DefaultDailyCapPerCustomer limits bookings per (tenant, date, email).
	DefaultDailyCapPerCustomer = 2

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// DayWindow is a tenant's booking window for one weekday, in minutes from
// midnight. Open is inclusive, Close exclusive.
type DayWindow struct {
	Open  int
	Close int
}

// TenantConfig describes a tenant's operating calendar and service
// catalog. It is read-only to this package.
type TenantConfig struct {
	ID            string
	Name          string
	OperatingDays map[time.Weekday]bool
	HoursByDay    map[time.Weekday]DayWindow
	// Services maps service name to duration in minutes.
	Services map[string]int
	// SlotGranularityMinutes defaults to DefaultSlotGranularityMinutes
	// when zero.
	SlotGranularityMinutes int
	// DailyCapPerCustomer defaults to DefaultDailyCapPerCustomer when zero.
	DailyCapPerCustomer int
	// DefaultServiceMinutes defaults to the package constant when zero.
	DefaultServiceMinutes int
}

func (c *TenantConfig) granularity() int {
	if c.SlotGranularityMinutes > 0 {
		return c.SlotGranularityMinutes
	}
	return DefaultSlotGranularityMinutes
}

func (c *TenantConfig) dailyCap() int {
	if c.DailyCapPerCustomer > 0 {
		return c.DailyCapPerCustomer
	}
	return DefaultDailyCapPerCustomer
}

func (c *TenantConfig) defaultDuration() int {
	if c.DefaultServiceMinutes > 0 {
		return c.DefaultServiceMinutes
	}
	return DefaultServiceMinutes
}

// serviceDuration resolves a service name to minutes, falling back to the
// default for empty or unknown names. Callers that must distinguish an
// unknown service check Services membership themselves.
func (c *TenantConfig) serviceDuration(service string) int {
	if service == "" {
		return c.defaultDuration()
	}
	if d, ok := c.Services[service]; ok && d > 0 {
		return d
	}
	return c.defaultDuration()
}

// Booking is a committed appointment. Records are never mutated after
// creation; removal is an explicit hard delete.
type Booking struct {
	ID            int64     `json:"id"`
	TenantID      string    `json:"tenantId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Service       string    `json:"service,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Candidate is a booking request prior to validation.
type Candidate struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string
	Time          string
	Service       string
}

// RejectReason classifies expected, user-facing booking rejections.
type RejectReason string

const (
	ReasonTenantUnknown         RejectReason = "tenant_unknown"
	ReasonUnknownService        RejectReason = "unknown_service"
	ReasonOutsideOperatingHours RejectReason = "outside_operating_hours"
	ReasonDailyCapExceeded      RejectReason = "daily_cap_exceeded"
	ReasonSlotTaken             RejectReason = "slot_taken"
)

// RejectionError is returned for admission failures. Rejections are
// terminal for the given input; retrying the same request cannot succeed.
type RejectionError struct {
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("booking rejected: %s", e.Reason)
}

// Reject builds a RejectionError for the given reason.
func Reject(reason RejectReason) error {
	return &RejectionError{Reason: reason}
}

// RejectionFrom extracts a RejectionError from err, if present.
func RejectionFrom(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// ErrUniquenessViolation is returned by stores when an insert collides
// with an existing (tenant, date, time) row. The scheduling service maps
// it to a slot-taken rejection.
var ErrUniquenessViolation = errors.New("booking slot uniqueness violation")

// parseDate returns the weekday for an ISO date. Dates are tenant-local
// wall clock; no timezone conversion happens anywhere in the core.
func parseDate(date string) (time.Weekday, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Weekday(), nil
}

// parseMinutes converts an HH:MM string to minutes from midnight.
func parseMinutes(hhmm string) (int, error) {
	t, err := time.Parse(timeLayout, hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// formatMinutes converts minutes from midnight to HH:MM.
func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
