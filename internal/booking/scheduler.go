package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const notifyTimeout = 5 * time.Second

// ConfigProvider loads tenant configuration. A nil config with a nil
// error means the tenant does not exist. Implementations must be safe
// for concurrent reads.
type ConfigProvider interface {
	Get(ctx context.Context, tenantID string) (*TenantConfig, error)
}

// BookingStore is the durable set of bookings per tenant. Insert must
// enforce uniqueness of (tenant, date, time) and return
// ErrUniquenessViolation on collision; that constraint is what resolves
// the validate-then-insert race across concurrent callers and across
// service instances.
type BookingStore interface {
	ListByTenantAndDate(ctx context.Context, tenantID, date string) ([]Booking, error)
	Insert(ctx context.Context, tenantID string, c Candidate) (Booking, error)
	Delete(ctx context.Context, tenantID, date, timeOfDay string) (int64, error)
}

// Confirmation is emitted after a booking commits.
type Confirmation struct {
	TenantID   string
	TenantName string
	Booking    Booking
}

// NotificationSink receives booking confirmations. Delivery is
// best-effort; a failed notification never affects the booking.
type NotificationSink interface {
	Notify(ctx context.Context, c Confirmation) error
}

// Service orchestrates validation and persistence of bookings.
type Service struct {
	configs  ConfigProvider
	store    BookingStore
	notifier NotificationSink
}

// NewService builds a scheduling service. notifier may be nil.
func NewService(configs ConfigProvider, store BookingStore, notifier NotificationSink) *Service {
	return &Service{
		configs:  configs,
		store:    store,
		notifier: notifier,
	}
}

// FreeSlots returns the bookable start times for a tenant, date, and
// optional service name.
func (s *Service) FreeSlots(ctx context.Context, tenantID, date, service string) ([]string, error) {
	cfg, err := s.loadConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListByTenantAndDate(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return FreeSlots(cfg, existing, date, service)
}

// BookedTimes returns the start times already taken for a tenant and
// date, in store order.
func (s *Service) BookedTimes(ctx context.Context, tenantID, date string) ([]string, error) {
	if _, err := s.loadConfig(ctx, tenantID); err != nil {
		return nil, err
	}
	existing, err := s.store.ListByTenantAndDate(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	times := make([]string, 0, len(existing))
	for _, b := range existing {
		times = append(times, b.Time)
	}
	return times, nil
}

// Book validates and commits a candidate booking. At most one call can
// succeed for a given (tenant, date, time): the store's uniqueness
// constraint decides the winner when concurrent candidates pass
// validation, and the loser sees a slot-taken rejection.
//
// Once the insert commits the booking stands, even if the caller's
// context is cancelled afterwards. Confirmation delivery runs detached
// from the request.
func (s *Service) Book(ctx context.Context, tenantID string, c Candidate) (Booking, error) {
	cfg, err := s.loadConfig(ctx, tenantID)
	if err != nil {
		return Booking{}, err
	}

	existing, err := s.store.ListByTenantAndDate(ctx, tenantID, c.Date)
	if err != nil {
		return Booking{}, fmt.Errorf("list bookings: %w", err)
	}

	normalized, err := Validate(cfg, existing, c)
	if err != nil {
		return Booking{}, err
	}

	booked, err := s.store.Insert(ctx, tenantID, normalized)
	if err != nil {
		if errors.Is(err, ErrUniquenessViolation) {
			return Booking{}, Reject(ReasonSlotTaken)
		}
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	s.notifyConfirmed(cfg, booked)
	return booked, nil
}

// Cancel removes the booking at (tenant, date, time) and reports how many
// rows were removed. Zero is not an error.
func (s *Service) Cancel(ctx context.Context, tenantID, date, timeOfDay string) (int64, error) {
	if _, err := s.loadConfig(ctx, tenantID); err != nil {
		return 0, err
	}
	removed, err := s.store.Delete(ctx, tenantID, date, timeOfDay)
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	return removed, nil
}

func (s *Service) loadConfig(ctx context.Context, tenantID string) (*TenantConfig, error) {
	cfg, err := s.configs.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant config: %w", err)
	}
	if cfg == nil {
		return nil, Reject(ReasonTenantUnknown)
	}
	return cfg, nil
}

// notifyConfirmed hands the confirmation to the sink on a detached
// context. The booking is already committed; a notification failure is
// logged and otherwise dropped.
func (s *Service) notifyConfirmed(cfg *TenantConfig, booked Booking) {
	if s.notifier == nil {
		return
	}
	confirmation := Confirmation{
		TenantID:   cfg.ID,
		TenantName: cfg.Name,
		Booking:    booked,
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(sendCtx, confirmation); err != nil {
			log.Error().
				Err(err).
				Str("tenant_id", confirmation.TenantID).
				Int64("booking_id", confirmation.Booking.ID).
				Msg("Failed to deliver booking confirmation")
		}
	}()
}
