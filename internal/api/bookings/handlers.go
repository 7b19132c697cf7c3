// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"net/mail"
	"strconv"
	"sync"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rmarchetti/turnera/internal/api/apiutil"
	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/ratelimit"
)

const (
	bookingQueryTimeout = 5 * time.Second
	tenantQueryKey      = "tenant"
	dateQueryKey        = "date"
	timeQueryKey        = "time"
	serviceQueryKey     = "service"

	// Region used to resolve nationally formatted phone numbers.
	defaultPhoneRegion = "AR"
)

// adminKeyStore resolves the stored admin key hash for a tenant. The
// second return reports whether the tenant exists.
type adminKeyStore interface {
	AdminKeyHash(ctx context.Context, tenantID string) (string, bool, error)
}

var (
	service    *booking.Service
	adminKeys  adminKeyStore
	limiter    *ratelimit.Limiter
	trustProxy bool
	initOnce   sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// l may be nil to disable submission throttling.
func InitHandlers(s *booking.Service, keys adminKeyStore, l *ratelimit.Limiter, proxied bool) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		service = s
		adminKeys = keys
		limiter = l
		trustProxy = proxied
	})
}

type bookingRequest struct {
	Tenant  string `json:"tenant"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Service string `json:"service"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// GET /api/availability?tenant=&date=&service=
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tenantID, err := apiutil.RequireQueryParam(r, tenantQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateField(r.URL.Query().Get(dateQueryKey), dateQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	serviceName := r.URL.Query().Get(serviceQueryKey)

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	slots, err := service.FreeSlots(ctx, tenantID, date, serviceName)
	if err != nil {
		writeBookingError(w, logger, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// GET /api/booked?tenant=&date=
func HandleBookedTimes(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tenantID, err := apiutil.RequireQueryParam(r, tenantQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateField(r.URL.Query().Get(dateQueryKey), dateQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	times, err := service.BookedTimes(ctx, tenantID, date)
	if err != nil {
		writeBookingError(w, logger, err)
		return
	}
	if times == nil {
		times = []string{}
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"booked": times})
}

// POST /api/book
func HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tenantID, err := apiutil.RequireField(req.Tenant, "tenant")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateField(req.Date, "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	timeOfDay, err := apiutil.ParseTimeField(req.Time, "time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, err := apiutil.RequireField(req.Name, "name")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email, err := apiutil.RequireField(req.Email, "email")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		http.Error(w, "email must be a valid address", http.StatusBadRequest)
		return
	}
	phone, err := apiutil.RequireField(req.Phone, "phone")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	clientIP := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		result := limiter.CheckSubmit(email, clientIP)
		if !result.Allowed {
			ratelimit.LogRateLimitExceeded(email, clientIP, result.Reason)
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			_ = apiutil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"reason": "rate_limited",
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	booked, err := service.Book(ctx, tenantID, booking.Candidate{
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: normalizePhone(phone),
		Date:          date,
		Time:          timeOfDay,
		Service:       req.Service,
	})
	if err != nil {
		writeBookingError(w, logger, err)
		return
	}

	if limiter != nil {
		limiter.RecordSubmit(email, clientIP)
	}
	logger.Info().
		Str("tenant_id", tenantID).
		Str("date", booked.Date).
		Str("time", booked.Time).
		Int64("booking_id", booked.ID).
		Msg("Booking created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, booked)
}

// DELETE /api/book?tenant=&date=&time=
func HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil || adminKeys == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tenantID, err := apiutil.RequireQueryParam(r, tenantQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateField(r.URL.Query().Get(dateQueryKey), dateQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	timeOfDay, err := apiutil.ParseTimeField(r.URL.Query().Get(timeQueryKey), timeQueryKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	hash, found, err := adminKeys.AdminKeyHash(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load admin key")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !found {
		_ = apiutil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"reason": string(booking.ReasonTenantUnknown),
		})
		return
	}
	if hash == "" {
		http.Error(w, "Admin access not configured", http.StatusForbidden)
		return
	}
	if !apiutil.VerifyAdminKey(hash, apiutil.AdminKeyFromRequest(r)) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	removed, err := service.Cancel(ctx, tenantID, date, timeOfDay)
	if err != nil {
		writeBookingError(w, logger, err)
		return
	}
	logger.Info().
		Str("tenant_id", tenantID).
		Str("date", date).
		Str("time", timeOfDay).
		Int64("removed", removed).
		Msg("Booking cancelled")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// writeBookingError maps domain rejections to HTTP statuses; anything
// else is an internal error.
func writeBookingError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	if rej, ok := booking.RejectionFrom(err); ok {
		status := http.StatusBadRequest
		if rej.Reason == booking.ReasonTenantUnknown {
			status = http.StatusNotFound
		}
		_ = apiutil.WriteJSON(w, status, map[string]string{"reason": string(rej.Reason)})
		return
	}
	logger.Error().Err(err).Msg("Booking operation failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// normalizePhone stores phone numbers in E.164 when they parse as valid
// numbers; anything else passes through untouched.
func normalizePhone(raw string) string {
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
