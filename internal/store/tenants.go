package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/db"
)

// TenantDefaults fills in tenant settings left unset in the row.
type TenantDefaults struct {
	SlotGranularityMinutes int
	DailyCapPerCustomer    int
	DefaultServiceMinutes  int
}

// Tenants implements booking.ConfigProvider. Tenant rows carry their
// calendar as JSON columns in several historical shapes; everything is
// normalized to booking.TenantConfig here, at the loading boundary, so
// the core only ever sees one shape.
type Tenants struct {
	db       *db.DB
	defaults TenantDefaults
}

func NewTenants(database *db.DB, defaults TenantDefaults) *Tenants {
	return &Tenants{db: database, defaults: defaults}
}

// Get returns the normalized config for a tenant, or nil when the tenant
// does not exist.
func (t *Tenants) Get(ctx context.Context, tenantID string) (*booking.TenantConfig, error) {
	var (
		name, daysRaw, hoursRaw, servicesRaw, granularityRaw string
		dailyCap                                             int
	)
	err := t.db.QueryRowContext(ctx,
		"SELECT name, operating_days, operating_hours, services, slot_granularity, daily_cap_per_customer FROM tenants WHERE id = ?",
		tenantID,
	).Scan(&name, &daysRaw, &hoursRaw, &servicesRaw, &granularityRaw, &dailyCap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant %s: %w", tenantID, err)
	}

	days, err := normalizeDays(daysRaw)
	if err != nil {
		return nil, fmt.Errorf("tenant %s operating_days: %w", tenantID, err)
	}
	hours, err := normalizeHours(hoursRaw, days)
	if err != nil {
		return nil, fmt.Errorf("tenant %s operating_hours: %w", tenantID, err)
	}
	services, err := normalizeServices(servicesRaw)
	if err != nil {
		return nil, fmt.Errorf("tenant %s services: %w", tenantID, err)
	}
	granularity, err := normalizeGranularity(granularityRaw)
	if err != nil {
		return nil, fmt.Errorf("tenant %s slot_granularity: %w", tenantID, err)
	}
	if granularity == 0 {
		granularity = t.defaults.SlotGranularityMinutes
	}
	if dailyCap == 0 {
		dailyCap = t.defaults.DailyCapPerCustomer
	}

	return &booking.TenantConfig{
		ID:                     tenantID,
		Name:                   name,
		OperatingDays:          days,
		HoursByDay:             hours,
		Services:               services,
		SlotGranularityMinutes: granularity,
		DailyCapPerCustomer:    dailyCap,
		DefaultServiceMinutes:  t.defaults.DefaultServiceMinutes,
	}, nil
}

// AdminKeyHash returns the tenant's bcrypt admin-key hash. found is
// false when the tenant does not exist; an empty hash means no key has
// been configured yet.
func (t *Tenants) AdminKeyHash(ctx context.Context, tenantID string) (hash string, found bool, err error) {
	err = t.db.QueryRowContext(ctx,
		"SELECT admin_key_hash FROM tenants WHERE id = ?", tenantID,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query tenant %s: %w", tenantID, err)
	}
	return hash, true, nil
}

// SetAdminKeyHash stores a new admin-key hash for a tenant.
func (t *Tenants) SetAdminKeyHash(ctx context.Context, tenantID, hash string) error {
	result, err := t.db.ExecContext(ctx,
		"UPDATE tenants SET admin_key_hash = ? WHERE id = ?", hash, tenantID,
	)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", tenantID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tenant %s not found", tenantID)
	}
	return nil
}

// weekdayNames accepts the day names found in legacy tenant rows.
var weekdayNames = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// normalizeDays accepts either a weekday index array ([1,2,3,4,5]) or
// the legacy name-keyed map ({"lunes": true, ...}).
func normalizeDays(raw string) (map[time.Weekday]bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[time.Weekday]bool{}, nil
	}

	var indices []int
	if err := json.Unmarshal([]byte(raw), &indices); err == nil {
		days := make(map[time.Weekday]bool, len(indices))
		for _, i := range indices {
			if i < 0 || i > 6 {
				return nil, fmt.Errorf("weekday index %d out of range", i)
			}
			days[time.Weekday(i)] = true
		}
		return days, nil
	}

	var byName map[string]bool
	if err := json.Unmarshal([]byte(raw), &byName); err != nil {
		return nil, fmt.Errorf("unrecognized shape: %w", err)
	}
	days := make(map[time.Weekday]bool, len(byName))
	for name, enabled := range byName {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday name %q", name)
		}
		if enabled {
			days[wd] = true
		}
	}
	return days, nil
}

// dayHoursJSON covers both per-day shapes: {"open": "09:00", "close":
// "18:00"} and the legacy {"inicio": 9, "fin": 18} hour-of-day pair.
type dayHoursJSON struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Inicio *int   `json:"inicio"`
	Fin    *int   `json:"fin"`
}

// globalHoursJSON is the legacy single-window shape applied to every
// operating day.
type globalHoursJSON struct {
	Apertura string `json:"apertura"`
	Cierre   string `json:"cierre"`
}

// normalizeHours accepts a weekday-keyed map of windows or the legacy
// global apertura/cierre pair, which fans out to all operating days.
func normalizeHours(raw string, days map[time.Weekday]bool) (map[time.Weekday]booking.DayWindow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return map[time.Weekday]booking.DayWindow{}, nil
	}

	var byDay map[string]dayHoursJSON
	if err := json.Unmarshal([]byte(raw), &byDay); err == nil {
		hours := make(map[time.Weekday]booking.DayWindow, len(byDay))
		for key, entry := range byDay {
			index, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil || index < 0 || index > 6 {
				return nil, fmt.Errorf("invalid weekday key %q", key)
			}
			window, err := entry.window()
			if err != nil {
				return nil, fmt.Errorf("weekday %s: %w", key, err)
			}
			hours[time.Weekday(index)] = window
		}
		return hours, nil
	}

	var global globalHoursJSON
	if err := json.Unmarshal([]byte(raw), &global); err != nil {
		return nil, fmt.Errorf("unrecognized shape: %w", err)
	}
	open, err := parseClock(global.Apertura)
	if err != nil {
		return nil, fmt.Errorf("apertura: %w", err)
	}
	closeAt, err := parseClock(global.Cierre)
	if err != nil {
		return nil, fmt.Errorf("cierre: %w", err)
	}
	if open >= closeAt {
		return nil, fmt.Errorf("apertura %s must be before cierre %s", global.Apertura, global.Cierre)
	}
	hours := make(map[time.Weekday]booking.DayWindow, len(days))
	for wd := range days {
		hours[wd] = booking.DayWindow{Open: open, Close: closeAt}
	}
	return hours, nil
}

func (h dayHoursJSON) window() (booking.DayWindow, error) {
	if h.Inicio != nil && h.Fin != nil {
		if *h.Inicio < 0 || *h.Fin > 24 || *h.Inicio >= *h.Fin {
			return booking.DayWindow{}, fmt.Errorf("invalid inicio/fin pair %d-%d", *h.Inicio, *h.Fin)
		}
		return booking.DayWindow{Open: *h.Inicio * 60, Close: *h.Fin * 60}, nil
	}
	open, err := parseClock(h.Open)
	if err != nil {
		return booking.DayWindow{}, fmt.Errorf("open: %w", err)
	}
	closeAt, err := parseClock(h.Close)
	if err != nil {
		return booking.DayWindow{}, fmt.Errorf("close: %w", err)
	}
	if open >= closeAt {
		return booking.DayWindow{}, fmt.Errorf("open %s must be before close %s", h.Open, h.Close)
	}
	return booking.DayWindow{Open: open, Close: closeAt}, nil
}

func normalizeServices(raw string) (map[string]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]int{}, nil
	}
	var services map[string]int
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return nil, fmt.Errorf("unrecognized shape: %w", err)
	}
	for name, minutes := range services {
		if minutes <= 0 {
			return nil, fmt.Errorf("service %q duration must be positive", name)
		}
	}
	if services == nil {
		services = map[string]int{}
	}
	return services, nil
}

// normalizeGranularity accepts plain minutes ("15") or the legacy HH:MM
// interval ("00:30"). Empty means unset.
func normalizeGranularity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if strings.Contains(raw, ":") {
		minutes, err := parseClock(raw)
		if err != nil {
			return 0, err
		}
		if minutes <= 0 {
			return 0, fmt.Errorf("interval %q must be positive", raw)
		}
		return minutes, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid minutes %q", raw)
	}
	return minutes, nil
}

// parseClock converts HH:MM to minutes from midnight.
func parseClock(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
