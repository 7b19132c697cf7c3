package booking

// FreeSlots computes the bookable start times for a tenant on one date,
// given the bookings already on record for that date.
//
// A closed day yields an empty, non-error result. An unknown service is
// an error: callers asked for a duration the catalog cannot answer.
//
// Candidates are enumerated on a fixed grid from the day's opening time,
// so slot boundaries stay predictable regardless of how long adjacent
// bookings run. A candidate is free when its half-open interval
// [t, t+duration) overlaps no occupied interval. Existing bookings that
// fall outside the operating window (legacy rows, manual edits) still
// occupy their interval; they are masked against, never re-validated.
func FreeSlots(cfg *TenantConfig, existing []Booking, date, service string) ([]string, error) {
	if cfg == nil {
		return nil, Reject(ReasonTenantUnknown)
	}

	duration := cfg.defaultDuration()
	if service != "" {
		d, ok := cfg.Services[service]
		if !ok {
			return nil, Reject(ReasonUnknownService)
		}
		duration = d
	}

	weekday, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if !cfg.OperatingDays[weekday] {
		return nil, nil
	}
	window, ok := cfg.HoursByDay[weekday]
	if !ok {
		return nil, nil
	}

	occupied := occupiedIntervals(cfg, existing, date)

	granularity := cfg.granularity()
	var slots []string
	for t := window.Open; t+duration <= window.Close; t += granularity {
		if overlapsAny(occupied, t, t+duration) {
			continue
		}
		slots = append(slots, formatMinutes(t))
	}
	return slots, nil
}

type interval struct {
	start, end int
}

func occupiedIntervals(cfg *TenantConfig, existing []Booking, date string) []interval {
	var occupied []interval
	for _, b := range existing {
		if b.Date != date {
			continue
		}
		start, err := parseMinutes(b.Time)
		if err != nil {
			// Unparseable legacy rows cannot be placed on the timeline.
			continue
		}
		occupied = append(occupied, interval{
			start: start,
			end:   start + cfg.serviceDuration(b.Service),
		})
	}
	return occupied
}

// overlapsAny applies the half-open overlap test, which keeps bookings
// that merely touch at a boundary from conflicting.
func overlapsAny(occupied []interval, start, end int) bool {
	for _, o := range occupied {
		if start < o.end && end > o.start {
			return true
		}
	}
	return false
}
