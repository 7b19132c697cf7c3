package booking

import "strings"

// Validate runs the admission checks for a candidate booking against the
// bookings already on record for the candidate's date. Checks run in a
// fixed order and short-circuit on the first failure.
//
// Two checks are deliberately laxer than the availability engine, for
// compatibility with the system this replaces: the operating-hours check
// inspects only the candidate's start time (not start+duration), and the
// slot-taken check is an exact (date, time) match rather than an interval
// overlap. The storage uniqueness constraint backstops the latter, so the
// asymmetry can never produce a double insert.
//
// On success the returned candidate is normalized and ready for
// persistence.
func Validate(cfg *TenantConfig, existing []Booking, c Candidate) (Candidate, error) {
	if cfg == nil {
		return Candidate{}, Reject(ReasonTenantUnknown)
	}

	normalized, err := normalize(c)
	if err != nil {
		return Candidate{}, err
	}

	weekday, err := parseDate(normalized.Date)
	if err != nil {
		return Candidate{}, err
	}
	if !cfg.OperatingDays[weekday] {
		return Candidate{}, Reject(ReasonOutsideOperatingHours)
	}
	window, ok := cfg.HoursByDay[weekday]
	if !ok {
		return Candidate{}, Reject(ReasonOutsideOperatingHours)
	}
	start, err := parseMinutes(normalized.Time)
	if err != nil {
		return Candidate{}, err
	}
	if start < window.Open || start >= window.Close {
		return Candidate{}, Reject(ReasonOutsideOperatingHours)
	}

	sameCustomer := 0
	for _, b := range existing {
		if b.Date == normalized.Date && strings.EqualFold(b.CustomerEmail, normalized.CustomerEmail) {
			sameCustomer++
		}
	}
	if sameCustomer >= cfg.dailyCap() {
		return Candidate{}, Reject(ReasonDailyCapExceeded)
	}

	for _, b := range existing {
		if b.Date == normalized.Date && b.Time == normalized.Time {
			return Candidate{}, Reject(ReasonSlotTaken)
		}
	}

	return normalized, nil
}

// normalize trims contact fields and reformats the start time so that
// "9:00" and "09:00" land on the same stored value.
func normalize(c Candidate) (Candidate, error) {
	start, err := parseMinutes(strings.TrimSpace(c.Time))
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		CustomerName:  strings.TrimSpace(c.CustomerName),
		CustomerEmail: strings.TrimSpace(c.CustomerEmail),
		CustomerPhone: strings.TrimSpace(c.CustomerPhone),
		Date:          strings.TrimSpace(c.Date),
		Time:          formatMinutes(start),
		Service:       strings.TrimSpace(c.Service),
	}, nil
}
