package booking

import (
	"testing"
	"time"
)

func weekdayConfig() *TenantConfig {
	days := map[time.Weekday]bool{}
	hours := map[time.Weekday]DayWindow{}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		days[wd] = true
		hours[wd] = DayWindow{Open: 9 * 60, Close: 18 * 60}
	}
	return &TenantConfig{
		ID:            "dentista-jorge",
		Name:          "Consultorio Dental Dr. Jorge",
		OperatingDays: days,
		HoursByDay:    hours,
		Services: map[string]int{
			"cut":      30,
			"cleaning": 60,
			"marathon": 600,
		},
		SlotGranularityMinutes: 15,
	}
}

func TestFreeSlotsOpenDay(t *testing.T) {
	cfg := weekdayConfig()

	slots, err := FreeSlots(cfg, nil, "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 35 {
		t.Fatalf("expected 35 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" {
		t.Fatalf("first slot: %s", slots[0])
	}
	if slots[len(slots)-1] != "17:30" {
		t.Fatalf("last slot: %s", slots[len(slots)-1])
	}
}

func TestFreeSlotsConfiguredDefaultDuration(t *testing.T) {
	cfg := weekdayConfig()
	cfg.DefaultServiceMinutes = 60

	// No service named: the tenant's configured default duration drives
	// both enumeration and masking.
	slots, err := FreeSlots(cfg, nil, "2024-06-03", "")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 33 {
		t.Fatalf("expected 33 slots, got %d", len(slots))
	}
	if slots[len(slots)-1] != "17:00" {
		t.Fatalf("last slot: %s", slots[len(slots)-1])
	}

	existing := []Booking{
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "09:00"},
	}
	slots, err = FreeSlots(cfg, existing, "2024-06-03", "")
	if err != nil {
		t.Fatalf("free slots with booking: %v", err)
	}
	if slots[0] != "10:00" {
		t.Fatalf("expected 60-minute mask, first slot: %s", slots[0])
	}
}

func TestFreeSlotsMasksOverlappingBooking(t *testing.T) {
	cfg := weekdayConfig()
	existing := []Booking{
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "09:00", Service: "cut"},
	}

	slots, err := FreeSlots(cfg, existing, "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 33 {
		t.Fatalf("expected 33 slots, got %d", len(slots))
	}
	if slots[0] != "09:30" {
		t.Fatalf("first slot after booking: %s", slots[0])
	}
	for _, s := range slots {
		if s == "09:00" || s == "09:15" {
			t.Fatalf("slot %s should be masked", s)
		}
	}
}

func TestFreeSlotsStrictlyIncreasing(t *testing.T) {
	cfg := weekdayConfig()
	existing := []Booking{
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "10:00", Service: "cleaning"},
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "14:30"},
	}

	slots, err := FreeSlots(cfg, existing, "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	prev := -1
	for _, s := range slots {
		m, err := parseMinutes(s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		if m <= prev {
			t.Fatalf("slots not strictly increasing at %s", s)
		}
		prev = m
	}
	// The 60-minute cleaning at 10:00 masks 09:45 through 10:45 starts.
	for _, s := range slots {
		switch s {
		case "09:45", "10:00", "10:15", "10:30", "10:45":
			t.Fatalf("slot %s overlaps the 10:00 cleaning", s)
		}
	}
}

func TestFreeSlotsClosedDayIsEmptyNotError(t *testing.T) {
	cfg := weekdayConfig()

	slots, err := FreeSlots(cfg, nil, "2024-06-02", "cut") // Sunday
	if err != nil {
		t.Fatalf("closed day should not error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a closed day, got %d", len(slots))
	}
}

func TestFreeSlotsUnknownService(t *testing.T) {
	cfg := weekdayConfig()

	_, err := FreeSlots(cfg, nil, "2024-06-03", "massage")
	rej, ok := RejectionFrom(err)
	if !ok || rej.Reason != ReasonUnknownService {
		t.Fatalf("expected unknown service rejection, got %v", err)
	}
}

func TestFreeSlotsServiceLongerThanWindow(t *testing.T) {
	cfg := weekdayConfig()

	slots, err := FreeSlots(cfg, nil, "2024-06-03", "marathon")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for a 600-minute service, got %d", len(slots))
	}
}

func TestFreeSlotsLegacyOutOfWindowBookingStillMasks(t *testing.T) {
	cfg := weekdayConfig()
	// A manually edited row before opening still occupies its interval.
	existing := []Booking{
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "08:45"},
	}

	slots, err := FreeSlots(cfg, existing, "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if slots[0] != "09:15" {
		t.Fatalf("expected 09:00 masked by the 08:45 row, first slot %s", slots[0])
	}
}

func TestFreeSlotsDefaultDurationForUnknownExistingService(t *testing.T) {
	cfg := weekdayConfig()
	// An existing booking with a service no longer in the catalog falls
	// back to the default duration when building occupied intervals.
	existing := []Booking{
		{TenantID: cfg.ID, Date: "2024-06-03", Time: "09:00", Service: "retired-service"},
	}

	slots, err := FreeSlots(cfg, existing, "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if slots[0] != "09:30" {
		t.Fatalf("first slot: %s", slots[0])
	}
}

func TestFreeSlotsNilConfig(t *testing.T) {
	_, err := FreeSlots(nil, nil, "2024-06-03", "cut")
	rej, ok := RejectionFrom(err)
	if !ok || rej.Reason != ReasonTenantUnknown {
		t.Fatalf("expected tenant unknown rejection, got %v", err)
	}
}
