package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConfigs struct {
	cfg *TenantConfig
}

func (f fakeConfigs) Get(_ context.Context, tenantID string) (*TenantConfig, error) {
	if f.cfg != nil && f.cfg.ID == tenantID {
		return f.cfg, nil
	}
	return nil, nil
}

// memStore mimics the real store's uniqueness guarantee with a mutex.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []Booking
}

func (s *memStore) ListByTenantAndDate(_ context.Context, tenantID, date string) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.rows {
		if b.TenantID == tenantID && b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, tenantID string, c Candidate) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.TenantID == tenantID && b.Date == c.Date && b.Time == c.Time {
			return Booking{}, ErrUniquenessViolation
		}
	}
	s.nextID++
	b := Booking{
		ID:            s.nextID,
		TenantID:      tenantID,
		CustomerName:  c.CustomerName,
		CustomerEmail: c.CustomerEmail,
		CustomerPhone: c.CustomerPhone,
		Date:          c.Date,
		Time:          c.Time,
		Service:       c.Service,
		CreatedAt:     time.Now().UTC(),
	}
	s.rows = append(s.rows, b)
	return b, nil
}

func (s *memStore) Delete(_ context.Context, tenantID, date, timeOfDay string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Booking
	var removed int64
	for _, b := range s.rows {
		if b.TenantID == tenantID && b.Date == date && b.Time == timeOfDay {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	s.rows = kept
	return removed, nil
}

type recordingSink struct {
	mu            sync.Mutex
	confirmations []Confirmation
	notified      chan struct{}
	err           error
}

func newRecordingSink(err error) *recordingSink {
	return &recordingSink{notified: make(chan struct{}, 16), err: err}
}

func (s *recordingSink) Notify(_ context.Context, c Confirmation) error {
	s.mu.Lock()
	s.confirmations = append(s.confirmations, c)
	s.mu.Unlock()
	s.notified <- struct{}{}
	return s.err
}

func newTestService(sink NotificationSink) (*Service, *memStore) {
	store := &memStore{}
	return NewService(fakeConfigs{cfg: weekdayConfig()}, store, sink), store
}

func TestBookCommitsAndNotifies(t *testing.T) {
	sink := newRecordingSink(nil)
	svc, store := newTestService(sink)

	booked, err := svc.Book(context.Background(), "dentista-jorge", candidateAt("09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if booked.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 stored booking, got %d", len(store.rows))
	}

	select {
	case <-sink.notified:
	case <-time.After(2 * time.Second):
		t.Fatalf("confirmation not delivered")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.confirmations[0].TenantName != "Consultorio Dental Dr. Jorge" {
		t.Fatalf("tenant name: %s", sink.confirmations[0].TenantName)
	}
}

func TestBookTenantUnknown(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.Book(context.Background(), "nadie", candidateAt("09:00"))
	rej, ok := RejectionFrom(err)
	if !ok || rej.Reason != ReasonTenantUnknown {
		t.Fatalf("expected tenant unknown, got %v", err)
	}
}

func TestBookSecondAttemptSlotTaken(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, "dentista-jorge", candidateAt("09:00")); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	second := candidateAt("09:00")
	second.CustomerEmail = "luis@example.com"
	_, err := svc.Book(ctx, "dentista-jorge", second)
	rej, ok := RejectionFrom(err)
	if !ok || rej.Reason != ReasonSlotTaken {
		t.Fatalf("expected slot taken, got %v", err)
	}
}

func TestBookConcurrentSameSlotExactlyOneWins(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := candidateAt("10:00")
			c.CustomerEmail = "racer" + string(rune('a'+i)) + "@example.com"
			_, errs[i] = svc.Book(ctx, "dentista-jorge", c)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		rej, ok := RejectionFrom(err)
		if !ok || rej.Reason != ReasonSlotTaken {
			t.Fatalf("loser should see slot taken, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 stored booking, got %d", len(store.rows))
	}
}

func TestBookNotificationFailureKeepsBooking(t *testing.T) {
	sink := newRecordingSink(errors.New("smtp down"))
	svc, store := newTestService(sink)

	_, err := svc.Book(context.Background(), "dentista-jorge", candidateAt("11:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	select {
	case <-sink.notified:
	case <-time.After(2 * time.Second):
		t.Fatalf("sink never invoked")
	}
	if len(store.rows) != 1 {
		t.Fatalf("booking must survive a failed notification")
	}
}

func TestCancelReportsRemovedCount(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, "dentista-jorge", candidateAt("09:00")); err != nil {
		t.Fatalf("book: %v", err)
	}

	removed, err := svc.Cancel(ctx, "dentista-jorge", "2024-06-03", "09:00")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed: %d", removed)
	}

	removed, err = svc.Cancel(ctx, "dentista-jorge", "2024-06-03", "09:00")
	if err != nil {
		t.Fatalf("cancel again: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second cancel removed: %d", removed)
	}
}

func TestFreeSlotsThroughService(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	slots, err := svc.FreeSlots(ctx, "dentista-jorge", "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 35 {
		t.Fatalf("expected 35 slots, got %d", len(slots))
	}

	if _, err := svc.Book(ctx, "dentista-jorge", candidateAt("09:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	slots, err = svc.FreeSlots(ctx, "dentista-jorge", "2024-06-03", "cut")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(slots) != 33 {
		t.Fatalf("expected 33 slots after booking, got %d", len(slots))
	}
}

func TestBookedTimes(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for _, at := range []string{"09:00", "11:30"} {
		c := candidateAt(at)
		if _, err := svc.Book(ctx, "dentista-jorge", c); err != nil {
			t.Fatalf("book %s: %v", at, err)
		}
	}

	booked, err := svc.BookedTimes(ctx, "dentista-jorge", "2024-06-03")
	if err != nil {
		t.Fatalf("booked times: %v", err)
	}
	if len(booked) != 2 || booked[0] != "09:00" || booked[1] != "11:30" {
		t.Fatalf("booked: %v", booked)
	}
}
