package email

import (
	"context"
	"strings"
	"testing"

	"github.com/rmarchetti/turnera/internal/booking"
)

type fakeSender struct {
	recipient, subject, body string
	calls                    int
}

func (f *fakeSender) Send(_ context.Context, recipient, subject, body string) error {
	f.calls++
	f.recipient = recipient
	f.subject = subject
	f.body = body
	return nil
}

func TestNotifyBuildsConfirmation(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender)

	err := notifier.Notify(context.Background(), booking.Confirmation{
		TenantID:   "dentista-jorge",
		TenantName: "Consultorio Dental Dr. Jorge",
		Booking: booking.Booking{
			CustomerName:  "Ana Gomez",
			CustomerEmail: "ana@example.com",
			Date:          "2024-06-03",
			Time:          "09:00",
			Service:       "consulta",
		},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sender.recipient != "ana@example.com" {
		t.Fatalf("recipient: %s", sender.recipient)
	}
	if !strings.Contains(sender.subject, "Consultorio Dental Dr. Jorge") {
		t.Fatalf("subject: %s", sender.subject)
	}
	for _, want := range []string{"Ana Gomez", "2024-06-03", "09:00", "consulta"} {
		if !strings.Contains(sender.body, want) {
			t.Fatalf("body missing %q:\n%s", want, sender.body)
		}
	}
}

func TestNotifySkipsEmptyRecipient(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender)

	err := notifier.Notify(context.Background(), booking.Confirmation{
		Booking: booking.Booking{CustomerEmail: "   "},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no send for empty recipient")
	}
}

func TestBuildBookingConfirmationOmitsEmptyService(t *testing.T) {
	msg := BuildBookingConfirmation(ConfirmationDetails{
		TenantName:   "Estética Vera Luna",
		CustomerName: "Luis",
		Date:         "2024-06-04",
		Time:         "10:00",
	})
	if strings.Contains(msg.Body, "Service:") {
		t.Fatalf("body should omit empty service:\n%s", msg.Body)
	}
}
