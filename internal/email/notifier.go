package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rmarchetti/turnera/internal/booking"
)

// Notifier implements booking.NotificationSink by emailing the customer.
// The scheduling service already runs notifications detached with a
// bounded timeout, so delivery here is synchronous.
type Notifier struct {
	sender EmailSender
}

func NewNotifier(sender EmailSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Notify(ctx context.Context, c booking.Confirmation) error {
	if n == nil || n.sender == nil {
		return nil
	}
	recipient := strings.TrimSpace(c.Booking.CustomerEmail)
	if recipient == "" {
		return nil
	}

	msg := BuildBookingConfirmation(ConfirmationDetails{
		TenantName:   c.TenantName,
		CustomerName: c.Booking.CustomerName,
		Date:         c.Booking.Date,
		Time:         c.Booking.Time,
		Service:      c.Booking.Service,
	})
	if err := n.sender.Send(ctx, recipient, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}
