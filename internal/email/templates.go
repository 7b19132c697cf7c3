package email

import (
	"fmt"
	"strings"
)

type ConfirmationEmail struct {
	Subject string
	Body    string
}

type ConfirmationDetails struct {
	TenantName   string
	CustomerName string
	Date         string
	Time         string
	Service      string
}

// BuildBookingConfirmation renders the confirmation sent after a booking
// commits.
func BuildBookingConfirmation(details ConfirmationDetails) ConfirmationEmail {
	tenantName := strings.TrimSpace(details.TenantName)
	if tenantName == "" {
		tenantName = "your provider"
	}
	customerName := strings.TrimSpace(details.CustomerName)
	if customerName == "" {
		customerName = "there"
	}

	subject := fmt.Sprintf("Appointment confirmed with %s", tenantName)

	lines := []string{
		fmt.Sprintf("Hi %s, your appointment is confirmed.", customerName),
		"",
		fmt.Sprintf("Provider: %s", tenantName),
		fmt.Sprintf("Date: %s", strings.TrimSpace(details.Date)),
		fmt.Sprintf("Time: %s", strings.TrimSpace(details.Time)),
	}
	if service := strings.TrimSpace(details.Service); service != "" {
		lines = append(lines, fmt.Sprintf("Service: %s", service))
	}

	return ConfirmationEmail{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}
