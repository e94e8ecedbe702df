package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// BookingDetails carries everything the shop notification email includes.
type BookingDetails struct {
	ConfirmationNumber string
	ServiceName        string
	StartTime          time.Time
	EndTime            time.Time
	TechnicianName     string
	CustomerFirstName  string
	CustomerLastName   string
	CustomerEmail      string
	CustomerPhone      string
	VehicleYear        int
	VehicleMake        string
	VehicleModel       string
}

// Service sends booking notifications to the shop's notification address.
// A nil sender or empty address disables notifications without erroring.
type Service struct {
	sender            EmailSender
	notificationEmail string
	logger            *logging.Logger
}

// NewService builds the notification service.
func NewService(sender EmailSender, notificationEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, notificationEmail: notificationEmail, logger: logger}
}

// Enabled reports whether notifications will actually be delivered.
func (s *Service) Enabled() bool {
	return s.sender != nil && s.notificationEmail != ""
}

// SendBookingNotification emails the shop about a new booking. Failures are
// logged, never returned: a lost email must not fail the booking it
// describes.
func (s *Service) SendBookingNotification(ctx context.Context, booking BookingDetails) bool {
	if !s.Enabled() {
		s.logger.Debug("booking notification skipped", "reason", "email not configured")
		return false
	}

	subject, body := FormatBookingEmail(booking)
	err := s.sender.Send(ctx, EmailMessage{
		To:      s.notificationEmail,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		s.logger.Error("booking notification failed",
			"confirmation", booking.ConfirmationNumber,
			"error", err,
		)
		return false
	}
	s.logger.Info("booking notification sent",
		"confirmation", booking.ConfirmationNumber,
		"to", s.notificationEmail,
	)
	return true
}

const emailRule = "================================================================================"

// FormatBookingEmail renders the shop notification subject and plain-text
// body for a booking.
func FormatBookingEmail(b BookingDetails) (subject, body string) {
	dateStr := b.StartTime.Format("Monday, January 2, 2006")
	startStr := clock12(b.StartTime)
	endStr := clock12(b.EndTime)

	subject = fmt.Sprintf("Online Booking: %s - %s at %s", b.ServiceName, dateStr, startStr)

	techStr := b.TechnicianName
	if techStr == "" {
		techStr = "To be assigned"
	}
	customerEmail := b.CustomerEmail
	if customerEmail == "" {
		customerEmail = "Not provided"
	}
	customerPhone := b.CustomerPhone
	if customerPhone == "" {
		customerPhone = "Not provided"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", emailRule)
	fmt.Fprintf(&sb, "                          NEW ONLINE BOOKING\n")
	fmt.Fprintf(&sb, "%s\n\n", emailRule)
	fmt.Fprintf(&sb, "Confirmation: %s\n\n", b.ConfirmationNumber)
	fmt.Fprintf(&sb, "APPOINTMENT DETAILS\n-------------------\n")
	fmt.Fprintf(&sb, "Service:     %s\n", b.ServiceName)
	fmt.Fprintf(&sb, "Date:        %s\n", dateStr)
	fmt.Fprintf(&sb, "Time:        %s - %s\n", startStr, endStr)
	fmt.Fprintf(&sb, "Technician:  %s\n\n", techStr)
	fmt.Fprintf(&sb, "CUSTOMER INFORMATION\n--------------------\n")
	fmt.Fprintf(&sb, "Name:        %s %s\n", b.CustomerFirstName, b.CustomerLastName)
	fmt.Fprintf(&sb, "Email:       %s\n", customerEmail)
	fmt.Fprintf(&sb, "Phone:       %s\n\n", customerPhone)
	fmt.Fprintf(&sb, "VEHICLE INFORMATION\n-------------------\n")
	fmt.Fprintf(&sb, "Vehicle:     %d %s %s\n\n", b.VehicleYear, b.VehicleMake, b.VehicleModel)
	fmt.Fprintf(&sb, "%s\n", emailRule)
	fmt.Fprintf(&sb, "Booked via Online Scheduling System\n")
	fmt.Fprintf(&sb, "%s\n", emailRule)
	return subject, sb.String()
}

// clock12 renders a 12-hour clock without a leading zero on the hour.
func clock12(t time.Time) string {
	return t.Format("3:04 PM")
}
