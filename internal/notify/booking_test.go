package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func sampleBooking() BookingDetails {
	return BookingDetails{
		ConfirmationNumber: "SM-20260105-A1B2C3",
		ServiceName:        "Full Window Tint",
		StartTime:          time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		EndTime:            time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
		TechnicianName:     "John Doe",
		CustomerFirstName:  "Ada",
		CustomerLastName:   "Lovelace",
		CustomerEmail:      "ada@example.com",
		CustomerPhone:      "+15550100",
		VehicleYear:        2020,
		VehicleMake:        "Toyota",
		VehicleModel:       "Tacoma",
	}
}

func TestFormatBookingEmail(t *testing.T) {
	subject, body := FormatBookingEmail(sampleBooking())

	if subject != "Online Booking: Full Window Tint - Monday, January 5, 2026 at 9:00 AM" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{
		"Confirmation: SM-20260105-A1B2C3",
		"Service:     Full Window Tint",
		"Time:        9:00 AM - 12:00 PM",
		"Technician:  John Doe",
		"Name:        Ada Lovelace",
		"Email:       ada@example.com",
		"Vehicle:     2020 Toyota Tacoma",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestFormatBookingEmailDefaults(t *testing.T) {
	booking := sampleBooking()
	booking.TechnicianName = ""
	booking.CustomerEmail = ""
	booking.CustomerPhone = ""

	_, body := FormatBookingEmail(booking)
	if !strings.Contains(body, "Technician:  To be assigned") {
		t.Error("missing technician placeholder")
	}
	if strings.Count(body, "Not provided") != 2 {
		t.Error("missing contact placeholders")
	}
}

func TestServiceSendsNotification(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "shop@example.com", nil)

	if !svc.SendBookingNotification(context.Background(), sampleBooking()) {
		t.Fatal("expected send to succeed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d messages", len(sender.sent))
	}
	if sender.sent[0].To != "shop@example.com" {
		t.Errorf("to = %s", sender.sent[0].To)
	}
}

func TestServiceDisabledWithoutConfig(t *testing.T) {
	svc := NewService(nil, "", nil)
	if svc.Enabled() {
		t.Error("service without sender must report disabled")
	}
	if svc.SendBookingNotification(context.Background(), sampleBooking()) {
		t.Error("disabled service must not report a send")
	}
}

func TestServiceSwallowsSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewService(sender, "shop@example.com", nil)
	if svc.SendBookingNotification(context.Background(), sampleBooking()) {
		t.Error("failed send must report false, not panic or error")
	}
}
