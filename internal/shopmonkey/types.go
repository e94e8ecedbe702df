package shopmonkey

import (
	"strings"
)

// Labor is one labor line on a canned service. Hours is fractional.
type Labor struct {
	Hours float64 `json:"hours"`
}

// Label is a service tag. The first label names the shop department the
// service belongs to.
type Label struct {
	Name string `json:"name"`
}

// Service is a canned service exposed for online booking.
type Service struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Note              string  `json:"note,omitempty"`
	Bookable          bool    `json:"bookable"`
	Labels            []Label `json:"labels,omitempty"`
	Labors            []Labor `json:"labors,omitempty"`
	TotalCents        int64   `json:"totalCents,omitempty"`
	PriceCents        int64   `json:"priceCents,omitempty"`
	EstimatedDuration float64 `json:"estimatedDuration,omitempty"`
	Duration          float64 `json:"duration,omitempty"`
	EstimatedMinutes  float64 `json:"estimatedMinutes,omitempty"`
}

// Category returns the first label name, or "".
func (s Service) Category() string {
	if len(s.Labels) == 0 {
		return ""
	}
	return s.Labels[0].Name
}

// Price returns the service price in cents, preferring totalCents.
func (s Service) Price() int64 {
	if s.TotalCents > 0 {
		return s.TotalCents
	}
	return s.PriceCents
}

// LaborHours sums the labor lines, zero when none carry hours.
func (s Service) LaborHours() float64 {
	var total float64
	for _, labor := range s.Labors {
		if labor.Hours > 0 {
			total += labor.Hours
		}
	}
	return total
}

// DurationMinutes derives the service's duration. Labor hours are the
// primary source; the assorted duration fields are fallbacks for services
// entered without labor lines. defaultMinutes applies when nothing usable
// is present.
func (s Service) DurationMinutes(defaultMinutes int) int {
	var totalHours float64
	for _, labor := range s.Labors {
		if labor.Hours > 0 {
			totalHours += labor.Hours
		}
	}
	if totalHours > 0 {
		return int(totalHours * 60)
	}
	for _, v := range []float64{s.EstimatedDuration, s.Duration, s.EstimatedMinutes} {
		if v > 0 {
			return int(v)
		}
	}
	return defaultMinutes
}

// Appointment is a work-order appointment record. Technician attribution
// prefers technicianId; userId is the legacy alias older records carry.
type Appointment struct {
	ID           string `json:"id,omitempty"`
	CustomerID   string `json:"customerId,omitempty"`
	VehicleID    string `json:"vehicleId,omitempty"`
	TechnicianID string `json:"technicianId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Title        string `json:"title,omitempty"`
	Note         string `json:"note,omitempty"`
}

// AssignedTo returns the technician on the appointment, or "".
func (a Appointment) AssignedTo() string {
	if a.TechnicianID != "" {
		return a.TechnicianID
	}
	return a.UserID
}

// Customer is a shop customer record.
type Customer struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Vehicle is a customer vehicle record.
type Vehicle struct {
	ID         string `json:"id,omitempty"`
	CustomerID string `json:"customerId"`
	Year       int    `json:"year"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	VIN        string `json:"vin,omitempty"`
}

// User is a shop staff record, used to resolve technician names.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// FullName joins the name parts, skipping blanks.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.ID
	}
	return name
}

// CreateAppointmentRequest carries the fields for a new appointment.
type CreateAppointmentRequest struct {
	CustomerID   string
	VehicleID    string
	StartDate    string
	EndDate      string
	Title        string
	Note         string
	TechnicianID string
}
