// Package booking commits appointments: it re-validates the chosen slot
// under a distributed lock, creates the customer, vehicle, and appointment
// records in Shopmonkey, and assigns a technician.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridgelineauto/scheduling-api/internal/availability"
	"github.com/ridgelineauto/scheduling-api/internal/bookinglog"
	"github.com/ridgelineauto/scheduling-api/internal/notify"
	"github.com/ridgelineauto/scheduling-api/internal/qualification"
	"github.com/ridgelineauto/scheduling-api/internal/shopmonkey"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// ErrSlotConflict means the slot was taken between availability display
// and booking commit. Clients should re-fetch availability.
var ErrSlotConflict = errors.New("booking: slot no longer available")

// ShopAPI is the slice of the Shopmonkey client the booking flow uses.
type ShopAPI interface {
	GetAppointmentsForDate(ctx context.Context, date string, techIDs []string) ([]shopmonkey.Appointment, error)
	FindOrCreateCustomer(ctx context.Context, firstName, lastName, email, phone string) (*shopmonkey.Customer, error)
	FindOrCreateVehicle(ctx context.Context, customerID string, year int, make, model, vin string) (*shopmonkey.Vehicle, error)
	CreateAppointment(ctx context.Context, req shopmonkey.CreateAppointmentRequest) (*shopmonkey.Appointment, error)
}

// Notifier sends the shop notification email for a committed booking.
type Notifier interface {
	SendBookingNotification(ctx context.Context, booking notify.BookingDetails) bool
}

// Recorder persists the internal booking log row.
type Recorder interface {
	Record(ctx context.Context, entry bookinglog.Entry) error
}

// Customer is the booking form's customer block.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Vehicle is the booking form's vehicle block.
type Vehicle struct {
	Year  int
	Make  string
	Model string
	VIN   string
}

// Request is one booking attempt with the service already resolved.
type Request struct {
	ServiceID      string
	ServiceName    string
	Department     string
	QualifiedTechs []qualification.QualifiedTech
	SlotStart      time.Time
	SlotEnd        time.Time
	Customer       Customer
	Vehicle        Vehicle
}

// Result is a committed booking.
type Result struct {
	AppointmentID      string
	ConfirmationNumber string
	TechnicianID       string
	TechnicianName     string
}

// Service runs the booking flow.
type Service struct {
	shop      ShopAPI
	engine    *availability.Engine
	lock      *Lock
	selector  *Selector
	notifier  Notifier
	recorder  Recorder
	utcOffset string
	logger    *logging.Logger
}

// Config wires the booking service. Notifier and Recorder are optional;
// UTCOffset is the shop's zone suffix for Shopmonkey timestamps.
type Config struct {
	Shop      ShopAPI
	Engine    *availability.Engine
	Lock      *Lock
	Selector  *Selector
	Notifier  Notifier
	Recorder  Recorder
	UTCOffset string
	Logger    *logging.Logger
}

// NewService builds the booking service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	offset := cfg.UTCOffset
	if offset == "" {
		offset = "-06:00"
	}
	return &Service{
		shop:      cfg.Shop,
		engine:    cfg.Engine,
		lock:      cfg.Lock,
		selector:  cfg.Selector,
		notifier:  cfg.Notifier,
		recorder:  cfg.Recorder,
		utcOffset: offset,
		logger:    logger,
	}
}

// Book commits one appointment. The date's booking lock is held for the
// whole flow so two requests cannot both pass the re-validation check.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	date := req.SlotStart.Format(availability.DateKey)

	lease, err := s.lock.Acquire(ctx, date)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	techIDs := make([]string, 0, len(req.QualifiedTechs))
	for _, tech := range req.QualifiedTechs {
		techIDs = append(techIDs, tech.TechID)
	}

	// Fresh snapshot inside the lock; the availability the client saw may
	// be stale by now.
	snapshot, err := s.shop.GetAppointmentsForDate(ctx, date, techIDs)
	if err != nil {
		return nil, fmt.Errorf("booking: fetch appointments: %w", err)
	}
	startMinute := req.SlotStart.Hour()*60 + req.SlotStart.Minute()
	endMinute := req.SlotEnd.Hour()*60 + req.SlotEnd.Minute()
	ok, freeIDs := s.engine.Revalidate(req.SlotStart, startMinute, endMinute, techIDs, ToAvailability(snapshot))
	if !ok {
		s.logger.Warn("slot no longer available",
			"service_id", req.ServiceID,
			"slot_start", req.SlotStart,
		)
		return nil, ErrSlotConflict
	}

	customer, err := s.shop.FindOrCreateCustomer(ctx, req.Customer.FirstName, req.Customer.LastName, req.Customer.Email, req.Customer.Phone)
	if err != nil {
		return nil, fmt.Errorf("booking: customer: %w", err)
	}
	if customer == nil || customer.ID == "" {
		return nil, errors.New("booking: customer record missing id")
	}

	vehicle, err := s.shop.FindOrCreateVehicle(ctx, customer.ID, req.Vehicle.Year, req.Vehicle.Make, req.Vehicle.Model, req.Vehicle.VIN)
	if err != nil {
		return nil, fmt.Errorf("booking: vehicle: %w", err)
	}
	if vehicle == nil || vehicle.ID == "" {
		return nil, errors.New("booking: vehicle record missing id")
	}

	techID, err := s.selector.Select(ctx, req.QualifiedTechs, freeIDs, req.Department)
	if err != nil {
		return nil, err
	}
	techName := ""
	for _, tech := range req.QualifiedTechs {
		if tech.TechID == techID {
			techName = tech.TechName
			break
		}
	}

	// Vendor calls can stall long enough for the lease to lapse, and by
	// then another request may hold the lock and have passed revalidation.
	// Never commit without the lease.
	held, err := lease.Held(ctx)
	if err != nil {
		return nil, err
	}
	if !held {
		s.logger.Warn("booking lock lost before commit",
			"service_id", req.ServiceID,
			"slot_start", req.SlotStart,
		)
		return nil, ErrLockHeld
	}

	confirmation := newConfirmationNumber(req.SlotStart)
	notes := workOrderNotes(confirmation, techName, req.ServiceName)

	appointment, err := s.shop.CreateAppointment(ctx, shopmonkey.CreateAppointmentRequest{
		CustomerID:   customer.ID,
		VehicleID:    vehicle.ID,
		StartDate:    s.vendorTimestamp(req.SlotStart),
		EndDate:      s.vendorTimestamp(req.SlotEnd),
		Title:        "Online Booking: " + req.ServiceName,
		Note:         notes,
		TechnicianID: techID,
	})
	if err != nil {
		return nil, fmt.Errorf("booking: create appointment: %w", err)
	}

	result := &Result{
		AppointmentID:      appointment.ID,
		ConfirmationNumber: confirmation,
		TechnicianID:       techID,
		TechnicianName:     techName,
	}

	s.logger.Info("booking successful",
		"appointment_id", result.AppointmentID,
		"confirmation_number", confirmation,
		"service_name", req.ServiceName,
		"technician_id", techID,
	)

	s.record(ctx, req, result)
	s.notifyAsync(req, result)
	return result, nil
}

// record writes the internal booking log. Failures are logged and dropped:
// the vendor appointment already exists.
func (s *Service) record(ctx context.Context, req Request, result *Result) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, bookinglog.Entry{
		ConfirmationNumber: result.ConfirmationNumber,
		AppointmentID:      result.AppointmentID,
		ServiceID:          req.ServiceID,
		ServiceName:        req.ServiceName,
		Department:         req.Department,
		TechnicianID:       result.TechnicianID,
		CustomerName:       strings.TrimSpace(req.Customer.FirstName + " " + req.Customer.LastName),
		CustomerEmail:      req.Customer.Email,
		SlotStart:          req.SlotStart,
		SlotEnd:            req.SlotEnd,
	})
	if err != nil {
		s.logger.Error("booking log write failed",
			"confirmation_number", result.ConfirmationNumber,
			"error", err,
		)
	}
}

// notifyAsync emails the shop without blocking the booking response. The
// send gets its own deadline, detached from the request context.
func (s *Service) notifyAsync(req Request, result *Result) {
	if s.notifier == nil {
		return
	}
	details := notify.BookingDetails{
		ConfirmationNumber: result.ConfirmationNumber,
		ServiceName:        req.ServiceName,
		StartTime:          req.SlotStart,
		EndTime:            req.SlotEnd,
		TechnicianName:     result.TechnicianName,
		CustomerFirstName:  req.Customer.FirstName,
		CustomerLastName:   req.Customer.LastName,
		CustomerEmail:      req.Customer.Email,
		CustomerPhone:      req.Customer.Phone,
		VehicleYear:        req.Vehicle.Year,
		VehicleMake:        req.Vehicle.Make,
		VehicleModel:       req.Vehicle.Model,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.notifier.SendBookingNotification(ctx, details)
	}()
}

// vendorTimestamp renders a naive slot instant the way the vendor expects:
// local clock time with the shop's fixed UTC offset.
func (s *Service) vendorTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05") + ".000" + s.utcOffset
}

// newConfirmationNumber builds a human-readable confirmation like
// SM-20260105-A1B2C3.
func newConfirmationNumber(slotStart time.Time) string {
	unique := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SM-%s-%s", slotStart.Format("20060102"), unique)
}

// workOrderNotes renders the note block shop staff see on the work order.
func workOrderNotes(confirmation, techName, serviceName string) string {
	techLine := ""
	if techName != "" {
		techLine = "\nAssign to: " + techName
	}
	return fmt.Sprintf(`*** ONLINE BOOKING ***
Confirmation: %s
%s
Service requested: %s
Booked online via scheduling API.`, confirmation, techLine, serviceName)
}

// ToAvailability converts a vendor appointment snapshot for the engine.
func ToAvailability(appointments []shopmonkey.Appointment) []availability.Appointment {
	out := make([]availability.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		out = append(out, availability.Appointment{
			TechnicianID: appt.TechnicianID,
			UserID:       appt.UserID,
			StartDate:    appt.StartDate,
			EndDate:      appt.EndDate,
		})
	}
	return out
}
