// Package handlers implements the HTTP endpoints of the scheduling API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ridgelineauto/scheduling-api/internal/availability"
	"github.com/ridgelineauto/scheduling-api/internal/booking"
	"github.com/ridgelineauto/scheduling-api/internal/observability/metrics"
	"github.com/ridgelineauto/scheduling-api/internal/qualification"
	"github.com/ridgelineauto/scheduling-api/internal/schedule"
	"github.com/ridgelineauto/scheduling-api/internal/shopmonkey"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// multiDayFetchThreshold is the service duration above which upcoming days'
// appointments are fetched for continuation checks. Five hours cannot spill
// past close on any configured day, so shorter services skip the extra
// vendor calls.
const (
	multiDayFetchThreshold = 300
	multiDayFetchDays      = 5
)

// VendorAPI is the Shopmonkey surface the scheduling endpoints read from.
type VendorAPI interface {
	GetBookableCannedServices(ctx context.Context) ([]shopmonkey.Service, error)
	GetCannedService(ctx context.Context, serviceID string) (*shopmonkey.Service, error)
	GetAppointmentsForDate(ctx context.Context, date string, techIDs []string) ([]shopmonkey.Appointment, error)
}

// Booker commits bookings.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Result, error)
}

// SchedulingHandler serves /services, /availability, and /book.
type SchedulingHandler struct {
	shop         VendorAPI
	qual         qualification.Source
	engine       *availability.Engine
	schedule     *schedule.Config
	booker       Booker
	labelMapping map[string]string
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
}

// SchedulingHandlerConfig wires the scheduling handler.
type SchedulingHandlerConfig struct {
	Shop         VendorAPI
	Qualifier    qualification.Source
	Engine       *availability.Engine
	Schedule     *schedule.Config
	Booker       Booker
	LabelMapping map[string]string
	Metrics      *metrics.SchedulingMetrics
	Logger       *logging.Logger
}

// NewSchedulingHandler creates the handler.
func NewSchedulingHandler(cfg SchedulingHandlerConfig) *SchedulingHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{
		shop:         cfg.Shop,
		qual:         cfg.Qualifier,
		engine:       cfg.Engine,
		schedule:     cfg.Schedule,
		booker:       cfg.Booker,
		labelMapping: cfg.LabelMapping,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

type serviceResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TotalCents int64   `json:"totalCents,omitempty"`
	Bookable   bool    `json:"bookable"`
	Category   string  `json:"category,omitempty"`
	LaborHours float64 `json:"laborHours,omitempty"`
}

type servicesListResponse struct {
	Services []serviceResponse `json:"services"`
}

// ListServices handles GET /services.
func (h *SchedulingHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.shop.GetBookableCannedServices(r.Context())
	if err != nil {
		h.logger.Error("fetch bookable services failed", "error", err)
		h.metrics.ObserveVendorRequest("shopmonkey", "error")
		writeError(w, http.StatusBadGateway, "Unable to reach scheduling service")
		return
	}
	h.metrics.ObserveVendorRequest("shopmonkey", "ok")

	out := servicesListResponse{Services: make([]serviceResponse, 0, len(services))}
	for _, svc := range services {
		out.Services = append(out.Services, serviceResponse{
			ID:         svc.ID,
			Name:       svc.Name,
			TotalCents: svc.Price(),
			Bookable:   true,
			Category:   svc.Category(),
			LaborHours: svc.LaborHours(),
		})
	}
	h.logger.Info("services fetched", "count", len(out.Services))
	writeJSON(w, http.StatusOK, out)
}

type slotResponse struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	AvailableTechs int    `json:"available_techs"`
}

type availabilityResponse struct {
	ServiceID          string         `json:"service_id"`
	Date               string         `json:"date"`
	DurationMinutes    int            `json:"duration_minutes"`
	BusinessHoursClose string         `json:"business_hours_close"`
	Slots              []slotResponse `json:"slots"`
}

// Availability handles GET /availability?service_id=...&date=YYYY-MM-DD.
func (h *SchedulingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("service_id")
	dateStr := r.URL.Query().Get("date")
	if serviceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}
	targetDate, err := time.Parse(availability.DateKey, dateStr)
	if err != nil {
		h.logger.Warn("invalid date format", "date", dateStr)
		writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	resolved, status, msg := h.resolveService(ctx, serviceID)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	techIDs := make([]string, 0, len(resolved.techs))
	for _, tech := range resolved.techs {
		techIDs = append(techIDs, tech.TechID)
	}

	appointments, err := h.shop.GetAppointmentsForDate(ctx, dateStr, techIDs)
	if err != nil {
		h.logger.Error("fetch appointments failed", "date", dateStr, "error", err)
		h.metrics.ObserveVendorRequest("shopmonkey", "error")
		writeError(w, http.StatusBadGateway, "Unable to reach scheduling service")
		return
	}

	laborMinutes := resolved.service.DurationMinutes(h.schedule.DefaultSlotDurationMinutes)
	bufferMinutes := h.schedule.BufferForLabel(resolved.service.Category())
	slotDuration := laborMinutes + bufferMinutes

	future := h.fetchFutureAppointments(ctx, targetDate, techIDs, slotDuration)

	slots := h.engine.Compute(targetDate, techIDs, booking.ToAvailability(appointments), slotDuration, future)
	h.metrics.ObserveSlotCount(len(slots))

	hours := h.schedule.Resolve(targetDate)
	closeStr := "18:00"
	if hours.IsOpen() {
		closeStr = schedule.FormatClock(hours.CloseMinute)
	}

	resp := availabilityResponse{
		ServiceID:          serviceID,
		Date:               dateStr,
		DurationMinutes:    slotDuration,
		BusinessHoursClose: closeStr,
		Slots:              make([]slotResponse, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, slotResponse{
			Start:          slot.Start(),
			End:            slot.End(),
			AvailableTechs: slot.AvailableTechs,
		})
	}

	h.logger.Info("availability checked",
		"service_id", serviceID,
		"date", dateStr,
		"department", resolved.department,
		"duration_minutes", slotDuration,
		"slot_count", len(resp.Slots),
	)
	writeJSON(w, http.StatusOK, resp)
}

// fetchFutureAppointments pulls the next days' snapshots for long services.
// A failed day is skipped: its appointments then cannot exclude techs, which
// errs on the side of offering the slot.
func (h *SchedulingHandler) fetchFutureAppointments(ctx context.Context, from time.Time, techIDs []string, slotDuration int) map[string][]availability.Appointment {
	if slotDuration <= multiDayFetchThreshold {
		return nil
	}
	future := make(map[string][]availability.Appointment, multiDayFetchDays)
	day := from
	for i := 0; i < multiDayFetchDays; i++ {
		day = day.AddDate(0, 0, 1)
		key := day.Format(availability.DateKey)
		appts, err := h.shop.GetAppointmentsForDate(ctx, key, techIDs)
		if err != nil {
			h.logger.Warn("future appointments fetch failed", "date", key)
			continue
		}
		future[key] = booking.ToAvailability(appts)
	}
	return future
}

type customerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type vehicleInfo struct {
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	VIN   string `json:"vin,omitempty"`
}

type bookingRequest struct {
	ServiceID string       `json:"service_id"`
	SlotStart string       `json:"slot_start"`
	SlotEnd   string       `json:"slot_end"`
	Customer  customerInfo `json:"customer"`
	Vehicle   vehicleInfo  `json:"vehicle"`
}

type bookingResponse struct {
	Success            bool   `json:"success"`
	AppointmentID      string `json:"appointment_id"`
	ConfirmationNumber string `json:"confirmation_number"`
}

var phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)

func (req *bookingRequest) validate() error {
	if strings.TrimSpace(req.ServiceID) == "" {
		return errors.New("service_id is required")
	}
	if strings.TrimSpace(req.Customer.FirstName) == "" || strings.TrimSpace(req.Customer.LastName) == "" {
		return errors.New("customer name is required")
	}
	if req.Customer.Phone != "" {
		cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(req.Customer.Phone)
		if cleaned != "" && !phonePattern.MatchString(cleaned) {
			return errors.New("invalid phone number format")
		}
	}
	if req.Vehicle.Year < 1900 || req.Vehicle.Year > 2100 {
		return errors.New("vehicle year out of range")
	}
	if strings.TrimSpace(req.Vehicle.Make) == "" || strings.TrimSpace(req.Vehicle.Model) == "" {
		return errors.New("vehicle make and model are required")
	}
	if len(req.Vehicle.VIN) > 17 {
		return errors.New("vin too long")
	}
	return nil
}

// Book handles POST /book.
func (h *SchedulingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slotStart, err := parseSlotTime(req.SlotStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot_start")
		return
	}
	slotEnd, err := parseSlotTime(req.SlotEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot_end")
		return
	}
	if !slotEnd.After(slotStart) {
		writeError(w, http.StatusBadRequest, "slot_end must be after slot_start")
		return
	}

	h.logger.Info("booking requested",
		"service_id", req.ServiceID,
		"slot_start", req.SlotStart,
		"slot_end", req.SlotEnd,
		"customer_name", req.Customer.FirstName+" "+req.Customer.LastName,
	)

	ctx := r.Context()
	resolved, status, msg := h.resolveService(ctx, req.ServiceID)
	if status != 0 {
		h.metrics.ObserveBooking("rejected")
		writeError(w, status, msg)
		return
	}

	result, err := h.booker.Book(ctx, booking.Request{
		ServiceID:      req.ServiceID,
		ServiceName:    resolved.service.Name,
		Department:     resolved.department,
		QualifiedTechs: resolved.techs,
		SlotStart:      slotStart,
		SlotEnd:        slotEnd,
		Customer: booking.Customer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
		Vehicle: booking.Vehicle{
			Year:  req.Vehicle.Year,
			Make:  req.Vehicle.Make,
			Model: req.Vehicle.Model,
			VIN:   req.Vehicle.VIN,
		},
	})
	switch {
	case errors.Is(err, booking.ErrSlotConflict):
		h.metrics.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "The selected time slot is no longer available")
		return
	case errors.Is(err, booking.ErrLockHeld):
		h.metrics.ObserveBooking("contended")
		writeError(w, http.StatusConflict, "Another booking is in progress, please retry")
		return
	case err != nil:
		h.logger.Error("booking failed", "service_id", req.ServiceID, "error", err)
		h.metrics.ObserveBooking("error")
		writeError(w, http.StatusBadGateway, "Unable to complete booking")
		return
	}

	h.metrics.ObserveBooking("success")
	writeJSON(w, http.StatusOK, bookingResponse{
		Success:            true,
		AppointmentID:      result.AppointmentID,
		ConfirmationNumber: result.ConfirmationNumber,
	})
}

// resolvedService bundles what both read and write paths need to know
// about a service.
type resolvedService struct {
	service    *shopmonkey.Service
	department string
	techs      []qualification.QualifiedTech
}

// resolveService loads the service, derives its department from the first
// label, and fetches the qualified technicians. A non-zero status means
// the request should be answered with (status, msg).
func (h *SchedulingHandler) resolveService(ctx context.Context, serviceID string) (resolvedService, int, string) {
	service, err := h.shop.GetCannedService(ctx, serviceID)
	if err != nil {
		h.logger.Error("fetch service failed", "service_id", serviceID, "error", err)
		h.metrics.ObserveVendorRequest("shopmonkey", "error")
		return resolvedService{}, http.StatusBadGateway, "Unable to reach scheduling service"
	}
	if service == nil {
		return resolvedService{}, http.StatusNotFound, "Service not found"
	}

	department := qualification.NormalizeDepartment(service.Category(), h.labelMapping)
	if department == "" {
		h.logger.Warn("service has no department label", "service_id", serviceID, "service_name", service.Name)
		return resolvedService{}, http.StatusNotFound, "Service configuration incomplete"
	}

	techs, err := h.qual.TechsForDepartment(ctx, department)
	if err != nil {
		h.logger.Error("qualification lookup failed", "department", department, "error", err)
		h.metrics.ObserveVendorRequest("sheets", "error")
		return resolvedService{}, http.StatusBadGateway, "Unable to reach scheduling service"
	}
	if len(techs) == 0 {
		h.logger.Warn("no technicians for department", "department", department)
		return resolvedService{}, http.StatusNotFound, "No technicians available for this service"
	}
	return resolvedService{service: service, department: department, techs: techs}, 0, ""
}

// slotTimeLayouts accepts naive timestamps plus the offset forms clients
// copy from availability responses. Any offset is dropped; the clock
// fields are taken literally in shop time.
var slotTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

func parseSlotTime(s string) (time.Time, error) {
	for _, layout := range slotTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("handlers: unparseable slot time %q", s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
