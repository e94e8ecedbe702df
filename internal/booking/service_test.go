package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ridgelineauto/scheduling-api/internal/availability"
	"github.com/ridgelineauto/scheduling-api/internal/bookinglog"
	"github.com/ridgelineauto/scheduling-api/internal/notify"
	"github.com/ridgelineauto/scheduling-api/internal/qualification"
	"github.com/ridgelineauto/scheduling-api/internal/schedule"
	"github.com/ridgelineauto/scheduling-api/internal/shopmonkey"
)

type fakeShop struct {
	appointments []shopmonkey.Appointment
	apptErr      error
	created      []shopmonkey.CreateAppointmentRequest
}

func (f *fakeShop) GetAppointmentsForDate(ctx context.Context, date string, techIDs []string) ([]shopmonkey.Appointment, error) {
	return f.appointments, f.apptErr
}

func (f *fakeShop) FindOrCreateCustomer(ctx context.Context, firstName, lastName, email, phone string) (*shopmonkey.Customer, error) {
	return &shopmonkey.Customer{ID: "cust-1", FirstName: firstName, LastName: lastName}, nil
}

func (f *fakeShop) FindOrCreateVehicle(ctx context.Context, customerID string, year int, make, model, vin string) (*shopmonkey.Vehicle, error) {
	return &shopmonkey.Vehicle{ID: "veh-1", CustomerID: customerID}, nil
}

func (f *fakeShop) CreateAppointment(ctx context.Context, req shopmonkey.CreateAppointmentRequest) (*shopmonkey.Appointment, error) {
	f.created = append(f.created, req)
	return &shopmonkey.Appointment{ID: "appt-9", StartDate: req.StartDate, EndDate: req.EndDate}, nil
}

type fakeRecorder struct {
	entries []bookinglog.Entry
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, entry bookinglog.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeNotifier struct {
	notified chan notify.BookingDetails
}

func (f *fakeNotifier) SendBookingNotification(ctx context.Context, booking notify.BookingDetails) bool {
	f.notified <- booking
	return true
}

func testEngine(t *testing.T) *availability.Engine {
	t.Helper()
	cfg := &schedule.Config{
		BusinessHours: map[string]*schedule.DayHours{
			"monday": {Open: "09:00", Close: "18:00"},
		},
		DefaultSlotDurationMinutes: 60,
		SlotIntervalMinutes:        60,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return availability.NewEngine(cfg)
}

func newTestService(t *testing.T, shop *fakeShop, recorder Recorder, notifier Notifier) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewService(Config{
		Shop:     shop,
		Engine:   testEngine(t),
		Lock:     NewLock(rdb),
		Selector: NewSelector(rdb),
		Notifier: notifier,
		Recorder: recorder,
	})
}

func sampleRequest() Request {
	return Request{
		ServiceID:   "svc-1",
		ServiceName: "Full Window Tint",
		Department:  "Tint",
		QualifiedTechs: []qualification.QualifiedTech{
			{TechID: "T1", TechName: "John Doe", Priority: 1},
		},
		SlotStart: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		SlotEnd:   time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
		Customer:  Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		Vehicle:   Vehicle{Year: 2020, Make: "Toyota", Model: "Tacoma"},
	}
}

func TestBookSuccess(t *testing.T) {
	shop := &fakeShop{}
	recorder := &fakeRecorder{}
	svc := newTestService(t, shop, recorder, nil)

	result, err := svc.Book(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if result.AppointmentID != "appt-9" {
		t.Errorf("appointment id = %s", result.AppointmentID)
	}
	if result.TechnicianID != "T1" || result.TechnicianName != "John Doe" {
		t.Errorf("technician = %s (%s)", result.TechnicianID, result.TechnicianName)
	}
	if !strings.HasPrefix(result.ConfirmationNumber, "SM-20260105-") || len(result.ConfirmationNumber) != len("SM-20260105-A1B2C3") {
		t.Errorf("confirmation = %s", result.ConfirmationNumber)
	}

	if len(shop.created) != 1 {
		t.Fatalf("created %d appointments", len(shop.created))
	}
	created := shop.created[0]
	if created.StartDate != "2026-01-05T09:00:00.000-06:00" || created.EndDate != "2026-01-05T12:00:00.000-06:00" {
		t.Errorf("vendor dates = %s / %s", created.StartDate, created.EndDate)
	}
	if created.Title != "Online Booking: Full Window Tint" {
		t.Errorf("title = %s", created.Title)
	}
	if !strings.Contains(created.Note, "Confirmation: "+result.ConfirmationNumber) {
		t.Errorf("note = %q", created.Note)
	}
	if !strings.Contains(created.Note, "Assign to: John Doe") {
		t.Errorf("note missing tech line: %q", created.Note)
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("recorded %d entries", len(recorder.entries))
	}
	if recorder.entries[0].ConfirmationNumber != result.ConfirmationNumber {
		t.Errorf("log entry = %+v", recorder.entries[0])
	}
}

func TestBookSlotConflict(t *testing.T) {
	shop := &fakeShop{
		appointments: []shopmonkey.Appointment{
			{TechnicianID: "T1", StartDate: "2026-01-05T09:00:00", EndDate: "2026-01-05T10:00:00"},
		},
	}
	svc := newTestService(t, shop, nil, nil)

	_, err := svc.Book(context.Background(), sampleRequest())
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("err = %v, want ErrSlotConflict", err)
	}
	if len(shop.created) != 0 {
		t.Error("conflicted booking must not create an appointment")
	}
}

func TestBookAppointmentFetchError(t *testing.T) {
	shop := &fakeShop{apptErr: errors.New("vendor down")}
	svc := newTestService(t, shop, nil, nil)

	if _, err := svc.Book(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBookReleasesLock(t *testing.T) {
	shop := &fakeShop{}
	svc := newTestService(t, shop, nil, nil)

	ctx := context.Background()
	if _, err := svc.Book(ctx, sampleRequest()); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	// The lock must be free again; a second booking on the same date
	// proceeds to its own conflict check.
	shop.appointments = []shopmonkey.Appointment{
		{TechnicianID: "T1", StartDate: "2026-01-05T09:00:00", EndDate: "2026-01-05T12:00:00"},
	}
	if _, err := svc.Book(ctx, sampleRequest()); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second booking err = %v, want ErrSlotConflict", err)
	}
}

// hookShop runs a callback on each appointment fetch, letting tests change
// state mid-flow while the booking lock is held.
type hookShop struct {
	fakeShop
	onFetch func()
}

func (h *hookShop) GetAppointmentsForDate(ctx context.Context, date string, techIDs []string) ([]shopmonkey.Appointment, error) {
	if h.onFetch != nil {
		h.onFetch()
	}
	return h.fakeShop.GetAppointmentsForDate(ctx, date, techIDs)
}

func TestBookAbortsWhenLockLost(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	// The vendor fetch stalls past the lease TTL; by the time the flow
	// would commit, another request may own the lock and have passed its
	// own revalidation. The commit must be abandoned.
	shop := &hookShop{onFetch: func() { mr.FastForward(lockTTL * 2) }}
	svc := NewService(Config{
		Shop:     shop,
		Engine:   testEngine(t),
		Lock:     NewLock(rdb),
		Selector: NewSelector(rdb),
	})

	ctx := context.Background()
	if _, err := svc.Book(ctx, sampleRequest()); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if len(shop.created) != 0 {
		t.Fatalf("created %d appointments after losing the lock", len(shop.created))
	}

	// The slot is untouched; a retry takes a fresh lease and books it.
	shop.onFetch = nil
	result, err := svc.Book(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.TechnicianID != "T1" {
		t.Errorf("technician = %s", result.TechnicianID)
	}
	if len(shop.created) != 1 {
		t.Errorf("created %d appointments, want 1", len(shop.created))
	}
}

func TestBookRecorderFailureNonFatal(t *testing.T) {
	shop := &fakeShop{}
	svc := newTestService(t, shop, &fakeRecorder{err: errors.New("db down")}, nil)

	if _, err := svc.Book(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("log failure must not fail the booking: %v", err)
	}
}

func TestBookNotifiesAsync(t *testing.T) {
	shop := &fakeShop{}
	notifier := &fakeNotifier{notified: make(chan notify.BookingDetails, 1)}
	svc := newTestService(t, shop, nil, notifier)

	result, err := svc.Book(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	select {
	case details := <-notifier.notified:
		if details.ConfirmationNumber != result.ConfirmationNumber {
			t.Errorf("notified confirmation = %s", details.ConfirmationNumber)
		}
		if details.TechnicianName != "John Doe" {
			t.Errorf("notified technician = %s", details.TechnicianName)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never sent")
	}
}

func TestWorkOrderNotesWithoutTech(t *testing.T) {
	notes := workOrderNotes("SM-20260105-ABC123", "", "Oil Change")
	if strings.Contains(notes, "Assign to:") {
		t.Errorf("notes = %q", notes)
	}
	if !strings.Contains(notes, "Service requested: Oil Change") {
		t.Errorf("notes = %q", notes)
	}
}
