package availability

import (
	"time"
)

// Appointment is one existing work-order appointment, as snapshotted from the
// vendor system for a single date. Technician attribution prefers the primary
// field and falls back to the legacy alias.
type Appointment struct {
	TechnicianID string
	UserID       string
	StartDate    string
	EndDate      string
}

// TechID returns the technician the appointment belongs to, or "" when the
// record is unattributable.
func (a Appointment) TechID() string {
	if a.TechnicianID != "" {
		return a.TechnicianID
	}
	return a.UserID
}

// window is a pre-parsed appointment interval in naive local time.
type window struct {
	start time.Time
	end   time.Time
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// parseNaive parses an ISO-8601 timestamp and drops any zone offset,
// keeping the literal clock fields. Appointments are assumed to already be
// expressed in the shop's local zone.
func parseNaive(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		naive := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		return naive, true
	}
	return time.Time{}, false
}

// indexByTech groups an appointment snapshot by technician, parsing each
// record's interval once. Grouping is an access-pattern optimization only:
// conflict semantics are identical to scanning the flat list per check.
// Records with unparseable timestamps contribute no conflict; records with
// no technician field at all are excluded from every technician's index.
func indexByTech(appointments []Appointment) map[string][]window {
	index := make(map[string][]window, len(appointments))
	for _, appt := range appointments {
		techID := appt.TechID()
		if techID == "" {
			continue
		}
		start, ok := parseNaive(appt.StartDate)
		if !ok {
			continue
		}
		end, ok := parseNaive(appt.EndDate)
		if !ok {
			continue
		}
		index[techID] = append(index[techID], window{start: start, end: end})
	}
	return index
}

// atMinute combines a date with a minutes-of-day value into a naive instant.
func atMinute(date time.Time, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minute/60, minute%60, 0, 0, time.UTC)
}

// hasConflict reports whether any of the technician's appointment windows
// overlaps [startMinute, endMinute) on the given date. Intervals are
// half-open: a slot ending exactly when an appointment starts never
// conflicts.
func hasConflict(date time.Time, startMinute, endMinute int, windows []window) bool {
	slotStart := atMinute(date, startMinute)
	slotEnd := atMinute(date, endMinute)
	for _, w := range windows {
		if w.start.Before(slotEnd) && slotStart.Before(w.end) {
			return true
		}
	}
	return false
}
