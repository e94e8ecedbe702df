// Package availability computes bookable appointment slots from business
// hours, technician qualification lists, and existing appointment snapshots.
// The engine is pure computation: no I/O, no shared mutable state, safe to
// call concurrently with request-scoped inputs.
package availability

import (
	"time"

	"github.com/ridgelineauto/scheduling-api/internal/schedule"
)

// DateKey is the map key format for per-date appointment snapshots.
const DateKey = "2006-01-02"

// TimeSlot is one bookable interval with the technicians free for it.
// For a multi-day service the end is the close of the starting day.
type TimeSlot struct {
	StartMinute      int
	EndMinute        int
	AvailableTechs   int
	AvailableTechIDs []string
}

// Start renders the slot start as "HH:MM".
func (s TimeSlot) Start() string {
	return schedule.FormatClock(s.StartMinute)
}

// End renders the slot end as "HH:MM".
func (s TimeSlot) End() string {
	return schedule.FormatClock(s.EndMinute)
}

// Engine computes slot availability against a validated schedule config.
type Engine struct {
	cfg *schedule.Config
}

// NewEngine creates an engine. The config must already be validated.
func NewEngine(cfg *schedule.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute returns the ordered bookable slots for a date and service
// duration. techIDs is the qualified-technician list for the service's
// department; appointments is the date's existing-appointment snapshot;
// futureByDate maps ISO dates to snapshots for multi-day continuation
// checks (a missing key means no appointments that day).
//
// A slot is emitted when at least one technician is conflict-free for the
// entire day-span plan from that start. Candidates whose continuation is
// infeasible within the lookahead horizon are silently omitted: that is a
// capacity limitation, not a fault. Output order is chronological and the
// technician order within a slot follows techIDs, so identical inputs give
// identical output.
func (e *Engine) Compute(date time.Time, techIDs []string, appointments []Appointment, durationMinutes int, futureByDate map[string][]Appointment) []TimeSlot {
	hours := e.cfg.Resolve(date)
	if !hours.IsOpen() {
		return nil
	}
	if durationMinutes <= 0 {
		durationMinutes = e.cfg.DefaultSlotDurationMinutes
	}

	index := indexByTech(appointments)
	futureIndex := make(map[string]map[string][]window, len(futureByDate))
	indexFor := func(date time.Time) map[string][]window {
		key := date.Format(DateKey)
		if idx, ok := futureIndex[key]; ok {
			return idx
		}
		idx := indexByTech(futureByDate[key])
		futureIndex[key] = idx
		return idx
	}

	var slots []TimeSlot
	for _, start := range SlotStarts(hours, e.cfg.SlotIntervalMinutes) {
		spans, ok := PlanDaySpans(durationMinutes, date, start, e.cfg)
		if !ok {
			continue
		}

		var free []string
		if len(spans) == 1 {
			end := start + durationMinutes
			for _, techID := range techIDs {
				if !hasConflict(date, start, end, index[techID]) {
					free = append(free, techID)
				}
			}
			if len(free) > 0 {
				slots = append(slots, TimeSlot{
					StartMinute:      start,
					EndMinute:        end,
					AvailableTechs:   len(free),
					AvailableTechIDs: free,
				})
			}
			continue
		}

		for _, techID := range techIDs {
			if e.techFreeForPlan(techID, date, start, hours, spans, index, indexFor) {
				free = append(free, techID)
			}
		}
		if len(free) > 0 {
			slots = append(slots, TimeSlot{
				StartMinute:      start,
				EndMinute:        hours.CloseMinute,
				AvailableTechs:   len(free),
				AvailableTechIDs: free,
			})
		}
	}
	return slots
}

// techFreeForPlan checks a multi-day plan: day one from the slot start to
// close against today's snapshot, then each continuation day from open for
// its required minutes against that day's snapshot. One conflicting day
// fails the whole candidate.
func (e *Engine) techFreeForPlan(techID string, date time.Time, start int, hours schedule.BusinessHours, spans []DaySpan, index map[string][]window, indexFor func(time.Time) map[string][]window) bool {
	if hasConflict(date, start, hours.CloseMinute, index[techID]) {
		return false
	}
	for _, span := range spans[1:] {
		dayHours := e.cfg.Resolve(span.Date)
		dayIndex := indexFor(span.Date)
		if hasConflict(span.Date, dayHours.OpenMinute, dayHours.OpenMinute+span.Minutes, dayIndex[techID]) {
			return false
		}
	}
	return true
}

// Revalidate re-runs the single-day conflict check for one already-chosen
// slot. It closes the race between availability display and booking commit,
// so it must be called with a fresh appointment snapshot.
func (e *Engine) Revalidate(date time.Time, startMinute, endMinute int, techIDs []string, appointments []Appointment) (bool, []string) {
	index := indexByTech(appointments)
	var free []string
	for _, techID := range techIDs {
		if !hasConflict(date, startMinute, endMinute, index[techID]) {
			free = append(free, techID)
		}
	}
	return len(free) > 0, free
}
