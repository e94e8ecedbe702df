package availability

import (
	"time"

	"github.com/ridgelineauto/scheduling-api/internal/schedule"
)

// SlotStarts enumerates candidate slot-start times across a business day at
// a fixed interval, in minutes of day. The interval is independent of any
// service's duration; it only governs how finely starts are offered. Every
// emitted start is >= open and strictly before close.
func SlotStarts(hours schedule.BusinessHours, intervalMinutes int) []int {
	if !hours.IsOpen() || intervalMinutes <= 0 {
		return nil
	}
	var starts []int
	for m := hours.OpenMinute; m < hours.CloseMinute; m += intervalMinutes {
		starts = append(starts, m)
	}
	return starts
}

// DaySpan is one business day's contribution toward completing a service
// that may exceed a single day.
type DaySpan struct {
	Date    time.Time
	Minutes int
}

// PlanDaySpans computes the ordered day-by-day plan for totalMinutes of work
// starting at startMinute on startDate. The first span runs from the start
// time to that day's close; each later span runs from its day's open time.
// ok is false when the start day is closed or the next-open-day scan runs
// out of horizon with work outstanding; callers treat that as a normal
// no-availability outcome. The horizon applies per step, so a long service
// can still span multiple weeks of short days.
func PlanDaySpans(totalMinutes int, startDate time.Time, startMinute int, cfg *schedule.Config) ([]DaySpan, bool) {
	hours := cfg.Resolve(startDate)
	if !hours.IsOpen() {
		return nil, false
	}

	untilClose := hours.CloseMinute - startMinute
	if totalMinutes <= untilClose {
		return []DaySpan{{Date: startDate, Minutes: totalMinutes}}, true
	}

	spans := []DaySpan{{Date: startDate, Minutes: untilClose}}
	outstanding := totalMinutes - untilClose
	current := startDate
	for outstanding > 0 {
		next, ok := cfg.NextOpenDay(current)
		if !ok {
			return nil, false
		}
		dayMinutes := cfg.Resolve(next).OpenMinutes()
		take := outstanding
		if dayMinutes < take {
			take = dayMinutes
		}
		spans = append(spans, DaySpan{Date: next, Minutes: take})
		outstanding -= take
		current = next
	}
	return spans, true
}
