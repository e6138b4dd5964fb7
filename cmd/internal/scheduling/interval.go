package scheduling

import (
	"time"

	"smallcrm/cmd/internal/domain/entity"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether two half-open intervals intersect.
// Intervals that only touch (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func appointmentInterval(appt *entity.Appointment) Interval {
	return Interval{
		Start: time.UnixMilli(appt.StartsAt),
		End:   time.UnixMilli(appt.EndsAt),
	}
}

// Weekday returns the weekday of t numbered Monday = 0 through Sunday = 6,
// matching entity.AvailabilityWindow.Weekday.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
