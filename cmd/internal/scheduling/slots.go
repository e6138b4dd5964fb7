package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smallcrm/cmd/internal/domain/entity"
)

const DefaultSlotDuration = time.Hour

// ParseDate parses a "YYYY-MM-DD" calendar date in the scheduler's location.
func (s *Scheduler) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, raw, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, raw)
	}
	return d, nil
}

// AvailableSlots lists the free slots of slotDuration on the given date for
// the resource, in ascending start order. A resource with no active windows on
// that weekday yields an empty list.
func (s *Scheduler) AvailableSlots(ctx context.Context, resourceID int, date time.Time, slotDuration time.Duration) ([]Interval, error) {
	if slotDuration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", ErrInvalidInput)
	}

	y, m, d := date.In(s.location).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.location)

	windows, err := s.store.ListActiveWindows(ctx, resourceID, Weekday(day))
	if err != nil {
		return nil, err
	}

	candidates := candidateSlots(day, windows, slotDuration)
	if len(candidates) == 0 {
		return []Interval{}, nil
	}

	span := Interval{Start: candidates[0].Start, End: candidates[0].End}
	for _, c := range candidates[1:] {
		if c.End.After(span.End) {
			span.End = c.End
		}
	}

	appts, err := s.store.ListAppointments(ctx, AppointmentFilter{
		ResourceID: resourceID,
		Statuses:   entity.ActiveStatuses,
		From:       span.Start,
		To:         span.End,
	})
	if err != nil {
		return nil, err
	}

	free := make([]Interval, 0, len(candidates))
	for _, c := range candidates {
		if !anyOverlap(c, appts, nil) {
			free = append(free, c)
		}
	}
	return free, nil
}

// candidateSlots cuts every window into back-to-back slots. A trailing piece
// shorter than slotDuration is dropped so no slot runs past its window's end.
// The result is sorted by start and free of duplicates.
func candidateSlots(day time.Time, windows []*entity.AvailabilityWindow, slotDuration time.Duration) []Interval {
	var out []Interval
	for _, w := range windows {
		if !w.IsActive || w.EndTime <= w.StartTime {
			continue
		}
		start, end := w.StartTime.On(day), w.EndTime.On(day)
		for t := start; !t.Add(slotDuration).After(end); t = t.Add(slotDuration) {
			out = append(out, Interval{Start: t, End: t.Add(slotDuration)})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})

	deduped := make([]Interval, 0, len(out))
	for _, c := range out {
		if n := len(deduped); n > 0 && c.Start.Equal(deduped[n-1].Start) && c.End.Equal(deduped[n-1].End) {
			continue
		}
		deduped = append(deduped, c)
	}
	return deduped
}
