package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"smallcrm/cmd/internal/domain/entity"
)

// HasConflict reports whether [start, end) overlaps any active appointment of
// the resource. excludeID, when set, skips that appointment so an edit does not
// collide with itself.
func (s *Scheduler) HasConflict(ctx context.Context, resourceID int, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	want := Interval{Start: start, End: end}
	if !want.Valid() {
		return false, ErrInvalidInterval
	}
	if start.Before(s.now()) {
		return false, ErrStartInPast
	}

	appts, err := s.store.ListAppointments(ctx, AppointmentFilter{
		ResourceID: resourceID,
		Statuses:   entity.ActiveStatuses,
		From:       start,
		To:         end,
		ExcludeID:  excludeID,
	})
	if err != nil {
		return false, err
	}
	return anyOverlap(want, appts, excludeID), nil
}

func anyOverlap(want Interval, appts []*entity.Appointment, excludeID *uuid.UUID) bool {
	for _, appt := range appts {
		if excludeID != nil && appt.ID == *excludeID {
			continue
		}
		if !appt.Status.IsActive() {
			continue
		}
		if Overlaps(want, appointmentInterval(appt)) {
			return true
		}
	}
	return false
}
