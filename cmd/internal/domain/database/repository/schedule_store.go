package repository

import (
	"context"

	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/scheduling"
)

// ScheduleStore exposes the appointment and availability tables as the
// scheduler's read model.
type ScheduleStore struct {
	Appointments *DefaultAppointmentRepository
	Availability *DefaultAvailabilityRepository
}

var _ scheduling.Store = (*ScheduleStore)(nil)

func NewScheduleStore(appts *DefaultAppointmentRepository, availability *DefaultAvailabilityRepository) *ScheduleStore {
	return &ScheduleStore{Appointments: appts, Availability: availability}
}

func (s *ScheduleStore) ListAppointments(ctx context.Context, filter scheduling.AppointmentFilter) ([]*entity.Appointment, error) {
	return s.Appointments.ListAppointments(ctx, filter)
}

func (s *ScheduleStore) ListActiveWindows(ctx context.Context, resourceID, weekday int) ([]*entity.AvailabilityWindow, error) {
	return s.Availability.ListActiveWindows(ctx, resourceID, weekday)
}
