package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"smallcrm/cmd/internal/domain/entity"
)

// AppointmentFilter selects appointments of one resource. A zero From or To
// leaves that side of the time range open; a nil Statuses matches any status.
type AppointmentFilter struct {
	ResourceID int
	Statuses   []entity.AppointmentStatus
	From       time.Time
	To         time.Time
	ExcludeID  *uuid.UUID
}

// Store is the read side the scheduler needs from the appointment and
// availability records.
type Store interface {
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]*entity.Appointment, error)
	ListActiveWindows(ctx context.Context, resourceID, weekday int) ([]*entity.AvailabilityWindow, error)
}

type Scheduler struct {
	store    Store
	location *time.Location
	now      func() time.Time
}

func New(store Store, location *time.Location) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{store: store, location: location, now: time.Now}
}

// WithClock returns a copy of the scheduler that reads the current time from now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Scheduler) Location() *time.Location {
	return s.location
}
