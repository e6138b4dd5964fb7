package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/scheduling"
)

// AppointmentQuery filters the appointment list by start time. Zero values
// disable a filter; a non-positive Limit returns every match.
type AppointmentQuery struct {
	StartsFrom int64
	StartsTo   int64
	Status     entity.AppointmentStatus
	AssignedTo *int
	Search     string
	Offset     int
	Limit      int
}

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

// ListAppointments returns the appointments of one resource that overlap the
// filter's time range. Only StartsAt and EndsAt plus identity columns are
// guaranteed to be loaded.
func (a *DefaultAppointmentRepository) ListAppointments(ctx context.Context, filter scheduling.AppointmentFilter) ([]*entity.Appointment, error) {
	query := conn(ctx, a.db).Model(&entity.Appointment{}).
		Select("id, resource_id, starts_at, ends_at, status").
		Where("resource_id = ?", filter.ResourceID)

	if filter.Statuses != nil {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if !filter.To.IsZero() {
		query = query.Where("starts_at < ?", filter.To.UnixMilli())
	}
	if !filter.From.IsZero() {
		query = query.Where("ends_at > ?", filter.From.UnixMilli())
	}
	if filter.ExcludeID != nil {
		query = query.Where("id <> ?", *filter.ExcludeID)
	}

	var appts []*entity.Appointment
	err := query.Order("starts_at asc").Find(&appts).Error
	return appts, err
}

func (a *DefaultAppointmentRepository) Search(ctx context.Context, q AppointmentQuery) ([]*entity.Appointment, int64, error) {
	query := conn(ctx, a.db).Model(&entity.Appointment{})
	if q.StartsFrom != 0 {
		query = query.Where("appointments.starts_at >= ?", q.StartsFrom)
	}
	if q.StartsTo != 0 {
		query = query.Where("appointments.starts_at < ?", q.StartsTo)
	}
	if q.Status != "" {
		query = query.Where("appointments.status = ?", q.Status)
	}
	if q.AssignedTo != nil {
		query = query.Where("appointments.resource_id = ?", *q.AssignedTo)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		query = query.
			Joins("JOIN customers ON customers.id = appointments.customer_id").
			Where("LOWER(appointments.title) LIKE ? OR LOWER(customers.first_name) LIKE ? OR "+
				"LOWER(customers.last_name) LIKE ? OR LOWER(customers.email) LIKE ?",
				like, like, like, like)
	}

	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = withRelations(query).Order("appointments.starts_at asc")
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}

	var appts []*entity.Appointment
	err := query.Find(&appts).Error
	return appts, total, err
}

func (a *DefaultAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := withRelations(conn(ctx, a.db)).First(&appt, "appointments.id = ?", id).Error
	return notFoundAsNil(&appt, err)
}

func (a *DefaultAppointmentRepository) Create(ctx context.Context, appt *entity.Appointment) error {
	return conn(ctx, a.db).Omit(clause.Associations).Create(appt).Error
}

func (a *DefaultAppointmentRepository) Save(ctx context.Context, appt *entity.Appointment) error {
	return conn(ctx, a.db).Omit(clause.Associations).Save(appt).Error
}

// FindDueReminders returns active appointments starting in [from, to) whose
// reminder has not been sent yet.
func (a *DefaultAppointmentRepository) FindDueReminders(ctx context.Context, from, to int64) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := withRelations(conn(ctx, a.db)).
		Where("appointments.status IN ?", entity.ActiveStatuses).
		Where("appointments.reminder_sent = ?", false).
		Where("appointments.starts_at >= ? AND appointments.starts_at < ?", from, to).
		Order("appointments.starts_at asc").
		Find(&appts).Error
	return appts, err
}

func (a *DefaultAppointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return a.updateColumn(ctx, id, "reminder_sent", true)
}

func (a *DefaultAppointmentRepository) MarkConfirmationSent(ctx context.Context, id uuid.UUID) error {
	return a.updateColumn(ctx, id, "confirmation_sent", true)
}

func (a *DefaultAppointmentRepository) SetGoogleEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return a.updateColumn(ctx, id, "google_event_id", eventID)
}

func (a *DefaultAppointmentRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	return conn(ctx, a.db).Model(&entity.Appointment{}).
		Where("id = ?", id).
		UpdateColumn(column, value).Error
}

// CountStarting counts appointments starting in [from, to), optionally
// restricted to the given statuses.
func (a *DefaultAppointmentRepository) CountStarting(ctx context.Context, from, to int64, statuses ...entity.AppointmentStatus) (int64, error) {
	query := conn(ctx, a.db).Model(&entity.Appointment{}).
		Where("starts_at >= ? AND starts_at < ?", from, to)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountEndedBefore counts appointments that ended before the given instant,
// optionally restricted to the given statuses.
func (a *DefaultAppointmentRepository) CountEndedBefore(ctx context.Context, before int64, statuses ...entity.AppointmentStatus) (int64, error) {
	query := conn(ctx, a.db).Model(&entity.Appointment{}).Where("ends_at < ?", before)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (a *DefaultAppointmentRepository) CountByStatus(ctx context.Context, from, to int64) (map[entity.AppointmentStatus]int64, error) {
	var rows []struct {
		Status entity.AppointmentStatus
		Count  int64
	}
	err := conn(ctx, a.db).Model(&entity.Appointment{}).
		Select("status, COUNT(*) AS count").
		Where("starts_at >= ? AND starts_at < ?", from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Customer").Preload("AppointmentType").Preload("AssignedTo")
}

type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

func (n *DefaultNoteRepository) Create(ctx context.Context, note *entity.AppointmentNote) error {
	return conn(ctx, n.db).Omit(clause.Associations).Create(note).Error
}

// FindByAppointment returns the notes of an appointment, newest first.
func (n *DefaultNoteRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*entity.AppointmentNote, error) {
	var notes []*entity.AppointmentNote
	err := conn(ctx, n.db).Preload("CreatedBy").
		Where("appointment_id = ?", appointmentID).
		Order("created_at desc").Order("id desc").
		Find(&notes).Error
	return notes, err
}
