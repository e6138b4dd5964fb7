package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/cache"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/integration"
	"smallcrm/cmd/internal/scheduling"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type AppointmentRepository interface {
	Search(ctx context.Context, q repository.AppointmentQuery) ([]*entity.Appointment, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	Create(ctx context.Context, appt *entity.Appointment) error
	Save(ctx context.Context, appt *entity.Appointment) error
	MarkConfirmationSent(ctx context.Context, id uuid.UUID) error
	SetGoogleEventID(ctx context.Context, id uuid.UUID, eventID string) error
	CountStarting(ctx context.Context, from, to int64, statuses ...entity.AppointmentStatus) (int64, error)
	CountEndedBefore(ctx context.Context, before int64, statuses ...entity.AppointmentStatus) (int64, error)
	CountByStatus(ctx context.Context, from, to int64) (map[entity.AppointmentStatus]int64, error)
}

type NoteRepository interface {
	Create(ctx context.Context, note *entity.AppointmentNote) error
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*entity.AppointmentNote, error)
}

// BookingTransactor runs a booking decision and its write atomically.
type BookingTransactor interface {
	Transactor
	LockResource(ctx context.Context, resourceID int) error
}

type Scheduler interface {
	HasConflict(ctx context.Context, resourceID int, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	AvailableSlots(ctx context.Context, resourceID int, date time.Time, slotDuration time.Duration) ([]scheduling.Interval, error)
	ParseDate(raw string) (time.Time, error)
	Location() *time.Location
}

// AppointmentNotifier performs the side effects of a booking decision.
type AppointmentNotifier interface {
	SendConfirmation(ctx context.Context, appt *entity.Appointment) integration.Result
	SendCancellation(ctx context.Context, appt *entity.Appointment) integration.Result
	CreateCalendarEvent(ctx context.Context, appt *entity.Appointment) (string, integration.Result)
	UpdateCalendarEvent(ctx context.Context, appt *entity.Appointment) (string, integration.Result)
	DeleteCalendarEvent(ctx context.Context, appt *entity.Appointment) integration.Result
}

var errSlotTaken = errors.New("slot already taken")

type AppointmentRequest struct {
	CustomerID        string `json:"customer_id" validate:"required,uuid"`
	AppointmentTypeID int    `json:"appointment_type_id" validate:"required,gt=0"`
	AssignedToID      int    `json:"assigned_to_id" validate:"required,gt=0"`
	Title             string `json:"title" validate:"required,max=200"`
	Description       string `json:"description"`
	StartsAt          string `json:"starts_at" validate:"required,iso8601"`
	EndsAt            string `json:"ends_at" validate:"omitempty,iso8601"`
	Location          string `json:"location" validate:"max=200"`
	MeetingURL        string `json:"meeting_url" validate:"omitempty,url"`
	MeetingID         string `json:"meeting_id" validate:"max=100"`
	Status            string `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled no_show"`
}

type AppointmentListParams struct {
	DateFrom   string
	DateTo     string
	Status     string
	AssignedTo string
	Search     string
	Page       string
}

type NoteRequest struct {
	Note string `json:"note" validate:"required"`
}

type AppointmentResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	CustomerID        string `json:"customer_id"`
	CustomerName      string `json:"customer_name"`
	AppointmentTypeID int    `json:"appointment_type_id"`
	AppointmentType   string `json:"appointment_type"`
	AssignedToID      int    `json:"assigned_to_id"`
	AssignedTo        string `json:"assigned_to"`
	StartsAt          string `json:"starts_at"`
	EndsAt            string `json:"ends_at"`
	DurationMinutes   int64  `json:"duration_minutes"`
	Status            string `json:"status"`
	Location          string `json:"location"`
	MeetingURL        string `json:"meeting_url"`
	MeetingID         string `json:"meeting_id"`
	ReminderSent      bool   `json:"reminder_sent"`
	ConfirmationSent  bool   `json:"confirmation_sent"`
	GoogleEventID     string `json:"google_event_id,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type AppointmentPage struct {
	Appointments []*AppointmentResponse `json:"appointments"`
	Page
}

type NoteResponse struct {
	ID        int    `json:"id"`
	Note      string `json:"note"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

type AppointmentDetailResponse struct {
	Appointment *AppointmentResponse `json:"appointment"`
	Notes       []*NoteResponse      `json:"notes"`
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	NoteRepo        NoteRepository
	CustomerRepo    CustomerRepository
	ApptTypeRepo    AppointmentTypeRepository
	UserRepo        UserRepository
	Tx              BookingTransactor
	Scheduler       Scheduler
	Notifier        AppointmentNotifier
	Cache           cache.Cache
	StatsTTL        time.Duration
	SlotDuration    time.Duration
	Validate        *validator.Validate
	Now             func() time.Time
}

func NewAppointmentService(
	apptRepo AppointmentRepository,
	noteRepo NoteRepository,
	customerRepo CustomerRepository,
	apptTypeRepo AppointmentTypeRepository,
	userRepo UserRepository,
	tx BookingTransactor,
	scheduler Scheduler,
	notifier AppointmentNotifier,
	validate *validator.Validate,
) *DefaultAppointmentService {
	return &DefaultAppointmentService{
		AppointmentRepo: apptRepo,
		NoteRepo:        noteRepo,
		CustomerRepo:    customerRepo,
		ApptTypeRepo:    apptTypeRepo,
		UserRepo:        userRepo,
		Tx:              tx,
		Scheduler:       scheduler,
		Notifier:        notifier,
		Cache:           cache.NoopCache{},
		StatsTTL:        5 * time.Minute,
		SlotDuration:    scheduling.DefaultSlotDuration,
		Validate:        validate,
		Now:             time.Now,
	}
}

func (a *DefaultAppointmentService) ListAppointments(ctx context.Context, params AppointmentListParams) (*AppointmentPage, apierror.ErrorResponse) {
	page, apierr := parsePage(params.Page)
	if apierr != nil {
		return nil, apierr
	}

	query := repository.AppointmentQuery{
		Search: params.Search,
		Offset: (page - 1) * PageSize,
		Limit:  PageSize,
	}
	if params.DateFrom != "" {
		from, err := a.Scheduler.ParseDate(params.DateFrom)
		if err != nil {
			return nil, apierror.InvalidDateError
		}
		query.StartsFrom = from.UnixMilli()
	}
	if params.DateTo != "" {
		to, err := a.Scheduler.ParseDate(params.DateTo)
		if err != nil {
			return nil, apierror.InvalidDateError
		}
		query.StartsTo = to.AddDate(0, 0, 1).UnixMilli()
	}
	if params.Status != "" {
		if !validAppointmentStatus(entity.AppointmentStatus(params.Status)) {
			return nil, apierror.NewInvalidParamError("status", "unknown appointment status")
		}
		query.Status = entity.AppointmentStatus(params.Status)
	}
	if params.AssignedTo != "" {
		userID, err := strconv.Atoi(params.AssignedTo)
		if err != nil {
			return nil, apierror.NewInvalidParamTypeError("assigned_to", "int32")
		}
		query.AssignedTo = &userID
	}

	appts, total, err := a.AppointmentRepo.Search(ctx, query)
	if err != nil {
		log.Errorf("failed to search appointments: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := &AppointmentPage{Appointments: make([]*AppointmentResponse, len(appts)), Page: newPage(page, total)}
	for i, appt := range appts {
		resp.Appointments[i] = toAppointmentResponse(appt)
	}
	return resp, nil
}

func (a *DefaultAppointmentService) GetAppointment(ctx context.Context, rawId string) (*AppointmentDetailResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetchAppointment(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	notes, err := a.NoteRepo.FindByAppointment(ctx, appt.ID)
	if err != nil {
		log.Errorf("failed to fetch notes of appointment %s: %v", appt.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := &AppointmentDetailResponse{
		Appointment: toAppointmentResponse(appt),
		Notes:       make([]*NoteResponse, len(notes)),
	}
	for i, note := range notes {
		resp.Notes[i] = toNoteResponse(note)
	}
	return resp, nil
}

func (a *DefaultAppointmentService) CreateAppointment(ctx context.Context, req *AppointmentRequest, callerSub string) (*AppointmentResponse, apierror.ErrorResponse) {
	caller, apierr := resolveCaller(ctx, a.UserRepo, callerSub)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := a.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	appt := &entity.Appointment{Status: entity.StatusScheduled, CreatedByID: &caller.ID}
	if req.Status != "" {
		appt.Status = entity.AppointmentStatus(req.Status)
	}
	if apierr := a.applyRequest(ctx, appt, req, true); apierr != nil {
		return nil, apierr
	}

	err := a.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := a.Tx.LockResource(ctx, appt.ResourceID); err != nil {
			return err
		}
		if err := a.checkSlot(ctx, appt, nil); err != nil {
			return err
		}
		return a.AppointmentRepo.Create(ctx, appt)
	})
	if apierr := bookingError(err, "create appointment"); apierr != nil {
		return nil, apierr
	}

	saved, apierr := a.reload(ctx, appt.ID)
	if apierr != nil {
		return nil, apierr
	}

	subject := fmt.Sprintf("appointment %s", saved.ID)
	eventID, res := a.Notifier.CreateCalendarEvent(ctx, saved)
	res.Log(subject)
	if eventID != "" {
		a.storeEventID(ctx, saved, eventID)
	}

	res = a.Notifier.SendConfirmation(ctx, saved)
	res.Log(subject)
	if res.Succeeded() {
		if err := a.AppointmentRepo.MarkConfirmationSent(ctx, saved.ID); err != nil {
			log.Errorf("failed to mark confirmation sent for %s: %v", subject, err)
		} else {
			saved.ConfirmationSent = true
		}
	}

	a.invalidateStats(ctx)
	log.Infof("created %s for resource %d", subject, saved.ResourceID)
	return toAppointmentResponse(saved), nil
}

func (a *DefaultAppointmentService) UpdateAppointment(ctx context.Context, rawId string, req *AppointmentRequest) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetchAppointment(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := a.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	before := *appt
	if req.Status != "" {
		appt.Status = entity.AppointmentStatus(req.Status)
	}
	if apierr := a.applyRequest(ctx, appt, req, req.CustomerID != before.CustomerID.String()); apierr != nil {
		return nil, apierr
	}

	// Only a change that can newly occupy time is checked, so past
	// appointments can still be closed as completed or no-show.
	needsCheck := appt.Status.IsActive() && (appt.StartsAt != before.StartsAt ||
		appt.EndsAt != before.EndsAt ||
		appt.ResourceID != before.ResourceID ||
		!before.Status.IsActive())

	appt.Customer, appt.AppointmentType, appt.AssignedTo = nil, nil, nil
	err := a.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if needsCheck {
			if err := a.Tx.LockResource(ctx, appt.ResourceID); err != nil {
				return err
			}
			if err := a.checkSlot(ctx, appt, &appt.ID); err != nil {
				return err
			}
		} else if appt.EndsAt <= appt.StartsAt {
			return scheduling.ErrInvalidInterval
		}
		return a.AppointmentRepo.Save(ctx, appt)
	})
	if apierr := bookingError(err, "update appointment"); apierr != nil {
		return nil, apierr
	}

	saved, apierr := a.reload(ctx, appt.ID)
	if apierr != nil {
		return nil, apierr
	}

	subject := fmt.Sprintf("appointment %s", saved.ID)
	eventID, res := a.Notifier.UpdateCalendarEvent(ctx, saved)
	res.Log(subject)
	if eventID != "" && eventID != saved.GoogleEventID {
		a.storeEventID(ctx, saved, eventID)
	}

	a.invalidateStats(ctx)
	return toAppointmentResponse(saved), nil
}

// CancelAppointment cancels an active appointment that has not started yet.
func (a *DefaultAppointmentService) CancelAppointment(ctx context.Context, rawId string) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetchAppointment(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	if !appt.Status.IsActive() || appt.StartsAt <= a.Now().UnixMilli() {
		return nil, apierror.AppointmentNotCancellableError
	}

	appt.Status = entity.StatusCancelled
	if err := a.AppointmentRepo.Save(ctx, appt); err != nil {
		log.Errorf("failed to cancel appointment %s: %v", appt.ID, err)
		return nil, apierror.InternalServerError
	}

	subject := fmt.Sprintf("appointment %s", appt.ID)
	a.Notifier.DeleteCalendarEvent(ctx, appt).Log(subject)
	a.Notifier.SendCancellation(ctx, appt).Log(subject)

	a.invalidateStats(ctx)
	log.Infof("cancelled %s", subject)
	return toAppointmentResponse(appt), nil
}

func (a *DefaultAppointmentService) AddNote(ctx context.Context, rawId string, req *NoteRequest, callerSub string) (*NoteResponse, apierror.ErrorResponse) {
	caller, apierr := resolveCaller(ctx, a.UserRepo, callerSub)
	if apierr != nil {
		return nil, apierr
	}
	appt, apierr := a.fetchAppointment(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := a.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	note := &entity.AppointmentNote{AppointmentID: appt.ID, Note: req.Note, CreatedByID: caller.ID}
	if err := a.NoteRepo.Create(ctx, note); err != nil {
		log.Errorf("failed to add note to appointment %s: %v", appt.ID, err)
		return nil, apierror.InternalServerError
	}
	note.CreatedBy = caller
	return toNoteResponse(note), nil
}

// applyRequest copies the request onto appt, resolving every reference.
// The customer's bookability is only checked when checkCustomer is set.
func (a *DefaultAppointmentService) applyRequest(ctx context.Context, appt *entity.Appointment, req *AppointmentRequest, checkCustomer bool) apierror.ErrorResponse {
	start, err := utils.FromEpoch(req.StartsAt)
	if err != nil {
		return apierror.MalformedBodyError
	}

	customerID, apierr := parseUUID("customer_id", req.CustomerID)
	if apierr != nil {
		return apierr
	}
	customer, err := a.CustomerRepo.FindByID(ctx, customerID)
	if err != nil {
		log.Errorf("failed to find customer %s: %v", customerID, err)
		return apierror.InternalServerError
	}
	if customer == nil {
		return apierror.UnknownCustomerError
	}
	if checkCustomer && !customer.Status.CanBook() {
		return apierror.CustomerNotBookableError
	}

	apptType, err := a.ApptTypeRepo.FindByID(ctx, req.AppointmentTypeID)
	if err != nil {
		log.Errorf("failed to find appointment type %d: %v", req.AppointmentTypeID, err)
		return apierror.InternalServerError
	}
	if apptType == nil {
		return apierror.UnknownAppointmentTypeError
	}

	resource, err := a.UserRepo.FindByID(ctx, req.AssignedToID)
	if err != nil {
		log.Errorf("failed to find user %d: %v", req.AssignedToID, err)
		return apierror.InternalServerError
	}
	if resource == nil || !resource.IsActive {
		return apierror.UnknownResourceError
	}

	end := start + int64(apptType.DurationMinutes)*time.Minute.Milliseconds()
	if req.EndsAt != "" {
		if end, err = utils.FromEpoch(req.EndsAt); err != nil {
			return apierror.MalformedBodyError
		}
	}

	appt.CustomerID = customer.ID
	appt.AppointmentTypeID = apptType.ID
	appt.ResourceID = resource.ID
	appt.Title = req.Title
	appt.Description = req.Description
	appt.StartsAt = start
	appt.EndsAt = end
	appt.Location = req.Location
	appt.MeetingURL = req.MeetingURL
	appt.MeetingID = req.MeetingID
	return nil
}

func (a *DefaultAppointmentService) checkSlot(ctx context.Context, appt *entity.Appointment, excludeID *uuid.UUID) error {
	conflict, err := a.Scheduler.HasConflict(ctx, appt.ResourceID,
		time.UnixMilli(appt.StartsAt), time.UnixMilli(appt.EndsAt), excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return errSlotTaken
	}
	return nil
}

// bookingError maps the outcome of a booking transaction to an API error.
func bookingError(err error, action string) apierror.ErrorResponse {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrInvalidInterval):
		return apierror.InvalidIntervalError
	case errors.Is(err, scheduling.ErrStartInPast):
		return apierror.AppointmentInPastError
	case errors.Is(err, errSlotTaken), repository.IsOverlapViolation(err):
		return apierror.AppointmentConflictError
	}
	log.Errorf("failed to %s: %v", action, err)
	return apierror.InternalServerError
}

func (a *DefaultAppointmentService) fetchAppointment(ctx context.Context, rawId string) (*entity.Appointment, apierror.ErrorResponse) {
	id, apierr := parseUUID("id", rawId)
	if apierr != nil {
		return nil, apierr
	}
	appt, err := a.AppointmentRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to find appointment %s: %v", rawId, err)
		return nil, apierror.InternalServerError
	}
	if appt == nil {
		return nil, apierror.NotFoundError
	}
	return appt, nil
}

func (a *DefaultAppointmentService) reload(ctx context.Context, id uuid.UUID) (*entity.Appointment, apierror.ErrorResponse) {
	appt, err := a.AppointmentRepo.FindByID(ctx, id)
	if err != nil || appt == nil {
		log.Errorf("failed to reload appointment %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	return appt, nil
}

func (a *DefaultAppointmentService) storeEventID(ctx context.Context, appt *entity.Appointment, eventID string) {
	if err := a.AppointmentRepo.SetGoogleEventID(ctx, appt.ID, eventID); err != nil {
		log.Errorf("failed to store calendar event id for appointment %s: %v", appt.ID, err)
		return
	}
	appt.GoogleEventID = eventID
}

func validAppointmentStatus(status entity.AppointmentStatus) bool {
	switch status {
	case entity.StatusScheduled, entity.StatusConfirmed, entity.StatusCompleted, entity.StatusCancelled, entity.StatusNoShow:
		return true
	}
	return false
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:                appt.ID.String(),
		Title:             appt.Title,
		Description:       appt.Description,
		CustomerID:        appt.CustomerID.String(),
		AppointmentTypeID: appt.AppointmentTypeID,
		AssignedToID:      appt.ResourceID,
		StartsAt:          utils.FormatEpoch(appt.StartsAt),
		EndsAt:            utils.FormatEpoch(appt.EndsAt),
		DurationMinutes:   (appt.EndsAt - appt.StartsAt) / time.Minute.Milliseconds(),
		Status:            string(appt.Status),
		Location:          appt.Location,
		MeetingURL:        appt.MeetingURL,
		MeetingID:         appt.MeetingID,
		ReminderSent:      appt.ReminderSent,
		ConfirmationSent:  appt.ConfirmationSent,
		GoogleEventID:     appt.GoogleEventID,
		CreatedAt:         utils.FormatEpoch(appt.CreatedAt),
		UpdatedAt:         utils.FormatEpoch(appt.UpdatedAt),
	}
	if appt.Customer != nil {
		resp.CustomerName = appt.Customer.FullName()
	}
	if appt.AppointmentType != nil {
		resp.AppointmentType = appt.AppointmentType.Name
	}
	if appt.AssignedTo != nil {
		resp.AssignedTo = appt.AssignedTo.FullName()
	}
	return resp
}

func toNoteResponse(note *entity.AppointmentNote) *NoteResponse {
	resp := &NoteResponse{
		ID:        note.ID,
		Note:      note.Note,
		CreatedAt: utils.FormatEpoch(note.CreatedAt),
	}
	if note.CreatedBy != nil {
		resp.CreatedBy = note.CreatedBy.FullName()
	}
	return resp
}
