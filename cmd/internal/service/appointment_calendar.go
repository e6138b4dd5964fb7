package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/scheduling"
	"smallcrm/cmd/internal/utils/apierror"
)

const (
	cancelledColor = "#dc3545"
	completedColor = "#28a745"

	feedLookback = 90 * 24 * time.Hour
)

type Slot struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Datetime string `json:"datetime"`
}

type SlotsResponse struct {
	Slots []Slot `json:"slots"`
}

type CalendarEventProps struct {
	Customer    string `json:"customer"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assigned_to"`
	Description string `json:"description"`
}

type CalendarEvent struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Start           string             `json:"start"`
	End             string             `json:"end"`
	BackgroundColor string             `json:"backgroundColor"`
	BorderColor     string             `json:"borderColor"`
	URL             string             `json:"url"`
	ExtendedProps   CalendarEventProps `json:"extendedProps"`
}

// GetSlots lists the free booking slots of a staff member on a date.
// rawDuration, in minutes, overrides the configured slot duration.
func (a *DefaultAppointmentService) GetSlots(ctx context.Context, rawDate, rawUserId, rawDuration string) (*SlotsResponse, apierror.ErrorResponse) {
	if rawDate == "" {
		return nil, apierror.NewMissingParamError("date")
	}
	if rawUserId == "" {
		return nil, apierror.NewMissingParamError("user_id")
	}
	userID, err := strconv.Atoi(rawUserId)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("user_id", "int32")
	}

	duration := a.SlotDuration
	if rawDuration != "" {
		minutes, err := strconv.Atoi(rawDuration)
		if err != nil || minutes <= 0 {
			return nil, apierror.InvalidDurationError
		}
		duration = time.Duration(minutes) * time.Minute
	}

	date, err := a.Scheduler.ParseDate(rawDate)
	if err != nil {
		return nil, apierror.InvalidDateError
	}

	slots, err := a.Scheduler.AvailableSlots(ctx, userID, date, duration)
	if errors.Is(err, scheduling.ErrInvalidInput) {
		return nil, apierror.InvalidDurationError
	}
	if err != nil {
		log.Errorf("failed to compute slots for user %d on %s: %v", userID, rawDate, err)
		return nil, apierror.InternalServerError
	}

	loc := a.Scheduler.Location()
	resp := &SlotsResponse{Slots: make([]Slot, len(slots))}
	for i, slot := range slots {
		start, end := slot.Start.In(loc), slot.End.In(loc)
		resp.Slots[i] = Slot{
			Start:    start.Format("15:04"),
			End:      end.Format("15:04"),
			Datetime: start.Format(time.RFC3339),
		}
	}
	return resp, nil
}

// GetCalendarEvents returns the appointments starting between two dates,
// both inclusive, shaped for a calendar widget.
// CalendarRange is the inclusive day range shown by the calendar widget.
type CalendarRange struct {
	Start string `json:"start" validate:"required,isodate"`
	End   string `json:"end" validate:"required,isodate"`
}

func (a *DefaultAppointmentService) GetCalendarEvents(ctx context.Context, rawStart, rawEnd string) ([]*CalendarEvent, apierror.ErrorResponse) {
	if err := a.Validate.Struct(&CalendarRange{Start: rawStart, End: rawEnd}); err != nil {
		return nil, apierror.FromValidationError(err)
	}
	start, err := a.Scheduler.ParseDate(rawStart)
	if err != nil {
		return nil, apierror.InvalidDateError
	}
	end, err := a.Scheduler.ParseDate(rawEnd)
	if err != nil {
		return nil, apierror.InvalidDateError
	}

	appts, _, err := a.AppointmentRepo.Search(ctx, repository.AppointmentQuery{
		StartsFrom: start.UnixMilli(),
		StartsTo:   end.AddDate(0, 0, 1).UnixMilli(),
	})
	if err != nil {
		log.Errorf("failed to fetch calendar appointments [%s - %s]: %v", rawStart, rawEnd, err)
		return nil, apierror.InternalServerError
	}

	loc := a.Scheduler.Location()
	events := make([]*CalendarEvent, len(appts))
	for i, appt := range appts {
		events[i] = toCalendarEvent(appt, loc)
	}
	return events, nil
}

// CalendarFeed renders appointments as an iCalendar document. A non-empty
// rawUserId restricts the feed to one staff member.
func (a *DefaultAppointmentService) CalendarFeed(ctx context.Context, rawUserId string) (string, apierror.ErrorResponse) {
	query := repository.AppointmentQuery{StartsFrom: a.Now().Add(-feedLookback).UnixMilli()}
	if rawUserId != "" {
		userID, err := strconv.Atoi(rawUserId)
		if err != nil {
			return "", apierror.NewInvalidParamTypeError("user_id", "int32")
		}
		query.AssignedTo = &userID
	}

	appts, _, err := a.AppointmentRepo.Search(ctx, query)
	if err != nil {
		log.Errorf("failed to fetch appointments for calendar feed: %v", err)
		return "", apierror.InternalServerError
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//smallcrm//appointments//EN")
	cal.SetXWRCalName("Appointments")

	stamp := a.Now().UTC()
	for _, appt := range appts {
		ev := cal.AddEvent(appt.ID.String() + "@smallcrm")
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(time.UnixMilli(appt.CreatedAt).UTC())
		ev.SetModifiedAt(time.UnixMilli(appt.UpdatedAt).UTC())
		ev.SetStartAt(time.UnixMilli(appt.StartsAt).UTC())
		ev.SetEndAt(time.UnixMilli(appt.EndsAt).UTC())
		ev.SetSummary(eventTitle(appt))
		if appt.Description != "" {
			ev.SetDescription(appt.Description)
		}
		if appt.Location != "" {
			ev.SetLocation(appt.Location)
		}
		if appt.MeetingURL != "" {
			ev.SetURL(appt.MeetingURL)
		}
		ev.SetStatus(icalStatus(appt.Status))
	}
	return cal.Serialize(), nil
}

func icalStatus(status entity.AppointmentStatus) ical.ObjectStatus {
	switch status {
	case entity.StatusConfirmed, entity.StatusCompleted:
		return ical.ObjectStatusConfirmed
	case entity.StatusCancelled, entity.StatusNoShow:
		return ical.ObjectStatusCancelled
	}
	return ical.ObjectStatusTentative
}

func eventTitle(appt *entity.Appointment) string {
	if appt.Customer == nil {
		return appt.Title
	}
	return fmt.Sprintf("%s - %s", appt.Title, appt.Customer.FullName())
}

func eventColor(appt *entity.Appointment) string {
	switch appt.Status {
	case entity.StatusCancelled:
		return cancelledColor
	case entity.StatusCompleted:
		return completedColor
	}
	if appt.AppointmentType != nil && appt.AppointmentType.Color != "" {
		return appt.AppointmentType.Color
	}
	return defaultColor
}

func toCalendarEvent(appt *entity.Appointment, loc *time.Location) *CalendarEvent {
	color := eventColor(appt)
	ev := &CalendarEvent{
		ID:              appt.ID.String(),
		Title:           eventTitle(appt),
		Start:           time.UnixMilli(appt.StartsAt).In(loc).Format(time.RFC3339),
		End:             time.UnixMilli(appt.EndsAt).In(loc).Format(time.RFC3339),
		BackgroundColor: color,
		BorderColor:     color,
		URL:             "/api/appointments/" + appt.ID.String(),
		ExtendedProps: CalendarEventProps{
			Status:      string(appt.Status),
			Description: appt.Description,
		},
	}
	if appt.Customer != nil {
		ev.ExtendedProps.Customer = appt.Customer.FullName()
	}
	if appt.AssignedTo != nil {
		ev.ExtendedProps.AssignedTo = appt.AssignedTo.FullName()
	}
	return ev
}
