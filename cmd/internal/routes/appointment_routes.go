package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type AppointmentService interface {
	ListAppointments(ctx context.Context, params service.AppointmentListParams) (*service.AppointmentPage, apierror.ErrorResponse)
	GetAppointment(ctx context.Context, rawId string) (*service.AppointmentDetailResponse, apierror.ErrorResponse)
	CreateAppointment(ctx context.Context, req *service.AppointmentRequest, callerSub string) (*service.AppointmentResponse, apierror.ErrorResponse)
	UpdateAppointment(ctx context.Context, rawId string, req *service.AppointmentRequest) (*service.AppointmentResponse, apierror.ErrorResponse)
	CancelAppointment(ctx context.Context, rawId string) (*service.AppointmentResponse, apierror.ErrorResponse)
	AddNote(ctx context.Context, rawId string, req *service.NoteRequest, callerSub string) (*service.NoteResponse, apierror.ErrorResponse)
	GetSlots(ctx context.Context, rawDate, rawUserId, rawDuration string) (*service.SlotsResponse, apierror.ErrorResponse)
	GetCalendarEvents(ctx context.Context, rawStart, rawEnd string) ([]*service.CalendarEvent, apierror.ErrorResponse)
	CalendarFeed(ctx context.Context, rawUserId string) (string, apierror.ErrorResponse)
	GetStats(ctx context.Context) (*service.AppointmentStatsResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	AppointmentService AppointmentService
}

func NewAppointmentDefault(apptService AppointmentService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{AppointmentService: apptService}
}

func (a *DefaultAppointmentRoute) GetAppointments(c echo.Context) error {
	params := service.AppointmentListParams{
		DateFrom:   strings.TrimSpace(c.QueryParam("date_from")),
		DateTo:     strings.TrimSpace(c.QueryParam("date_to")),
		Status:     strings.TrimSpace(c.QueryParam("status")),
		AssignedTo: strings.TrimSpace(c.QueryParam("assigned_to")),
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Page:       strings.TrimSpace(c.QueryParam("page")),
	}

	page, apierr := a.AppointmentService.ListAppointments(c.Request().Context(), params)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (a *DefaultAppointmentRoute) GetAppointment(c echo.Context) error {
	detail, apierr := a.AppointmentService.GetAppointment(c.Request().Context(), c.Param("id"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, detail)
}

func (a *DefaultAppointmentRoute) CreateAppointment(c echo.Context) error {
	var req service.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	appt, apierr := a.AppointmentService.CreateAppointment(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (a *DefaultAppointmentRoute) UpdateAppointment(c echo.Context) error {
	var req service.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	appt, apierr := a.AppointmentService.UpdateAppointment(c.Request().Context(), c.Param("id"), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) CancelAppointment(c echo.Context) error {
	appt, apierr := a.AppointmentService.CancelAppointment(c.Request().Context(), c.Param("id"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) AddNote(c echo.Context) error {
	var req service.NoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	note, apierr := a.AppointmentService.AddNote(c.Request().Context(), c.Param("id"), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, note)
}

func (a *DefaultAppointmentRoute) GetSlots(c echo.Context) error {
	slots, apierr := a.AppointmentService.GetSlots(c.Request().Context(),
		strings.TrimSpace(c.QueryParam("date")),
		strings.TrimSpace(c.QueryParam("user_id")),
		strings.TrimSpace(c.QueryParam("duration")))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, slots)
}

func (a *DefaultAppointmentRoute) GetCalendar(c echo.Context) error {
	events, apierr := a.AppointmentService.GetCalendarEvents(c.Request().Context(),
		strings.TrimSpace(c.QueryParam("start")),
		strings.TrimSpace(c.QueryParam("end")))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, events)
}

func (a *DefaultAppointmentRoute) GetCalendarFeed(c echo.Context) error {
	feed, apierr := a.AppointmentService.CalendarFeed(c.Request().Context(), strings.TrimSpace(c.QueryParam("user_id")))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

func (a *DefaultAppointmentRoute) GetStats(c echo.Context) error {
	stats, apierr := a.AppointmentService.GetStats(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, stats)
}
