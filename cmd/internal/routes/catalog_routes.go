package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type CatalogService interface {
	GetSegments(ctx context.Context) ([]*service.SegmentResponse, apierror.ErrorResponse)
	CreateSegment(ctx context.Context, req *service.SegmentRequest, callerSub string) (*service.SegmentResponse, apierror.ErrorResponse)
	GetAppointmentTypes(ctx context.Context) ([]*service.AppointmentTypeResponse, apierror.ErrorResponse)
	CreateAppointmentType(ctx context.Context, req *service.AppointmentTypeRequest, callerSub string) (*service.AppointmentTypeResponse, apierror.ErrorResponse)
}

type DefaultCatalogRoute struct {
	CatalogService CatalogService
}

func NewCatalogDefault(catalogService CatalogService) *DefaultCatalogRoute {
	return &DefaultCatalogRoute{CatalogService: catalogService}
}

func (r *DefaultCatalogRoute) GetSegments(c echo.Context) error {
	segments, apierr := r.CatalogService.GetSegments(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"segments": segments}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCatalogRoute) CreateSegment(c echo.Context) error {
	var req service.SegmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	segment, apierr := r.CatalogService.CreateSegment(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, segment)
}

func (r *DefaultCatalogRoute) GetAppointmentTypes(c echo.Context) error {
	types, apierr := r.CatalogService.GetAppointmentTypes(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"appointment_types": types}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCatalogRoute) CreateAppointmentType(c echo.Context) error {
	var req service.AppointmentTypeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	apptType, apierr := r.CatalogService.CreateAppointmentType(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, apptType)
}
