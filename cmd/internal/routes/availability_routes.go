package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type AvailabilityService interface {
	GetUserAvailability(ctx context.Context, rawUserId, callerSub string) ([]*service.AvailabilityResponse, apierror.ErrorResponse)
	CreateAvailability(ctx context.Context, req *service.AvailabilityRequest, callerSub string) (*service.AvailabilityResponse, apierror.ErrorResponse)
	UpdateAvailability(ctx context.Context, rawId string, req *service.AvailabilityRequest, callerSub string) (*service.AvailabilityResponse, apierror.ErrorResponse)
	DeleteAvailability(ctx context.Context, rawId, callerSub string) apierror.ErrorResponse
}

type DefaultAvailabilityRoute struct {
	AvailabilityService AvailabilityService
}

func NewAvailabilityDefault(availabilityService AvailabilityService) *DefaultAvailabilityRoute {
	return &DefaultAvailabilityRoute{AvailabilityService: availabilityService}
}

func (r *DefaultAvailabilityRoute) GetUserAvailability(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	windows, apierr := r.AvailabilityService.GetUserAvailability(c.Request().Context(), c.Param("id"), data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"availability": windows}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultAvailabilityRoute) CreateAvailability(c echo.Context) error {
	var req service.AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	window, apierr := r.AvailabilityService.CreateAvailability(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, window)
}

func (r *DefaultAvailabilityRoute) UpdateAvailability(c echo.Context) error {
	var req service.AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	window, apierr := r.AvailabilityService.UpdateAvailability(c.Request().Context(), c.Param("id"), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, window)
}

func (r *DefaultAvailabilityRoute) DeleteAvailability(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	if apierr := r.AvailabilityService.DeleteAvailability(c.Request().Context(), c.Param("id"), data.Sub); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}
