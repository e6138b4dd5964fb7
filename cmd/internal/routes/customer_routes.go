package routes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type CustomerService interface {
	ListCustomers(ctx context.Context, params service.CustomerListParams) (*service.CustomerPage, apierror.ErrorResponse)
	CreateCustomer(ctx context.Context, req *service.CustomerRequest, callerSub string) (*service.CustomerResponse, apierror.ErrorResponse)
	GetCustomer(ctx context.Context, rawId string) (*service.CustomerDetailResponse, apierror.ErrorResponse)
	UpdateCustomer(ctx context.Context, rawId string, req *service.CustomerRequest) (*service.CustomerResponse, apierror.ErrorResponse)
	DeleteCustomer(ctx context.Context, rawId string) apierror.ErrorResponse
	AddInteraction(ctx context.Context, rawId string, req *service.InteractionRequest, callerSub string) (*service.InteractionResponse, apierror.ErrorResponse)
	AddPurchase(ctx context.Context, rawId string, req *service.PurchaseRequest) (*service.PurchaseResponse, apierror.ErrorResponse)
	ExportCSV(ctx context.Context, w io.Writer) apierror.ErrorResponse
	ImportCSV(ctx context.Context, r io.Reader, callerSub string) (*service.ImportReport, apierror.ErrorResponse)
	GetStats(ctx context.Context) (*service.CustomerStatsResponse, apierror.ErrorResponse)
}

type DefaultCustomerRoute struct {
	CustomerService CustomerService
}

func NewCustomerDefault(customerService CustomerService) *DefaultCustomerRoute {
	return &DefaultCustomerRoute{CustomerService: customerService}
}

func (r *DefaultCustomerRoute) ListCustomers(c echo.Context) error {
	params := service.CustomerListParams{
		Search:  strings.TrimSpace(c.QueryParam("search")),
		Segment: strings.TrimSpace(c.QueryParam("segment")),
		Status:  strings.TrimSpace(c.QueryParam("status")),
		Page:    strings.TrimSpace(c.QueryParam("page")),
	}

	page, apierr := r.CustomerService.ListCustomers(c.Request().Context(), params)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (r *DefaultCustomerRoute) CreateCustomer(c echo.Context) error {
	var req service.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	customer, apierr := r.CustomerService.CreateCustomer(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, customer)
}

func (r *DefaultCustomerRoute) GetCustomer(c echo.Context) error {
	detail, apierr := r.CustomerService.GetCustomer(c.Request().Context(), c.Param("id"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, detail)
}

func (r *DefaultCustomerRoute) UpdateCustomer(c echo.Context) error {
	var req service.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	customer, apierr := r.CustomerService.UpdateCustomer(c.Request().Context(), c.Param("id"), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, customer)
}

func (r *DefaultCustomerRoute) DeleteCustomer(c echo.Context) error {
	if apierr := r.CustomerService.DeleteCustomer(c.Request().Context(), c.Param("id")); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *DefaultCustomerRoute) AddInteraction(c echo.Context) error {
	var req service.InteractionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	interaction, apierr := r.CustomerService.AddInteraction(c.Request().Context(), c.Param("id"), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, interaction)
}

func (r *DefaultCustomerRoute) AddPurchase(c echo.Context) error {
	var req service.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	purchase, apierr := r.CustomerService.AddPurchase(c.Request().Context(), c.Param("id"), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, purchase)
}

func (r *DefaultCustomerRoute) ExportCSV(c echo.Context) error {
	var buf bytes.Buffer
	if apierr := r.CustomerService.ExportCSV(c.Request().Context(), &buf); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	filename := fmt.Sprintf("customers_%s.csv", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (r *DefaultCustomerRoute) ImportCSV(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("file"))
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") || header.Size > service.MaxImportSize {
		return c.JSON(http.StatusBadRequest, apierror.InvalidImportFileError)
	}

	file, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.InvalidImportFileError)
	}
	defer file.Close()

	report, apierr := r.CustomerService.ImportCSV(c.Request().Context(), io.LimitReader(file, service.MaxImportSize), data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, report)
}

func (r *DefaultCustomerRoute) GetStats(c echo.Context) error {
	stats, apierr := r.CustomerService.GetStats(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, stats)
}
