package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type SegmentRepository interface {
	FindAll(ctx context.Context) ([]*entity.CustomerSegment, error)
	FindByID(ctx context.Context, id int) (*entity.CustomerSegment, error)
	FindByName(ctx context.Context, name string) (*entity.CustomerSegment, error)
	Create(ctx context.Context, segment *entity.CustomerSegment) error
}

type AppointmentTypeRepository interface {
	FindAll(ctx context.Context) ([]*entity.AppointmentType, error)
	FindByID(ctx context.Context, id int) (*entity.AppointmentType, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, apptType *entity.AppointmentType) error
}

const defaultColor = "#007bff"

type SegmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

type SegmentResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type AppointmentTypeRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=1000"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=5,max=1440"`
	Color           string `json:"color" validate:"omitempty,hexcolor"`
	Price           string `json:"price" validate:"omitempty,money"`
}

type AppointmentTypeResponse struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Color           string `json:"color"`
	Price           string `json:"price"`
}

type DefaultCatalogService struct {
	SegmentRepo  SegmentRepository
	ApptTypeRepo AppointmentTypeRepository
	UserRepo     UserRepository
	Validate     *validator.Validate
}

func NewCatalogService(segmentRepo SegmentRepository, apptTypeRepo AppointmentTypeRepository, userRepo UserRepository, validate *validator.Validate) *DefaultCatalogService {
	return &DefaultCatalogService{SegmentRepo: segmentRepo, ApptTypeRepo: apptTypeRepo, UserRepo: userRepo, Validate: validate}
}

func (s *DefaultCatalogService) GetSegments(ctx context.Context) ([]*SegmentResponse, apierror.ErrorResponse) {
	segments, err := s.SegmentRepo.FindAll(ctx)
	if err != nil {
		log.Errorf("failed to fetch segments: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*SegmentResponse, len(segments))
	for i, segment := range segments {
		resp[i] = toSegmentResponse(segment)
	}
	return resp, nil
}

func (s *DefaultCatalogService) CreateSegment(ctx context.Context, req *SegmentRequest, callerSub string) (*SegmentResponse, apierror.ErrorResponse) {
	if apierr := s.requireAdmin(ctx, callerSub); apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	existing, err := s.SegmentRepo.FindByName(ctx, req.Name)
	if err != nil {
		log.Errorf("failed to check segment %q: %v", req.Name, err)
		return nil, apierror.InternalServerError
	}
	if existing != nil {
		return nil, apierror.SegmentExistsError
	}

	segment := &entity.CustomerSegment{Name: req.Name, Description: req.Description, Color: colorOrDefault(req.Color)}
	if err := s.SegmentRepo.Create(ctx, segment); err != nil {
		log.Errorf("failed to create segment: %v", err)
		return nil, apierror.InternalServerError
	}
	return toSegmentResponse(segment), nil
}

func (s *DefaultCatalogService) GetAppointmentTypes(ctx context.Context) ([]*AppointmentTypeResponse, apierror.ErrorResponse) {
	types, err := s.ApptTypeRepo.FindAll(ctx)
	if err != nil {
		log.Errorf("failed to fetch appointment types: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*AppointmentTypeResponse, len(types))
	for i, apptType := range types {
		resp[i] = toAppointmentTypeResponse(apptType)
	}
	return resp, nil
}

func (s *DefaultCatalogService) CreateAppointmentType(ctx context.Context, req *AppointmentTypeRequest, callerSub string) (*AppointmentTypeResponse, apierror.ErrorResponse) {
	if apierr := s.requireAdmin(ctx, callerSub); apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	price := decimal.Zero
	if req.Price != "" {
		var err error
		if price, err = decimal.NewFromString(req.Price); err != nil {
			return nil, apierror.NewInvalidParamError("price", "not a decimal amount")
		}
	}

	exists, err := s.ApptTypeRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		log.Errorf("failed to check appointment type %q: %v", req.Name, err)
		return nil, apierror.InternalServerError
	}
	if exists {
		return nil, apierror.AppointmentTypeExistsError
	}

	apptType := &entity.AppointmentType{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Color:           colorOrDefault(req.Color),
		Price:           price,
	}
	if err := s.ApptTypeRepo.Create(ctx, apptType); err != nil {
		log.Errorf("failed to create appointment type: %v", err)
		return nil, apierror.InternalServerError
	}
	return toAppointmentTypeResponse(apptType), nil
}

func (s *DefaultCatalogService) requireAdmin(ctx context.Context, callerSub string) apierror.ErrorResponse {
	caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
	if apierr != nil {
		return apierr
	}
	if !caller.IsAdmin {
		return apierror.AdminOnlyError
	}
	return nil
}

func colorOrDefault(color string) string {
	if color == "" {
		return defaultColor
	}
	return color
}

func toSegmentResponse(segment *entity.CustomerSegment) *SegmentResponse {
	return &SegmentResponse{
		ID:          segment.ID,
		Name:        segment.Name,
		Description: segment.Description,
		Color:       segment.Color,
	}
}

func toAppointmentTypeResponse(apptType *entity.AppointmentType) *AppointmentTypeResponse {
	return &AppointmentTypeResponse{
		ID:              apptType.ID,
		Name:            apptType.Name,
		Description:     apptType.Description,
		DurationMinutes: apptType.DurationMinutes,
		Color:           apptType.Color,
		Price:           apptType.Price.StringFixed(2),
	}
}
