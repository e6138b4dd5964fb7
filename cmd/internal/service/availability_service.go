package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type AvailabilityRepository interface {
	FindByResource(ctx context.Context, resourceID int) ([]*entity.AvailabilityWindow, error)
	FindByID(ctx context.Context, id int) (*entity.AvailabilityWindow, error)
	ExistsByKey(ctx context.Context, resourceID, weekday int, start entity.TimeOfDay, excludeID int) (bool, error)
	Create(ctx context.Context, window *entity.AvailabilityWindow) error
	Save(ctx context.Context, window *entity.AvailabilityWindow) error
	Delete(ctx context.Context, window *entity.AvailabilityWindow) error
}

type AvailabilityRequest struct {
	UserID    int    `json:"user_id" validate:"required,gt=0"`
	Weekday   *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	IsActive  *bool  `json:"is_active"`
}

type AvailabilityResponse struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

type DefaultAvailabilityService struct {
	AvailabilityRepo AvailabilityRepository
	UserRepo         UserRepository
	Validate         *validator.Validate
}

func NewAvailabilityService(availabilityRepo AvailabilityRepository, userRepo UserRepository, validate *validator.Validate) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{AvailabilityRepo: availabilityRepo, UserRepo: userRepo, Validate: validate}
}

func (s *DefaultAvailabilityService) GetUserAvailability(ctx context.Context, rawUserId, callerSub string) ([]*AvailabilityResponse, apierror.ErrorResponse) {
	var userID int
	if rawUserId == "@me" {
		caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
		if apierr != nil {
			return nil, apierr
		}
		userID = caller.ID
	} else {
		id, err := strconv.Atoi(rawUserId)
		if err != nil {
			return nil, apierror.NewInvalidParamTypeError("id", "int32")
		}
		userID = id
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		log.Errorf("failed to find user %d: %v", userID, err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.NotFoundError
	}

	windows, err := s.AvailabilityRepo.FindByResource(ctx, userID)
	if err != nil {
		log.Errorf("failed to fetch availability of user %d: %v", userID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*AvailabilityResponse, len(windows))
	for i, window := range windows {
		resp[i] = toAvailabilityResponse(window)
	}
	return resp, nil
}

func (s *DefaultAvailabilityService) CreateAvailability(ctx context.Context, req *AvailabilityRequest, callerSub string) (*AvailabilityResponse, apierror.ErrorResponse) {
	window := &entity.AvailabilityWindow{IsActive: true}
	if apierr := s.applyRequest(ctx, window, req, callerSub); apierr != nil {
		return nil, apierr
	}

	if err := s.AvailabilityRepo.Create(ctx, window); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.AvailabilityExistsError
		}
		log.Errorf("failed to create availability window: %v", err)
		return nil, apierror.InternalServerError
	}
	return toAvailabilityResponse(window), nil
}

func (s *DefaultAvailabilityService) UpdateAvailability(ctx context.Context, rawId string, req *AvailabilityRequest, callerSub string) (*AvailabilityResponse, apierror.ErrorResponse) {
	window, apierr := s.fetchWindow(ctx, rawId, callerSub)
	if apierr != nil {
		return nil, apierr
	}
	if apierr := s.applyRequest(ctx, window, req, callerSub); apierr != nil {
		return nil, apierr
	}

	if err := s.AvailabilityRepo.Save(ctx, window); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.AvailabilityExistsError
		}
		log.Errorf("failed to update availability window %d: %v", window.ID, err)
		return nil, apierror.InternalServerError
	}
	return toAvailabilityResponse(window), nil
}

func (s *DefaultAvailabilityService) DeleteAvailability(ctx context.Context, rawId, callerSub string) apierror.ErrorResponse {
	window, apierr := s.fetchWindow(ctx, rawId, callerSub)
	if apierr != nil {
		return apierr
	}

	if err := s.AvailabilityRepo.Delete(ctx, window); err != nil {
		log.Errorf("failed to delete availability window %d: %v", window.ID, err)
		return apierror.InternalServerError
	}
	return nil
}

// applyRequest validates req and copies it onto window. Staff members manage
// their own windows; administrators manage anyone's.
func (s *DefaultAvailabilityService) applyRequest(ctx context.Context, window *entity.AvailabilityWindow, req *AvailabilityRequest, callerSub string) apierror.ErrorResponse {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	if apierr := s.authorize(ctx, req.UserID, callerSub); apierr != nil {
		return apierr
	}

	start, err := entity.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return apierror.NewInvalidParamError("start_time", "expected HH:MM")
	}
	end, err := entity.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return apierror.NewInvalidParamError("end_time", "expected HH:MM")
	}
	if end <= start {
		return apierror.InvalidIntervalError
	}

	user, err := s.UserRepo.FindByID(ctx, req.UserID)
	if err != nil {
		log.Errorf("failed to find user %d: %v", req.UserID, err)
		return apierror.InternalServerError
	}
	if user == nil || !user.IsActive {
		return apierror.UnknownResourceError
	}

	taken, err := s.AvailabilityRepo.ExistsByKey(ctx, req.UserID, *req.Weekday, start, window.ID)
	if err != nil {
		log.Errorf("failed to check availability window key: %v", err)
		return apierror.InternalServerError
	}
	if taken {
		return apierror.AvailabilityExistsError
	}

	window.ResourceID = req.UserID
	window.Weekday = *req.Weekday
	window.StartTime = start
	window.EndTime = end
	if req.IsActive != nil {
		window.IsActive = *req.IsActive
	}
	return nil
}

func (s *DefaultAvailabilityService) fetchWindow(ctx context.Context, rawId, callerSub string) (*entity.AvailabilityWindow, apierror.ErrorResponse) {
	id, err := strconv.Atoi(rawId)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("id", "int32")
	}
	window, err := s.AvailabilityRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to find availability window %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if window == nil {
		return nil, apierror.NotFoundError
	}
	if apierr := s.authorize(ctx, window.ResourceID, callerSub); apierr != nil {
		return nil, apierr
	}
	return window, nil
}

func (s *DefaultAvailabilityService) authorize(ctx context.Context, resourceID int, callerSub string) apierror.ErrorResponse {
	caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
	if apierr != nil {
		return apierr
	}
	if !caller.IsAdmin && caller.ID != resourceID {
		return apierror.AdminOnlyError
	}
	return nil
}

func toAvailabilityResponse(window *entity.AvailabilityWindow) *AvailabilityResponse {
	return &AvailabilityResponse{
		ID:        window.ID,
		UserID:    window.ResourceID,
		Weekday:   window.Weekday,
		StartTime: window.StartTime.String(),
		EndTime:   window.EndTime.String(),
		IsActive:  window.IsActive,
	}
}
